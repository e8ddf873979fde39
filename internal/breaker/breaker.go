// Package breaker builds the circuit breakers that guard outbound provider
// calls.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/sony/gobreaker"
)

// New trips after more than five consecutive failures, or when at least 60%
// of ten or more requests in a window failed. An open breaker rejects calls
// for 30 seconds before letting three trial requests through.
//
// Only provider faults count. A cancelled caller never does, and errors for
// which callerFault reports true (unknown handles, one user's revoked grant)
// are returned without being held against the provider.
func New(name string, log *logger.Logger, callerFault func(error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return callerFault != nil && callerFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			}
		},
	})
}
