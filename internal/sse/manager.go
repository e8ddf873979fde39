package sse

import (
	"sync"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/goccy/go-json"
)

// Event is the payload written to the stream as "data: <json>".
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time int64       `json:"time"`
}

// SSEManager fans events out to every open stream of a user.
type SSEManager struct {
	clients    map[string]map[chan []byte]struct{} // userID -> connection channels
	clientsMux sync.RWMutex
	closed     bool

	logger *logger.Logger
}

func NewSSEManager(logger *logger.Logger) *SSEManager {
	return &SSEManager{
		clients: make(map[string]map[chan []byte]struct{}),
		logger:  logger,
	}
}

// AddClient registers a stream. The returned channel is closed by
// RemoveClient or Close, never by the caller.
func (s *SSEManager) AddClient(userID string) chan []byte {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	channel := make(chan []byte, 16)
	if s.closed {
		close(channel)
		return channel
	}
	if s.clients[userID] == nil {
		s.clients[userID] = make(map[chan []byte]struct{})
	}
	s.clients[userID][channel] = struct{}{}

	s.logger.Info("Added SSE client for user:", userID, "total clients:", len(s.clients[userID]))
	return channel
}

func (s *SSEManager) RemoveClient(userID string, channel chan []byte) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return
	}
	if _, ok := userClients[channel]; !ok {
		return
	}
	delete(userClients, channel)
	close(channel)

	if len(userClients) == 0 {
		delete(s.clients, userID)
	}
	s.logger.Info("Removed SSE client for user:", userID, "remaining clients:", len(userClients))
}

// BroadcastToUser never blocks; a stream whose buffer is full misses the
// event.
func (s *SSEManager) BroadcastToUser(userID string, eventType string, data interface{}) {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return
	}

	jsonData, err := Encode(eventType, data)
	if err != nil {
		s.logger.Error("Failed to marshal broadcast event:", err)
		return
	}

	for channel := range userClients {
		select {
		case channel <- jsonData:
		default:
			s.logger.Warn("Dropped", eventType, "event for slow SSE client of user:", userID)
		}
	}
}

// Encode renders one event as JSON.
func Encode(eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Data: data, Time: time.Now().Unix()})
}

// Close ends every open stream.
func (s *SSEManager) Close() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	s.closed = true
	for userID, userClients := range s.clients {
		for channel := range userClients {
			close(channel)
		}
		delete(s.clients, userID)
	}
}

func (s *SSEManager) GetUserConnectionCount(userID string) int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return len(s.clients[userID])
}
