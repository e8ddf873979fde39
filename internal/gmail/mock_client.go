package gmail

import (
	"context"
	"sync"

	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/service"
)

// MockTransport records outgoing messages instead of sending them.
type MockTransport struct {
	SendFunc func(ctx context.Context, sender *model.User, msg service.OutboundMessage) error

	mu   sync.Mutex
	sent []service.OutboundMessage
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Send(ctx context.Context, sender *model.User, msg service.OutboundMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, sender, msg)
	}
	return nil
}

func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *MockTransport) Sent() []service.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.OutboundMessage(nil), m.sent...)
}
