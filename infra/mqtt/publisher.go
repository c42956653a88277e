package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/relief/core/model"
	coremqtt "github.com/kilianp07/relief/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Messages  []model.Notification
	FailTypes map[model.NotificationType]bool
	mu        sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTypes: make(map[model.NotificationType]bool)}
}

// PublishNotification records the message or returns an error if configured to fail.
func (m *MockPublisher) PublishNotification(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTypes[n.Type] {
		return fmt.Errorf("%w: %s", coremqtt.ErrPublish, n.Type)
	}
	m.Messages = append(m.Messages, n)
	return nil
}

// Published returns a copy of the recorded notifications.
func (m *MockPublisher) Published() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Notification(nil), m.Messages...)
}
