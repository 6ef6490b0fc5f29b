package mocks

import (
	"context"
	"sync"
)

// MockNotifier records alert messages
type MockNotifier struct {
	Err      error
	Messages []string
	mu       sync.Mutex
}

// NewMockNotifier creates a notifier that succeeds
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Messages: []string{}}
}

// Notify captures the message and returns Err
func (m *MockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return m.Err
}

// Count returns the number of alerts sent
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}
