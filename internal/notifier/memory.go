package notifier

import (
	"context"
	"sync"
)

// MemorySink keeps delivered messages in memory. Err, when set, fails
// every delivery.
type MemorySink struct {
	mu       sync.Mutex
	messages []string
	Err      error
}

func (m *MemorySink) Send(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, text)
	return nil
}

// SetErr changes the delivery failure.
func (m *MemorySink) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Messages returns a copy of the delivered messages.
func (m *MemorySink) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}
