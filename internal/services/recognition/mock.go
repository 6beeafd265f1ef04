package recognition

import (
	"context"
	"sync"
)

// MockRecognizer is a scripted Recognizer for tests. Call i returns Texts[i],
// or Err when i equals FailAt. Submitted paths are recorded in order.
type MockRecognizer struct {
	Texts  []string
	FailAt int // index of the call that returns Err; -1 disables
	Err    error

	mu    sync.Mutex
	Calls []string
}

// NewMockRecognizer returns a mock that succeeds for every scripted text.
func NewMockRecognizer(texts ...string) *MockRecognizer {
	return &MockRecognizer{Texts: texts, FailAt: -1}
}

func (m *MockRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.Calls)
	m.Calls = append(m.Calls, audioPath)

	if m.FailAt >= 0 && i == m.FailAt {
		return "", m.Err
	}
	if i < len(m.Texts) {
		return m.Texts[i], nil
	}
	return "", nil
}

// CallCount returns how many recognition calls were made.
func (m *MockRecognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
