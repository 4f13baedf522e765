package playback

import (
	"io"
	"sync"
)

// MockSink is a Sink for tests: it swallows the stream and lets the test
// decide when playback "finishes".
type MockSink struct {
	mu       sync.Mutex
	done     chan struct{}
	closed   bool
	LastData []byte
	Starts   int
	Stops    int
	startErr error
}

// NewMockSink creates a mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// FailNextStart makes the next Start return err.
func (m *MockSink) FailNextStart(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// Start records the stream contents and returns a channel the test
// completes via Finish or Stop.
func (m *MockSink) Start(src io.Reader) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		err := m.startErr
		m.startErr = nil
		return nil, err
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	m.LastData = data
	m.Starts++
	m.done = make(chan struct{})
	m.closed = false
	return m.done, nil
}

// Finish simulates natural end-of-media.
func (m *MockSink) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil && !m.closed {
		close(m.done)
		m.closed = true
	}
}

// Stop simulates an explicit halt; like the device sink it also
// completes the done channel.
func (m *MockSink) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	if m.done != nil && !m.closed {
		close(m.done)
		m.closed = true
	}
}
