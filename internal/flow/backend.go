package flow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Backend is the external collaborator behind a flow adapter: one opaque,
// retryable call that turns a task description into output text.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Execute runs the task description on the backend and returns its
	// output. Errors are retryable per the adapter's policy.
	Execute(ctx context.Context, description string) (string, error)
}

// MockBackend returns deterministic responses for local runs and tests.
type MockBackend struct {
	responses       map[string]string
	defaultResponse string

	mu sync.Mutex
	// scriptedErrs is consumed one entry per call; a nil entry means the
	// call succeeds. When exhausted, calls succeed.
	scriptedErrs []error
	// delay is applied before each call returns.
	delay time.Duration
	// gate, when set, blocks each call until a value is received.
	gate  <-chan struct{}
	calls int
}

// NewMockBackend creates a mock backend with a default response.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockBackendWithResponses creates a mock backend with predefined
// per-description responses.
func NewMockBackendWithResponses(responses map[string]string, defaultResponse string) *MockBackend {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockBackend{responses: responses, defaultResponse: defaultResponse}
}

// ScriptErrors sets the sequence of per-call outcomes. A nil entry means
// success; a non-nil entry is returned as that call's error.
func (b *MockBackend) ScriptErrors(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scriptedErrs = errs
}

// SetDelay makes every call sleep before returning.
func (b *MockBackend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// SetGate makes every call block until a value is received on gate.
func (b *MockBackend) SetGate(gate <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = gate
}

// Calls returns the number of Execute invocations so far.
func (b *MockBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Name returns the backend identifier.
func (b *MockBackend) Name() string {
	return "mock"
}

// Execute returns a deterministic response for the description, honoring
// any scripted errors, delay, or gate.
func (b *MockBackend) Execute(ctx context.Context, description string) (string, error) {
	b.mu.Lock()
	b.calls++
	var scripted error
	if len(b.scriptedErrs) > 0 {
		scripted = b.scriptedErrs[0]
		b.scriptedErrs = b.scriptedErrs[1:]
	}
	delay := b.delay
	gate := b.gate
	response, ok := b.responses[description]
	defaultResponse := b.defaultResponse
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if scripted != nil {
		return "", scripted
	}
	if ok {
		return response, nil
	}
	return fmt.Sprintf("%s\n%s", defaultResponse, description), nil
}
