// Package testutil provides test doubles for code that depends on the llm client.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/semreport/llm"
)

// MockLLMClient is a thread-safe stand-in for *llm.Client.
//
// Usage:
//
//	// Single reply
//	mock := &MockLLMClient{
//	    Responses: []*llm.Response{{Content: `{"accuracy": true}`}},
//	}
//
//	// Fail once, then reply
//	mock := &MockLLMClient{
//	    Errors:    []error{llm.NewTransientError(errors.New("reset"))},
//	    Responses: []*llm.Response{{Content: `{"accuracy": true}`}},
//	}
//
//	// Custom behaviour, e.g. blocking until ctx is cancelled
//	mock := &MockLLMClient{Handler: func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
//	    <-ctx.Done()
//	    return nil, ctx.Err()
//	}}
type MockLLMClient struct {
	// Handler, when set, serves every call.
	Handler func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Errors are returned in order, one per call, before any response.
	Errors []error

	// Responses are returned in order once Errors are used up.
	Responses []*llm.Response

	// Err is returned on every call once Errors are used up.
	Err error

	mu              sync.Mutex
	capturedContext context.Context
	requests        []llm.Request
	errorIndex      int
	responseIndex   int
}

// Complete records the call and returns the next configured outcome.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.capturedContext = ctx
	m.requests = append(m.requests, req)
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errorIndex < len(m.Errors) {
		err := m.Errors[m.errorIndex]
		m.errorIndex++
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// GetCapturedContext returns the last context passed to Complete.
func (m *MockLLMClient) GetCapturedContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedContext
}

// GetCallCount returns the number of Complete calls.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received, in call order.
func (m *MockLLMClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// Reset clears recorded calls and rewinds the configured sequences.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.errorIndex = 0
	m.responseIndex = 0
	m.capturedContext = nil
}
