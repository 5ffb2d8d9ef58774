package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockModel is a scripted in-memory Model useful for tests and examples. It
// replays a fixed sequence of responses, one per Generate call.
type MockModel struct {
	mu        sync.Mutex
	responses []ModelResponse
	calls     []ModelRequest
	err       error
}

// NewMockModel constructs a MockModel that replays the given responses.
func NewMockModel(responses ...ModelResponse) *MockModel {
	return &MockModel{responses: responses}
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) { m.mu.Lock(); defer m.mu.Unlock(); m.err = err }

// Generate implements Model; pops the next scripted response.
func (m *MockModel) Generate(_ context.Context, req ModelRequest) (*ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock model: no scripted responses left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return &resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}

// Calls returns the recorded generation requests.
func (m *MockModel) Calls() []ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ModelRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
