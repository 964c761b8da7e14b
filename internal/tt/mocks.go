// Package tt provides shared test tooling: a scripted Model and event
// sequence assertions.
package tt

import (
	"context"
	"sync"
	"time"

	"github.com/rickchristie/harness"
	"github.com/tmc/langchaingo/llms"
)

// ScriptedModel implements harness.Model with a queue of canned
// responses. Each GenerateContent call pops the next response (or
// error) in order; calls beyond the script return the last entry.
type ScriptedModel struct {
	mu        sync.Mutex
	name      string
	responses []*harness.ContentResponse
	errors    []error
	delay     time.Duration
	calls     int

	// CapturedMessages stores the messages of every call, in order.
	CapturedMessages [][]llms.MessageContent
}

// NewScriptedModel creates a model named "test-model".
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{name: "test-model"}
}

// WithName sets the model name used for bookkeeping.
func (m *ScriptedModel) WithName(name string) *ScriptedModel {
	m.name = name
	return m
}

// WithDelay makes every call sleep (cancellably) before answering.
func (m *ScriptedModel) WithDelay(d time.Duration) *ScriptedModel {
	m.delay = d
	return m
}

// AddResponse queues a response with the given content and token counts.
func (m *ScriptedModel) AddResponse(content string, inputTokens, outputTokens int) *ScriptedModel {
	m.responses = append(m.responses, &harness.ContentResponse{
		Choices: []*harness.ContentChoice{{Content: content}},
		Info: &harness.GenerationInfo{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
	})
	m.errors = append(m.errors, nil)
	return m
}

// AddError queues a call that fails with err.
func (m *ScriptedModel) AddError(err error) *ScriptedModel {
	m.responses = append(m.responses, nil)
	m.errors = append(m.errors, err)
	return m
}

// Calls returns how many times GenerateContent ran.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name implements harness.Model.
func (m *ScriptedModel) Name() string {
	return m.name
}

// GenerateContent implements harness.Model.
func (m *ScriptedModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*harness.ContentResponse, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedMessages = append(m.CapturedMessages, messages)

	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++

	if idx < 0 {
		return &harness.ContentResponse{
			Choices: []*harness.ContentChoice{{Content: ""}},
			Info:    &harness.GenerationInfo{},
		}, nil
	}
	return m.responses[idx], m.errors[idx]
}

var _ harness.Model = (*ScriptedModel)(nil)
