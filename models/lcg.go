// Package models provides Model implementations for harness sessions.
package models

import (
	"context"
	"time"

	"github.com/rickchristie/harness"
	"github.com/tmc/langchaingo/llms"
)

// LCGWrapper wraps a LangChainGo llms.Model and implements harness.Model.
// It normalizes token usage across providers so Summary bookkeeping and
// pricing lookups work the same everywhere.
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCGWrapper(llm).WithName("gpt-4o")
//	host := harness.StartStream(work, harness.WithModel(model))
type LCGWrapper struct {
	model llms.Model
	name  string
}

// NewLCGWrapper creates a wrapper around the given llms.Model.
func NewLCGWrapper(model llms.Model) *LCGWrapper {
	return &LCGWrapper{model: model}
}

// WithName sets the model identifier used for usage bookkeeping and
// pricing lookups. Returns the wrapper for chaining.
func (m *LCGWrapper) WithName(name string) *LCGWrapper {
	m.name = name
	return m
}

// Unwrap returns the underlying llms.Model.
func (m *LCGWrapper) Unwrap() llms.Model {
	return m.model
}

// Name implements harness.Model.
func (m *LCGWrapper) Name() string {
	return m.name
}

// GenerateContent implements harness.Model. Token usage is normalized
// across providers; the raw provider map stays available in
// Info.RawGenerationInfo.
func (m *LCGWrapper) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*harness.ContentResponse, error) {
	start := time.Now()
	resp, err := m.model.GenerateContent(ctx, messages, options...)
	duration := time.Since(start)

	if resp == nil {
		return nil, err
	}
	return convertResponse(resp, duration), err
}

// convertResponse converts an llms.ContentResponse with normalized
// token counts.
func convertResponse(src *llms.ContentResponse, duration time.Duration) *harness.ContentResponse {
	out := &harness.ContentResponse{
		Choices: make([]*harness.ContentChoice, len(src.Choices)),
		Info:    &harness.GenerationInfo{Duration: duration},
	}

	for i, choice := range src.Choices {
		out.Choices[i] = &harness.ContentChoice{
			Content:          choice.Content,
			StopReason:       choice.StopReason,
			ToolCalls:        choice.ToolCalls,
			ReasoningContent: choice.ReasoningContent,
		}
	}

	if len(src.Choices) > 0 && src.Choices[0].GenerationInfo != nil {
		raw := src.Choices[0].GenerationInfo
		out.Info.RawGenerationInfo = raw
		out.Info.InputTokens = extractInputTokens(raw)
		out.Info.OutputTokens = extractOutputTokens(raw)
		out.Info.TotalTokens = extractTotalTokens(raw, out.Info.InputTokens, out.Info.OutputTokens)
		out.Info.CachedInputTokens = extractCachedInputTokens(raw)
		out.Info.ReasoningTokens = extractReasoningTokens(raw)
	}

	return out
}

// extractInputTokens handles the prompt-token key names used by
// different providers.
func extractInputTokens(info map[string]any) int {
	// OpenAI / Ollama / Google (compat)
	if v := intFromMap(info, "PromptTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := intFromMap(info, "InputTokens"); v > 0 {
		return v
	}
	// Google / Bedrock
	return intFromMap(info, "input_tokens")
}

func extractOutputTokens(info map[string]any) int {
	if v := intFromMap(info, "CompletionTokens"); v > 0 {
		return v
	}
	if v := intFromMap(info, "OutputTokens"); v > 0 {
		return v
	}
	return intFromMap(info, "output_tokens")
}

func extractTotalTokens(info map[string]any, input, output int) int {
	if v := intFromMap(info, "TotalTokens"); v > 0 {
		return v
	}
	if v := intFromMap(info, "total_tokens"); v > 0 {
		return v
	}
	return input + output
}

func extractCachedInputTokens(info map[string]any) int {
	// OpenAI
	if v := intFromMap(info, "PromptCachedTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := intFromMap(info, "CacheReadInputTokens"); v > 0 {
		return v
	}
	// Google / Ollama
	return intFromMap(info, "CachedTokens")
}

func extractReasoningTokens(info map[string]any) int {
	if v := intFromMap(info, "ReasoningTokens"); v > 0 {
		return v
	}
	if v := intFromMap(info, "CompletionReasoningTokens"); v > 0 {
		return v
	}
	return intFromMap(info, "ThinkingTokens")
}

// intFromMap extracts an int, tolerating the numeric types providers
// actually put in GenerationInfo maps.
func intFromMap(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

var _ harness.Model = (*LCGWrapper)(nil)
