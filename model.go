package harness

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Model is the provider-call surface a Session uses. It wraps LangChainGo's
// llms.Model with normalized token usage so Summary bookkeeping works the
// same across providers. See the models package for the standard wrapper.
//
// Implementations must observe ctx: a host cancels the effective context
// the moment it reaches terminal state, and that is the only mechanism
// that stops an in-flight provider call.
type Model interface {
	// Name identifies the model for Summary bookkeeping and pricing
	// lookups. May be empty, in which case usage is aggregated without
	// a per-model breakdown.
	Name() string

	GenerateContent(
		ctx context.Context,
		messages []llms.MessageContent,
		options ...llms.CallOption,
	) (*ContentResponse, error)
}

// ContentResponse is the response from a GenerateContent call.
type ContentResponse struct {
	// Choices contains the generated content choices.
	Choices []*ContentChoice

	// Info contains generation metadata including normalized token counts.
	Info *GenerationInfo
}

// ContentChoice is a single content choice from the model.
type ContentChoice struct {
	// Content is the textual content of the response.
	Content string

	// StopReason is the reason the model stopped generating.
	StopReason string

	// ToolCalls is a list of tool calls the model asks to invoke.
	ToolCalls []llms.ToolCall

	// ReasoningContent contains reasoning/thinking content if supported.
	ReasoningContent string
}

// GenerationInfo contains metadata about one generation with token counts
// normalized across providers (OpenAI PromptTokens, Anthropic InputTokens,
// and so on all land in the same fields).
type GenerationInfo struct {
	// InputTokens is the number of input/prompt tokens used.
	InputTokens int

	// OutputTokens is the number of output/completion tokens generated.
	OutputTokens int

	// TotalTokens is the total token count (input + output).
	TotalTokens int

	// CachedInputTokens is the number of input tokens served from cache.
	CachedInputTokens int

	// ReasoningTokens is the number of tokens used for reasoning/thinking.
	ReasoningTokens int

	// RawGenerationInfo contains the original provider-specific map for
	// fields not covered by the normalized ones.
	RawGenerationInfo map[string]any

	// Duration is how long the generation took.
	Duration time.Duration
}
