package harness

import "time"

// Summary is the usage/cost aggregate a Session keeps while the unit of
// work runs. Token counts are normalized across providers (see
// GenerationInfo); cost is computed from the session's Pricing table as
// usage is recorded.
//
// Hosts attach a snapshot of the Summary to terminal events and to every
// Outcome, including failed and canceled ones.
type Summary struct {
	// InputTokens is the total prompt tokens across all provider calls.
	InputTokens int

	// OutputTokens is the total completion tokens across all calls.
	OutputTokens int

	// CachedInputTokens is the portion of InputTokens served from cache.
	CachedInputTokens int

	// ReasoningTokens is the total reasoning/thinking tokens.
	ReasoningTokens int

	// TotalTokens is InputTokens + OutputTokens.
	TotalTokens int

	// Requests is the number of provider calls recorded.
	Requests int

	// Cost is the total estimated cost in USD.
	Cost float64

	// CostByModel breaks Cost down per model identifier.
	CostByModel map[string]float64

	// InputTokensByModel breaks InputTokens down per model identifier.
	InputTokensByModel map[string]int

	// OutputTokensByModel breaks OutputTokens down per model identifier.
	OutputTokensByModel map[string]int

	// Duration is how long the session has been running, or the final
	// duration once the host reached terminal state.
	Duration time.Duration
}

func newSummary() *Summary {
	return &Summary{
		CostByModel:         make(map[string]float64),
		InputTokensByModel:  make(map[string]int),
		OutputTokensByModel: make(map[string]int),
	}
}

// Clone returns a deep copy. Sessions hand out clones so callers can
// never mutate the live aggregate.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	out := &Summary{
		InputTokens:         s.InputTokens,
		OutputTokens:        s.OutputTokens,
		CachedInputTokens:   s.CachedInputTokens,
		ReasoningTokens:     s.ReasoningTokens,
		TotalTokens:         s.TotalTokens,
		Requests:            s.Requests,
		Cost:                s.Cost,
		Duration:            s.Duration,
		CostByModel:         make(map[string]float64, len(s.CostByModel)),
		InputTokensByModel:  make(map[string]int, len(s.InputTokensByModel)),
		OutputTokensByModel: make(map[string]int, len(s.OutputTokensByModel)),
	}
	for k, v := range s.CostByModel {
		out.CostByModel[k] = v
	}
	for k, v := range s.InputTokensByModel {
		out.InputTokensByModel[k] = v
	}
	for k, v := range s.OutputTokensByModel {
		out.OutputTokensByModel[k] = v
	}
	return out
}

// add folds one provider call's usage into the aggregate.
func (s *Summary) add(model string, info *GenerationInfo, cost float64) {
	if info == nil {
		return
	}
	s.InputTokens += info.InputTokens
	s.OutputTokens += info.OutputTokens
	s.CachedInputTokens += info.CachedInputTokens
	s.ReasoningTokens += info.ReasoningTokens
	s.TotalTokens += info.TotalTokens
	s.Requests++
	s.Cost += cost
	if model != "" {
		s.CostByModel[model] += cost
		s.InputTokensByModel[model] += info.InputTokens
		s.OutputTokensByModel[model] += info.OutputTokens
	}
}
