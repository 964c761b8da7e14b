package harness

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ModelRate holds per-million-token prices in USD for one model.
type ModelRate struct {
	// Input is the price per million prompt tokens.
	Input float64 `yaml:"input"`

	// Output is the price per million completion tokens.
	Output float64 `yaml:"output"`

	// CachedInput is the price per million cached prompt tokens.
	// Zero means cached tokens are billed at the Input rate.
	CachedInput float64 `yaml:"cached_input"`
}

// Pricing maps model identifiers to token rates. Unknown models cost
// zero, so a missing table never breaks bookkeeping.
//
// Tables can be built in code with SetRate or loaded from YAML:
//
//	gpt-4o:
//	  input: 2.50
//	  output: 10.00
//	  cached_input: 1.25
type Pricing struct {
	rates map[string]ModelRate
}

// NewPricing creates an empty pricing table.
func NewPricing() *Pricing {
	return &Pricing{rates: make(map[string]ModelRate)}
}

// DefaultPricing returns a table seeded with rates for common models.
// The numbers go stale; production callers should load their own table.
func DefaultPricing() *Pricing {
	p := NewPricing()
	p.SetRate("gpt-4o", ModelRate{Input: 2.50, Output: 10.00, CachedInput: 1.25})
	p.SetRate("gpt-4o-mini", ModelRate{Input: 0.15, Output: 0.60, CachedInput: 0.075})
	p.SetRate("claude-sonnet-4-20250514", ModelRate{Input: 3.00, Output: 15.00, CachedInput: 0.30})
	p.SetRate("claude-haiku-3-5-20241022", ModelRate{Input: 0.80, Output: 4.00, CachedInput: 0.08})
	return p
}

// LoadPricing reads a YAML table of model rates.
func LoadPricing(r io.Reader) (*Pricing, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}

	rates := make(map[string]ModelRate)
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}

	return &Pricing{rates: rates}, nil
}

// SetRate sets or replaces the rate for a model. Returns the table for
// chaining.
func (p *Pricing) SetRate(model string, rate ModelRate) *Pricing {
	p.rates[model] = rate
	return p
}

// Rate returns the rate for a model and whether one is configured.
func (p *Pricing) Rate(model string) (ModelRate, bool) {
	rate, ok := p.rates[model]
	return rate, ok
}

// Cost estimates the USD cost of one generation. Cached input tokens are
// billed at the cached rate when one is configured, otherwise at the
// input rate. Unknown models cost zero.
func (p *Pricing) Cost(model string, info *GenerationInfo) float64 {
	if p == nil || info == nil {
		return 0
	}
	rate, ok := p.rates[model]
	if !ok {
		return 0
	}

	cached := info.CachedInputTokens
	if cached > info.InputTokens {
		cached = info.InputTokens
	}
	uncached := info.InputTokens - cached

	cachedRate := rate.CachedInput
	if cachedRate == 0 {
		cachedRate = rate.Input
	}

	const million = 1_000_000
	return float64(uncached)*rate.Input/million +
		float64(cached)*cachedRate/million +
		float64(info.OutputTokens)*rate.Output/million
}
