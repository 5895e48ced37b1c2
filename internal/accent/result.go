package accent

import (
	"fmt"
	"math"
)

// Result is the terminal output of one analysis. Only Accent, Confidence and
// Summary are part of the rendered contract.
type Result struct {
	Label         Label     `json:"-"`
	Accent        string    `json:"accent"`
	Confidence    float64   `json:"confidence"`
	Summary       string    `json:"summary"`
	Probabilities []float64 `json:"-"`
}

// NewResult builds a result for the winning label and its probability.
// probs is retained for diagnostics and is expected to be in label order.
func NewResult(label Label, probability float64, probs []float64) Result {
	confidence := RoundConfidence(probability)
	display := label.Display()
	return Result{
		Label:         label,
		Accent:        display,
		Confidence:    confidence,
		Summary:       Summary(display, confidence),
		Probabilities: probs,
	}
}

// RoundConfidence converts a probability to a percentage rounded to one decimal.
func RoundConfidence(p float64) float64 {
	return math.Round(p*100*10) / 10
}

// Summary renders the human-readable result sentence.
func Summary(display string, confidence float64) string {
	return fmt.Sprintf("Detected accent: %s (Confidence: %.1f%%)", display, confidence)
}

// Distribution pairs every label with its probability in model order.
type Distribution []Score

// Score is one label probability.
type Score struct {
	Label       Label
	Probability float64
}

// Distribution returns the per-label probabilities, or nil if none were kept.
func (r Result) Distribution() Distribution {
	if len(r.Probabilities) != Count {
		return nil
	}
	out := make(Distribution, Count)
	for i, p := range r.Probabilities {
		out[i] = Score{Label: labels[i], Probability: p}
	}
	return out
}
