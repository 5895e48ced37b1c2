package classify

import (
	"errors"
	"fmt"
	"math"
)

// Softmax converts logits into a probability distribution. NaN or infinite
// logits are rejected.
func Softmax(logits []float32) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("empty logits")
	}
	maxLogit := math.Inf(-1)
	for i, l := range logits {
		v := float64(l)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("logit %d is not finite: %v", i, v)
		}
		if v > maxLogit {
			maxLogit = v
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argmax returns the index of the largest value; the lowest index wins ties.
// It returns -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best == -1 || v > values[best] {
			best = i
		}
	}
	return best
}
