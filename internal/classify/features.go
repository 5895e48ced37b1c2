package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"accentid/internal/media/waveform"
)

// normEpsilon is added to the variance before normalizing.
const normEpsilon = 1e-7

// FeatureExtractor mirrors a Wav2Vec2 feature extractor configuration.
type FeatureExtractor struct {
	SamplingRate        int     `json:"sampling_rate"`
	DoNormalize         bool    `json:"do_normalize"`
	ReturnAttentionMask bool    `json:"return_attention_mask"`
	PaddingValue        float64 `json:"padding_value"`
	FeatureSize         int     `json:"feature_size"`
}

// DefaultFeatureExtractor matches the Wav2Vec2 defaults.
func DefaultFeatureExtractor() FeatureExtractor {
	return FeatureExtractor{
		SamplingRate:        16000,
		DoNormalize:         true,
		ReturnAttentionMask: true,
		FeatureSize:         1,
	}
}

// LoadFeatureExtractor reads preprocessor_config.json. Missing keys keep
// their defaults.
func LoadFeatureExtractor(path string) (FeatureExtractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeatureExtractor{}, fmt.Errorf("read feature extractor config: %w", err)
	}
	fx := DefaultFeatureExtractor()
	if err := json.Unmarshal(data, &fx); err != nil {
		return FeatureExtractor{}, fmt.Errorf("parse feature extractor config: %w", err)
	}
	if fx.SamplingRate <= 0 {
		return FeatureExtractor{}, fmt.Errorf("feature extractor sampling_rate %d is invalid", fx.SamplingRate)
	}
	if fx.FeatureSize > 1 {
		return FeatureExtractor{}, fmt.Errorf("feature extractor feature_size %d is unsupported", fx.FeatureSize)
	}
	return fx, nil
}

// Input is a model-ready batch of one sequence.
type Input struct {
	Values        []float32
	AttentionMask []int64
}

// Extract normalizes w into model input. The waveform must already be at the
// extractor's sampling rate.
func (fx FeatureExtractor) Extract(w waveform.Waveform) (Input, error) {
	if w.SampleRate != fx.SamplingRate {
		return Input{}, fmt.Errorf("waveform sampled at %d Hz, feature extractor expects %d Hz", w.SampleRate, fx.SamplingRate)
	}
	if len(w.Samples) == 0 {
		return Input{}, errors.New("waveform is empty")
	}

	values := make([]float32, len(w.Samples))
	if fx.DoNormalize {
		normalize(values, w.Samples)
	} else {
		copy(values, w.Samples)
	}

	in := Input{Values: values}
	if fx.ReturnAttentionMask {
		in.AttentionMask = make([]int64, len(values))
		for i := range in.AttentionMask {
			in.AttentionMask[i] = 1
		}
	}
	return in, nil
}

// normalize writes the zero-mean, unit-variance form of src into dst.
func normalize(dst, src []float32) {
	var mean float64
	for _, v := range src {
		mean += float64(v)
	}
	mean /= float64(len(src))

	var variance float64
	for _, v := range src {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(src))

	denom := math.Sqrt(variance + normEpsilon)
	for i, v := range src {
		dst[i] = float32((float64(v) - mean) / denom)
	}
}
