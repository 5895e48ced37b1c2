package classify

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"accentid/internal/media/waveform"
)

func TestLoadFeatureExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preprocessor_config.json")
	body := `{"do_normalize": true, "feature_extractor_type": "Wav2Vec2FeatureExtractor", "feature_size": 1,
"padding_side": "right", "padding_value": 0.0, "return_attention_mask": false, "sampling_rate": 16000}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fx, err := LoadFeatureExtractor(path)
	if err != nil {
		t.Fatalf("LoadFeatureExtractor: %v", err)
	}
	if fx.SamplingRate != 16000 || !fx.DoNormalize || fx.ReturnAttentionMask {
		t.Fatalf("unexpected extractor %+v", fx)
	}
}

func TestLoadFeatureExtractorRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"rate.json":   `{"sampling_rate": 0}`,
		"size.json":   `{"feature_size": 80}`,
		"broken.json": `{`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFeatureExtractor(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadFeatureExtractor(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractNormalizes(t *testing.T) {
	fx := DefaultFeatureExtractor()
	in, err := fx.Extract(waveform.Waveform{Samples: []float32{1, 2, 3, 4}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	var mean, variance float64
	for _, v := range in.Values {
		mean += float64(v)
	}
	mean /= float64(len(in.Values))
	for _, v := range in.Values {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= float64(len(in.Values))
	if math.Abs(mean) > 1e-6 || math.Abs(variance-1) > 1e-5 {
		t.Fatalf("mean=%v variance=%v", mean, variance)
	}
	if len(in.AttentionMask) != 4 || in.AttentionMask[0] != 1 {
		t.Fatalf("unexpected mask %v", in.AttentionMask)
	}
}

func TestExtractConstantSignalStaysFinite(t *testing.T) {
	fx := DefaultFeatureExtractor()
	in, err := fx.Extract(waveform.Waveform{Samples: []float32{0.2, 0.2, 0.2}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, v := range in.Values {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 1e-6 {
			t.Fatalf("expected near-zero values, got %v", in.Values)
		}
	}
}

func TestExtractWithoutNormalization(t *testing.T) {
	fx := FeatureExtractor{SamplingRate: 16000}
	in, err := fx.Extract(waveform.Waveform{Samples: []float32{0.5, -0.5}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if in.Values[0] != 0.5 || in.Values[1] != -0.5 || in.AttentionMask != nil {
		t.Fatalf("unexpected input %+v", in)
	}
}
