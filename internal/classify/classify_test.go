package classify

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"accentid/internal/accent"
	"accentid/internal/media/waveform"
	"accentid/internal/testsupport"
)

type fakeModel struct {
	logits  []float32
	labels  int
	err     error
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
	lastIn  Input
	closed  bool
}

func (m *fakeModel) Forward(_ context.Context, in Input) ([]float32, error) {
	if m.active.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.active.Add(-1)
	m.calls.Add(1)
	time.Sleep(time.Millisecond)
	m.lastIn = in
	if m.err != nil {
		return nil, m.err
	}
	return append([]float32(nil), m.logits...), nil
}

func (m *fakeModel) NumLabels() int { return m.labels }

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

func peakedLogits(index int) []float32 {
	logits := make([]float32, accent.Count)
	logits[index] = 5
	return logits
}

func tone() waveform.Waveform {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return waveform.Waveform{Samples: samples, SampleRate: 16000, Channels: 1}
}

func newTestClassifier(t *testing.T, m *fakeModel) *Classifier {
	t.Helper()
	c, err := New(m, DefaultFeatureExtractor(), accent.Labels(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsLabelMismatch(t *testing.T) {
	_, err := New(&fakeModel{labels: 15}, DefaultFeatureExtractor(), accent.Labels(), nil)
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %T %v", err, err)
	}
	if _, err := New(nil, DefaultFeatureExtractor(), accent.Labels(), nil); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := New(&fakeModel{}, FeatureExtractor{}, accent.Labels(), nil); err == nil {
		t.Fatal("expected error for zero sampling rate")
	}
}

func TestClassifyWaveformSelectsMaximum(t *testing.T) {
	m := &fakeModel{labels: accent.Count, logits: peakedLogits(4)}
	c := newTestClassifier(t, m)

	result, err := c.ClassifyWaveform(context.Background(), tone())
	if err != nil {
		t.Fatalf("ClassifyWaveform: %v", err)
	}
	if result.Label != accent.England || result.Accent != "England" {
		t.Fatalf("unexpected label %q / %q", result.Label, result.Accent)
	}
	// e^5 / (e^5 + 15)
	want := accent.RoundConfidence(math.Exp(5) / (math.Exp(5) + 15))
	if result.Confidence != want {
		t.Fatalf("confidence = %v, want %v", result.Confidence, want)
	}
	if result.Confidence <= 100.0/16 || result.Confidence > 100 {
		t.Fatalf("confidence out of range: %v", result.Confidence)
	}
	var sum float64
	for _, p := range result.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if len(m.lastIn.AttentionMask) != len(m.lastIn.Values) {
		t.Fatalf("attention mask length %d != values %d", len(m.lastIn.AttentionMask), len(m.lastIn.Values))
	}
}

func TestClassifyTieBreaksToLowestIndex(t *testing.T) {
	logits := make([]float32, accent.Count)
	logits[3] = 2
	logits[9] = 2
	c := newTestClassifier(t, &fakeModel{labels: accent.Count, logits: logits})

	result, err := c.ClassifyWaveform(context.Background(), tone())
	if err != nil {
		t.Fatalf("ClassifyWaveform: %v", err)
	}
	if result.Label != accent.Canada {
		t.Fatalf("expected canada, got %q", result.Label)
	}
}

func TestClassifyFileMatchesStereoMean(t *testing.T) {
	dir := t.TempDir()
	mono := filepath.Join(dir, "mono.wav")
	stereo := filepath.Join(dir, "stereo.wav")
	base := testsupport.Tone(1600)
	interleaved := make([]int, 0, len(base)*2)
	for _, v := range base {
		interleaved = append(interleaved, v+1000, v-1000)
	}
	testsupport.WriteWAV(t, mono, 16000, 1, base)
	testsupport.WriteWAV(t, stereo, 16000, 2, interleaved)

	m := &fakeModel{labels: accent.Count, logits: peakedLogits(11)}
	c := newTestClassifier(t, m)

	r1, err := c.Classify(context.Background(), mono)
	if err != nil {
		t.Fatalf("Classify mono: %v", err)
	}
	monoIn := m.lastIn
	r2, err := c.Classify(context.Background(), stereo)
	if err != nil {
		t.Fatalf("Classify stereo: %v", err)
	}
	if r1.Label != r2.Label {
		t.Fatalf("labels differ: %q vs %q", r1.Label, r2.Label)
	}
	for i := range monoIn.Values {
		if math.Abs(float64(monoIn.Values[i]-m.lastIn.Values[i])) > 1e-4 {
			t.Fatalf("feature %d differs: %v vs %v", i, monoIn.Values[i], m.lastIn.Values[i])
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		wave  waveform.Waveform
		op    string
	}{
		{"wrong rate", &fakeModel{labels: accent.Count, logits: peakedLogits(0)}, waveform.Waveform{Samples: []float32{0.1}, SampleRate: 8000}, "features"},
		{"empty", &fakeModel{labels: accent.Count, logits: peakedLogits(0)}, waveform.Waveform{SampleRate: 16000}, "features"},
		{"forward error", &fakeModel{labels: accent.Count, err: errors.New("boom")}, tone(), "inference"},
		{"short logits", &fakeModel{logits: []float32{1, 2}}, tone(), "inference"},
		{"nan logits", &fakeModel{labels: accent.Count, logits: append(peakedLogits(0)[:15], float32(math.NaN()))}, tone(), "scoring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, tt.model)
			_, err := c.ClassifyWaveform(context.Background(), tt.wave)
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("expected classify.Error, got %T %v", err, err)
			}
			if ce.Op != tt.op {
				t.Fatalf("op = %q, want %q", ce.Op, tt.op)
			}
		})
	}
}

func TestClassifyDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newTestClassifier(t, &fakeModel{labels: accent.Count, logits: peakedLogits(0)})
	_, err := c.Classify(context.Background(), path)
	var ce *Error
	if !errors.As(err, &ce) || ce.Op != "decode" {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestForwardPassesAreSerialized(t *testing.T) {
	m := &fakeModel{labels: accent.Count, logits: peakedLogits(2)}
	c := newTestClassifier(t, m)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ClassifyWaveform(context.Background(), tone()); err != nil {
				t.Errorf("ClassifyWaveform: %v", err)
			}
		}()
	}
	wg.Wait()
	if m.overlap.Load() {
		t.Fatal("forward passes overlapped")
	}
	if m.calls.Load() != 8 {
		t.Fatalf("calls = %d", m.calls.Load())
	}
}

func TestClassifyCancelledContext(t *testing.T) {
	m := &fakeModel{labels: accent.Count, logits: peakedLogits(2)}
	c := newTestClassifier(t, m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ClassifyWaveform(ctx, tone())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Fatal("model should not run after cancellation")
	}
}

func TestCloseReleasesModel(t *testing.T) {
	m := &fakeModel{labels: accent.Count}
	c := newTestClassifier(t, m)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.closed {
		t.Fatal("model not closed")
	}
}
