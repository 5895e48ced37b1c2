package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"accentid/internal/accent"
	"accentid/internal/logging"
	"accentid/internal/media/waveform"
)

// Model runs a forward pass and returns one logit per label.
type Model interface {
	Forward(ctx context.Context, in Input) ([]float32, error)
	// NumLabels reports the output width, or 0 when the backend cannot tell
	// before running.
	NumLabels() int
	Close() error
}

// Classifier scores waveforms against the fixed accent label set.
type Classifier struct {
	model  Model
	fx     FeatureExtractor
	labels []accent.Label
	logger *slog.Logger

	mu sync.Mutex
}

// New validates that the model's output width matches labels.
func New(model Model, fx FeatureExtractor, labels []accent.Label, logger *slog.Logger) (*Classifier, error) {
	if model == nil {
		return nil, &InitError{Err: errors.New("model is nil")}
	}
	if len(labels) == 0 {
		return nil, &InitError{Err: errors.New("label set is empty")}
	}
	if fx.SamplingRate <= 0 {
		return nil, &InitError{Err: fmt.Errorf("feature extractor sampling rate %d is invalid", fx.SamplingRate)}
	}
	if n := model.NumLabels(); n > 0 && n != len(labels) {
		return nil, &InitError{Err: fmt.Errorf("model produces %d outputs but %d labels are configured", n, len(labels))}
	}
	return &Classifier{
		model:  model,
		fx:     fx,
		labels: append([]accent.Label(nil), labels...),
		logger: logging.NewComponentLogger(logger, "classify"),
	}, nil
}

// Labels returns the label order the classifier scores against.
func (c *Classifier) Labels() []accent.Label {
	return append([]accent.Label(nil), c.labels...)
}

// SamplingRate is the waveform rate the classifier accepts.
func (c *Classifier) SamplingRate() int {
	return c.fx.SamplingRate
}

// Classify decodes the WAV file at path and scores it.
func (c *Classifier) Classify(ctx context.Context, path string) (accent.Result, error) {
	w, err := waveform.Decode(path)
	if err != nil {
		return accent.Result{}, &Error{Op: "decode", Err: err}
	}
	return c.ClassifyWaveform(ctx, w)
}

// ClassifyWaveform scores an in-memory mono waveform.
func (c *Classifier) ClassifyWaveform(ctx context.Context, w waveform.Waveform) (accent.Result, error) {
	logger := logging.WithContext(ctx, c.logger)

	in, err := c.fx.Extract(w)
	if err != nil {
		return accent.Result{}, &Error{Op: "features", Err: err}
	}

	started := time.Now()
	logits, err := c.forward(ctx, in)
	if err != nil {
		return accent.Result{}, &Error{Op: "inference", Err: err}
	}
	if len(logits) != len(c.labels) {
		return accent.Result{}, &Error{Op: "inference", Err: fmt.Errorf("model returned %d logits for %d labels", len(logits), len(c.labels))}
	}

	probs, err := Softmax(logits)
	if err != nil {
		return accent.Result{}, &Error{Op: "scoring", Err: err}
	}
	best := Argmax(probs)
	result := accent.NewResult(c.labels[best], probs[best], probs)

	logger.Info("accent classified",
		logging.String("accent", result.Accent),
		logging.Float64("confidence", result.Confidence),
		logging.Float64("audio_seconds", w.Duration()),
		logging.Duration("inference", time.Since(started)),
	)
	return result, nil
}

func (c *Classifier) forward(ctx context.Context, in Input) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.model.Forward(ctx, in)
}

// Close releases the model.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Close()
}
