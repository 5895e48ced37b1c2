// Package bootstrap assembles the pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"accentid/internal/accent"
	"accentid/internal/classify"
	"accentid/internal/config"
	"accentid/internal/extract"
	"accentid/internal/fetch"
	"accentid/internal/inference/onnx"
	"accentid/internal/logging"
	"accentid/internal/modelhub"
	"accentid/internal/pipeline"
)

// ModelOpener builds the inference backend from downloaded artifacts.
type ModelOpener func(cfg *config.Config, artifacts modelhub.Artifacts) (classify.Model, error)

// OpenONNX is the default ModelOpener.
func OpenONNX(cfg *config.Config, artifacts modelhub.Artifacts) (classify.Model, error) {
	return onnx.Open(onnx.Options{
		ModelPath:      artifacts.ModelPath,
		LibraryPath:    cfg.Model.ONNXRuntimeLibrary,
		ExpectedLabels: accent.Count,
	})
}

// App bundles the wired components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Hub        *modelhub.Hub
	Classifier *classify.Classifier
	Analyzer   *pipeline.Analyzer
}

// Option customizes wiring.
type Option func(*options)

type options struct {
	opener    ModelOpener
	extractor []extract.Option
	fetcher   []fetch.Option
	modelhub  []modelhub.Option
	shared    bool
}

// WithModelOpener replaces the ONNX backend.
func WithModelOpener(opener ModelOpener) Option {
	return func(o *options) { o.opener = opener }
}

// WithExtractOptions forwards options to the extractor.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(o *options) { o.extractor = append(o.extractor, opts...) }
}

// WithFetchOptions forwards options to the fetcher.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) { o.fetcher = append(o.fetcher, opts...) }
}

// WithModelhubOptions forwards options to the artifact hub.
func WithModelhubOptions(opts ...modelhub.Option) Option {
	return func(o *options) { o.modelhub = append(o.modelhub, opts...) }
}

// WithoutSharedClassifier loads a private classifier instead of the
// process-wide one.
func WithoutSharedClassifier() Option {
	return func(o *options) { o.shared = false }
}

// New loads the model and wires the analyzer. Model failures are returned as
// *classify.InitError and must abort the process.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{opener: OpenONNX, shared: true}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	hub := modelhub.New(cfg, logger, o.modelhub...)
	load := func() (*classify.Classifier, error) {
		return LoadClassifier(ctx, cfg, hub, o.opener, logger)
	}

	var (
		classifier *classify.Classifier
		err        error
	)
	if o.shared {
		classifier, err = classify.Shared(load)
	} else {
		classifier, err = classify.NewAccessor(load).Get()
	}
	if err != nil {
		return nil, err
	}

	analyzer := pipeline.NewAnalyzer(
		fetch.New(cfg, logger, o.fetcher...),
		extract.New(cfg, logger, o.extractor...),
		classifier,
		logger,
	)
	return &App{Config: cfg, Logger: logger, Hub: hub, Classifier: classifier, Analyzer: analyzer}, nil
}

// LoadClassifier retrieves artifacts, validates the label mapping, and opens
// the model.
func LoadClassifier(ctx context.Context, cfg *config.Config, hub *modelhub.Hub, opener ModelOpener, logger *slog.Logger) (*classify.Classifier, error) {
	logger = logging.NewComponentLogger(logger, "bootstrap")
	initErr := func(err error) error {
		return &classify.InitError{Model: cfg.Model.ID, Err: err}
	}

	artifacts, err := hub.Ensure(ctx)
	if err != nil {
		return nil, initErr(err)
	}

	fx, err := classify.LoadFeatureExtractor(artifacts.PreprocessorPath)
	if err != nil {
		return nil, initErr(err)
	}
	if fx.SamplingRate != extract.SampleRate {
		return nil, initErr(fmt.Errorf("feature extractor expects %d Hz but audio is extracted at %d Hz", fx.SamplingRate, extract.SampleRate))
	}

	modelCfg, err := modelhub.LoadModelConfig(artifacts.ConfigPath)
	if err != nil {
		return nil, initErr(err)
	}
	labels := accent.Labels()
	mismatches, err := modelhub.ValidateLabels(modelCfg.Labels, labels)
	if err != nil {
		return nil, initErr(err)
	}
	if len(mismatches) > 0 {
		names := make([]string, len(mismatches))
		for i, m := range mismatches {
			names[i] = m.String()
		}
		logging.WarnWithContext(logger, "model label names differ from fixed label set", "label_mismatch",
			logging.String("mismatches", strings.Join(names, ",")),
			logging.String(logging.FieldErrorHint, "confirm the model revision matches the label order"),
		)
	}

	model, err := opener(cfg, artifacts)
	if err != nil {
		return nil, initErr(err)
	}
	classifier, err := classify.New(model, fx, labels, logger)
	if err != nil {
		_ = model.Close()
		return nil, err
	}
	logger.Info("model ready",
		logging.String("model", cfg.Model.ID),
		logging.String("revision", cfg.Model.Revision),
		logging.String("dir", artifacts.Dir),
		logging.Int("labels", len(labels)),
	)
	return classifier, nil
}

// Close releases the model.
func (a *App) Close() error {
	if a == nil || a.Classifier == nil {
		return nil
	}
	return a.Classifier.Close()
}
