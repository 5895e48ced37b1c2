package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"accentid/internal/accent"
	"accentid/internal/logging"
	"accentid/internal/services"
)

// Stage names used in logs and StageFault.
const (
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageClassify = "classify"
)

// Fetcher retrieves a URL into a temporary file owned by the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// AudioExtractor converts a media file into a temporary mono 16 kHz WAV file
// owned by the caller.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// Classifier scores a WAV file.
type Classifier interface {
	Classify(ctx context.Context, wavPath string) (accent.Result, error)
}

// Analyzer runs the fetch, extract, classify sequence.
type Analyzer struct {
	fetcher    Fetcher
	extractor  AudioExtractor
	classifier Classifier
	logger     *slog.Logger
	newID      func() string
}

// NewAnalyzer wires the three stages.
func NewAnalyzer(f Fetcher, e AudioExtractor, c Classifier, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		fetcher:    f,
		extractor:  e,
		classifier: c,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		newID:      uuid.NewString,
	}
}

// AnalyzeURL fetches url, extracts its audio, and classifies the accent.
// Either a complete result or the failing stage's error is returned.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (result accent.Result, err error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return accent.Result{}, &InvalidRequestError{Reason: "url is empty"}
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = a.newID()
		ctx = services.WithRequestID(ctx, requestID)
	}
	ctx = services.WithSourceURL(ctx, url)
	logger := logging.WithContext(ctx, a.logger)
	started := time.Now()
	logger.Info("analysis started")

	defer func() {
		if err != nil {
			logging.WarnWithContext(logger, "analysis failed", "analysis_failed",
				logging.String("kind", ErrorKind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint(err)),
			)
			return
		}
		logger.Info("analysis complete",
			logging.String("accent", result.Accent),
			logging.Float64("confidence", result.Confidence),
			logging.Duration("elapsed", time.Since(started)),
		)
	}()

	videoPath, err := runStage(ctx, StageFetch, func(ctx context.Context) (string, error) {
		return a.fetcher.Fetch(ctx, url)
	})
	if videoPath != "" {
		defer a.release(ctx, videoPath)
	}
	if err != nil {
		return accent.Result{}, err
	}

	audioPath, err := runStage(ctx, StageExtract, func(ctx context.Context) (string, error) {
		return a.extractor.Extract(ctx, videoPath)
	})
	if audioPath != "" {
		defer a.release(ctx, audioPath)
	}
	if err != nil {
		return accent.Result{}, err
	}

	return runStage(ctx, StageClassify, func(ctx context.Context) (accent.Result, error) {
		return a.classifier.Classify(ctx, audioPath)
	})
}

// runStage tags ctx with the stage name and converts a panic into StageFault.
func runStage[T any](ctx context.Context, stage string, fn func(context.Context) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, &StageFault{Stage: stage, Value: r}
		}
	}()
	return fn(services.WithStage(ctx, stage))
}

func (a *Analyzer) release(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WithContext(ctx, a.logger).Debug("temporary file cleanup failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

func hint(err error) string {
	switch ErrorKind(err) {
	case KindFetch:
		return "check that the URL is reachable and returns the media itself"
	case KindNoAudioStream:
		return "the media has no audio track; use a video with sound"
	case KindTranscode:
		return "inspect the ffmpeg/ffprobe diagnostics in the error"
	case KindClassification:
		return "the audio could not be scored; check model artifacts"
	default:
		return "check logs for details"
	}
}
