//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cucumber/godog"

	"accentid/internal/accent"
	"accentid/internal/bootstrap"
	"accentid/internal/classify"
	"accentid/internal/config"
	"accentid/internal/extract"
	"accentid/internal/modelhub"
	"accentid/internal/pipeline"
	"accentid/internal/testsupport"
)

// favouredModel puts a fixed logit on one label.
type favouredModel struct {
	index int
}

func (m favouredModel) Forward(context.Context, classify.Input) ([]float32, error) {
	logits := make([]float32, accent.Count)
	logits[m.index] = 4
	return logits, nil
}

func (favouredModel) NumLabels() int { return accent.Count }

func (favouredModel) Close() error { return nil }

// recordingRunner captures ffmpeg arguments before delegating to FakeMedia.
type recordingRunner struct {
	media *testsupport.FakeMedia

	mu         sync.Mutex
	ffmpegArgs [][]string
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if strings.Contains(name, "ffmpeg") {
		r.mu.Lock()
		r.ffmpegArgs = append(r.ffmpegArgs, slices.Clone(args))
		r.mu.Unlock()
	}
	return r.media.Run(ctx, name, args...)
}

// analyzeContext holds state for one scenario.
type analyzeContext struct {
	baseDir string
	cfg     *config.Config
	server  *httptest.Server
	hosted  map[string]bool
	runner  *recordingRunner
	model   favouredModel

	results []accent.Result
	err     error
}

// SharedAnalyzeContext is reset before each scenario via Before hook
var SharedAnalyzeContext *analyzeContext

func getAnalyzeContext() *analyzeContext {
	return SharedAnalyzeContext
}

func InitializeAnalyzeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedAnalyzeContext = &analyzeContext{
			hosted: make(map[string]bool),
			runner: &recordingRunner{media: &testsupport.FakeMedia{}},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		a := getAnalyzeContext()
		if a != nil {
			if a.server != nil {
				a.server.Close()
			}
			if a.baseDir != "" {
				_ = os.RemoveAll(a.baseDir)
			}
		}
		SharedAnalyzeContext = nil
		return c, nil
	})

	ctx.Step(`^the accent model is loaded$`, theAccentModelIsLoaded)
	ctx.Step(`^a media host is running$`, aMediaHostIsRunning)
	ctx.Step(`^a video with an audio track is hosted at "([^"]*)"$`, aVideoWithAnAudioTrackIsHostedAt)
	ctx.Step(`^a video without an audio track is hosted at "([^"]*)"$`, aVideoWithoutAnAudioTrackIsHostedAt)
	ctx.Step(`^the model favours "([^"]*)"$`, theModelFavours)
	ctx.Step(`^the transcoder fails with "([^"]*)"$`, theTranscoderFailsWith)
	ctx.Step(`^I analyze the video at "([^"]*)"$`, iAnalyzeTheVideoAt)
	ctx.Step(`^I analyze the video at "([^"]*)" again$`, iAnalyzeTheVideoAt)
	ctx.Step(`^the detected accent is "([^"]*)"$`, theDetectedAccentIs)
	ctx.Step(`^the confidence is (\d+(?:\.\d+)?)$`, theConfidenceIs)
	ctx.Step(`^the summary reads "([^"]*)"$`, theSummaryReads)
	ctx.Step(`^both analyses report "([^"]*)" with the same confidence$`, bothAnalysesReportWithTheSameConfidence)
	ctx.Step(`^the audio was extracted as mono (\d+) Hz PCM$`, theAudioWasExtractedAsMonoHzPCM)
	ctx.Step(`^the analysis fails with kind "([^"]*)"$`, theAnalysisFailsWithKind)
	ctx.Step(`^the error mentions "([^"]*)"$`, theErrorMentions)
	ctx.Step(`^the audio extractor was not invoked$`, theAudioExtractorWasNotInvoked)
	ctx.Step(`^no temporary files remain$`, noTemporaryFilesRemain)
}

func theAccentModelIsLoaded() error {
	a := getAnalyzeContext()
	base, err := os.MkdirTemp("", "accentid-features-*")
	if err != nil {
		return err
	}
	a.baseDir = base

	modelDir := filepath.Join(base, "model")
	labels := make([]string, 0, accent.Count)
	for _, l := range accent.Labels() {
		labels = append(labels, string(l))
	}
	if err := testsupport.ModelArtifacts(modelDir, labels, extract.SampleRate); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.ModelCacheDir = filepath.Join(base, "models")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Model.LocalDir = modelDir
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	a.cfg = &cfg
	return nil
}

func aMediaHostIsRunning() error {
	a := getAnalyzeContext()
	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.hosted[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(testsupport.Pattern(2048))
	}))
	return nil
}

func aVideoWithAnAudioTrackIsHostedAt(path string) error {
	a := getAnalyzeContext()
	a.hosted[path] = true
	a.runner.media.ProbeJSON = testsupport.AudioProbe
	return nil
}

func aVideoWithoutAnAudioTrackIsHostedAt(path string) error {
	a := getAnalyzeContext()
	a.hosted[path] = true
	a.runner.media.ProbeJSON = testsupport.SilentProbe
	return nil
}

func theModelFavours(label string) error {
	a := getAnalyzeContext()
	parsed, ok := accent.Parse(label)
	if !ok {
		return fmt.Errorf("unknown label %q", label)
	}
	a.model.index = slices.Index(accent.Labels(), parsed)
	return nil
}

func theTranscoderFailsWith(stderr string) error {
	a := getAnalyzeContext()
	a.runner.media.FFmpegStderr = stderr
	a.runner.media.FFmpegErr = errors.New("exit status 1")
	return nil
}

func iAnalyzeTheVideoAt(path string) error {
	a := getAnalyzeContext()
	app, err := bootstrap.New(context.Background(), a.cfg, nil,
		bootstrap.WithoutSharedClassifier(),
		bootstrap.WithModelOpener(func(*config.Config, modelhub.Artifacts) (classify.Model, error) {
			return a.model, nil
		}),
		bootstrap.WithExtractOptions(extract.WithRunner(a.runner.Run)),
	)
	if err != nil {
		return fmt.Errorf("model initialization: %w", err)
	}
	defer app.Close()

	url := ""
	if path != "" {
		url = a.server.URL + path
	}
	result, err := app.Analyzer.AnalyzeURL(context.Background(), url)
	a.err = err
	if err == nil {
		a.results = append(a.results, result)
	}
	return nil
}

func lastResult() (accent.Result, error) {
	a := getAnalyzeContext()
	if a.err != nil {
		return accent.Result{}, fmt.Errorf("analysis failed: %v", a.err)
	}
	if len(a.results) == 0 {
		return accent.Result{}, errors.New("no analysis has run")
	}
	return a.results[len(a.results)-1], nil
}

func theDetectedAccentIs(display string) error {
	result, err := lastResult()
	if err != nil {
		return err
	}
	if result.Accent != display {
		return fmt.Errorf("expected accent %q, got %q", display, result.Accent)
	}
	return nil
}

func theConfidenceIs(expected float64) error {
	result, err := lastResult()
	if err != nil {
		return err
	}
	if math.Abs(result.Confidence-expected) > 1e-9 {
		return fmt.Errorf("expected confidence %.1f, got %v", expected, result.Confidence)
	}
	return nil
}

func theSummaryReads(summary string) error {
	result, err := lastResult()
	if err != nil {
		return err
	}
	if result.Summary != summary {
		return fmt.Errorf("expected summary %q, got %q", summary, result.Summary)
	}
	return nil
}

func bothAnalysesReportWithTheSameConfidence(display string) error {
	a := getAnalyzeContext()
	if a.err != nil {
		return fmt.Errorf("analysis failed: %v", a.err)
	}
	if len(a.results) != 2 {
		return fmt.Errorf("expected 2 results, got %d", len(a.results))
	}
	first, second := a.results[0], a.results[1]
	if first.Accent != display || second.Accent != display {
		return fmt.Errorf("expected %q twice, got %q and %q", display, first.Accent, second.Accent)
	}
	if first.Confidence != second.Confidence {
		return fmt.Errorf("confidence changed between runs: %v vs %v", first.Confidence, second.Confidence)
	}
	return nil
}

func theAudioWasExtractedAsMonoHzPCM(rate string) error {
	a := getAnalyzeContext()
	a.runner.mu.Lock()
	defer a.runner.mu.Unlock()
	if len(a.runner.ffmpegArgs) == 0 {
		return errors.New("ffmpeg was not invoked")
	}
	args := strings.Join(a.runner.ffmpegArgs[0], " ")
	for _, want := range []string{"-map 0:a:0", "-ac 1", "-ar " + rate, "-c:a pcm_s16le", "-f wav"} {
		if !strings.Contains(args, want) {
			return fmt.Errorf("ffmpeg arguments %q missing %q", args, want)
		}
	}
	return nil
}

func theAnalysisFailsWithKind(kind string) error {
	a := getAnalyzeContext()
	if a.err == nil {
		return errors.New("expected the analysis to fail")
	}
	if got := pipeline.ErrorKind(a.err); got != kind {
		return fmt.Errorf("expected error kind %q, got %q (%v)", kind, got, a.err)
	}
	return nil
}

func theErrorMentions(text string) error {
	a := getAnalyzeContext()
	if a.err == nil || !strings.Contains(a.err.Error(), text) {
		return fmt.Errorf("expected error mentioning %q, got %v", text, a.err)
	}
	return nil
}

func theAudioExtractorWasNotInvoked() error {
	a := getAnalyzeContext()
	if calls := a.runner.media.Calls(); len(calls) != 0 {
		return fmt.Errorf("expected no media tool invocations, got %v", calls)
	}
	return nil
}

func noTemporaryFilesRemain() error {
	a := getAnalyzeContext()
	entries, err := os.ReadDir(a.cfg.Paths.TempDir)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return fmt.Errorf("temporary files remain: %v", names)
	}
	return nil
}
