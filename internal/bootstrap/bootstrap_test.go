package bootstrap_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"accentid/internal/accent"
	"accentid/internal/bootstrap"
	"accentid/internal/classify"
	"accentid/internal/config"
	"accentid/internal/extract"
	"accentid/internal/modelhub"
	"accentid/internal/testsupport"
)

type fakeModel struct {
	labels int
	index  int
}

func (m fakeModel) Forward(context.Context, classify.Input) ([]float32, error) {
	logits := make([]float32, m.labels)
	logits[m.index] = 3
	return logits, nil
}

func (m fakeModel) NumLabels() int { return m.labels }

func (fakeModel) Close() error { return nil }

func labelNames() []string {
	var out []string
	for _, l := range accent.Labels() {
		out = append(out, string(l))
	}
	return out
}

func opener(m classify.Model) bootstrap.ModelOpener {
	return func(*config.Config, modelhub.Artifacts) (classify.Model, error) { return m, nil }
}

func TestNewWiresAnalyzer(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteModelArtifacts(t, dir, labelNames(), 16000)
	cfg := testsupport.NewConfig(t, testsupport.WithModelDir(dir))

	media := &testsupport.FakeMedia{}
	app, err := bootstrap.New(context.Background(), cfg, nil,
		bootstrap.WithoutSharedClassifier(),
		bootstrap.WithModelOpener(opener(fakeModel{labels: accent.Count, index: 7})),
		bootstrap.WithExtractOptions(extract.WithRunner(media.Run)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(testsupport.Pattern(512))
	}))
	defer srv.Close()

	result, err := app.Analyzer.AnalyzeURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("AnalyzeURL: %v", err)
	}
	if result.Label != accent.Ireland {
		t.Fatalf("label = %q", result.Label)
	}
}

func TestNewFailsWithInitError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dir string)
		model classify.Model
	}{
		{"missing artifacts", func(string) {}, fakeModel{labels: accent.Count}},
		{"label count", func(dir string) { testsupport.WriteModelArtifacts(t, dir, labelNames()[:15], 16000) }, fakeModel{labels: accent.Count}},
		{"sample rate", func(dir string) { testsupport.WriteModelArtifacts(t, dir, labelNames(), 8000) }, fakeModel{labels: accent.Count}},
		{"model width", func(dir string) { testsupport.WriteModelArtifacts(t, dir, labelNames(), 16000) }, fakeModel{labels: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(dir)
			cfg := testsupport.NewConfig(t, testsupport.WithModelDir(dir))
			_, err := bootstrap.New(context.Background(), cfg, nil,
				bootstrap.WithoutSharedClassifier(),
				bootstrap.WithModelOpener(opener(tt.model)),
			)
			var initErr *classify.InitError
			if !errors.As(err, &initErr) {
				t.Fatalf("expected InitError, got %T %v", err, err)
			}
		})
	}
}

func TestLabelNameMismatchIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	names := labelNames()
	names[6] = "indian"
	testsupport.WriteModelArtifacts(t, dir, names, 16000)
	cfg := testsupport.NewConfig(t, testsupport.WithModelDir(dir))

	c, err := bootstrap.LoadClassifier(context.Background(), cfg, modelhub.New(cfg, nil),
		opener(fakeModel{labels: accent.Count}), nil)
	if err != nil {
		t.Fatalf("LoadClassifier: %v", err)
	}
	if c.Labels()[6] != accent.India {
		t.Fatalf("fixed label order should win, got %q", c.Labels()[6])
	}
}
