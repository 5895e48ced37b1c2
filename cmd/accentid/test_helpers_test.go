package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"accentid/internal/accent"
	"accentid/internal/bootstrap"
	"accentid/internal/classify"
	"accentid/internal/config"
	"accentid/internal/extract"
	"accentid/internal/modelhub"
	"accentid/internal/testsupport"
)

type fixedModel struct {
	index int
}

func (m fixedModel) Forward(context.Context, classify.Input) ([]float32, error) {
	logits := make([]float32, accent.Count)
	logits[m.index] = 4
	return logits, nil
}

func (fixedModel) NumLabels() int { return accent.Count }

func (fixedModel) Close() error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	media      *testsupport.FakeMedia
	ctx        *commandContext
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HF_TOKEN", "")
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")
	t.Setenv("ACCENTID_API_TOKEN", "")

	modelDir := filepath.Join(t.TempDir(), "model")
	testsupport.WriteModelArtifacts(t, modelDir, labelNames(), extract.SampleRate)
	cfg := testsupport.NewConfig(t, testsupport.WithModelDir(modelDir), testsupport.WithStubbedBinaries())
	cfg.Model.ONNXRuntimeLibrary = filepath.Join(testsupport.BaseDir(cfg), "libonnxruntime.so")
	testsupport.WriteFile(t, cfg.Model.ONNXRuntimeLibrary, 8)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	media := &testsupport.FakeMedia{}
	var configFlag, logLevel string
	ctx := newCommandContext(&configFlag, &logLevel)
	ctx.appOptions = []bootstrap.Option{
		bootstrap.WithoutSharedClassifier(),
		bootstrap.WithModelOpener(func(*config.Config, modelhub.Artifacts) (classify.Model, error) {
			return fixedModel{index: 13}, nil
		}),
		bootstrap.WithExtractOptions(extract.WithRunner(media.Run)),
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, media: media, ctx: ctx}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	rendered, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(e.ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func labelNames() []string {
	labels := accent.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
