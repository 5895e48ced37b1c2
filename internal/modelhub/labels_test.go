package modelhub

import (
	"os"
	"path/filepath"
	"testing"

	"accentid/internal/accent"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelConfigOrdersLabels(t *testing.T) {
	path := writeConfig(t, `{"architectures":["Wav2Vec2ForSequenceClassification"],
"id2label":{"2":"bermuda","0":"africa","1":"australia","10":"philippines","3":"canada","4":"england",
"5":"hongkong","6":"indian","7":"ireland","8":"malaysia","9":"newzealand"}, "num_labels": 11}`)
	cfg, err := LoadModelConfig(path)
	if err != nil {
		t.Fatalf("LoadModelConfig: %v", err)
	}
	if len(cfg.Labels) != 11 || cfg.Labels[0] != "africa" || cfg.Labels[2] != "bermuda" || cfg.Labels[10] != "philippines" {
		t.Fatalf("unexpected order %v", cfg.Labels)
	}
	if cfg.Architectures[0] != "Wav2Vec2ForSequenceClassification" {
		t.Fatalf("architectures = %v", cfg.Architectures)
	}
}

func TestLoadModelConfigRejectsInvalid(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"id2label":{"a":"x"}}`,
		`{"id2label":{"0":"x","2":"y"}}`,
		`{"id2label":{"0":"x"},"num_labels":2}`,
		`{`,
	}
	for _, body := range bodies {
		if _, err := LoadModelConfig(writeConfig(t, body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}

func TestValidateLabels(t *testing.T) {
	expected := accent.Labels()
	names := make([]string, len(expected))
	for i, l := range expected {
		names[i] = string(l)
	}
	names[6] = "indian"

	mismatches, err := ValidateLabels(names, expected)
	if err != nil {
		t.Fatalf("ValidateLabels: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Index != 6 || mismatches[0].Expected != accent.India {
		t.Fatalf("unexpected mismatches %v", mismatches)
	}
	if mismatches[0].String() != "6:indian!=india" {
		t.Fatalf("String = %q", mismatches[0].String())
	}

	if _, err := ValidateLabels(names[:15], expected); err == nil {
		t.Fatal("expected count mismatch error")
	}
}
