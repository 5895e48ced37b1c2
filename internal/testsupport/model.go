package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// WriteModelArtifacts writes config.json, preprocessor_config.json and a
// placeholder model.onnx into dir, as a local model directory would hold.
func WriteModelArtifacts(t testing.TB, dir string, labels []string, samplingRate int) {
	t.Helper()
	if err := ModelArtifacts(dir, labels, samplingRate); err != nil {
		t.Fatalf("write model artifacts: %v", err)
	}
}

// ModelArtifacts is WriteModelArtifacts for callers without a testing.TB.
func ModelArtifacts(dir string, labels []string, samplingRate int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	id2label := make(map[string]string, len(labels))
	label2id := make(map[string]int, len(labels))
	for i, label := range labels {
		id2label[strconv.Itoa(i)] = label
		label2id[label] = i
	}
	modelCfg, err := json.Marshal(map[string]any{
		"architectures": []string{"Wav2Vec2ForSequenceClassification"},
		"id2label":      id2label,
		"label2id":      label2id,
	})
	if err != nil {
		return fmt.Errorf("marshal model config: %w", err)
	}
	fxCfg, err := json.Marshal(map[string]any{
		"feature_size":          1,
		"sampling_rate":         samplingRate,
		"padding_value":         0.0,
		"do_normalize":          true,
		"return_attention_mask": true,
	})
	if err != nil {
		return fmt.Errorf("marshal feature extractor config: %w", err)
	}
	for name, data := range map[string][]byte{
		"config.json":              modelCfg,
		"preprocessor_config.json": fxCfg,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(dir, "model.onnx"), Pattern(16), 0o644)
}
