package modelhub

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"accentid/internal/accent"
)

// ModelConfig is the subset of config.json describing the classifier head.
type ModelConfig struct {
	Architectures []string
	// Labels holds id2label values in index order.
	Labels []string
}

type rawModelConfig struct {
	Architectures []string          `json:"architectures"`
	ID2Label      map[string]string `json:"id2label"`
	NumLabels     int               `json:"num_labels"`
}

// LoadModelConfig parses config.json and orders id2label by index.
func LoadModelConfig(path string) (ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("read model config: %w", err)
	}
	var raw rawModelConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return ModelConfig{}, fmt.Errorf("parse model config: %w", err)
	}
	if len(raw.ID2Label) == 0 {
		return ModelConfig{}, fmt.Errorf("model config %s has no id2label mapping", path)
	}

	indices := make([]int, 0, len(raw.ID2Label))
	byIndex := make(map[int]string, len(raw.ID2Label))
	for key, name := range raw.ID2Label {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 0 {
			return ModelConfig{}, fmt.Errorf("model config id2label key %q is not an index", key)
		}
		indices = append(indices, idx)
		byIndex[idx] = name
	}
	sort.Ints(indices)
	labels := make([]string, len(indices))
	for i, idx := range indices {
		if idx != i {
			return ModelConfig{}, fmt.Errorf("model config id2label is not contiguous at index %d", i)
		}
		labels[i] = byIndex[idx]
	}
	if raw.NumLabels > 0 && raw.NumLabels != len(labels) {
		return ModelConfig{}, fmt.Errorf("model config num_labels %d disagrees with %d id2label entries", raw.NumLabels, len(labels))
	}
	return ModelConfig{Architectures: raw.Architectures, Labels: labels}, nil
}

// LabelMismatch records a position where the model's label name differs
// from the fixed label set.
type LabelMismatch struct {
	Index    int
	Model    string
	Expected accent.Label
}

func (m LabelMismatch) String() string {
	return fmt.Sprintf("%d:%s!=%s", m.Index, m.Model, m.Expected)
}

// ValidateLabels requires the model to score exactly len(expected) classes.
// Differing names are returned as mismatches for the caller to report.
func ValidateLabels(model []string, expected []accent.Label) ([]LabelMismatch, error) {
	if len(model) != len(expected) {
		return nil, fmt.Errorf("model has %d labels, expected %d", len(model), len(expected))
	}
	var mismatches []LabelMismatch
	for i, name := range model {
		if !strings.EqualFold(strings.TrimSpace(name), string(expected[i])) {
			mismatches = append(mismatches, LabelMismatch{Index: i, Model: name, Expected: expected[i]})
		}
	}
	return mismatches, nil
}
