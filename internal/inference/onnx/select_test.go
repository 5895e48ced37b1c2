//go:build cgo

package onnx

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func TestSelectInputs(t *testing.T) {
	name, mask, err := selectInputs([]ort.InputOutputInfo{{Name: InputValues}, {Name: InputAttentionMask}})
	if err != nil {
		t.Fatalf("selectInputs: %v", err)
	}
	if name != InputValues || !mask {
		t.Fatalf("got %q mask=%v", name, mask)
	}

	name, mask, err = selectInputs([]ort.InputOutputInfo{{Name: "audio"}})
	if err != nil || name != "audio" || mask {
		t.Fatalf("unexpected fallback %q %v %v", name, mask, err)
	}

	if _, _, err := selectInputs(nil); err == nil {
		t.Fatal("expected error for no inputs")
	}
	if _, _, err := selectInputs([]ort.InputOutputInfo{{Name: InputAttentionMask}}); err == nil {
		t.Fatal("expected error when only a mask is declared")
	}
}

func TestSelectOutput(t *testing.T) {
	name, n, err := selectOutput([]ort.InputOutputInfo{
		{Name: "hidden", Dimensions: ort.NewShape(1, 768)},
		{Name: OutputLogits, Dimensions: ort.NewShape(-1, 16)},
	})
	if err != nil || name != OutputLogits || n != 16 {
		t.Fatalf("got %q %d %v", name, n, err)
	}

	_, n, err = selectOutput([]ort.InputOutputInfo{{Name: OutputLogits, Dimensions: ort.NewShape(-1, -1)}})
	if err != nil || n != 0 {
		t.Fatalf("dynamic width should be 0, got %d %v", n, err)
	}

	if _, _, err := selectOutput(nil); err == nil {
		t.Fatal("expected error for no outputs")
	}
}

func TestOpenMissingModel(t *testing.T) {
	_, err := Open(Options{ModelPath: filepath.Join(t.TempDir(), "model.onnx")})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
