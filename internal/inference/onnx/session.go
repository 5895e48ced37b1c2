//go:build cgo

package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"accentid/internal/classify"
)

var envMu sync.Mutex

// Session is a classify.Model backed by an ONNX Runtime dynamic session.
type Session struct {
	session   *ort.DynamicAdvancedSession
	withMask  bool
	numLabels int
}

// Open initializes the runtime environment if needed and loads the model.
func Open(opts Options) (*Session, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	valuesName, withMask, err := selectInputs(inputs)
	if err != nil {
		return nil, err
	}
	logitsName, numLabels, err := selectOutput(outputs)
	if err != nil {
		return nil, err
	}
	if opts.ExpectedLabels > 0 && numLabels > 0 && numLabels != opts.ExpectedLabels {
		return nil, fmt.Errorf("model output %q has %d classes, expected %d", logitsName, numLabels, opts.ExpectedLabels)
	}

	inputNames := []string{valuesName}
	if withMask {
		inputNames = append(inputNames, InputAttentionMask)
	}

	var sessionOpts *ort.SessionOptions
	if opts.IntraOpThreads > 0 {
		sessionOpts, err = ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("session options: %w", err)
		}
		defer sessionOpts.Destroy()
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, []string{logitsName}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &Session{session: session, withMask: withMask, numLabels: numLabels}, nil
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath = strings.TrimSpace(libraryPath); libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

// Shutdown tears down the runtime environment. Sessions must be closed first.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func selectInputs(inputs []ort.InputOutputInfo) (string, bool, error) {
	if len(inputs) == 0 {
		return "", false, errors.New("model declares no inputs")
	}
	valuesName := inputs[0].Name
	withMask := false
	for _, in := range inputs {
		switch in.Name {
		case InputValues:
			valuesName = in.Name
		case InputAttentionMask:
			withMask = true
		}
	}
	if valuesName == InputAttentionMask {
		return "", false, errors.New("model has no waveform input")
	}
	return valuesName, withMask, nil
}

func selectOutput(outputs []ort.InputOutputInfo) (string, int, error) {
	if len(outputs) == 0 {
		return "", 0, errors.New("model declares no outputs")
	}
	chosen := outputs[0]
	for _, out := range outputs {
		if out.Name == OutputLogits {
			chosen = out
			break
		}
	}
	dims := chosen.Dimensions
	if len(dims) == 0 {
		return chosen.Name, 0, nil
	}
	last := dims[len(dims)-1]
	if last <= 0 {
		return chosen.Name, 0, nil
	}
	return chosen.Name, int(last), nil
}

// NumLabels reports the static output width, or 0 if it is dynamic.
func (s *Session) NumLabels() int {
	return s.numLabels
}

// Forward runs one inference pass over a single sequence.
func (s *Session) Forward(ctx context.Context, in classify.Input) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := int64(len(in.Values))
	if n == 0 {
		return nil, errors.New("empty input")
	}

	values, err := ort.NewTensor(ort.NewShape(1, n), in.Values)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer values.Destroy()
	inputs := []ort.Value{values}

	if s.withMask {
		mask := in.AttentionMask
		if len(mask) != len(in.Values) {
			mask = make([]int64, n)
			for i := range mask {
				mask[i] = 1
			}
		}
		maskTensor, err := ort.NewTensor(ort.NewShape(1, n), mask)
		if err != nil {
			return nil, fmt.Errorf("attention mask tensor: %w", err)
		}
		defer maskTensor.Destroy()
		inputs = append(inputs, maskTensor)
	}

	outputs := []ort.Value{nil}
	if s.numLabels > 0 {
		logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.numLabels)))
		if err != nil {
			return nil, fmt.Errorf("output tensor: %w", err)
		}
		outputs[0] = logits
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	return append([]float32(nil), tensor.GetData()...), nil
}

// Close destroys the session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
