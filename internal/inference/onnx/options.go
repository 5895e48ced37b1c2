// Package onnx runs the accent model with ONNX Runtime.
//
// The runtime is a cgo binding; builds without cgo get a stub whose Open
// always fails, which surfaces as a model initialization error at startup.
package onnx

import "errors"

const (
	// InputValues is the waveform input name used by Wav2Vec2 exports.
	InputValues = "input_values"
	// InputAttentionMask is the optional mask input name.
	InputAttentionMask = "attention_mask"
	// OutputLogits is the classification output name.
	OutputLogits = "logits"
)

// Options configures a session.
type Options struct {
	ModelPath string
	// LibraryPath points at libonnxruntime; empty uses the runtime's default lookup.
	LibraryPath string
	// ExpectedLabels, when positive, must equal the model's static output width.
	ExpectedLabels int
	// IntraOpThreads bounds per-operator parallelism; zero keeps the runtime default.
	IntraOpThreads int
}

// ErrUnavailable is returned when the binary was built without ONNX Runtime support.
var ErrUnavailable = errors.New("onnx runtime unavailable (cgo disabled)")
