//go:build !cgo

package onnx

import (
	"context"

	"accentid/internal/classify"
)

// Session is unavailable without cgo.
type Session struct{}

func Open(Options) (*Session, error) {
	return nil, ErrUnavailable
}

func Shutdown() error { return nil }

func (s *Session) NumLabels() int { return 0 }

func (s *Session) Forward(context.Context, classify.Input) ([]float32, error) {
	return nil, ErrUnavailable
}

func (s *Session) Close() error { return nil }
