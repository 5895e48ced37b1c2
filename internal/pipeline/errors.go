package pipeline

import (
	"errors"
	"fmt"

	"accentid/internal/classify"
	"accentid/internal/extract"
	"accentid/internal/fetch"
)

// Error kinds reported to presentation layers.
const (
	KindFetch               = "fetch"
	KindNoAudioStream       = "no_audio_stream"
	KindTranscode           = "transcode"
	KindClassification      = "classification"
	KindModelInitialization = "model_initialization"
	KindInvalidRequest      = "invalid_request"
	KindInternal            = "internal"
)

// InvalidRequestError reports input rejected before any stage ran.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// StageFault reports a panic recovered inside a stage.
type StageFault struct {
	Stage string
	Value any
}

func (e *StageFault) Error() string {
	return fmt.Sprintf("unexpected fault in %s stage: %v", e.Stage, e.Value)
}

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		invalid   *InvalidRequestError
		fetchErr  *fetch.Error
		noAudio   *extract.NoAudioStreamError
		transcode *extract.TranscodeError
		initErr   *classify.InitError
		classErr  *classify.Error
	)
	switch {
	case errors.As(err, &invalid):
		return KindInvalidRequest
	case errors.As(err, &fetchErr):
		return KindFetch
	case errors.As(err, &noAudio):
		return KindNoAudioStream
	case errors.As(err, &transcode):
		return KindTranscode
	case errors.As(err, &initErr):
		return KindModelInitialization
	case errors.As(err, &classErr):
		return KindClassification
	default:
		return KindInternal
	}
}
