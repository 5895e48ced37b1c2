package extract

import (
	"fmt"
	"strings"
)

// NoAudioStreamError reports a valid container without any audio track.
type NoAudioStreamError struct {
	Path    string
	Streams int
}

func (e *NoAudioStreamError) Error() string {
	return fmt.Sprintf("no audio stream found in media (%d streams inspected)", e.Streams)
}

// TranscodeError reports a failed probe or transcode subprocess. Stderr holds
// the tool's diagnostic output verbatim.
type TranscodeError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *TranscodeError) Error() string {
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return e.Tool + " failed"
}

func (e *TranscodeError) Unwrap() error { return e.Err }
