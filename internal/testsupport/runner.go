package testsupport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// FakeMedia emulates ffprobe and ffmpeg for extractor and pipeline tests.
// ffprobe calls return ProbeJSON; ffmpeg calls write a WAV of Samples to the
// final argument.
type FakeMedia struct {
	ProbeJSON   string
	ProbeStderr string
	ProbeErr    error

	Samples      []int
	Channels     int
	FFmpegStderr string
	FFmpegErr    error

	mu    sync.Mutex
	calls []string
}

// AudioProbe is ffprobe output for a container with one video and one audio stream.
const AudioProbe = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"},{"index":1,"codec_type":"audio","codec_name":"aac","channels":2,"sample_rate":"44100"}],"format":{"duration":"2.0","nb_streams":2}}`

// SilentProbe is ffprobe output for a container with only a video stream.
const SilentProbe = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"}],"format":{"duration":"2.0","nb_streams":1}}`

// Run implements the runner signature shared by ffprobe and the extractor.
func (f *FakeMedia) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	switch {
	case strings.Contains(name, "ffprobe"):
		if f.ProbeErr != nil {
			return nil, []byte(f.ProbeStderr), f.ProbeErr
		}
		probe := f.ProbeJSON
		if probe == "" {
			probe = AudioProbe
		}
		return []byte(probe), nil, nil
	case strings.Contains(name, "ffmpeg"):
		if f.FFmpegErr != nil {
			return nil, []byte(f.FFmpegStderr), f.FFmpegErr
		}
		if len(args) == 0 {
			return nil, nil, errors.New("ffmpeg: missing output path")
		}
		samples := f.Samples
		if samples == nil {
			samples = Tone(1600)
		}
		channels := f.Channels
		if channels == 0 {
			channels = 1
		}
		if err := EncodeWAV(args[len(args)-1], 16000, channels, samples); err != nil {
			return nil, []byte(err.Error()), err
		}
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unexpected command %q", name)
	}
}

// Calls returns the binaries invoked so far.
func (f *FakeMedia) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
