package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"accentid/internal/config"
	"accentid/internal/logging"
	"accentid/internal/media/ffprobe"
)

const (
	// SampleRate is the output rate expected by the feature extractor.
	SampleRate = 16000
	// Channels is the output channel count.
	Channels = 1
	// Codec is the output PCM encoding.
	Codec = "pcm_s16le"
)

// FFmpeg converts media files to classifier-ready WAV audio.
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
	TempDir       string
	Timeout       time.Duration

	run    ffprobe.Runner
	logger *slog.Logger
}

// Option customizes the extractor.
type Option func(*FFmpeg)

// WithRunner overrides command execution for both ffprobe and ffmpeg.
func WithRunner(run ffprobe.Runner) Option {
	return func(e *FFmpeg) {
		if run != nil {
			e.run = run
		}
	}
}

// New builds an extractor from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *FFmpeg {
	e := &FFmpeg{
		FFmpegBinary:  "ffmpeg",
		FFprobeBinary: "ffprobe",
		TempDir:       os.TempDir(),
		run:           ffprobe.ExecRunner,
		logger:        logging.NewComponentLogger(logger, "extract"),
	}
	if cfg != nil {
		if cfg.Media.FFmpegBinary != "" {
			e.FFmpegBinary = cfg.Media.FFmpegBinary
		}
		if cfg.Media.FFprobeBinary != "" {
			e.FFprobeBinary = cfg.Media.FFprobeBinary
		}
		if cfg.Paths.TempDir != "" {
			e.TempDir = cfg.Paths.TempDir
		}
		e.Timeout = cfg.TranscodeTimeout()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Args returns the ffmpeg argument list that writes source's audio to dest.
func Args(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", Codec,
		"-f", "wav",
		dest,
	}
}

// Extract probes videoPath and transcodes its audio to a new temporary WAV
// file. The caller owns the returned file. On failure no output file remains.
func (e *FFmpeg) Extract(ctx context.Context, videoPath string) (string, error) {
	logger := logging.WithContext(ctx, e.logger)

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	probe, err := ffprobe.Inspect(ctx, e.run, e.FFprobeBinary, videoPath)
	if err != nil {
		return "", probeError(ctx, err)
	}
	if !probe.HasAudio() {
		return "", &NoAudioStreamError{Path: videoPath, Streams: len(probe.Streams)}
	}
	logger.Debug("media probed",
		logging.Int("audio_streams", probe.AudioStreamCount()),
		logging.Int("video_streams", probe.VideoStreamCount()),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)

	out, err := os.CreateTemp(e.TempDir, "accentid-*.wav")
	if err != nil {
		return "", &TranscodeError{Tool: "ffmpeg", ExitCode: -1, Err: err}
	}
	dest := out.Name()
	_ = out.Close()
	succeeded := false
	defer func() {
		if !succeeded {
			_ = os.Remove(dest)
		}
	}()

	started := time.Now()
	if _, stderr, err := e.run(ctx, e.FFmpegBinary, Args(videoPath, dest)...); err != nil {
		return "", transcodeError(ctx, "ffmpeg", -1, string(stderr), err)
	}
	succeeded = true

	logger.Info("audio extracted",
		logging.String("audio", filepath.Base(dest)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return dest, nil
}

func probeError(ctx context.Context, err error) error {
	var execErr *ffprobe.ExecError
	if errors.As(err, &execErr) {
		return transcodeError(ctx, "ffprobe", execErr.ExitCode, execErr.Stderr, execErr.Err)
	}
	return transcodeError(ctx, "ffprobe", -1, "", err)
}

func transcodeError(ctx context.Context, tool string, code int, stderr string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	return &TranscodeError{Tool: tool, ExitCode: code, Stderr: stderr, Err: err}
}
