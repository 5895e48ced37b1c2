package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, Pattern(size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Pattern returns size bytes of a deterministic, non-repeating-per-chunk pattern.
func Pattern(size int64) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

// WriteWAV writes a 16-bit PCM WAV file with the given interleaved samples.
func WriteWAV(t testing.TB, path string, sampleRate, channels int, samples []int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := EncodeWAV(path, sampleRate, channels, samples); err != nil {
		t.Fatalf("encode wav %s: %v", path, err)
	}
}

// EncodeWAV writes a 16-bit PCM WAV file. It is usable outside of tests, e.g.
// from fake transcoders.
func EncodeWAV(path string, sampleRate, channels int, samples []int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = file.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Tone returns n mono samples of a 440 Hz sine at 16 kHz with half amplitude.
func Tone(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(16000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}
