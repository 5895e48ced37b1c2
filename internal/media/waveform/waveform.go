// Package waveform decodes PCM WAV files into float32 sample arrays.
package waveform

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Waveform is mono amplitude data in [-1, 1] plus its sample rate.
type Waveform struct {
	Samples    []float32
	SampleRate int
	// Channels is the channel count of the source file before downmixing.
	Channels int
}

// Duration returns the playback length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Decode reads an integer PCM WAV file and collapses it to mono by averaging
// channels sample-wise.
func Decode(path string) (Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		if derr := decoder.Err(); derr != nil {
			return Waveform{}, fmt.Errorf("invalid wav file: %w", derr)
		}
		return Waveform{}, errors.New("invalid wav file")
	}
	if decoder.WavAudioFormat != formatPCM && decoder.WavAudioFormat != formatExtensible {
		return Waveform{}, fmt.Errorf("unsupported wav audio format %d", decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("decode pcm: %w", err)
	}
	channels := int(decoder.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	bitDepth := int(decoder.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	samples, err := ToMono(buf, channels, bitDepth)
	if err != nil {
		return Waveform{}, err
	}
	if len(samples) == 0 {
		return Waveform{}, errors.New("wav file contains no samples")
	}
	return Waveform{Samples: samples, SampleRate: int(decoder.SampleRate), Channels: channels}, nil
}

// ToMono scales integer samples to [-1, 1] and averages interleaved channels.
// 8-bit PCM is unsigned and is re-centred around zero.
func ToMono(buf *audio.IntBuffer, channels, bitDepth int) ([]float32, error) {
	if buf == nil {
		return nil, errors.New("nil pcm buffer")
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	var scale float64
	var offset int
	switch bitDepth {
	case 8:
		scale, offset = 128, 128
	case 16:
		scale = 1 << 15
	case 24:
		scale = 1 << 23
	case 32:
		scale = 1 << 31
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[base+c]-offset) / scale
		}
		out[i] = float32(sum / float64(channels))
	}
	return out, nil
}
