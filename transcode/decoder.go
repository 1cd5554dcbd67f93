package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-scene/logging"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV file
var ErrInvalidWAV = errors.New("invalid WAV file format")

// WAVDecoder decodes linear PCM WAV files into mono Signals.
// Multi-channel audio is downmixed by averaging channels.
//
// The decoder holds an open file between Decode and Close. Callers should
// Close it as soon as Decode returns, before running extraction.
type WAVDecoder struct {
	path   string
	file   *os.File
	logger logging.Logger
}

// NewWAVDecoder creates a decoder for the WAV file at path
func NewWAVDecoder(path string) *WAVDecoder {
	return &WAVDecoder{
		path: path,
		logger: logging.WithFields(logging.Fields{
			"component": "wav_decoder",
			"path":      path,
		}),
	}
}

// Decode reads the whole file and returns a mono Signal
func (d *WAVDecoder) Decode(ctx context.Context) (*Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	if d.file == nil {
		file, err := os.Open(d.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open WAV file: %w", err)
		}
		d.file = file
	}

	decoder := wav.NewDecoder(d.file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("error reading WAV data: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)

	mono, err := downmix(buf, channels, bitDepth)
	if err != nil {
		return nil, err
	}

	var duration float64
	if sampleRate > 0 {
		duration = float64(len(mono)) / float64(sampleRate)
	}

	signal, err := NewSignal(mono, sampleRate, duration)
	if err != nil {
		return nil, err
	}

	signal.Metadata = &SignalMetadata{
		Source:     d.path,
		Format:     "wav",
		Channels:   channels,
		BitDepth:   bitDepth,
		DecodeTime: time.Since(start),
	}

	d.logger.Debug("Decoded WAV file", logging.Fields{
		"sample_rate": sampleRate,
		"channels":    channels,
		"bit_depth":   bitDepth,
		"samples":     len(mono),
	})

	return signal, nil
}

// Close releases the underlying file. It is safe to call more than once.
func (d *WAVDecoder) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// sampleScale returns the divisor and offset that map integer samples to [-1, 1)
func sampleScale(bitDepth int) (divisor, offset float64, err error) {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return 128.0, 128.0, nil
	case 16:
		return 32768.0, 0, nil
	case 24:
		return 8388608.0, 0, nil
	case 32:
		return 2147483648.0, 0, nil
	default:
		return 0, 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

func downmix(buf *audio.IntBuffer, channels, bitDepth int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidWAV, channels)
	}

	divisor, offset, err := sampleScale(bitDepth)
	if err != nil {
		return nil, err
	}

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) / divisor
		}
		mono[i] = sum / float64(channels)
	}

	return mono, nil
}
