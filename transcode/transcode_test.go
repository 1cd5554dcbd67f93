package transcode

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignalValidation(t *testing.T) {
	_, err := NewSignal(nil, 44100, 1)
	assert.ErrorIs(t, err, ErrEmptySignal)

	_, err = NewSignal([]float64{0}, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = NewSignal([]float64{0}, 44100, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewSignal([]float64{0}, 44100, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewSignal([]float64{0}, 44100, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	s, err := NewSignal([]float64{0.1, 0.2}, 8000, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 8000, s.SampleRate())
	assert.Equal(t, 0.5, s.Duration())
}

func TestSignalClone(t *testing.T) {
	s, err := NewSignal([]float64{1, 2, 3}, 8000, 1)
	require.NoError(t, err)
	s.Metadata = &SignalMetadata{Source: "x"}

	clone := s.Clone()
	clone.Samples()[0] = 99
	clone.Metadata.Source = "y"

	assert.Equal(t, 1.0, s.Samples()[0])
	assert.Equal(t, "x", s.Metadata.Source)
}

func writeWAV(t *testing.T, data []int, sampleRate, bitDepth, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestWAVDecoderStereoDownmix(t *testing.T) {
	// left = 16384 (0.5), right = -16384 (-0.5) -> mono 0; then 0.5/0.5
	data := []int{16384, -16384, 16384, 16384, 0, 0, -32768, -32768}
	path := writeWAV(t, data, 8000, 16, 2)

	dec := NewWAVDecoder(path)
	signal, err := dec.Decode(context.Background())
	require.NoError(t, err)
	require.NoError(t, dec.Close())
	require.NoError(t, dec.Close())

	assert.Equal(t, 8000, signal.SampleRate())
	assert.InDeltaSlice(t, []float64{0, 0.5, 0, -1}, signal.Samples(), 1e-9)
	assert.InDelta(t, 4.0/8000, signal.Duration(), 1e-12)
	require.NotNil(t, signal.Metadata)
	assert.Equal(t, 2, signal.Metadata.Channels)
	assert.Equal(t, 16, signal.Metadata.BitDepth)
}

func TestWAVDecoderMissingFile(t *testing.T) {
	dec := NewWAVDecoder(filepath.Join(t.TempDir(), "missing.wav"))
	_, err := dec.Decode(context.Background())
	assert.Error(t, err)
	assert.NoError(t, dec.Close())
}

func TestWAVDecoderNotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o600))

	dec := NewWAVDecoder(path)
	defer dec.Close()
	_, err := dec.Decode(context.Background())
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestWAVDecoderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWAVDecoder("unused.wav").Decode(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleScale(t *testing.T) {
	_, _, err := sampleScale(12)
	assert.Error(t, err)

	div, off, err := sampleScale(8)
	require.NoError(t, err)
	assert.Equal(t, 128.0, div)
	assert.Equal(t, 128.0, off)
}
