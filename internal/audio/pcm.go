// Package audio converts arbitrary voice recordings into the canonical
// form the recognition engines expect (WAV, mono, 16 kHz, 16-bit PCM)
// and exposes sample readers over canonical files.
package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a wav file")

// Format is the decoded shape of a WAV file.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	PCM        bool
}

// Canonical reports whether the format already satisfies the engines'
// input precondition.
func (f Format) Canonical() bool {
	return f.PCM && f.SampleRate == TargetSampleRate && f.Channels == TargetChannels && f.BitDepth == TargetBitDepth
}

// Probe reads the WAV header without decoding sample data.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}

	return Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		PCM:        dec.WavAudioFormat == 1,
	}, nil
}

func decodeBuffer(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("decode wav: empty buffer")
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}

	return buf, nil
}

// ReadFloat32 decodes a WAV file into normalized [-1, 1] float samples,
// the input form of the batch neural engine.
func ReadFloat32(path string) ([]float32, error) {
	buf, err := decodeBuffer(path)
	if err != nil {
		return nil, err
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = sampleToFloat(v, buf.SourceBitDepth)
	}
	return out, nil
}

// ReadPCM16LE decodes a canonical WAV file into the raw little-endian
// 16-bit byte stream the chunked decoder consumes.
func ReadPCM16LE(path string) ([]byte, error) {
	buf, err := decodeBuffer(path)
	if err != nil {
		return nil, err
	}
	if buf.SourceBitDepth != 16 {
		return nil, fmt.Errorf("expected 16-bit samples, got %d-bit", buf.SourceBitDepth)
	}

	out := make([]byte, 2*len(buf.Data))
	for i, v := range buf.Data {
		s := uint16(int16(v))
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, nil
}

func sampleToFloat(v, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		// 8-bit wav samples are unsigned.
		return (float32(v) - 128) / 128
	case 24:
		return float32(v) / (1 << 23)
	case 32:
		return float32(v) / (1 << 31)
	default:
		return float32(v) / (1 << 15)
	}
}

func sampleTo16Bit(v, bitDepth int) int {
	switch bitDepth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}
