package stt

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeToneWAV writes a mono 16 kHz 16-bit WAV containing a sine tone,
// which keeps the silence gate from short-circuiting engine tests.
func writeToneWAV(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()

	const (
		rate = 16000
		freq = 440.0
		amp  = 0.25
	)

	n := int(seconds * rate)
	data := make([]int, n)
	for i := range data {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
		data[i] = int(v * 32767)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}
