package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// Canonical form required by the recognition engines.
const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 16
)

// ErrUnsupportedFormat marks input that is neither WAV nor convertible
// because no ffmpeg executable is available.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Normalizer converts input clips to the canonical WAV form. WAV input
// is converted natively; anything else is handed to ffmpeg, mirroring
// how voice messages arrive in compressed containers.
type Normalizer struct {
	TempDir string
	Logger  *zap.Logger

	lookPath func(string) (string, error)
}

func NewNormalizer(tempDir string, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{TempDir: tempDir, Logger: logger, lookPath: exec.LookPath}
}

// Normalize returns a path to a canonical WAV rendition of the clip and
// a cleanup func releasing any temporary file it produced. When the
// clip is already canonical the input path is returned untouched and
// cleanup is a no-op.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}

	format, probeErr := Probe(path)
	if probeErr == nil && format.Canonical() {
		return path, noop, nil
	}

	if err := ctx.Err(); err != nil {
		return "", noop, err
	}

	out, err := n.tempWAVPath()
	if err != nil {
		return "", noop, err
	}
	cleanup := func() {
		if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
			n.Logger.Warn("failed to remove normalized audio", zap.String("path", out), zap.Error(err))
		}
	}

	if probeErr == nil && format.PCM && supportedBitDepth(format.BitDepth) {
		n.Logger.Debug("converting wav natively",
			zap.String("input", path),
			zap.Int("sample_rate", format.SampleRate),
			zap.Int("channels", format.Channels),
			zap.Int("bit_depth", format.BitDepth))
		if err := n.convertWAV(path, out); err != nil {
			cleanup()
			return "", noop, err
		}
		return out, cleanup, nil
	}

	if err := n.convertWithFFmpeg(ctx, path, out); err != nil {
		cleanup()
		return "", noop, err
	}
	return out, cleanup, nil
}

func (n *Normalizer) tempWAVPath() (string, error) {
	dir := n.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "normalized-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp audio file: %w", err)
	}
	return path, nil
}

func (n *Normalizer) convertWAV(in, out string) error {
	buf, err := decodeBuffer(in)
	if err != nil {
		return err
	}

	mono := downmix(buf.Data, buf.Format.NumChannels)
	for i, v := range mono {
		mono[i] = sampleTo16Bit(v, buf.SourceBitDepth)
	}
	mono = resampleLinear(mono, buf.Format.SampleRate, TargetSampleRate)

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create normalized wav: %w", err)
	}

	enc := wav.NewEncoder(f, TargetSampleRate, TargetBitDepth, TargetChannels, 1)
	writeErr := enc.Write(&audio.IntBuffer{
		Data:           mono,
		Format:         &audio.Format{NumChannels: TargetChannels, SampleRate: TargetSampleRate},
		SourceBitDepth: TargetBitDepth,
	})
	if closeErr := enc.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if syncErr := f.Close(); writeErr == nil {
		writeErr = syncErr
	}
	if writeErr != nil {
		return fmt.Errorf("encode normalized wav: %w", writeErr)
	}
	return nil
}

func (n *Normalizer) convertWithFFmpeg(ctx context.Context, in, out string) error {
	lookPath := n.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	ffmpeg, err := lookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("%w: %s is not wav and ffmpeg is not installed", ErrUnsupportedFormat, in)
	}

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
		"-c:a", "pcm_s16le",
		out,
	}

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	n.Logger.Debug("converting audio with ffmpeg", zap.String("input", in), zap.String("output", out))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := bytes.TrimSpace(stderr.Bytes())
		if len(detail) > 0 {
			return fmt.Errorf("ffmpeg convert %s: %w (%s)", in, err, detail)
		}
		return fmt.Errorf("ffmpeg convert %s: %w", in, err)
	}
	return nil
}

func supportedBitDepth(depth int) bool {
	switch depth {
	case 8, 16, 24, 32:
		return true
	default:
		return false
	}
}

func downmix(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}

	frames := len(data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// resampleLinear interpolates between neighboring samples. Voice audio
// headed into speech models does not need a windowed-sinc resampler.
func resampleLinear(in []int, from, to int) []int {
	if from == to || len(in) == 0 || from <= 0 || to <= 0 {
		return in
	}

	n := int(math.Round(float64(len(in)) * float64(to) / float64(from)))
	if n <= 0 {
		return nil
	}

	out := make([]int, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int(math.Round(float64(in[j])*(1-frac) + float64(in[j+1])*frac))
	}
	return out
}
