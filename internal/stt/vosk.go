package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/protokollabs/protokol/internal/audio"
	"go.uber.org/zap"
)

// voskFrameSamples is how many 16-bit samples each AcceptWaveform call
// receives. At 16 kHz one frame is a quarter second of audio.
const voskFrameSamples = 4000

// voskEngine streams PCM frames through a Kaldi-style chunked decoder.
// The model directory is validated before the native loader touches
// it, because the loader aborts the process on a missing path instead
// of returning an error.
type voskEngine struct {
	pre   preprocessor
	model *vosk.VoskModel
	log   *zap.Logger
}

func newVoskEngine(cfg Config, log *zap.Logger) (*voskEngine, error) {
	dir := strings.TrimSpace(cfg.ModelDir)
	if dir == "" {
		return nil, errors.New("vosk model directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("vosk model not found at %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vosk model path %s is not a directory", dir)
	}

	vosk.SetLogLevel(-1)
	model, err := vosk.NewModel(dir)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %s: %w", dir, err)
	}
	log.Info("vosk model loaded", zap.String("dir", dir))

	return &voskEngine{
		pre:   newPreprocessor(cfg, log),
		model: model,
		log:   log,
	}, nil
}

func (e *voskEngine) Kind() Kind { return KindVosk }

func (e *voskEngine) Recognize(ctx context.Context, audioPath string) (string, error) {
	wavPath, cleanup, silent, err := e.pre.prepare(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("vosk: %w", err)
	}
	defer cleanup()
	if silent {
		return "", nil
	}

	pcm, err := audio.ReadPCM16LE(wavPath)
	if err != nil {
		return "", fmt.Errorf("vosk: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	rec, err := vosk.NewRecognizer(e.model, float64(audio.TargetSampleRate))
	if err != nil {
		return "", fmt.Errorf("vosk: create recognizer: %w", err)
	}
	defer rec.Free()

	frameBytes := voskFrameSamples * 2
	for off := 0; off < len(pcm); off += frameBytes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		rec.AcceptWaveform(pcm[off:end])
	}

	var final struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(rec.FinalResult()), &final); err != nil {
		return "", fmt.Errorf("vosk: parse final result: %w", err)
	}

	return Clean(final.Text), nil
}

func (e *voskEngine) Close() error {
	e.model.Free()
	return nil
}
