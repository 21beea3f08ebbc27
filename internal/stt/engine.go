// Package stt puts two incompatible speech-recognition backends behind
// one contract: a batch neural engine decoding a whole utterance in a
// single pass (whisper.cpp) and a chunked decoder fed fixed-size frames
// (Vosk). Engines are constructed once at startup and fail fast when
// their model cannot be loaded; per-request faults come back as wrapped
// errors, never panics.
package stt

import (
	"context"
	"fmt"
	"os"

	"github.com/protokollabs/protokol/internal/audio"
	"go.uber.org/zap"
)

// Kind selects a recognition backend.
type Kind string

const (
	KindWhisper Kind = "whisper"
	KindVosk    Kind = "vosk"
)

// FailedText is the fixed transcription shown to users when recognition
// fails. An empty transcription means recognized silence, which is a
// different outcome.
const FailedText = "Ошибка распознавания речи."

// Config is immutable engine configuration chosen at process start.
type Config struct {
	Kind      Kind
	ModelPath string // whisper: ggml model file
	ModelDir  string // vosk: unpacked model directory
	Language  string
	TempDir   string

	SilenceGate bool
	SilenceDBFS float64
}

// Engine converts one audio clip into final text. Implementations
// normalize the clip themselves when it does not already satisfy their
// input precondition.
type Engine interface {
	Kind() Kind
	Recognize(ctx context.Context, audioPath string) (string, error)
	Close() error
}

// New resolves the configured kind to a constructed engine. An unknown
// kind is a configuration error and must abort startup.
func New(cfg Config, logger *zap.Logger) (Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Kind {
	case KindWhisper:
		return newWhisperEngine(cfg, logger)
	case KindVosk:
		return newVoskEngine(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown recognition engine %q (supported: %s, %s)", cfg.Kind, KindWhisper, KindVosk)
	}
}

// preprocessor is the shared front half of both engines: normalize the
// clip, then decide via the silence gate whether a model run is needed
// at all.
type preprocessor struct {
	norm      *audio.Normalizer
	gate      bool
	threshold float64
	log       *zap.Logger
}

func newPreprocessor(cfg Config, log *zap.Logger) preprocessor {
	return preprocessor{
		norm:      audio.NewNormalizer(cfg.TempDir, log),
		gate:      cfg.SilenceGate,
		threshold: cfg.SilenceDBFS,
		log:       log,
	}
}

func (p preprocessor) prepare(ctx context.Context, path string) (wavPath string, cleanup func(), silent bool, err error) {
	noop := func() {}

	if _, err := os.Stat(path); err != nil {
		return "", noop, false, fmt.Errorf("audio file: %w", err)
	}

	wavPath, cleanup, err = p.norm.Normalize(ctx, path)
	if err != nil {
		return "", noop, false, err
	}

	if !p.gate {
		return wavPath, cleanup, false, nil
	}

	isSilent, metrics, gateErr := audio.IsSilentWAV(wavPath, p.threshold)
	if gateErr != nil {
		p.log.Warn("silence gate analysis failed; continuing recognition", zap.Error(gateErr), zap.String("audio", path))
		return wavPath, cleanup, false, nil
	}

	if isSilent {
		p.log.Info("audio considered silent; skipping recognition",
			zap.String("audio", path),
			zap.Float64("rms_dbfs", metrics.RMSdBFS),
			zap.Float64("peak_dbfs", metrics.PeakdBFS),
			zap.Float64("threshold_dbfs", p.threshold),
		)
	}

	return wavPath, cleanup, isSilent, nil
}
