package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/protokollabs/protokol/internal/audio"
	"go.uber.org/zap"
)

// whisperEngine decodes a whole utterance in one batch pass through a
// ggml model. The model is loaded once at construction; whisper
// contexts are not safe for concurrent use, so Recognize serializes
// model access.
type whisperEngine struct {
	pre      preprocessor
	model    whisper.Model
	language string
	log      *zap.Logger

	mu sync.Mutex
}

func newWhisperEngine(cfg Config, log *zap.Logger) (*whisperEngine, error) {
	path := strings.TrimSpace(cfg.ModelPath)
	if path == "" {
		return nil, errors.New("whisper model path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("whisper model not found: %w", err)
	}

	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", path, err)
	}
	log.Info("whisper model loaded", zap.String("path", path))

	return &whisperEngine{
		pre:      newPreprocessor(cfg, log),
		model:    model,
		language: strings.TrimSpace(cfg.Language),
		log:      log,
	}, nil
}

func (e *whisperEngine) Kind() Kind { return KindWhisper }

func (e *whisperEngine) Recognize(ctx context.Context, audioPath string) (string, error) {
	wavPath, cleanup, silent, err := e.pre.prepare(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	defer cleanup()
	if silent {
		return "", nil
	}

	samples, err := audio.ReadFloat32(wavPath)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if e.language != "" && e.language != "auto" {
		if err := wctx.SetLanguage(e.language); err != nil {
			return "", fmt.Errorf("whisper: set language %q: %w", e.language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var b strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}

	return Clean(b.String()), nil
}

func (e *whisperEngine) Close() error {
	return e.model.Close()
}
