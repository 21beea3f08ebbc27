// Package pipeline sequences one request end to end: recognize the
// audio, build meeting minutes from the transcription, render them to
// disk. Failures are converted into Result values at the stage they
// happened; nothing panics past Run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/protokollabs/protokol/internal/document"
	"github.com/protokollabs/protokol/internal/minutes"
	"github.com/protokollabs/protokol/internal/render"
	"github.com/protokollabs/protokol/internal/stt"
	"go.uber.org/zap"
)

// Stage names are user-visible: they annotate error texts shown for
// failed requests.
const (
	StageRecognize = "распознавание речи"
	StageRender    = "сохранение документа"

	stageInternal = "обработка"
)

// Recognizer is the slice of stt.Engine the pipeline needs.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// Generator produces a document from a transcription and never fails.
type Generator interface {
	Generate(ctx context.Context, transcription string) (*document.Document, minutes.Source)
}

// Renderer persists a document, possibly in a degraded format.
type Renderer interface {
	Render(doc *document.Document, destPath string) (string, render.Format, error)
}

// Request is one audio clip to process. RemoveAudio marks the clip as a
// temporary artifact to delete after processing, success or not.
type Request struct {
	ID          string
	AudioPath   string
	RemoveAudio bool
}

// Result is the outcome of one request. On failure Path is empty, Err
// carries the cause and Text holds a stage-annotated human-readable
// message instead of the document text.
type Result struct {
	ID         string
	Path       string
	Text       string
	Transcript string
	Source     minutes.Source
	Format     render.Format
	Stage      string
	Err        error
}

func (r Result) Failed() bool { return r.Err != nil }

// Pipeline owns the three stages plus output bookkeeping.
type Pipeline struct {
	recognizer Recognizer
	generator  Generator
	renderer   Renderer
	outputDir  string
	now        func() time.Time
	log        *zap.Logger

	// nameMu guards reserved: concurrent requests landing in the same
	// second must not claim the same output name.
	nameMu   sync.Mutex
	reserved map[string]bool
}

func New(recognizer Recognizer, generator Generator, renderer Renderer, outputDir string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		recognizer: recognizer,
		generator:  generator,
		renderer:   renderer,
		outputDir:  outputDir,
		now:        time.Now,
		log:        logger,
		reserved:   make(map[string]bool),
	}
}

// SetClock replaces the clock used for output file names.
func (p *Pipeline) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Run processes one request. The input clip is removed afterwards when
// the request asks for it; removal failure is logged, never propagated.
func (p *Pipeline) Run(ctx context.Context, req Request) (res Result) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := p.log.With(zap.String("request_id", req.ID), zap.String("audio", req.AudioPath))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic during processing", zap.Any("value", rec))
			res = p.fail(req, stageInternal, fmt.Errorf("internal error: %v", rec))
		}
	}()
	defer p.removeAudio(req, log)

	transcript, err := p.recognizer.Recognize(ctx, req.AudioPath)
	if err != nil {
		log.Warn("recognition failed", zap.Error(err))
		res = p.fail(req, StageRecognize, err)
		res.Transcript = stt.FailedText
		return res
	}
	log.Info("audio transcribed", zap.Int("runes", utf8.RuneCountInString(transcript)))

	doc, source := p.generator.Generate(ctx, transcript)
	log.Info("protocol text ready", zap.String("source", string(source)))

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		log.Error("cannot create output directory", zap.String("dir", p.outputDir), zap.Error(err))
		res = p.fail(req, StageRender, fmt.Errorf("create output directory: %w", err))
		res.Transcript = transcript
		return res
	}

	path, format, err := p.renderer.Render(doc, p.destPath())
	if err != nil {
		log.Error("saving protocol failed", zap.Error(err))
		res = p.fail(req, StageRender, err)
		res.Transcript = transcript
		return res
	}
	log.Info("protocol saved", zap.String("path", path), zap.String("format", string(format)))

	return Result{
		ID:         req.ID,
		Path:       path,
		Text:       doc.Text(),
		Transcript: transcript,
		Source:     source,
		Format:     format,
	}
}

func (p *Pipeline) fail(req Request, stage string, err error) Result {
	return Result{
		ID:    req.ID,
		Stage: stage,
		Err:   err,
		Text:  fmt.Sprintf("Ошибка на этапе «%s»: %v", stage, err),
	}
}

// destPath derives protocol_<timestamp>.pdf inside the output
// directory, suffixing a counter when a previous request in the same
// second already claimed the name (in either produced format, on disk
// or still in flight).
func (p *Pipeline) destPath() string {
	base := "protocol_" + p.now().Format("20060102_150405")

	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	name := base
	for n := 2; p.reserved[name] || p.nameTaken(name); n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	p.reserved[name] = true
	return filepath.Join(p.outputDir, name+".pdf")
}

func (p *Pipeline) nameTaken(name string) bool {
	for _, ext := range []string{".pdf", ".txt"} {
		if _, err := os.Stat(filepath.Join(p.outputDir, name+ext)); err == nil {
			return true
		}
	}
	return false
}

func (p *Pipeline) removeAudio(req Request, log *zap.Logger) {
	if !req.RemoveAudio {
		return
	}
	if err := os.Remove(req.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove input audio", zap.Error(err))
	}
}

// ErrorText is what a user sees for a failed result; successful results
// return their document text.
func (r Result) ErrorText() string {
	if !r.Failed() {
		return r.Text
	}
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	return r.Err.Error()
}
