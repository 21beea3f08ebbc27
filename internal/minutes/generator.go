// Package minutes turns a raw transcription into structured meeting
// minutes. The preferred producer is a local generative service; a
// deterministic rule-based formatter guarantees a document when the
// service is unreachable, misbehaves, or is disabled outright.
package minutes

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/protokollabs/protokol/internal/document"
	"go.uber.org/zap"
)

// Source records which producer built a document.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"

	defaultProbeTimeout    = 5 * time.Second
	defaultGenerateTimeout = 60 * time.Second
	defaultTemperature     = 0.1
	defaultTopP            = 0.9
)

// GeneratorConfig is fixed at construction. Zero fields take the
// package defaults.
type GeneratorConfig struct {
	BaseURL    string
	Model      string
	PromptPath string

	// Disabled skips the generative service entirely; every call uses
	// the rule-based formatter.
	Disabled bool

	ProbeTimeout    time.Duration
	GenerateTimeout time.Duration
	Temperature     float64
	TopP            float64

	Locale *Locale
	Now    func() time.Time
}

// Generator produces meeting minutes with a model-first, fallback-
// second strategy. Construction never fails: the availability probe is
// advisory and a bad prompt file degrades to the built-in template.
type Generator struct {
	client   *OllamaClient
	model    string
	prompt   Prompt
	opts     GenerateOptions
	timeout  time.Duration
	disabled bool
	fallback Fallback
	log      *zap.Logger
}

func NewGenerator(ctx context.Context, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaultGenerateTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}

	locale := RussianLocale()
	if cfg.Locale != nil {
		locale = *cfg.Locale
	}
	fallback := NewFallback(locale)
	if cfg.Now != nil {
		fallback.Now = cfg.Now
	}

	prompt := DefaultPrompt()
	if cfg.PromptPath != "" {
		loaded, err := LoadPrompt(cfg.PromptPath)
		if err != nil {
			logger.Warn("prompt template unusable; using built-in default",
				zap.String("path", cfg.PromptPath), zap.Error(err))
		} else {
			prompt = loaded
		}
	}

	g := &Generator{
		client:   NewOllamaClient(cfg.BaseURL),
		model:    cfg.Model,
		prompt:   prompt,
		opts:     GenerateOptions{Temperature: cfg.Temperature, TopP: cfg.TopP},
		timeout:  cfg.GenerateTimeout,
		disabled: cfg.Disabled,
		fallback: fallback,
		log:      logger,
	}

	if !g.disabled {
		g.probe(ctx, cfg.ProbeTimeout)
	}
	return g
}

// probe checks service reachability once at startup. A configured model
// missing from the installed set is replaced with the first installed
// one. Probe failure only means the first Generate calls will discover
// the outage themselves.
func (g *Generator) probe(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := g.client.Tags(ctx)
	if err != nil {
		g.log.Warn("generative service unreachable; rule-based formatting will be used", zap.Error(err))
		return
	}
	if len(names) == 0 {
		g.log.Warn("generative service has no installed models; rule-based formatting will be used")
		return
	}
	if !slices.Contains(names, g.model) {
		g.log.Warn("configured model is not installed; substituting first available",
			zap.String("configured", g.model),
			zap.String("substitute", names[0]),
			zap.Strings("available", names),
		)
		g.model = names[0]
	}
	g.log.Info("generative service available", zap.String("model", g.model))
}

// Generate is total: it always returns a document. Any primary-path
// failure is logged and answered by the rule-based formatter.
func (g *Generator) Generate(ctx context.Context, transcription string) (*document.Document, Source) {
	if !g.disabled {
		doc, err := g.fromModel(ctx, transcription)
		if err == nil {
			return doc, SourceModel
		}
		g.log.Warn("model generation failed; using rule-based formatting", zap.Error(err))
	}
	return g.fallback.Build(transcription), SourceFallback
}

func (g *Generator) fromModel(ctx context.Context, transcription string) (*document.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.Generate(ctx, g.model, g.prompt.Render(transcription), g.opts)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("model returned an empty document")
	}
	return document.Parse(text), nil
}
