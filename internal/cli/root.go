// Package cli assembles the protokol command tree. Commands reach their
// collaborators through function fields on appState so tests can swap in
// fakes for recognition models, microphones, the clipboard and the
// generation service.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/protokollabs/protokol/internal/clipboard"
	"github.com/protokollabs/protokol/internal/config"
	"github.com/protokollabs/protokol/internal/logging"
	"github.com/protokollabs/protokol/internal/minutes"
	"github.com/protokollabs/protokol/internal/models"
	"github.com/protokollabs/protokol/internal/pipeline"
	"github.com/protokollabs/protokol/internal/platform"
	"github.com/protokollabs/protokol/internal/record"
	"github.com/protokollabs/protokol/internal/render"
	"github.com/protokollabs/protokol/internal/stt"
	"github.com/protokollabs/protokol/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// silenceThresholdDBFS gates out near-silent clips before they reach a
// recognition model. -65 dBFS sits well below quiet speech.
const silenceThresholdDBFS = -65

const about = `Protokol turns voice recordings of meetings into formatted protocol
documents. Speech is recognized locally (whisper.cpp or Vosk), shaped
into a structured document by a local Ollama model with a deterministic
fallback, and saved as a PDF.`

type appState struct {
	cfgPath    string
	verbose    bool
	engine     string
	language   string
	outputDir  string
	noProgress bool

	cfg    config.Config
	logger *zap.Logger
	closer func()

	recognizeFn func(ctx context.Context, audioPath string) (string, error)
	processFn   func(ctx context.Context, reqs []pipeline.Request, workers int, noLLM bool) ([]pipeline.Result, error)
	captureFn   func(ctx context.Context, opts record.Options) (string, error)
	copyFn      func(ctx context.Context, value string) error
}

func NewRootCmd() *cobra.Command {
	app := &appState{}
	app.recognizeFn = app.recognizeAudio
	app.processFn = app.process
	app.captureFn = record.Capture
	app.copyFn = clipboard.CopyText

	cmd := &cobra.Command{
		Use:           "protokol",
		Short:         "Turn voice recordings into meeting protocol documents",
		Long:          about,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.initialize()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&app.cfgPath, "config", "", "Config file path (default protokol.yaml in the working directory)")
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", false, "Enable verbose logs")
	cmd.PersistentFlags().StringVar(&app.engine, "engine", "", "Recognition engine: whisper|vosk (overrides config)")
	cmd.PersistentFlags().StringVar(&app.language, "language", "", "Recognition language code, e.g. ru (overrides config)")
	cmd.PersistentFlags().StringVar(&app.outputDir, "output-dir", "", "Directory for generated documents (overrides config)")

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newComposeCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initialize runs before every command: load the effective configuration,
// fold flag overrides in, and construct the process logger.
func (a *appState) initialize() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}

	if a.engine != "" {
		cfg.Engine.Kind = a.engine
	}
	if a.language != "" {
		cfg.Engine.Language = a.language
	}
	if a.outputDir != "" {
		cfg.Output.Dir = a.outputDir
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLogger, err := logging.New(logging.Options{Verbose: a.verbose, Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closer = closeLogger
	return nil
}

func (a *appState) close() {
	if a.closer != nil {
		a.closer()
	}
}

// newEngine constructs the configured recognition engine. Processing
// commands never download models themselves; a missing whisper model is
// reported with a pointer to setup instead.
func (a *appState) newEngine() (stt.Engine, error) {
	cfg := stt.Config{
		Kind:        stt.Kind(a.cfg.Engine.Kind),
		ModelDir:    a.cfg.Engine.VoskModelPath,
		Language:    a.cfg.Engine.Language,
		TempDir:     a.cfg.Output.TempDir,
		SilenceGate: true,
		SilenceDBFS: silenceThresholdDBFS,
	}

	if cfg.Kind == stt.KindWhisper {
		resolved, err := a.resolveWhisperModel()
		if err != nil {
			return nil, err
		}
		if resolved.NeedsDownload {
			return nil, fmt.Errorf("whisper model %q is missing at %s; run \"protokol setup\" to download it", resolved.Name, resolved.Path)
		}
		cfg.ModelPath = resolved.Path
	}

	return stt.New(cfg, a.log())
}

func (a *appState) resolveWhisperModel() (models.Resolved, error) {
	modelDir, err := platform.ResolveModelDir("")
	if err != nil {
		return models.Resolved{}, err
	}
	return models.Resolve(a.cfg.Engine.WhisperModel, modelDir)
}

func (a *appState) newGenerator(ctx context.Context, noLLM bool) *minutes.Generator {
	gen := a.cfg.Generator
	return minutes.NewGenerator(ctx, minutes.GeneratorConfig{
		BaseURL:         gen.URL,
		Model:           gen.Model,
		PromptPath:      gen.PromptFile,
		Disabled:        noLLM || gen.Disabled,
		GenerateTimeout: gen.Timeout(),
		Temperature:     gen.Temperature,
		TopP:            gen.TopP,
	}, a.log())
}

// process runs requests through the full recognize-generate-render
// pipeline. It owns the engine lifecycle: construct, run, close.
func (a *appState) process(ctx context.Context, reqs []pipeline.Request, workers int, noLLM bool) ([]pipeline.Result, error) {
	engine, err := a.newEngine()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			a.log().Warn("failed to close recognition engine", zap.Error(err))
		}
	}()

	generator := a.newGenerator(ctx, noLLM)
	renderer := render.NewRenderer(a.cfg.Render.FontsDir, a.log())

	pipe := pipeline.New(engine, generator, renderer, a.cfg.Output.Dir, a.log())
	return pipe.RunAll(ctx, reqs, workers), nil
}

// recognizeAudio transcribes one clip without the document stages.
func (a *appState) recognizeAudio(ctx context.Context, audioPath string) (string, error) {
	engine, err := a.newEngine()
	if err != nil {
		return "", err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			a.log().Warn("failed to close recognition engine", zap.Error(err))
		}
	}()

	a.log().Info("recognizing speech",
		zap.String("audio", audioPath),
		zap.String("engine", string(engine.Kind())),
		zap.String("language", a.cfg.Engine.Language),
	)
	stopSpinner := startSpinner(a.progressEnabled(), "Recognizing")
	started := time.Now()

	text, err := engine.Recognize(ctx, audioPath)
	stopSpinner()
	if err != nil {
		a.log().Warn("recognition failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("recognition finished", zap.Duration("elapsed", time.Since(started)))

	return text, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
