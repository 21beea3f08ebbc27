package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/protokollabs/protokol/internal/minutes"
	"github.com/protokollabs/protokol/internal/models"
	"github.com/spf13/cobra"
)

// setupProbeTimeout bounds the Ollama reachability check; setup should
// not hang on a firewalled host.
const setupProbeTimeout = 5 * time.Second

func newSetupCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download the whisper model and check engine prerequisites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			resolved, err := app.resolveWhisperModel()
			if err != nil {
				return err
			}
			if err := models.Ensure(cmd.Context(), resolved, app.log(), app.noProgress); err != nil {
				return err
			}
			name := resolved.Name
			if resolved.IsCustomPath {
				name = "custom"
			}
			fmt.Fprintf(out, "Whisper model %s ready at %s\n", name, resolved.Path)

			fmt.Fprintln(out, app.voskModelReport())
			fmt.Fprintln(out, app.generatorReport(cmd.Context()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&app.noProgress, "no-progress", false, "Disable the download progress bar")

	return cmd
}

// voskModelReport describes the configured vosk model directory without
// loading it; loading happens at engine construction.
func (a *appState) voskModelReport() string {
	path := a.cfg.Engine.VoskModelPath
	if strings.TrimSpace(path) == "" {
		return "Vosk model: not configured"
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("Vosk model: missing at %s", path)
	case err != nil:
		return fmt.Sprintf("Vosk model: %v", err)
	case !info.IsDir():
		return fmt.Sprintf("Vosk model: %s is not a directory", path)
	}
	return fmt.Sprintf("Vosk model: present at %s", path)
}

// generatorReport probes the Ollama service the same way the generator
// does at startup.
func (a *appState) generatorReport(ctx context.Context) string {
	gen := a.cfg.Generator
	if gen.Disabled {
		return "Generator: disabled; documents use the rule-based formatter"
	}

	probeCtx, cancel := context.WithTimeout(ctx, setupProbeTimeout)
	defer cancel()

	names, err := minutes.NewOllamaClient(gen.URL).Tags(probeCtx)
	if err != nil {
		return fmt.Sprintf("Generator: %s unreachable; documents will use the rule-based formatter", gen.URL)
	}
	if slices.Contains(names, gen.Model) {
		return fmt.Sprintf("Generator: %s reachable, model %s installed", gen.URL, gen.Model)
	}
	return fmt.Sprintf("Generator: %s reachable, model %s not installed (%d models available)", gen.URL, gen.Model, len(names))
}
