package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/protokollabs/protokol/internal/pipeline"
	"github.com/protokollabs/protokol/internal/record"
	"github.com/spf13/cobra"
)

func newComposeCmd(app *appState) *cobra.Command {
	var (
		fromMic  bool
		duration time.Duration
		noLLM    bool
	)

	cmd := &cobra.Command{
		Use:   "compose [audio-file]",
		Short: "Turn one voice recording into a protocol document",
		Long: `Compose recognizes speech from an audio file or a fresh microphone
recording, shapes it into a meeting protocol and saves the document.
Recording stops on Enter, after --duration, or on Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && fromMic {
				return errors.New("--record cannot be combined with an audio file argument")
			}

			processFn := app.processFn
			if processFn == nil {
				processFn = app.process
			}

			var req pipeline.Request
			if len(args) == 1 {
				audioPath := filepath.Clean(args[0])
				if _, err := os.Stat(audioPath); err != nil {
					return fmt.Errorf("audio file not found: %w", err)
				}
				req.AudioPath = audioPath
			} else {
				audioPath, err := app.captureClip(cmd.Context(), duration)
				if err != nil {
					return err
				}
				req.AudioPath = audioPath
				req.RemoveAudio = true
			}

			results, err := processFn(cmd.Context(), []pipeline.Request{req}, 1, noLLM)
			if err != nil {
				return err
			}

			res := results[0]
			if res.Failed() {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
				return res.Err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transcription:\n%s\n\n", res.Transcript)
			fmt.Fprintln(out, res.Text)
			fmt.Fprintf(out, "\nSaved to %s\n", res.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromMic, "record", false, "Record from the microphone instead of reading a file")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Recording length, e.g. 30s; 0 means stop on Enter")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip the generative model and use the rule-based formatter")

	return cmd
}

// captureClip records from the microphone into the temp dir, showing a
// spinner during interactive capture and a countdown for timed capture.
func (a *appState) captureClip(ctx context.Context, duration time.Duration) (string, error) {
	captureFn := a.captureFn
	if captureFn == nil {
		captureFn = record.Capture
	}

	interactive := duration <= 0
	var stopProgress stopFunc
	if interactive {
		stopProgress = startSpinner(a.progressEnabled(), "Recording")
	} else {
		stopProgress = startCountdown(a.progressEnabled(), "Recording", duration)
	}
	defer stopProgress()

	return captureFn(ctx, record.Options{
		Duration:    duration,
		Interactive: interactive,
		TempDir:     a.cfg.Output.TempDir,
		Logger:      a.log(),
	})
}
