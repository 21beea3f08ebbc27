package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/protokollabs/protokol/internal/clipboard"
	"github.com/protokollabs/protokol/internal/stt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Recognize speech from an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recognizeFn := app.recognizeFn
			if recognizeFn == nil {
				recognizeFn = app.recognizeAudio
			}

			copyFn := app.copyFn
			if copyFn == nil {
				copyFn = clipboard.CopyText
			}

			audioPath := filepath.Clean(args[0])
			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("audio file not found: %w", err)
			}

			text, err := recognizeFn(cmd.Context(), audioPath)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), stt.FailedText)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)

			blank := strings.TrimSpace(text) == ""
			if blank {
				app.log().Warn("no speech recognized; check the microphone and input device")
			}

			if copyToClipboard && !blank {
				if err := copyFn(cmd.Context(), text); err != nil {
					if errors.Is(err, clipboard.ErrUnavailable) {
						app.log().Warn("clipboard tool unavailable; transcription left on stdout")
						return nil
					}
					app.log().Warn("failed to copy transcription to clipboard", zap.Error(err))
					return nil
				}
				app.log().Info("transcription copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the transcription to the clipboard")

	return cmd
}
