package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/protokollabs/protokol/internal/pipeline"
	"github.com/spf13/cobra"
)

func newBatchCmd(app *appState) *cobra.Command {
	var (
		workers int
		noLLM   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <audio-file>...",
		Short: "Process several recordings concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processFn := app.processFn
			if processFn == nil {
				processFn = app.process
			}

			reqs := make([]pipeline.Request, 0, len(args))
			for _, arg := range args {
				audioPath := filepath.Clean(arg)
				if _, err := os.Stat(audioPath); err != nil {
					return fmt.Errorf("audio file not found: %w", err)
				}
				reqs = append(reqs, pipeline.Request{AudioPath: audioPath})
			}

			if workers < 1 {
				workers = app.cfg.Workers
			}

			results, err := processFn(cmd.Context(), reqs, workers, noLLM)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for i, res := range results {
				if res.Failed() {
					failed++
					fmt.Fprintf(out, "FAIL  %s: %v\n", reqs[i].AudioPath, res.Err)
					continue
				}
				fmt.Fprintf(out, "OK    %s -> %s\n", reqs[i].AudioPath, res.Path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d recordings failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers; 0 takes the configured value")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip the generative model and use the rule-based formatter")

	return cmd
}
