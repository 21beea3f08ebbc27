// Package models resolves whisper model references. A reference is
// either a registry name (downloaded on demand into the data
// directory) or a filesystem path to a ggml file the user manages
// themselves.
package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/protokollabs/protokol/internal/download"
	"go.uber.org/zap"
)

// DefaultModel balances Russian recognition quality against download
// size for first-run setups.
const DefaultModel = "base"

// Model is a known multilingual ggml build published by the whisper.cpp
// project, pinned by checksum.
type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

// Resolved is a model reference bound to a concrete local path.
type Resolved struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
	IsCustomPath  bool
}

var registry = map[string]Model{
	"tiny": {
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
	},
	"base": {
		Name:     "base",
		FileName: "ggml-base.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
	},
	"small": {
		Name:     "small",
		FileName: "ggml-small.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
	},
	"medium": {
		Name:     "medium",
		FileName: "ggml-medium.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
	},
	"large-v3": {
		Name:     "large-v3",
		FileName: "ggml-large-v3.bin",
		URL:      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
	},
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Model, bool) {
	model, ok := registry[name]
	return model, ok
}

// Resolve binds a model reference to a local path. Registry names land
// in modelDir; anything that looks like a path is used as-is and must
// already exist.
func Resolve(modelRef, modelDir string) (Resolved, error) {
	if strings.TrimSpace(modelRef) == "" {
		modelRef = DefaultModel
	}

	if model, ok := Lookup(modelRef); ok {
		if strings.TrimSpace(modelDir) == "" {
			return Resolved{}, errors.New("model directory must not be empty for a named model")
		}

		modelPath := filepath.Join(modelDir, model.FileName)
		_, statErr := os.Stat(modelPath)
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return Resolved{}, fmt.Errorf("stat model path: %w", statErr)
		}

		return Resolved{
			Name:          model.Name,
			Path:          modelPath,
			URL:           model.URL,
			SHA256:        model.SHA256,
			NeedsDownload: errors.Is(statErr, os.ErrNotExist),
		}, nil
	}

	if !looksLikePath(modelRef) {
		return Resolved{}, fmt.Errorf("unknown model %q (known models: %s)", modelRef, strings.Join(Names(), ", "))
	}

	customPath := filepath.Clean(modelRef)
	if _, err := os.Stat(customPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Resolved{}, fmt.Errorf("custom model path does not exist: %s", customPath)
		}
		return Resolved{}, fmt.Errorf("stat custom model path: %w", err)
	}

	return Resolved{
		Path:         customPath,
		IsCustomPath: true,
	}, nil
}

// Ensure makes the resolved model available locally, downloading and
// checksum-verifying it when absent.
func Ensure(ctx context.Context, resolved Resolved, logger *zap.Logger, noProgress bool) error {
	if !resolved.NeedsDownload {
		return nil
	}
	if resolved.URL == "" {
		return fmt.Errorf("model at %s is missing and has no download source", resolved.Path)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("downloading whisper model",
		zap.String("model", resolved.Name),
		zap.String("url", resolved.URL),
		zap.String("destination", resolved.Path),
	)

	return download.Fetch(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     noProgress,
		Logger:         logger,
	})
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
