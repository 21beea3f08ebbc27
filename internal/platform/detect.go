// Package platform resolves per-OS filesystem locations for protokol's
// data (downloaded models).
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

// ResolveModelDir returns the override unchanged when set, otherwise
// the platform default under the user's data directory.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"))
}

func defaultDataDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "protokol"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "protokol"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "protokol"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
