// Package record captures microphone audio through external recorder
// commands. Backends are probed in a fixed order and recording failures
// fall through to the next backend, so a machine with any of pw-record,
// arecord, or ffmpeg installed can supply audio to the pipeline.
package record

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var ErrInteractiveRequiresTTY = errors.New("interactive recording requires terminal input")
var ErrNoBackendAvailable = errors.New("no recording backend available")

// Options control a single capture.
type Options struct {
	// OutputPath is the destination WAV file. When empty, Capture places the
	// recording under TempDir (or the system temp directory).
	OutputPath string

	// Duration bounds the recording when positive.
	Duration time.Duration

	// Interactive stops the recording when the user presses Enter.
	Interactive bool

	// Input selects a backend-specific source: a pw-record target id, an
	// ALSA device name for arecord, or an ffmpeg input.
	Input string

	// Backend names the backend to try first. Empty or "auto" keeps the
	// default probe order.
	Backend string

	TempDir string
	Logger  *zap.Logger
}

// Backend records audio through an external command into a canonical WAV
// file: mono, 16 kHz, 16-bit PCM.
type Backend interface {
	Name() string
	Available() bool
	Record(ctx context.Context, opts Options) error
}

// Capture records from the microphone and returns the path of the WAV file
// it produced. Backends are tried in order until one succeeds; context
// cancellation stops the chain immediately.
func Capture(ctx context.Context, opts Options) (string, error) {
	backends := defaultBackends(runtime.GOOS)
	if len(backends) == 0 {
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}

	return capture(ctx, backends, opts)
}

func capture(ctx context.Context, backends []Backend, opts Options) (string, error) {
	if opts.Interactive && !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", ErrInteractiveRequiresTTY
	}

	if opts.OutputPath == "" {
		opts.OutputPath = tempWAVPath(opts.TempDir)
	}

	ordered, err := orderBackends(backends, opts.Backend)
	if err != nil {
		return "", err
	}

	attempted := false
	var errs []error
	for _, backend := range ordered {
		if !backend.Available() {
			errs = append(errs, fmt.Errorf("%s: backend is not available", backend.Name()))
			continue
		}
		attempted = true

		err := backend.Record(ctx, opts)
		if err == nil {
			if opts.Logger != nil {
				opts.Logger.Info("recording finished",
					zap.String("backend", backend.Name()),
					zap.String("path", opts.OutputPath))
			}
			return opts.OutputPath, nil
		}

		if cleanupErr := removePartialRecording(opts.OutputPath); cleanupErr != nil {
			errs = append(errs, fmt.Errorf("%s: remove partial recording %q: %w", backend.Name(), opts.OutputPath, cleanupErr))
		}

		err = fmt.Errorf("%s: %w", backend.Name(), err)
		errs = append(errs, err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}

	if !attempted {
		return "", fmt.Errorf("%w: %w", ErrNoBackendAvailable, errors.Join(errs...))
	}

	return "", fmt.Errorf("record audio with available backends: %w", errors.Join(errs...))
}

func orderBackends(backends []Backend, preferred string) ([]Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}

	if preferred == "" || preferred == "auto" {
		return backends, nil
	}

	preferredIndex := -1
	for i, backend := range backends {
		if backend.Name() == preferred {
			preferredIndex = i
			break
		}
	}
	if preferredIndex == -1 {
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	ordered := make([]Backend, 0, len(backends))
	ordered = append(ordered, backends[preferredIndex])
	for i, backend := range backends {
		if i != preferredIndex {
			ordered = append(ordered, backend)
		}
	}

	return ordered, nil
}

func tempWAVPath(dir string) string {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "protokol_rec_"+uuid.NewString()+".wav")
}

func removePartialRecording(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// WaitForEnter blocks until the user presses Enter. It refuses to wait when
// stdin is not a terminal so a piped invocation fails fast instead of
// hanging.
func WaitForEnter(in io.Reader, out io.Writer, message string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrInteractiveRequiresTTY
	}

	if message != "" {
		if _, err := fmt.Fprintln(out, message); err != nil {
			return err
		}
	}

	reader := bufio.NewReader(in)
	_, err := reader.ReadString('\n')
	return err
}
