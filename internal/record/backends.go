package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/protokollabs/protokol/internal/audio"
)

func defaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{pipewireBackend{}, alsaBackend{}, ffmpegBackend{goos: goos}}
	case "darwin":
		return []Backend{ffmpegBackend{goos: goos}}
	default:
		return nil
	}
}

type pipewireBackend struct{}

func (pipewireBackend) Name() string    { return "pw-record" }
func (pipewireBackend) Available() bool { return commandAvailable("pw-record") }

func (pipewireBackend) Record(ctx context.Context, opts Options) error {
	if err := prepareOutput(opts.OutputPath); err != nil {
		return err
	}

	args := []string{
		"--rate", strconv.Itoa(audio.TargetSampleRate),
		"--channels", strconv.Itoa(audio.TargetChannels),
		"--format", "s16",
	}
	if opts.Input != "" {
		args = append(args, "--target", opts.Input)
	}
	args = append(args, opts.OutputPath)

	// pw-record has no duration flag; timed mode stops it with a signal.
	return runRecorder(ctx, "pw-record", args, opts)
}

type alsaBackend struct{}

func (alsaBackend) Name() string    { return "arecord" }
func (alsaBackend) Available() bool { return commandAvailable("arecord") }

func (alsaBackend) Record(ctx context.Context, opts Options) error {
	if err := prepareOutput(opts.OutputPath); err != nil {
		return err
	}

	args := []string{
		"-f", "S16_LE",
		"-r", strconv.Itoa(audio.TargetSampleRate),
		"-c", strconv.Itoa(audio.TargetChannels),
	}
	if seconds := int(opts.Duration / time.Second); seconds > 0 {
		args = append(args, "-d", strconv.Itoa(seconds))
	}
	if opts.Input != "" {
		args = append(args, "-D", opts.Input)
	}
	args = append(args, opts.OutputPath)

	return runRecorder(ctx, "arecord", args, opts)
}

type ffmpegBackend struct {
	goos string
}

func (ffmpegBackend) Name() string    { return "ffmpeg" }
func (ffmpegBackend) Available() bool { return commandAvailable("ffmpeg") }

func (b ffmpegBackend) Record(ctx context.Context, opts Options) error {
	if err := prepareOutput(opts.OutputPath); err != nil {
		return err
	}

	var errs []error
	for _, source := range ffmpegSources(b.goos, opts.Input) {
		args := []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-f", source.format, "-i", source.input}
		if seconds := int(opts.Duration / time.Second); seconds > 0 {
			args = append(args, "-t", strconv.Itoa(seconds))
		}
		args = append(args,
			"-ac", strconv.Itoa(audio.TargetChannels),
			"-ar", strconv.Itoa(audio.TargetSampleRate),
			"-c:a", "pcm_s16le",
			opts.OutputPath,
		)

		err := runRecorder(ctx, "ffmpeg", args, opts)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		errs = append(errs, fmt.Errorf("ffmpeg (%s/%s): %w", source.format, source.input, err))
	}

	return errors.Join(errs...)
}

type ffmpegSource struct {
	format string
	input  string
}

func ffmpegSources(goos, input string) []ffmpegSource {
	if goos == "darwin" {
		if input == "" {
			input = ":0"
		}
		return []ffmpegSource{{format: "avfoundation", input: input}}
	}

	if input == "" {
		input = "default"
	}
	return []ffmpegSource{
		{format: "pulse", input: input},
		{format: "alsa", input: input},
	}
}

func prepareOutput(path string) error {
	if path == "" {
		return errors.New("output path is required")
	}
	return os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755)
}

func runRecorder(ctx context.Context, name string, args []string, opts Options) error {
	if opts.Interactive {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		return runInteractiveCommand(ctx, cmd, opts.Logger)
	}

	if opts.Duration > 0 {
		// Timed mode stops the recorder with an interrupt so it can finalize
		// the WAV header; a context kill would leave the file truncated.
		cmd := exec.Command(name, args...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		return runTimedCommand(ctx, cmd, opts.Duration, opts.Logger)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// stopGracePeriod is how long a recorder gets to exit after an interrupt
// before it is killed.
const stopGracePeriod = time.Second

func runInteractiveCommand(ctx context.Context, cmd *exec.Cmd, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	if waitErr := WaitForEnter(os.Stdin, os.Stderr, "Recording... press Enter to stop."); waitErr != nil {
		_ = stopRecorder(cmd, done, logger)
		return waitErr
	}

	err := stopRecorder(cmd, done, logger)
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return err
	}
}

func runTimedCommand(ctx context.Context, cmd *exec.Cmd, duration time.Duration, logger *zap.Logger) error {
	if duration <= 0 {
		return cmd.Run()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return stopRecorder(cmd, done, logger)
	case <-ctx.Done():
		_ = stopRecorder(cmd, done, logger)
		return ctx.Err()
	}
}

// stopRecorder asks the running recorder to stop with an interrupt and
// kills it when it has not exited within the grace period. A clean exit
// after a deliberate stop is not an error.
func stopRecorder(cmd *exec.Cmd, done <-chan error, logger *zap.Logger) error {
	stopSignalSent := cmd.Process.Signal(os.Interrupt) == nil

	grace := time.NewTimer(stopGracePeriod)
	defer grace.Stop()

	var err error
	select {
	case err = <-done:
	case <-grace.C:
		logger.Debug("recorder did not stop on interrupt; killing it")
		_ = cmd.Process.Kill()
		err = <-done
	}

	if err == nil {
		return nil
	}

	if stopSignalSent {
		logger.Debug("recorder exited after stop signal", zap.Error(err))
		return nil
	}

	if exitedOnSignal(err, logger) {
		return nil
	}

	return err
}

// exitedOnSignal reports whether err is an exit status caused by a signal.
// Recorders that die on SIGINT without installing a handler exit this way
// after a deliberate stop.
func exitedOnSignal(err error, logger *zap.Logger) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return false
	}

	logger.Debug("recorder stopped by signal", zap.String("signal", status.Signal().String()))
	return true
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
