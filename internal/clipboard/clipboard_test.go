package clipboard

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeClipboardStub installs a stub command that copies its first stdin
// line to a sink file. It avoids external commands so PATH can be reduced
// to the stub directory alone.
func writeClipboardStub(t *testing.T, dir, name string) string {
	t.Helper()

	sink := filepath.Join(dir, name+".sink")
	stub := "#!/bin/sh\nset -u\nIFS= read -r line || true\nprintf '%s' \"$line\" > \"$SINK_FILE\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(stub), 0o755))
	t.Setenv("SINK_FILE", sink)

	return sink
}

func TestCopyTextWritesToFirstAvailableCommand(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("darwin probes pbcopy only")
	}

	dir := t.TempDir()
	sink := writeClipboardStub(t, dir, "wl-copy")
	t.Setenv("PATH", dir)

	require.NoError(t, CopyText(context.Background(), "протокол готов"))

	data, err := os.ReadFile(sink)
	require.NoError(t, err)
	require.Equal(t, "протокол готов", string(data))
}

func TestCopyTextDetachedCommandReceivesText(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("darwin probes pbcopy only")
	}

	dir := t.TempDir()
	sink := writeClipboardStub(t, dir, "xclip")
	t.Setenv("PATH", dir)

	require.NoError(t, CopyText(context.Background(), "текст"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(sink)
		return err == nil && string(data) == "текст"
	}, time.Second, 10*time.Millisecond)
}

func TestCopyTextReportsUnavailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := CopyText(context.Background(), "текст")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDetectPrefersWaylandOverX11(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"wl-copy", "xclip", "xsel"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755))
	}
	t.Setenv("PATH", dir)

	spec, err := detect("linux")
	require.NoError(t, err)
	require.Equal(t, "wl-copy", spec.name)
	require.False(t, spec.detached)
}

func TestDetectDarwinRequiresPBCopy(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := detect("darwin")
	require.ErrorIs(t, err, ErrUnavailable)
}
