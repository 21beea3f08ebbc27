package stt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Kind: "dragon"}, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown recognition engine "dragon"`)
	require.Contains(t, err.Error(), "whisper")
	require.Contains(t, err.Error(), "vosk")
}

func TestNewWhisperRequiresModelPath(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Kind: KindWhisper}, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisper model path is required")
}

func TestNewWhisperMissingModelFile(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Kind:      KindWhisper,
		ModelPath: filepath.Join(t.TempDir(), "ggml-missing.bin"),
	}
	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisper model not found")
}

func TestNewVoskRequiresModelDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Kind: KindVosk}, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "vosk model directory is required")
}

func TestNewVoskMissingModelDir(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Kind:     KindVosk,
		ModelDir: filepath.Join(t.TempDir(), "no-such-model"),
	}
	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "vosk model not found at")
}

func TestNewVoskRejectsFileAsModelDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(path, []byte("not a directory"), 0o644))

	_, err := New(Config{Kind: KindVosk, ModelDir: path}, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not a directory")
}

func TestFailedTextIsDistinguishableFromEmpty(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, FailedText)
}

// The tests below need real models and are skipped unless the
// corresponding environment variable points at one.

func TestWhisperEngineRecognizesTone(t *testing.T) {
	modelPath := os.Getenv("PROTOKOL_TEST_WHISPER_MODEL")
	if modelPath == "" {
		t.Skipf("set PROTOKOL_TEST_WHISPER_MODEL to a ggml model file to run this test")
	}

	eng, err := New(Config{
		Kind:      KindWhisper,
		ModelPath: modelPath,
		Language:  "ru",
		TempDir:   t.TempDir(),
	}, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	audioPath := writeToneWAV(t, t.TempDir(), "tone.wav", 1.0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// A pure tone carries no speech; the engine must still complete
	// without error and must not panic.
	_, err = eng.Recognize(ctx, audioPath)
	require.NoError(t, err)
}

func TestVoskEngineRecognizesTone(t *testing.T) {
	modelDir := os.Getenv("PROTOKOL_TEST_VOSK_MODEL")
	if modelDir == "" {
		t.Skipf("set PROTOKOL_TEST_VOSK_MODEL to an unpacked model directory to run this test")
	}

	eng, err := New(Config{
		Kind:     KindVosk,
		ModelDir: modelDir,
		TempDir:  t.TempDir(),
	}, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	audioPath := writeToneWAV(t, t.TempDir(), "tone.wav", 1.0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	text, err := eng.Recognize(ctx, audioPath)
	require.NoError(t, err)
	require.NotEqual(t, FailedText, text)
}
