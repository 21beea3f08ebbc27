package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartSpinnerEnabled(t *testing.T) {
	t.Parallel()
	stop := startSpinner(true, "testing")
	require.NotNil(t, stop)
	stop()
	stop()
}

func TestStartSpinnerDisabled(t *testing.T) {
	t.Parallel()
	stop := startSpinner(false, "testing")
	require.NotNil(t, stop)
	stop()
}

func TestStartCountdownEnabled(t *testing.T) {
	t.Parallel()
	stop := startCountdown(true, "testing", 5*time.Second)
	require.NotNil(t, stop)
	stop()
	stop()
}

func TestStartCountdownDisabled(t *testing.T) {
	t.Parallel()
	stop := startCountdown(false, "testing", 5*time.Second)
	require.NotNil(t, stop)
	stop()
}

func TestStartCountdownZeroDuration(t *testing.T) {
	t.Parallel()
	stop := startCountdown(true, "testing", 0)
	require.NotNil(t, stop)
	stop()
}

func TestStartCountdownSubSecondDuration(t *testing.T) {
	t.Parallel()
	stop := startCountdown(true, "testing", 500*time.Millisecond)
	require.NotNil(t, stop)
	stop()
}
