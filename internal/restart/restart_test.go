package restart

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRun_Success(t *testing.T) {
	requireShell(t)

	res := New([]string{"sh", "-c", "echo restarted"}).Run(context.Background())
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "restarted\n", res.Stdout)
}

func TestRun_NonZeroExitIsWarning(t *testing.T) {
	requireShell(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	res := New([]string{"sh", "-c", "echo apache down >&2; exit 3"}, WithLogger(logger)).
		Run(context.Background())

	assert.False(t, res.OK())
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "apache down")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "apache down")
}

func TestRun_CommandNotFound(t *testing.T) {
	res := New([]string{"dashexport-no-such-program"}).Run(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, -1, res.ExitCode)
}

func TestRun_Timeout(t *testing.T) {
	requireShell(t)

	start := time.Now()
	res := New([]string{"sh", "-c", "sleep 10"}, WithTimeout(100*time.Millisecond)).
		Run(context.Background())

	assert.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_EmptyCommand(t *testing.T) {
	res := New(nil).Run(context.Background())
	assert.False(t, res.OK())
}
