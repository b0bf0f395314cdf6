//go:build linux

package forker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnUsesRecordedEnvironment(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")

	f := New()
	f.SetEnv("WAYLAND_DISPLAY", "wayland-9")

	require.NoError(t, f.Spawn([]string{"/bin/sh", "-c", "echo -n $WAYLAND_DISPLAY > " + out}))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "wayland-9"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSpawnValidation(t *testing.T) {
	f := New()
	assert.Error(t, f.Spawn(nil))
	assert.Error(t, f.Spawn([]string{"/nonexistent/binary-xyz"}))
}
