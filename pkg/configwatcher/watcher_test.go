package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"levelup_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `
database:
  driver: sqlite
storage:
  local_path: %s
progression:
  pacing_scope: %s
`

func write(t *testing.T, path, uploads, scope string) {
	t.Helper()
	content := []byte(fmt.Sprintf(body, uploads, scope))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(t.TempDir(), "uploads")
	path := filepath.Join(dir, "config.yaml")
	write(t, path, uploads, "global")

	got := make(chan *config.Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *config.Config) {
			select {
			case got <- cfg:
			default:
			}
		})
	}()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	write(t, path, uploads, "level")

	select {
	case cfg := <-got:
		assert.Equal(t, "level", cfg.Progression.PacingScope)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
