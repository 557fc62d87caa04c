package config

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoader_Load(t *testing.T) {
	t.Setenv("OMNIS_TEST_LEVEL", "debug")
	path := writeConfig(t, "logging:\n  level: ${OMNIS_TEST_LEVEL}\n")

	loader, err := NewLoader(path, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, loader.Current())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Same(t, cfg, loader.Current())
}

func TestLoader_LoadFailureKeepsCurrent(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")

	loader, err := NewLoader(path, quietLogger())
	require.NoError(t, err)
	first, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0o644))
	_, err = loader.Load()
	require.Error(t, err)
	assert.Same(t, first, loader.Current())
}

func TestLoader_Watch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	loader, err := NewLoader(path, quietLogger())
	require.NoError(t, err)
	_, err = loader.Load()
	require.NoError(t, err)

	updated := make(chan *Config, 16)
	require.NoError(t, loader.Watch(func(c *Config) {
		select {
		case updated <- c:
		default:
		}
	}))
	defer loader.Close()

	// Wait a bit for watcher to be ready
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-updated:
			// A truncating write can surface an intermediate empty file first.
			if cfg.Logging.Level == "error" {
				assert.Equal(t, "error", loader.Current().Logging.Level)
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for config reload")
		}
	}
}

func TestLoader_CloseIsIdempotent(t *testing.T) {
	loader, err := NewLoader(writeConfig(t, ""), quietLogger())
	require.NoError(t, err)
	require.NoError(t, loader.Watch(nil))

	assert.NoError(t, loader.Close())
	assert.NoError(t, loader.Close())
}
