package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[messages]\nmax_title_width = 40\n"), 0644))

	initial, err := LoadConfig(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, initial, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var reloaded []*Config
	var failures []error
	w.OnReload(func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = append(reloaded, c)
	})
	w.OnError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	})

	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("[messages]\nmax_title_width = 80\n"), 0644))
	assert.Eventually(t, func() bool {
		return w.Current().Messages.MaxTitleWidth == 80
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[messages]\nmax_title_width = 1\n"), 0644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failures) > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 80, w.Current().Messages.MaxTitleWidth, "invalid file keeps the last good config")
	mu.Lock()
	assert.NotEmpty(t, reloaded)
	assert.ErrorIs(t, failures[0], ErrTitleWidth)
	mu.Unlock()
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	w, err := NewWatcher(path, DefaultConfig(), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	w.OnReload(func(*Config) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0644))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, w.Stop())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.toml"), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.toml")
	w, err := NewWatcher(path, DefaultConfig(), nil)
	require.NoError(t, err)

	require.Error(t, w.Start(), "the config directory does not exist")

	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop() }()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
