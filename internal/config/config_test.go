package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bannerq/internal/queue"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 250*time.Millisecond, cfg.Animation.Enter.Duration())
	assert.Equal(t, 200*time.Millisecond, cfg.Animation.Exit.Duration())
	assert.Equal(t, 16*time.Millisecond, cfg.Animation.Frame.Duration())
	assert.Equal(t, 10*time.Second, cfg.Messages.AutoDismiss.Duration())
	assert.Equal(t, 60, cfg.Messages.MaxTitleWidth)
	assert.Equal(t, ModeDirect, cfg.Messages.Mode)
	assert.True(t, cfg.ScreenLock.SuspendOnLock)
	assert.True(t, cfg.TUI.ShowHelp)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[animation]
enter = "100ms"
exit = "50"
frame = "33ms"

[messages]
auto_dismiss = "0"
max_title_width = 40
mode = "coordinated"

[screen_lock]
suspend_on_lock = false

[tui]
show_help = false
pages = 4

[clipboard]
command = "wl-copy --primary"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Animation.Enter.Duration())
	assert.Equal(t, 50*time.Millisecond, cfg.Animation.Exit.Duration())
	assert.Equal(t, 33*time.Millisecond, cfg.Animation.Frame.Duration())
	assert.Equal(t, time.Duration(0), cfg.Messages.AutoDismiss.Duration())
	assert.Equal(t, 40, cfg.Messages.MaxTitleWidth)
	assert.False(t, cfg.ScreenLock.SuspendOnLock)
	assert.False(t, cfg.TUI.ShowHelp)
	assert.Equal(t, 4, cfg.TUI.Pages)
	assert.Equal(t, "wl-copy --primary", cfg.Clipboard.Command)

	mode, err := cfg.SelectionMode()
	require.NoError(t, err)
	assert.Equal(t, queue.SelectionCoordinated, mode)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[messages]
auto_dismiss = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Changed field
	assert.Equal(t, 30*time.Second, cfg.Messages.AutoDismiss.Duration())

	// Unchanged fields should have defaults
	assert.Equal(t, DefaultMaxTitleWidth, cfg.Messages.MaxTitleWidth)
	assert.Equal(t, DefaultEnter, cfg.Animation.Enter.Duration())
	assert.True(t, cfg.ScreenLock.SuspendOnLock)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[animation]\nenter = \"soon\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
		wantErr   error
	}{
		{
			name:      "negative enter",
			modify:    func(c *Config) { c.Animation.Enter = Duration(-time.Millisecond) },
			wantField: "animation.enter",
			wantErr:   ErrNegativeDuration,
		},
		{
			name:      "negative auto dismiss",
			modify:    func(c *Config) { c.Messages.AutoDismiss = Duration(-time.Second) },
			wantField: "messages.auto_dismiss",
			wantErr:   ErrNegativeDuration,
		},
		{
			name:      "zero frame",
			modify:    func(c *Config) { c.Animation.Frame = 0 },
			wantField: "animation.frame",
			wantErr:   ErrZeroFrame,
		},
		{
			name:      "narrow title",
			modify:    func(c *Config) { c.Messages.MaxTitleWidth = 3 },
			wantField: "messages.max_title_width",
			wantErr:   ErrTitleWidth,
		},
		{
			name:      "unknown mode",
			modify:    func(c *Config) { c.Messages.Mode = "stacked" },
			wantField: "messages.mode",
			wantErr:   ErrUnknownMode,
		},
		{
			name:      "no pages",
			modify:    func(c *Config) { c.TUI.Pages = 0 },
			wantField: "tui.pages",
			wantErr:   ErrNoPages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Messages.AutoDismiss = Duration(time.Minute)
	cfg.Messages.Mode = ModeCoordinated

	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file renamed away")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_Marshal(t *testing.T) {
	data, err := DefaultConfig().Marshal()
	require.NoError(t, err)

	assert.Contains(t, string(data), "[animation]")
	assert.Contains(t, string(data), "250ms")
	assert.Contains(t, string(data), "10s")
	assert.Contains(t, string(data), "suspend_on_lock = true")
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/bannerq/config.toml", ConfigPath())
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, ConfigPath(), "bannerq/config.toml")
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"250ms", 250 * time.Millisecond, false},
		{"1m30s", 90 * time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}
