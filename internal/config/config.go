// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/bannerq/internal/queue"
)

// Default configuration values.
const (
	DefaultEnter         = 250 * time.Millisecond
	DefaultExit          = 200 * time.Millisecond
	DefaultFrame         = 16 * time.Millisecond
	DefaultAutoDismiss   = 10 * time.Second
	DefaultMaxTitleWidth = 60
	DefaultMode          = ModeDirect
)

// Selection modes accepted in [messages] mode.
const (
	ModeDirect      = "direct"
	ModeCoordinated = "coordinated"
)

// Config represents the bannerq configuration.
type Config struct {
	Animation  AnimationConfig  `toml:"animation"`
	Messages   MessagesConfig   `toml:"messages"`
	ScreenLock ScreenLockConfig `toml:"screen_lock"`
	TUI        TUIConfig        `toml:"tui"`
	Clipboard  ClipboardConfig  `toml:"clipboard"`
}

// AnimationConfig holds banner transition timings.
type AnimationConfig struct {
	Enter Duration `toml:"enter"`
	Exit  Duration `toml:"exit"`
	Frame Duration `toml:"frame"` // TUI redraw interval while animating
}

// MessagesConfig holds message defaults.
type MessagesConfig struct {
	AutoDismiss   Duration `toml:"auto_dismiss"` // "0" = never
	MaxTitleWidth int      `toml:"max_title_width"`
	Mode          string   `toml:"mode"` // direct, coordinated
}

// ScreenLockConfig controls the session screen lock watcher.
type ScreenLockConfig struct {
	SuspendOnLock bool `toml:"suspend_on_lock"`
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp bool `toml:"show_help"`
	Pages    int  `toml:"pages"` // Simulated tabs at startup
}

// ClipboardConfig holds clipboard settings.
type ClipboardConfig struct {
	Command string `toml:"command"` // Auto-detected if empty
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Animation: AnimationConfig{
			Enter: Duration(DefaultEnter),
			Exit:  Duration(DefaultExit),
			Frame: Duration(DefaultFrame),
		},
		Messages: MessagesConfig{
			AutoDismiss:   Duration(DefaultAutoDismiss),
			MaxTitleWidth: DefaultMaxTitleWidth,
			Mode:          DefaultMode,
		},
		ScreenLock: ScreenLockConfig{
			SuspendOnLock: true,
		},
		TUI: TUIConfig{
			ShowHelp: true,
			Pages:    2,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "bannerq", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field string
	Cause error
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Cause.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Validation causes.
var (
	ErrNegativeDuration = errors.New("duration cannot be negative")
	ErrZeroFrame        = errors.New("frame interval must be positive")
	ErrUnknownMode      = errors.New("mode must be direct or coordinated")
	ErrTitleWidth       = errors.New("max_title_width must be at least 4")
	ErrNoPages          = errors.New("pages must be at least 1")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	durations := []struct {
		field string
		value Duration
	}{
		{"animation.enter", c.Animation.Enter},
		{"animation.exit", c.Animation.Exit},
		{"messages.auto_dismiss", c.Messages.AutoDismiss},
	}
	for _, d := range durations {
		if d.value < 0 {
			return &ValidationError{Field: d.field, Cause: ErrNegativeDuration}
		}
	}
	if c.Animation.Frame <= 0 {
		return &ValidationError{Field: "animation.frame", Cause: ErrZeroFrame}
	}
	if c.Messages.MaxTitleWidth < 4 {
		return &ValidationError{
			Field: "messages.max_title_width",
			Cause: fmt.Errorf("%w, got %d", ErrTitleWidth, c.Messages.MaxTitleWidth),
		}
	}
	if _, err := c.SelectionMode(); err != nil {
		return &ValidationError{Field: "messages.mode", Cause: err}
	}
	if c.TUI.Pages < 1 {
		return &ValidationError{Field: "tui.pages", Cause: ErrNoPages}
	}
	return nil
}

// SelectionMode returns the queue selection mode named by [messages] mode.
func (c *Config) SelectionMode() (queue.SelectionMode, error) {
	switch c.Messages.Mode {
	case "", ModeDirect:
		return queue.SelectionDirect, nil
	case ModeCoordinated:
		return queue.SelectionCoordinated, nil
	default:
		return queue.SelectionDirect, fmt.Errorf("%w, got %q", ErrUnknownMode, c.Messages.Mode)
	}
}
