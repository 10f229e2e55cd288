package tui

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/bannerq/internal/config"
	bannerdbus "github.com/jmylchreest/bannerq/internal/dbus"
)

// ErrHostBusy is returned to D-Bus callers when the UI did not pick up a
// request in time.
var ErrHostBusy = errors.New("message host did not respond")

// bridge runs session calls on the bubbletea update goroutine for callers
// on other goroutines.
type bridge struct {
	send    func(tea.Msg)
	timeout time.Duration
}

// call runs fn on the update goroutine and waits for its result. A call
// that times out before the update goroutine picks it up never runs.
func (b bridge) call(fn func(*session) (any, error)) (any, error) {
	done := make(chan callResult, 1)
	msg := callMsg{fn: fn, state: new(atomic.Int32), done: done}
	go b.send(msg)

	timeout := time.NewTimer(b.timeout)
	defer timeout.Stop()
	select {
	case res := <-done:
		return res.value, res.err
	case <-timeout.C:
		if msg.state.CompareAndSwap(callPending, callAbandoned) {
			return nil, ErrHostBusy
		}
		// Already running; its result is on the way.
		res := <-done
		return res.value, res.err
	}
}

// attach routes the message server's handlers through the bridge.
func (b bridge) attach(srv *bannerdbus.MessageServer) {
	srv.SetEnqueueHandler(func(req bannerdbus.Request) (string, error) {
		v, err := b.call(func(s *session) (any, error) {
			return s.enqueueRequest(req)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	})
	srv.SetDismissHandler(func(id string) error {
		_, err := b.call(func(s *session) (any, error) {
			return nil, s.dismissRequest(id)
		})
		return err
	})
	srv.SetStatusHandler(func() bannerdbus.Status {
		v, err := b.call(func(s *session) (any, error) {
			return s.status(), nil
		})
		if err != nil {
			return bannerdbus.Status{}
		}
		return v.(bannerdbus.Status)
	})
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config     *config.Config
	ConfigPath string // Watched for changes (empty = no watching)
	Logger     *slog.Logger
	DBus       bool // Export the message service on the session bus
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m, err := New(cfg, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Start config watcher if a path was provided
	if opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(opts.ConfigPath, cfg, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			watcher.OnReload(func(c *config.Config) { p.Send(configMsg{cfg: c}) })
			watcher.OnError(func(err error) { p.Send(configErrMsg{err: err}) })
			if err := watcher.Start(); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
				_ = watcher.Stop()
			} else {
				defer watcher.Stop()
			}
		}
	}

	if cfg.ScreenLock.SuspendOnLock {
		lock := bannerdbus.NewScreenLockWatcher(logger)
		lock.SetChangeHandler(func(locked bool) { p.Send(lockMsg{locked: locked}) })
		if err := lock.Start(); err != nil {
			logger.Warn("screen lock monitoring unavailable", "error", err)
		} else {
			defer lock.Stop()
		}
	}

	if opts.DBus {
		srv := bannerdbus.NewMessageServer(logger)
		bridge{send: p.Send, timeout: 2 * time.Second}.attach(srv)
		// Set before the program starts; afterwards only the update
		// goroutine touches the session.
		m.sess.server = srv
		if err := srv.Start(); err != nil {
			logger.Warn("D-Bus message service unavailable", "error", err)
		} else {
			defer srv.Stop()
		}
	}

	_, err = p.Run()
	return err
}
