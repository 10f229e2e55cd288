package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/bannerq/internal/queue"
)

const (
	screenSaverInterface = "org.freedesktop.ScreenSaver"
	screenSaverPath      = "/org/freedesktop/ScreenSaver"
	activeChangedMember  = "ActiveChanged"
)

// screenSaverInterfaces lists the interfaces that emit ActiveChanged.
// GNOME keeps its own name for the same signal.
var screenSaverInterfaces = []string{
	screenSaverInterface,
	"org.gnome.ScreenSaver",
}

// LockHandler is called when the session screen saver is activated or
// deactivated.
type LockHandler func(locked bool)

// ScreenLockWatcher listens for screen saver ActiveChanged signals on the
// session bus.
type ScreenLockWatcher struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu       sync.Mutex
	onChange LockHandler
	signals  chan *dbus.Signal
	done     chan struct{}
	stopped  chan struct{}
	running  bool
}

// NewScreenLockWatcher creates a new watcher.
func NewScreenLockWatcher(logger *slog.Logger) *ScreenLockWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenLockWatcher{logger: logger}
}

// SetChangeHandler sets the callback for lock changes. It runs on the
// watcher goroutine.
func (w *ScreenLockWatcher) SetChangeHandler(handler LockHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = handler
}

// Start subscribes to ActiveChanged and reports the current state if the
// screen is already locked.
func (w *ScreenLockWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	for _, iface := range screenSaverInterfaces {
		if err := conn.AddMatchSignal(
			dbus.WithMatchInterface(iface),
			dbus.WithMatchMember(activeChangedMember),
		); err != nil {
			return fmt.Errorf("failed to add match rule for %s: %w", iface, err)
		}
	}

	w.mu.Lock()
	w.conn = conn
	w.signals = make(chan *dbus.Signal, 16)
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	conn.Signal(w.signals)
	go w.processSignals()

	if locked, err := w.queryActive(); err != nil {
		// Not every session runs a screen saver service.
		w.logger.Debug("screen saver state unavailable", "error", err)
	} else if locked {
		w.notify(true)
	}

	w.logger.Info("screen lock watcher started")
	return nil
}

// Stop unsubscribes and waits for the signal loop to exit.
func (w *ScreenLockWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	conn := w.conn
	close(w.done)
	w.mu.Unlock()

	conn.RemoveSignal(w.signals)
	for _, iface := range screenSaverInterfaces {
		if err := conn.RemoveMatchSignal(
			dbus.WithMatchInterface(iface),
			dbus.WithMatchMember(activeChangedMember),
		); err != nil {
			w.logger.Debug("failed to remove match rule", "interface", iface, "error", err)
		}
	}

	<-w.stopped
	w.logger.Debug("screen lock watcher stopped")
	return nil
}

func (w *ScreenLockWatcher) queryActive() (bool, error) {
	var active bool
	err := w.conn.Object(screenSaverInterface, screenSaverPath).
		Call(screenSaverInterface+".GetActive", 0).
		Store(&active)
	return active, err
}

func (w *ScreenLockWatcher) processSignals() {
	defer close(w.stopped)
	for {
		select {
		case sig := <-w.signals:
			if locked, ok := parseActiveChanged(sig); ok {
				w.logger.Debug("screen saver changed", "locked", locked, "sender", sig.Sender)
				w.notify(locked)
			}
		case <-w.done:
			return
		}
	}
}

func (w *ScreenLockWatcher) notify(locked bool) {
	w.mu.Lock()
	handler := w.onChange
	w.mu.Unlock()
	if handler != nil {
		handler(locked)
	}
}

// parseActiveChanged extracts the new state from an ActiveChanged signal.
// ok is false for any other signal or a malformed body.
func parseActiveChanged(sig *dbus.Signal) (locked, ok bool) {
	if sig == nil || len(sig.Body) < 1 {
		return false, false
	}
	matched := false
	for _, iface := range screenSaverInterfaces {
		if sig.Name == iface+"."+activeChangedMember {
			matched = true
			break
		}
	}
	if !matched {
		return false, false
	}
	locked, ok = sig.Body[0].(bool)
	return locked, ok
}

// Suspender is the part of the dispatcher a LockSuspender drives.
type Suspender interface {
	Suspend() queue.Token
	Resume(token queue.Token)
}

// LockSuspender holds one suspend token while the screen is locked. It is
// not safe for concurrent use; call SetLocked from the goroutine that owns
// the dispatcher.
type LockSuspender struct {
	target Suspender
	token  queue.Token
	held   bool
}

// NewLockSuspender creates a LockSuspender for target.
func NewLockSuspender(target Suspender) *LockSuspender {
	return &LockSuspender{target: target}
}

// SetLocked acquires or releases the lock token. Repeated calls with the
// same state are ignored.
func (l *LockSuspender) SetLocked(locked bool) {
	switch {
	case locked && !l.held:
		l.token = l.target.Suspend()
		l.held = true
	case !locked && l.held:
		l.held = false
		l.target.Resume(l.token)
	}
}

// Locked reports whether the lock token is held.
func (l *LockSuspender) Locked() bool {
	return l.held
}
