package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// DBusInterface is the message service interface name.
	DBusInterface = "io.github.jmylchreest.Bannerq"
	// DBusPath is the message service object path.
	DBusPath = "/io/github/jmylchreest/Bannerq"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.Bannerq"

	errInvalidArgs    = DBusInterface + ".Error.InvalidArgs"
	errUnknownMessage = DBusInterface + ".Error.UnknownMessage"
	errUnavailable    = DBusInterface + ".Error.Unavailable"
)

// ErrUnknownMessage is returned by a DismissHandler for an ID it does not
// know.
var ErrUnknownMessage = errors.New("unknown message")

// EnqueueHandler posts a message and returns its ID.
type EnqueueHandler func(req Request) (string, error)

// DismissHandler dismisses the message with the given ID.
type DismissHandler func(id string) error

// StatusHandler reports the queue state.
type StatusHandler func() Status

// MessageServer exports the message service on the session bus. Handlers
// are called on godbus goroutines.
type MessageServer struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu        sync.RWMutex
	onEnqueue EnqueueHandler
	onDismiss DismissHandler
	onStatus  StatusHandler
	running   bool
}

// NewMessageServer creates a new MessageServer.
func NewMessageServer(logger *slog.Logger) *MessageServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageServer{logger: logger}
}

// SetEnqueueHandler sets the handler called by Enqueue.
func (s *MessageServer) SetEnqueueHandler(handler EnqueueHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnqueue = handler
}

// SetDismissHandler sets the handler called by Dismiss.
func (s *MessageServer) SetDismissHandler(handler DismissHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDismiss = handler
}

// SetStatusHandler sets the handler called by Status.
func (s *MessageServer) SetStatusHandler(handler StatusHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = handler
}

// Start connects to the session bus and exports the message service.
func (s *MessageServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: serverMethods(),
				Signals: serverSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus message server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *MessageServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	// The session bus connection is shared; leave it open.
	s.logger.Info("D-Bus message server stopped")
	return nil
}

// Enqueue posts a message.
// D-Bus method: Enqueue(ssssi) -> s
func (s *MessageServer) Enqueue(
	identifier string,
	title string,
	description string,
	primaryButton string,
	expireTimeout int32,
) (string, *dbus.Error) {
	s.logger.Debug("Enqueue called", "identifier", identifier, "title", title)

	s.mu.RLock()
	handler := s.onEnqueue
	s.mu.RUnlock()
	if handler == nil {
		return "", dbus.NewError(errUnavailable, []any{"no message host attached"})
	}

	id, err := handler(Request{
		Identifier:        identifier,
		Title:             title,
		Description:       description,
		PrimaryButtonText: primaryButton,
		ExpireTimeout:     expireTimeout,
	})
	if err != nil {
		return "", dbus.NewError(errInvalidArgs, []any{err.Error()})
	}
	return id, nil
}

// Dismiss dismisses a message posted through Enqueue.
// D-Bus method: Dismiss(s) -> nothing
func (s *MessageServer) Dismiss(id string) *dbus.Error {
	s.logger.Debug("Dismiss called", "id", id)

	s.mu.RLock()
	handler := s.onDismiss
	s.mu.RUnlock()
	if handler == nil {
		return dbus.NewError(errUnavailable, []any{"no message host attached"})
	}

	if err := handler(id); err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			return dbus.NewError(errUnknownMessage, []any{id})
		}
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Status reports the number of queued messages and whether display is
// suspended.
// D-Bus method: Status() -> (ub)
func (s *MessageServer) Status() (uint32, bool, *dbus.Error) {
	s.mu.RLock()
	handler := s.onStatus
	s.mu.RUnlock()
	if handler == nil {
		return 0, false, nil
	}
	st := handler()
	return st.Queued, st.Suspended, nil
}

// serverMethods returns the D-Bus method introspection data.
func serverMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Enqueue",
			Args: []introspect.Arg{
				{Name: "identifier", Type: "s", Direction: "in"},
				{Name: "title", Type: "s", Direction: "in"},
				{Name: "description", Type: "s", Direction: "in"},
				{Name: "primary_button", Type: "s", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Dismiss",
			Args: []introspect.Arg{
				{Name: "id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "queued", Type: "u", Direction: "out"},
				{Name: "suspended", Type: "b", Direction: "out"},
			},
		},
	}
}

// serverSignals returns the D-Bus signal introspection data.
func serverSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "Dismissed",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "reason", Type: "s"},
			},
		},
		{
			Name: "PrimaryActionInvoked",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
			},
		},
	}
}
