package dbus

import (
	"fmt"

	"github.com/jmylchreest/bannerq/internal/model"
)

// EmitDismissed emits the Dismissed signal for a message posted over the
// bus.
func (s *MessageServer) EmitDismissed(id string, reason model.DismissReason) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(DBusPath, DBusInterface+".Dismissed", id, reason.String()); err != nil {
		return fmt.Errorf("failed to emit Dismissed signal: %w", err)
	}

	s.logger.Debug("emitted Dismissed signal", "id", id, "reason", reason)
	return nil
}

// EmitPrimaryActionInvoked emits the PrimaryActionInvoked signal.
func (s *MessageServer) EmitPrimaryActionInvoked(id string) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(DBusPath, DBusInterface+".PrimaryActionInvoked", id); err != nil {
		return fmt.Errorf("failed to emit PrimaryActionInvoked signal: %w", err)
	}

	s.logger.Debug("emitted PrimaryActionInvoked signal", "id", id)
	return nil
}
