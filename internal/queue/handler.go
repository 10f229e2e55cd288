package queue

import (
	"errors"

	"github.com/jmylchreest/bannerq/internal/model"
)

// Handler is the per-message state machine driven by the scheduler.
//
// Show and Hide return immediately. Hide must call onHidden exactly once,
// including when the message was never shown. A handler that never calls
// onHidden stalls the queue; the scheduler does not guard against it.
type Handler interface {
	Show()
	Hide(animate bool, onHidden func())
	Dismiss(reason model.DismissReason)
	Identifier() model.MessageIdentifier
}

// Delegate is implemented by the host to coordinate with its own
// animation infrastructure.
type Delegate interface {
	// OnStartShowing is called when a message becomes the display
	// candidate. The host may defer calling show.
	OnStartShowing(show func())
	// OnFinishHiding is called once the hide of the displayed message
	// completed and before the next candidate is considered.
	OnFinishHiding()
}

// DelegateFuncs adapts plain functions to Delegate. A nil OnStart shows
// immediately.
type DelegateFuncs struct {
	OnStart  func(show func())
	OnFinish func()
}

// OnStartShowing implements Delegate.
func (d DelegateFuncs) OnStartShowing(show func()) {
	if d.OnStart == nil {
		show()
		return
	}
	d.OnStart(show)
}

// OnFinishHiding implements Delegate.
func (d DelegateFuncs) OnFinishHiding() {
	if d.OnFinish != nil {
		d.OnFinish()
	}
}

// Errors returned for programming mistakes by callers.
var (
	ErrDuplicateKey        = errors.New("message key already enqueued")
	ErrNilHandler          = errors.New("message handler is nil")
	ErrNilKey              = errors.New("message key is nil")
	ErrStackingUnsupported = errors.New("message stacking is not supported")
)
