// Package scope ties messages to the lifecycle of the context that owns
// them: a page, a navigation or a window.
package scope

import (
	"errors"
	"fmt"
)

// Type is the kind of owning context.
type Type int

const (
	// TypeWebContents lives as long as the page; navigations do not end it.
	TypeWebContents Type = iota
	// TypeNavigation ends on the next cross-document navigation.
	TypeNavigation
	// TypeWindow lives as long as the window.
	TypeWindow
)

// String returns the name of the scope type.
func (t Type) String() string {
	switch t {
	case TypeWebContents:
		return "web_contents"
	case TypeNavigation:
		return "navigation"
	case TypeWindow:
		return "window"
	default:
		return "unknown"
	}
}

// ParseType converts a name produced by Type.String back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "web_contents", "":
		return TypeWebContents, nil
	case "navigation":
		return TypeNavigation, nil
	case "window":
		return TypeWindow, nil
	default:
		return TypeWebContents, fmt.Errorf("unknown scope type %q", s)
	}
}

// Key identifies one scope. Keys are compared structurally: same type and
// same context. Context implementations must be comparable, which in
// practice means pointer types.
type Key struct {
	Type    Type
	Context Context
}

// String identifies the key in log output.
func (k Key) String() string {
	return fmt.Sprintf("%s:%v", k.Type, k.Context)
}

// ChangeType is the kind of lifecycle transition reported for a scope.
type ChangeType int

const (
	ChangeActive ChangeType = iota
	ChangeInactive
	ChangeDestroy
)

// String returns the name of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeActive:
		return "active"
	case ChangeInactive:
		return "inactive"
	case ChangeDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Change is one observed transition. It is built once and passed by value.
type Change struct {
	ScopeType         Type
	Key               Key
	ChangeType        ChangeType
	AnimateTransition bool
}

// Delegate reacts to scope changes. The controller only reports; the
// delegate decides whether that means suspend, resume or dismiss.
type Delegate interface {
	OnScopeChange(change Change)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(change Change)

// OnScopeChange implements Delegate.
func (f DelegateFunc) OnScopeChange(change Change) {
	f(change)
}

// Context is the host-side owner of a scope. It reports its lifecycle to
// registered observers.
type Context interface {
	Visible() bool
	AddObserver(o Observer)
	RemoveObserver(o Observer)
}

// Observer receives the lifecycle signals of a Context.
type Observer interface {
	OnShown()
	OnHidden()
	OnNavigationCommitted(nav Navigation)
	OnWindowChanged()
	OnDestroyed()
}

// Errors returned for programming mistakes by callers.
var (
	ErrScopeNotRegistered     = errors.New("scope has no registered observer")
	ErrScopeAlreadyRegistered = errors.New("scope already has a registered observer")
	ErrNilContext             = errors.New("scope context is nil")
)
