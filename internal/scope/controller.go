package scope

import (
	"log/slog"
)

// Controller watches the contexts of scopes that currently hold messages
// and reports their transitions to a Delegate.
//
// Callers register a scope when its message count goes from zero to one
// and unregister it when the count returns to zero. The controller never
// suspends, resumes or dismisses anything itself.
type Controller struct {
	delegate  Delegate
	logger    *slog.Logger
	observers map[Key]*contextObserver
}

// NewController creates a controller reporting to delegate.
func NewController(delegate Delegate, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		delegate:  delegate,
		logger:    logger,
		observers: make(map[Key]*contextObserver),
	}
}

// FirstMessageEnqueued starts observing the context of key and immediately
// reports whether the context is active or inactive, so a scope created
// hidden starts suspended.
func (c *Controller) FirstMessageEnqueued(key Key) error {
	if key.Context == nil {
		return ErrNilContext
	}
	if _, exists := c.observers[key]; exists {
		return ErrScopeAlreadyRegistered
	}

	obs := &contextObserver{key: key, controller: c}
	c.observers[key] = obs
	key.Context.AddObserver(obs)

	c.logger.Debug("observing scope", "scope", key, "visible", key.Context.Visible())

	initial := ChangeInactive
	if key.Context.Visible() {
		initial = ChangeActive
	}
	c.emit(key, initial, false)
	return nil
}

// LastMessageDismissed stops observing the context of key. Calling it for
// a scope that is not registered returns ErrScopeNotRegistered.
func (c *Controller) LastMessageDismissed(key Key) error {
	if _, exists := c.observers[key]; !exists {
		return ErrScopeNotRegistered
	}
	c.unregister(key)
	return nil
}

// Registered reports whether key currently has an observer.
func (c *Controller) Registered(key Key) bool {
	_, ok := c.observers[key]
	return ok
}

// Len returns the number of observed scopes.
func (c *Controller) Len() int {
	return len(c.observers)
}

// Close stops observing every context without reporting anything.
func (c *Controller) Close() {
	for key := range c.observers {
		c.unregister(key)
	}
}

func (c *Controller) unregister(key Key) {
	obs, exists := c.observers[key]
	if !exists {
		return
	}
	delete(c.observers, key)
	obs.detached = true
	key.Context.RemoveObserver(obs)
	c.logger.Debug("stopped observing scope", "scope", key)
}

func (c *Controller) emit(key Key, changeType ChangeType, animate bool) {
	change := Change{
		ScopeType:         key.Type,
		Key:               key,
		ChangeType:        changeType,
		AnimateTransition: animate,
	}
	c.logger.Debug("scope changed", "scope", key, "change", changeType, "animate", animate)
	if c.delegate != nil {
		c.delegate.OnScopeChange(change)
	}
}

// destroy reports a destroy and drops the observer if the delegate did not
// already unregister the scope in response.
func (c *Controller) destroy(key Key, animate bool) {
	c.emit(key, ChangeDestroy, animate)
	c.unregister(key)
}

// contextObserver forwards the signals of one context to the controller.
type contextObserver struct {
	key        Key
	controller *Controller
	detached   bool
}

func (o *contextObserver) OnShown() {
	if o.detached {
		return
	}
	o.controller.emit(o.key, ChangeActive, true)
}

func (o *contextObserver) OnHidden() {
	if o.detached {
		return
	}
	o.controller.emit(o.key, ChangeInactive, false)
}

func (o *contextObserver) OnNavigationCommitted(nav Navigation) {
	if o.detached || o.key.Type != TypeNavigation {
		return
	}
	if !nav.EndsScope() {
		o.controller.logger.Debug("navigation keeps scope",
			"scope", o.key,
			"main_frame", nav.MainFrame,
			"same_document", nav.SameDocument,
			"replaced_entry", nav.ReplacedEntry,
			"transition", uint32(nav.Transition),
		)
		return
	}
	o.controller.destroy(o.key, true)
}

func (o *contextObserver) OnWindowChanged() {
	if o.detached {
		return
	}
	o.controller.destroy(o.key, false)
}

func (o *contextObserver) OnDestroyed() {
	if o.detached {
		return
	}
	o.controller.destroy(o.key, false)
}
