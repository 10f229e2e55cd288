// Package dispatcher is the entry point used by features to post messages.
// It builds a handler per message, feeds the queue manager and applies the
// scope policy: a hidden scope suspends display, a visible one resumes it,
// and a destroyed one dismisses its messages.
package dispatcher

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/bannerq/internal/message"
	"github.com/jmylchreest/bannerq/internal/model"
	"github.com/jmylchreest/bannerq/internal/queue"
	"github.com/jmylchreest/bannerq/internal/scope"
)

// HandlerFactory builds the handler for a message. dismiss routes user
// and timer dismissals back into the dispatcher.
type HandlerFactory func(props *model.MessageProperties, dismiss message.DismissFunc) queue.Handler

// Config configures a Dispatcher.
type Config struct {
	Mode    queue.SelectionMode
	Factory HandlerFactory
	Logger  *slog.Logger
}

// tracked is the dispatcher's record of one enqueued message.
type tracked struct {
	handler queue.Handler
	scope   scope.Key
}

// Dispatcher posts messages to a queue manager and keeps per-scope
// bookkeeping for the scope controller.
type Dispatcher struct {
	logger  *slog.Logger
	factory HandlerFactory
	queue   *queue.Manager
	scopes  *scope.Controller

	messages    map[*model.MessageProperties]*tracked
	scopeCounts map[scope.Key]int
	scopeTokens map[scope.Key]queue.Token
}

// New creates a dispatcher. Without a factory every message is a
// SingleActionMessage with no banner.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = func(props *model.MessageProperties, dismiss message.DismissFunc) queue.Handler {
			return message.NewSingleActionMessage(props, message.Options{
				RequestDismiss: dismiss,
				Logger:         logger,
			})
		}
	}

	d := &Dispatcher{
		logger:      logger,
		factory:     factory,
		queue:       queue.NewManager(cfg.Mode, logger),
		messages:    make(map[*model.MessageProperties]*tracked),
		scopeCounts: make(map[scope.Key]int),
		scopeTokens: make(map[scope.Key]queue.Token),
	}
	d.scopes = scope.NewController(d, logger)
	return d
}

// SetDelegate sets the host delegate on the underlying queue.
func (d *Dispatcher) SetDelegate(delegate queue.Delegate) {
	d.queue.SetDelegate(delegate)
}

// EnqueueMessage builds a handler for props and queues it in key's scope.
// props is the message's identity; enqueuing the same pointer twice
// returns queue.ErrDuplicateKey.
func (d *Dispatcher) EnqueueMessage(props *model.MessageProperties, key scope.Key) error {
	if props == nil {
		return queue.ErrNilKey
	}
	if err := props.Validate(); err != nil {
		return fmt.Errorf("invalid message %s: %w", props, err)
	}
	if _, exists := d.messages[props]; exists {
		return queue.ErrDuplicateKey
	}

	handler := d.factory(props, d.DismissMessage)
	t := &tracked{handler: handler, scope: key}

	// Register the scope first so a hidden scope is suspended before the
	// message becomes a display candidate.
	first := d.scopeCounts[key] == 0
	if first {
		if err := d.scopes.FirstMessageEnqueued(key); err != nil {
			return fmt.Errorf("failed to observe scope %s: %w", key, err)
		}
	}
	d.scopeCounts[key]++
	d.messages[props] = t

	if err := d.queue.EnqueueMessage(handler, props); err != nil {
		delete(d.messages, props)
		d.releaseScope(key)
		return err
	}

	d.logger.Debug("dispatched message", "message", props, "scope", key)
	return nil
}

// DismissMessage dismisses the message posted with props. Unknown or
// already dismissed messages are ignored.
func (d *Dispatcher) DismissMessage(props *model.MessageProperties, reason model.DismissReason) {
	t, exists := d.messages[props]
	if !exists {
		return
	}
	// Forget the message before the queue dismisses it, so OnDismissed
	// may post the same properties again.
	delete(d.messages, props)
	d.queue.DismissMessage(props, reason)
	d.releaseScope(t.scope)
}

// DismissAllMessages dismisses every queued message and stops observing
// all scopes.
func (d *Dispatcher) DismissAllMessages(reason model.DismissReason) {
	tokens := d.scopeTokens
	d.messages = make(map[*model.MessageProperties]*tracked)
	d.scopeCounts = make(map[scope.Key]int)
	d.scopeTokens = make(map[scope.Key]queue.Token)
	d.scopes.Close()

	d.queue.DismissAllMessages(reason)

	// Released last so nothing is shown in between.
	for _, token := range tokens {
		d.queue.Resume(token)
	}
}

// Suspend hides all messages until Resume is called with the token.
func (d *Dispatcher) Suspend() queue.Token {
	return d.queue.Suspend()
}

// Resume releases a token returned by Suspend.
func (d *Dispatcher) Resume(token queue.Token) {
	d.queue.Resume(token)
}

// Handler returns the handler built for props, or nil.
func (d *Dispatcher) Handler(props *model.MessageProperties) queue.Handler {
	if t, ok := d.messages[props]; ok {
		return t.handler
	}
	return nil
}

// Displayed returns the handler currently chosen for display, or nil.
func (d *Dispatcher) Displayed() queue.Handler {
	return d.queue.Displayed()
}

// Len returns the number of queued messages.
func (d *Dispatcher) Len() int {
	return d.queue.Len()
}

// IsSuspended reports whether any suspend token is outstanding, including
// tokens held for inactive scopes.
func (d *Dispatcher) IsSuspended() bool {
	return d.queue.IsSuspended()
}

// ScopeCount returns the number of messages queued in key's scope.
func (d *Dispatcher) ScopeCount(key scope.Key) int {
	return d.scopeCounts[key]
}

// ObservedScopes returns the number of scopes with a registered observer.
func (d *Dispatcher) ObservedScopes() int {
	return d.scopes.Len()
}

// OnScopeChange implements scope.Delegate.
func (d *Dispatcher) OnScopeChange(change scope.Change) {
	key := change.Key
	switch change.ChangeType {
	case scope.ChangeActive:
		if token, ok := d.scopeTokens[key]; ok {
			delete(d.scopeTokens, key)
			d.queue.Resume(token)
		}
	case scope.ChangeInactive:
		if _, ok := d.scopeTokens[key]; !ok {
			d.scopeTokens[key] = d.queue.Suspend()
		}
	case scope.ChangeDestroy:
		d.dismissScope(key)
	}
}

// dismissScope dismisses every message of key. Order is unspecified.
func (d *Dispatcher) dismissScope(key scope.Key) {
	var victims []*model.MessageProperties
	for props, t := range d.messages {
		if t.scope == key {
			victims = append(victims, props)
		}
	}
	d.logger.Debug("dismissing scope", "scope", key, "count", len(victims))
	for _, props := range victims {
		d.DismissMessage(props, model.DismissReasonScopeDestroyed)
	}
}

// releaseScope decrements the message count of key and unregisters the
// scope when its last message is gone.
func (d *Dispatcher) releaseScope(key scope.Key) {
	d.scopeCounts[key]--
	if d.scopeCounts[key] > 0 {
		return
	}
	delete(d.scopeCounts, key)

	if token, ok := d.scopeTokens[key]; ok {
		delete(d.scopeTokens, key)
		d.queue.Resume(token)
	}
	if err := d.scopes.LastMessageDismissed(key); err != nil {
		d.logger.Warn("scope was not observed", "scope", key, "error", err)
	}
}
