package queue

import (
	"container/list"
	"log/slog"

	"github.com/jmylchreest/bannerq/internal/model"
)

// SelectionMode chooses how the manager sequences show and hide.
type SelectionMode int

const (
	// SelectionDirect runs the selection pass against the manager's own
	// displayed pointer.
	SelectionDirect SelectionMode = iota
	// SelectionCoordinated hands every decision to an AnimationCoordinator.
	SelectionCoordinated
)

// entry is one enqueued message.
type entry struct {
	key     any
	handler Handler
}

// pendingDismissal is a dismissal waiting for the hide of its message.
type pendingDismissal struct {
	handler Handler
	reason  model.DismissReason
}

// Manager owns the message queue and decides which message is displayed.
// Display order is strict FIFO; at most one message is displayed at a time.
type Manager struct {
	logger   *slog.Logger
	delegate Delegate
	tokens   *TokenPool

	queue *list.List            // of *entry, enqueue order
	index map[any]*list.Element // key -> element in queue

	// Direct selection state.
	displayed   *entry
	hiding      bool
	afterHidden []func()
	showSeq     uint64 // bumped whenever a message is chosen or dropped

	// Coordinated selection state.
	coordinator *AnimationCoordinator
	pending     []pendingDismissal
}

// NewManager creates an empty manager. Until SetDelegate is called, show
// runs immediately and hide completion is not reported to anyone.
func NewManager(mode SelectionMode, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger:   logger,
		delegate: DelegateFuncs{},
		queue:    list.New(),
		index:    make(map[any]*list.Element),
	}
	m.tokens = NewTokenPool(m.updateCurrentDisplayedMessage)
	if mode == SelectionCoordinated {
		m.coordinator = NewAnimationCoordinator(m.delegate, logger)
	}
	return m
}

// SetDelegate sets the host delegate. A nil delegate restores the default.
func (m *Manager) SetDelegate(delegate Delegate) {
	if delegate == nil {
		delegate = DelegateFuncs{}
	}
	m.delegate = delegate
	if m.coordinator != nil {
		m.coordinator.SetDelegate(delegate)
	}
}

// EnqueueMessage appends handler under key and re-runs selection.
// Enqueuing a key that is already present is a programming error and
// returns ErrDuplicateKey without touching the queue.
func (m *Manager) EnqueueMessage(handler Handler, key any) error {
	if handler == nil {
		return ErrNilHandler
	}
	if key == nil {
		return ErrNilKey
	}
	if _, exists := m.index[key]; exists {
		return ErrDuplicateKey
	}

	m.index[key] = m.queue.PushBack(&entry{key: key, handler: handler})

	m.logger.Debug("enqueued message",
		"identifier", handler.Identifier(),
		"queue_size", m.queue.Len(),
	)

	m.updateCurrentDisplayedMessage()
	return nil
}

// DismissMessage removes the message stored under key. Unknown keys are
// ignored so that several triggers may dismiss the same message.
//
// The message leaves the queue before any hide starts, so the same key
// may be enqueued again right away. A displayed message is hidden with
// animation and dismissed once hidden; any other message is dismissed
// immediately.
func (m *Manager) DismissMessage(key any, reason model.DismissReason) {
	elem, exists := m.index[key]
	if !exists {
		return
	}
	e := m.remove(elem)

	m.logger.Debug("dismissing message",
		"identifier", e.handler.Identifier(),
		"reason", reason,
		"queue_size", m.queue.Len(),
	)

	if m.coordinator != nil {
		if m.coordinator.Displayed() == e.handler {
			m.pending = append(m.pending, pendingDismissal{handler: e.handler, reason: reason})
		} else {
			e.handler.Dismiss(reason)
		}
		m.updateCurrentDisplayedMessage()
		return
	}

	if m.displayed == e {
		m.hideDisplayed(true, func() { e.handler.Dismiss(reason) })
		return
	}

	e.handler.Dismiss(reason)
	m.updateCurrentDisplayedMessage()
}

// DismissAllMessages hides the displayed message without animation and
// dismisses every queued message. Dismissal order is unspecified. Suspend
// tokens are left untouched.
func (m *Manager) DismissAllMessages(reason model.DismissReason) {
	entries := make([]*entry, 0, m.queue.Len())
	for elem := m.queue.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, elem.Value.(*entry))
	}
	m.queue.Init()
	m.index = make(map[any]*list.Element)

	m.logger.Debug("dismissing all messages", "count", len(entries), "reason", reason)

	if m.coordinator != nil {
		m.coordinator.UpdateWithoutStacking(nil, true, m.onCoordinatorFinished)
	} else if m.displayed != nil {
		m.hideDisplayed(false, nil)
	}

	for _, e := range entries {
		e.handler.Dismiss(reason)
	}
	m.flushPending()
}

// Suspend hides every message until the returned token is resumed.
// The queue keeps its order while suspended.
func (m *Manager) Suspend() Token {
	token := m.tokens.Acquire()
	m.logger.Debug("suspended messages", "token", token, "outstanding", m.tokens.Len())
	return token
}

// Resume releases token. Display restarts once no token is outstanding.
func (m *Manager) Resume(token Token) {
	m.logger.Debug("resuming messages", "token", token)
	m.tokens.Release(token)
}

// IsSuspended reports whether any suspend token is outstanding.
func (m *Manager) IsSuspended() bool {
	return m.tokens.HasOutstanding()
}

// Len returns the number of queued messages, including the displayed one.
func (m *Manager) Len() int {
	return m.queue.Len()
}

// Contains reports whether key is queued.
func (m *Manager) Contains(key any) bool {
	_, ok := m.index[key]
	return ok
}

// Displayed returns the handler currently chosen for display, or nil.
// During a dismiss animation this is the handler being hidden.
func (m *Manager) Displayed() Handler {
	if m.coordinator != nil {
		return m.coordinator.Displayed()
	}
	if m.displayed == nil {
		return nil
	}
	return m.displayed.handler
}

// remove drops elem from both the queue and the index.
func (m *Manager) remove(elem *list.Element) *entry {
	e := elem.Value.(*entry)
	m.queue.Remove(elem)
	delete(m.index, e.key)
	return e
}

// front returns the head of the queue, or nil.
func (m *Manager) front() *entry {
	elem := m.queue.Front()
	if elem == nil {
		return nil
	}
	return elem.Value.(*entry)
}

// updateCurrentDisplayedMessage is the selection pass. It is run after
// every mutation and after every completed hide.
func (m *Manager) updateCurrentDisplayedMessage() {
	if m.coordinator != nil {
		m.updateCoordinated()
		return
	}

	head := m.front()
	if head == nil {
		if m.displayed != nil && !m.hiding {
			m.logger.Warn("queue empty but a message is still displayed",
				"identifier", m.displayed.handler.Identifier())
		}
		return
	}

	suspended := m.tokens.HasOutstanding()

	if m.displayed == nil && !suspended {
		m.displayed = head
		m.showSeq++
		seq := m.showSeq
		m.logger.Debug("start showing message", "identifier", head.handler.Identifier())
		m.delegate.OnStartShowing(func() {
			// The message was replaced, hidden or chosen again before
			// the host got round to this show.
			if m.showSeq != seq || m.displayed != head || m.hiding {
				return
			}
			head.handler.Show()
		})
		return
	}

	if m.displayed != nil && suspended {
		m.hideDisplayed(false, nil)
	}
}

// hideDisplayed hides the displayed message once; then runs after the hide
// completed and before the next selection pass. While a hide is in flight
// further requests only queue their then callback.
func (m *Manager) hideDisplayed(animate bool, then func()) {
	if then != nil {
		m.afterHidden = append(m.afterHidden, then)
	}
	if m.hiding {
		return
	}
	m.hiding = true
	m.showSeq++

	current := m.displayed
	m.logger.Debug("hiding message", "identifier", current.handler.Identifier(), "animate", animate)
	current.handler.Hide(animate, once(func() {
		m.hiding = false
		m.displayed = nil
		m.delegate.OnFinishHiding()

		callbacks := m.afterHidden
		m.afterHidden = nil
		for _, fn := range callbacks {
			fn()
		}
		m.updateCurrentDisplayedMessage()
	}))
}

// updateCoordinated is the selection pass in SelectionCoordinated mode.
func (m *Manager) updateCoordinated() {
	suspended := m.tokens.HasOutstanding()

	var candidate Handler
	if head := m.front(); head != nil && !suspended {
		candidate = head.handler
	}
	m.coordinator.UpdateWithoutStacking(candidate, suspended, m.onCoordinatorFinished)
}

func (m *Manager) onCoordinatorFinished() {
	m.flushPending()
	m.updateCurrentDisplayedMessage()
}

// flushPending dismisses removed messages that are no longer displayed.
func (m *Manager) flushPending() {
	if len(m.pending) == 0 {
		return
	}
	displayed := m.Displayed()
	remaining := m.pending[:0]
	var ready []pendingDismissal
	for _, p := range m.pending {
		if p.handler == displayed {
			remaining = append(remaining, p)
			continue
		}
		ready = append(ready, p)
	}
	m.pending = remaining
	for _, p := range ready {
		p.handler.Dismiss(p.reason)
	}
}
