package message

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/bannerq/internal/model"
)

// State is the lifecycle state of a SingleActionMessage.
type State int

const (
	StateCreated State = iota
	StateShown
	StateHidden
	StateDismissed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateShown:
		return "shown"
	case StateHidden:
		return "hidden"
	case StateDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// DismissFunc asks the owner of a message to dismiss it. The owner removes
// the message from its queue and eventually calls Dismiss.
type DismissFunc func(props *model.MessageProperties, reason model.DismissReason)

// Options configures a SingleActionMessage.
type Options struct {
	Banner    Banner
	Animator  Animator
	Scheduler Scheduler

	// AutoDismiss is used when the properties leave AutoDismiss at zero.
	// Zero or negative disables the timer.
	AutoDismiss time.Duration

	// RequestDismiss routes user and timer dismissals back to the owner.
	RequestDismiss DismissFunc

	Logger *slog.Logger
}

// SingleActionMessage is a banner with a title, a description and one
// primary action button.
//
// A hidden message may be shown again, which is how a suspended message
// comes back after resume. Dismissed is terminal.
type SingleActionMessage struct {
	props *model.MessageProperties
	opts  Options

	state    State
	attached bool

	cancelAnimation func()
	pendingHidden   func()
	stopTimer       func()
}

// NewSingleActionMessage creates a message in StateCreated.
func NewSingleActionMessage(props *model.MessageProperties, opts Options) *SingleActionMessage {
	if opts.Banner == nil {
		opts.Banner = NopBanner{}
	}
	if opts.Animator == nil {
		opts.Animator = ImmediateAnimator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SingleActionMessage{props: props, opts: opts}
}

// Properties returns the properties the message was created from.
func (m *SingleActionMessage) Properties() *model.MessageProperties {
	return m.props
}

// State returns the current lifecycle state.
func (m *SingleActionMessage) State() State {
	return m.state
}

// Identifier implements queue.Handler.
func (m *SingleActionMessage) Identifier() model.MessageIdentifier {
	return m.props.Identifier
}

// Show attaches the banner and starts its entrance transition.
func (m *SingleActionMessage) Show() {
	// The owner shows again only after the pending hide reported back.
	if m.state == StateShown || m.state == StateDismissed || m.pendingHidden != nil {
		return
	}
	m.state = StateShown
	m.cancel()

	m.opts.Banner.Attach(m.props)
	m.attached = true
	m.opts.Logger.Debug("showing message", "message", m.props)

	m.animate(AnimationEnter, nil)
	m.armTimer()
}

// Hide starts the exit transition, or tears the banner down at once when
// animate is false. onHidden is called exactly once; if the message is
// not showing it is called immediately.
func (m *SingleActionMessage) Hide(animate bool, onHidden func()) {
	m.disarmTimer()

	if m.state != StateShown {
		callback(onHidden)
		return
	}
	m.state = StateHidden
	m.cancel()

	m.opts.Logger.Debug("hiding message", "message", m.props, "animate", animate)

	if !animate {
		m.detach()
		callback(onHidden)
		return
	}

	m.pendingHidden = onHidden
	m.animate(AnimationExit, m.finishHidden)
}

// Dismiss tears the message down and notifies OnDismissed. Only the first
// call has any effect.
func (m *SingleActionMessage) Dismiss(reason model.DismissReason) {
	if m.state == StateDismissed {
		return
	}
	m.state = StateDismissed
	m.disarmTimer()
	m.cancel()
	// An exit transition cut short still owes its hide callback.
	m.finishHidden()
	m.detach()

	m.opts.Logger.Debug("dismissed message", "message", m.props, "reason", reason)

	if m.props.OnDismissed != nil {
		m.props.OnDismissed(reason)
	}
}

// PrimaryAction handles a tap on the primary button.
func (m *SingleActionMessage) PrimaryAction() {
	if m.state != StateShown {
		return
	}
	result := model.PrimaryActionDismissImmediately
	if m.props.OnPrimaryAction != nil {
		result = m.props.OnPrimaryAction()
	}
	if result == model.PrimaryActionDismissImmediately {
		m.requestDismiss(model.DismissReasonPrimaryAction)
	}
}

// Gesture handles a swipe-to-dismiss on the banner.
func (m *SingleActionMessage) Gesture() {
	if m.state != StateShown {
		return
	}
	m.requestDismiss(model.DismissReasonGesture)
}

// autoDismissDuration returns the effective timer duration, zero if none.
func (m *SingleActionMessage) autoDismissDuration() time.Duration {
	d := m.props.AutoDismiss
	if d == 0 {
		d = m.opts.AutoDismiss
	}
	if d < 0 {
		return 0
	}
	return d
}

func (m *SingleActionMessage) armTimer() {
	d := m.autoDismissDuration()
	if d == 0 || m.opts.Scheduler == nil {
		return
	}
	m.disarmTimer()
	m.stopTimer = m.opts.Scheduler.After(d, func() {
		m.stopTimer = nil
		if m.state == StateShown {
			m.requestDismiss(model.DismissReasonTimer)
		}
	})
}

func (m *SingleActionMessage) disarmTimer() {
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
}

func (m *SingleActionMessage) requestDismiss(reason model.DismissReason) {
	if m.opts.RequestDismiss != nil {
		m.opts.RequestDismiss(m.props, reason)
		return
	}
	m.Dismiss(reason)
}

// animate starts a transition. An animator may complete synchronously, in
// which case then may already have re-entered Show or Hide.
func (m *SingleActionMessage) animate(kind Animation, then func()) {
	done := false
	cancel := m.opts.Animator.Animate(kind, func() {
		done = true
		m.cancelAnimation = nil
		callback(then)
	})
	if !done {
		m.cancelAnimation = cancel
	}
}

func (m *SingleActionMessage) cancel() {
	if m.cancelAnimation != nil {
		m.cancelAnimation()
		m.cancelAnimation = nil
	}
}

func (m *SingleActionMessage) detach() {
	if m.attached {
		m.opts.Banner.Detach()
		m.attached = false
	}
}

func (m *SingleActionMessage) finishHidden() {
	onHidden := m.pendingHidden
	if onHidden == nil {
		return
	}
	m.pendingHidden = nil
	m.detach()
	onHidden()
}

func callback(fn func()) {
	if fn != nil {
		fn()
	}
}
