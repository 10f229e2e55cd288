package script

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jmylchreest/bannerq/internal/dispatcher"
	"github.com/jmylchreest/bannerq/internal/message"
	"github.com/jmylchreest/bannerq/internal/model"
	"github.com/jmylchreest/bannerq/internal/queue"
	"github.com/jmylchreest/bannerq/internal/scope"
)

// Replay errors.
var (
	ErrDuplicateLabel = errors.New("message label already queued")
	ErrUnknownMessage = errors.New("no queued message with that label")
	ErrUnknownToken   = errors.New("no outstanding suspend token with that name")
	ErrTokenInUse     = errors.New("suspend token name already held")
	ErrBadTransition  = errors.New("unknown navigation transition")
	ErrPageDestroyed  = errors.New("page was destroyed")
	ErrUnknownMode    = errors.New("mode must be direct or coordinated")
	ErrOverlap        = errors.New("more than one banner visible")
)

// Options configures a Runner.
type Options struct {
	Logger *slog.Logger

	// Animator runs banner transitions. The default parks them until a
	// finish_animations step.
	Animator message.Animator
	// Scheduler arms auto-dismiss timers. Without one messages never time
	// out.
	Scheduler message.Scheduler
	// AutoDismiss is the default timer for messages that set none.
	AutoDismiss time.Duration

	// OnEvent is called for every recorded event.
	OnEvent func(Event)
}

// Queued describes a message that is still queued.
type Queued struct {
	Label      string
	Properties *model.MessageProperties
	Scope      scope.Key
}

// Runner replays a script against a fresh dispatcher.
type Runner struct {
	logger     *slog.Logger
	script     *Script
	dispatcher *dispatcher.Dispatcher
	animator   message.Animator
	scheduler  message.Scheduler
	onEvent    func(Event)

	autoDismiss time.Duration

	pages    map[string]*scope.Page
	messages map[string]*model.MessageProperties
	labels   map[*model.MessageProperties]string
	scopes   map[*model.MessageProperties]scope.Key
	order    []string
	tokens   map[string]queue.Token

	attached *model.MessageProperties
	visible  int
	trace    *Trace
	step     int
}

// Run replays s and returns its trace.
func Run(s *Script, opts Options) (*Trace, error) {
	r, err := NewRunner(s, opts)
	if err != nil {
		return nil, err
	}
	return r.Run()
}

// NewRunner prepares a runner for s.
func NewRunner(s *Script, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	animator := opts.Animator
	if animator == nil {
		animator = &ManualAnimator{}
	}
	var mode queue.SelectionMode
	switch s.Mode {
	case "", "direct":
		mode = queue.SelectionDirect
	case "coordinated":
		mode = queue.SelectionCoordinated
	default:
		return nil, fmt.Errorf("%w, got %q", ErrUnknownMode, s.Mode)
	}

	r := &Runner{
		logger:      logger,
		script:      s,
		animator:    animator,
		scheduler:   opts.Scheduler,
		onEvent:     opts.OnEvent,
		autoDismiss: opts.AutoDismiss,
		pages:       make(map[string]*scope.Page),
		messages:    make(map[string]*model.MessageProperties),
		labels:      make(map[*model.MessageProperties]string),
		scopes:      make(map[*model.MessageProperties]scope.Key),
		tokens:      make(map[string]queue.Token),
		trace:       &Trace{},
	}
	r.dispatcher = dispatcher.New(dispatcher.Config{
		Mode:    mode,
		Factory: r.newHandler,
		Logger:  logger,
	})
	for _, p := range s.Pages {
		r.pages[p.Name] = scope.NewPage(p.Name, p.Visible)
	}
	return r, nil
}

// Dispatcher returns the dispatcher the script drives.
func (r *Runner) Dispatcher() *dispatcher.Dispatcher {
	return r.dispatcher
}

// Script returns the script, including steps added with Apply.
func (r *Runner) Script() *Script {
	return r.script
}

// SetAutoDismiss changes the default timer for messages enqueued later.
func (r *Runner) SetAutoDismiss(d time.Duration) {
	r.autoDismiss = d
}

// Page returns the named page, or nil if no step has used it.
func (r *Runner) Page(name string) *scope.Page {
	return r.pages[name]
}

// Properties returns the properties of a queued message by label.
func (r *Runner) Properties(label string) (*model.MessageProperties, bool) {
	props, ok := r.messages[label]
	return props, ok
}

// Attached returns the label and properties of the banner currently
// attached, if any.
func (r *Runner) Attached() (string, *model.MessageProperties, bool) {
	if r.attached == nil {
		return "", nil, false
	}
	return r.labels[r.attached], r.attached, true
}

// Queue returns the queued messages in enqueue order.
func (r *Runner) Queue() []Queued {
	out := make([]Queued, 0, len(r.order))
	for _, label := range r.order {
		props := r.messages[label]
		out = append(out, Queued{Label: label, Properties: props, Scope: r.scopes[props]})
	}
	return out
}

// Tokens returns the names of the suspend tokens held by the script,
// sorted.
func (r *Runner) Tokens() []string {
	names := make([]string, 0, len(r.tokens))
	for name := range r.tokens {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run executes every step and stops at the first failure. The trace
// recorded so far is returned with the error.
func (r *Runner) Run() (*Trace, error) {
	for i := range r.script.Steps {
		if err := r.run(i); err != nil {
			return r.finish(), err
		}
	}
	return r.finish(), nil
}

// Apply appends step to the script and runs it.
func (r *Runner) Apply(step Step) error {
	if err := step.validate(); err != nil {
		return &StepError{Index: len(r.script.Steps), Op: step.Op, Err: err}
	}
	r.script.Steps = append(r.script.Steps, step)
	return r.run(len(r.script.Steps) - 1)
}

// Trace returns the trace recorded so far.
func (r *Runner) Trace() *Trace {
	return r.finish()
}

func (r *Runner) run(i int) error {
	step := r.script.Steps[i]
	r.step = i
	if err := r.apply(step); err != nil {
		return &StepError{Index: i, Op: step.Op, Err: err}
	}
	if r.trace.MaxVisible > 1 {
		return &StepError{Index: i, Op: step.Op, Err: ErrOverlap}
	}
	return nil
}

func (r *Runner) finish() *Trace {
	r.trace.Remaining = r.trace.Remaining[:0]
	for label, props := range r.messages {
		if r.dispatcher.Handler(props) != nil {
			r.trace.Remaining = append(r.trace.Remaining, label)
		}
	}
	slices.Sort(r.trace.Remaining)
	return r.trace
}

func (r *Runner) apply(step Step) error {
	r.logger.Debug("replaying step", "index", r.step, "op", step.Op)

	switch step.Op {
	case OpEnqueue:
		return r.enqueue(step)

	case OpDismiss:
		props, err := r.lookup(step.Message)
		if err != nil {
			return err
		}
		reason, err := parseReason(step.Reason, model.DismissReasonDismissedByFeature)
		if err != nil {
			return err
		}
		r.dispatcher.DismissMessage(props, reason)

	case OpDismissAll:
		reason, err := parseReason(step.Reason, model.DismissReasonActivityDestroyed)
		if err != nil {
			return err
		}
		r.dispatcher.DismissAllMessages(reason)

	case OpSuspend:
		if _, held := r.tokens[step.Token]; held {
			return fmt.Errorf("%w: %s", ErrTokenInUse, step.Token)
		}
		r.tokens[step.Token] = r.dispatcher.Suspend()

	case OpResume:
		token, held := r.tokens[step.Token]
		if !held {
			return fmt.Errorf("%w: %s", ErrUnknownToken, step.Token)
		}
		delete(r.tokens, step.Token)
		r.dispatcher.Resume(token)

	case OpShowPage:
		r.page(step.Page).Show()
	case OpHidePage:
		r.page(step.Page).Hide()
	case OpDestroyPage:
		r.page(step.Page).Destroy()
	case OpMoveWindow:
		r.page(step.Page).MoveToWindow()

	case OpNavigate:
		transition, ok := scope.ParseTransition(step.Transition)
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadTransition, step.Transition)
		}
		r.page(step.Page).Navigate(scope.Navigation{
			MainFrame:     !step.Subframe,
			SameDocument:  step.SameDocument,
			ReplacedEntry: step.Replaced,
			Transition:    transition,
		})

	case OpFinishAnimations:
		if manual, ok := r.animator.(*ManualAnimator); ok {
			manual.FinishAll()
		}

	case OpPrimary, OpGesture:
		props, err := r.lookup(step.Message)
		if err != nil {
			return err
		}
		m, ok := r.dispatcher.Handler(props).(*message.SingleActionMessage)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMessage, step.Message)
		}
		if step.Op == OpPrimary {
			m.PrimaryAction()
		} else {
			m.Gesture()
		}

	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}
	return nil
}

func (r *Runner) enqueue(step Step) error {
	label := step.Message
	if _, exists := r.messages[label]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}
	page := r.page(step.Page)
	if page.Destroyed() {
		return fmt.Errorf("%w: %s", ErrPageDestroyed, step.Page)
	}
	scopeType, err := scope.ParseType(step.Scope)
	if err != nil {
		return err
	}
	identifier := model.MessageIdentifierTest
	if step.Identifier != "" {
		if identifier, err = model.ParseMessageIdentifier(step.Identifier); err != nil {
			return err
		}
	}
	title := step.Title
	if title == "" {
		title = label
	}

	props, err := model.NewMessageProperties(identifier, title)
	if err != nil {
		return err
	}
	props.Description = step.Description
	props.EnqueuedAt = time.Now()
	if props.AutoDismiss, err = ParseAutoDismiss(step.AutoDismiss); err != nil {
		return err
	}
	props.PrimaryButtonText = step.Button
	if props.PrimaryButtonText == "" {
		props.PrimaryButtonText = "OK"
	}
	keep := step.KeepOnPrimary
	props.OnPrimaryAction = func() model.PrimaryActionResult {
		r.record(EventPrimary, label, "")
		if keep {
			return model.PrimaryActionNoDismiss
		}
		return model.PrimaryActionDismissImmediately
	}
	props.OnDismissed = func(reason model.DismissReason) {
		r.forget(label, props)
		r.record(EventDismissed, label, reason.String())
	}

	key := scope.Key{Type: scopeType, Context: page}
	r.messages[label] = props
	r.labels[props] = label
	r.scopes[props] = key
	r.order = append(r.order, label)
	if err := r.dispatcher.EnqueueMessage(props, key); err != nil {
		r.forget(label, props)
		return err
	}
	return nil
}

// forget drops label if it still refers to props.
func (r *Runner) forget(label string, props *model.MessageProperties) {
	if r.messages[label] != props {
		return
	}
	delete(r.messages, label)
	if i := slices.Index(r.order, label); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *Runner) newHandler(props *model.MessageProperties, dismiss message.DismissFunc) queue.Handler {
	return message.NewSingleActionMessage(props, message.Options{
		Banner:         &traceBanner{runner: r},
		Animator:       r.animator,
		Scheduler:      r.scheduler,
		AutoDismiss:    r.autoDismiss,
		RequestDismiss: dismiss,
		Logger:         r.logger,
	})
}

// page returns the named page, creating a visible one on first use.
func (r *Runner) page(name string) *scope.Page {
	p, ok := r.pages[name]
	if !ok {
		p = scope.NewPage(name, true)
		r.pages[name] = p
	}
	return p
}

func (r *Runner) lookup(label string) (*model.MessageProperties, error) {
	props, ok := r.messages[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, label)
	}
	return props, nil
}

func (r *Runner) record(kind, label, detail string) {
	var op string
	if r.step < len(r.script.Steps) {
		op = r.script.Steps[r.step].Op
	}
	e := Event{
		Step:    r.step,
		Op:      op,
		Kind:    kind,
		Message: label,
		Detail:  detail,
	}
	r.trace.Events = append(r.trace.Events, e)
	if r.onEvent != nil {
		r.onEvent(e)
	}
}

func parseReason(s string, fallback model.DismissReason) (model.DismissReason, error) {
	if s == "" {
		return fallback, nil
	}
	return model.ParseDismissReason(s)
}

// traceBanner records attach and detach in the runner's trace.
type traceBanner struct {
	runner *Runner
	label  string
}

func (b *traceBanner) Attach(props *model.MessageProperties) {
	r := b.runner
	b.label = r.labels[props]
	r.attached = props
	r.visible++
	if r.visible > r.trace.MaxVisible {
		r.trace.MaxVisible = r.visible
	}
	r.record(EventShown, b.label, "")
}

func (b *traceBanner) Detach() {
	r := b.runner
	if r.labels[r.attached] == b.label {
		r.attached = nil
	}
	r.visible--
	r.record(EventHidden, b.label, "")
}
