package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jmylchreest/bannerq/internal/config"
	bannerdbus "github.com/jmylchreest/bannerq/internal/dbus"
	"github.com/jmylchreest/bannerq/internal/model"
	"github.com/jmylchreest/bannerq/internal/script"
)

// userToken names the suspend token toggled from the keyboard.
const userToken = "user"

// ErrLastTab is returned when closing the only remaining tab.
var ErrLastTab = errors.New("cannot close the last tab")

// demoMessages are cycled through by the enqueue keys.
var demoMessages = []struct {
	identifier model.MessageIdentifier
	title      string
	button     string
}{
	{model.MessageIdentifierSavePassword, "Save password for example.com?", "Save"},
	{model.MessageIdentifierPopupBlocked, "Pop-ups blocked on this site", "Always allow"},
	{model.MessageIdentifierDownloadProgress, "Downloading report.pdf", "Open"},
	{model.MessageIdentifierSyncError, "Sync paused, sign in again", "Sign in"},
	{model.MessageIdentifierReaderMode, "Show simplified view?", "Show"},
	{model.MessageIdentifierAdsBlocked, "Intrusive ads blocked", "Details"},
}

// session owns the scheduler state behind the TUI. Every method must run
// on the bubbletea update goroutine.
type session struct {
	logger    *slog.Logger
	now       func() time.Time
	runner    *script.Runner
	animator  *frameAnimator
	scheduler *timerScheduler
	lock      *bannerdbus.LockSuspender
	server    *bannerdbus.MessageServer

	maxTitleWidth int

	tabs    []string
	active  int
	nextTab int
	nextMsg int

	// D-Bus message IDs by label and back.
	busIDs    map[string]string
	busLabels map[string]string

	lastEvent time.Time
	tickAt    time.Time
}

func newSession(cfg *config.Config, logger *slog.Logger, now func() time.Time) (*session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}

	s := &session{
		logger:        logger,
		now:           now,
		animator:      newFrameAnimator(cfg.Animation.Enter.Duration(), cfg.Animation.Exit.Duration(), now),
		scheduler:     newTimerScheduler(now),
		maxTitleWidth: cfg.Messages.MaxTitleWidth,
		busIDs:        make(map[string]string),
		busLabels:     make(map[string]string),
	}

	sc := &script.Script{Mode: cfg.Messages.Mode}
	for i := 0; i < cfg.TUI.Pages; i++ {
		name := s.newTabName()
		s.tabs = append(s.tabs, name)
		sc.Pages = append(sc.Pages, script.PageSpec{Name: name, Visible: i == 0})
	}

	runner, err := script.NewRunner(sc, script.Options{
		Logger:      logger,
		Animator:    s.animator,
		Scheduler:   s.scheduler,
		AutoDismiss: cfg.Messages.AutoDismiss.Duration(),
		OnEvent:     s.onEvent,
	})
	if err != nil {
		return nil, err
	}
	s.runner = runner
	s.lock = bannerdbus.NewLockSuspender(runner.Dispatcher())
	return s, nil
}

func (s *session) newTabName() string {
	s.nextTab++
	return fmt.Sprintf("tab%d", s.nextTab)
}

func (s *session) activeTab() string {
	return s.tabs[s.active]
}

// apply runs one step and reports failures without the step prefix the
// runner adds.
func (s *session) apply(step script.Step) error {
	err := s.runner.Apply(step)
	var serr *script.StepError
	if errors.As(err, &serr) {
		return serr.Err
	}
	return err
}

// enqueueDemo enqueues the next demo message on the active tab. title
// overrides the demo title when set.
func (s *session) enqueueDemo(scopeType, title string) (string, error) {
	demo := demoMessages[s.nextMsg%len(demoMessages)]
	s.nextMsg++
	if title == "" {
		title = demo.title
	}
	label := fmt.Sprintf("m%d", s.nextMsg)
	return label, s.apply(script.Step{
		Op:         script.OpEnqueue,
		Message:    label,
		Identifier: demo.identifier.String(),
		Title:      title,
		Button:     demo.button,
		Scope:      scopeType,
		Page:       s.activeTab(),
	})
}

// displayed returns the label of the attached banner.
func (s *session) displayed() (string, bool) {
	label, _, ok := s.runner.Attached()
	return label, ok
}

// primary taps the primary button of the attached banner.
func (s *session) primary() error {
	label, ok := s.displayed()
	if !ok {
		return nil
	}
	return s.apply(script.Step{Op: script.OpPrimary, Message: label})
}

// gesture swipes the attached banner away.
func (s *session) gesture() error {
	label, ok := s.displayed()
	if !ok {
		return nil
	}
	return s.apply(script.Step{Op: script.OpGesture, Message: label})
}

// dismissAll clears the queue.
func (s *session) dismissAll() error {
	return s.apply(script.Step{Op: script.OpDismissAll})
}

// toggleSuspend takes or returns the keyboard suspend token and reports
// whether it is now held.
func (s *session) toggleSuspend() (bool, error) {
	if s.userSuspended() {
		return false, s.apply(script.Step{Op: script.OpResume, Token: userToken})
	}
	return true, s.apply(script.Step{Op: script.OpSuspend, Token: userToken})
}

func (s *session) userSuspended() bool {
	return slices.Contains(s.runner.Tokens(), userToken)
}

// switchTab hides the active tab and shows the one delta positions away.
func (s *session) switchTab(delta int) error {
	if len(s.tabs) < 2 {
		return nil
	}
	next := (s.active + delta + len(s.tabs)) % len(s.tabs)
	if err := s.apply(script.Step{Op: script.OpHidePage, Page: s.activeTab()}); err != nil {
		return err
	}
	s.active = next
	return s.apply(script.Step{Op: script.OpShowPage, Page: s.activeTab()})
}

// newTab opens a tab in the foreground.
func (s *session) newTab() error {
	if err := s.apply(script.Step{Op: script.OpHidePage, Page: s.activeTab()}); err != nil {
		return err
	}
	s.tabs = append(s.tabs, s.newTabName())
	s.active = len(s.tabs) - 1
	return s.apply(script.Step{Op: script.OpShowPage, Page: s.activeTab()})
}

// closeTab destroys the active tab and shows its left neighbour.
func (s *session) closeTab() error {
	if len(s.tabs) == 1 {
		return ErrLastTab
	}
	if err := s.apply(script.Step{Op: script.OpDestroyPage, Page: s.activeTab()}); err != nil {
		return err
	}
	s.tabs = slices.Delete(s.tabs, s.active, s.active+1)
	s.active = max(s.active-1, 0)
	return s.apply(script.Step{Op: script.OpShowPage, Page: s.activeTab()})
}

// navigate commits a main-frame navigation on the active tab.
func (s *session) navigate(transition string) error {
	return s.apply(script.Step{Op: script.OpNavigate, Page: s.activeTab(), Transition: transition})
}

// moveWindow reparents the active tab into another window.
func (s *session) moveWindow() error {
	return s.apply(script.Step{Op: script.OpMoveWindow, Page: s.activeTab()})
}

// enqueueRequest posts a D-Bus request on the active tab and returns the
// message ID handed back to the caller.
func (s *session) enqueueRequest(req bannerdbus.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	s.nextMsg++
	label := fmt.Sprintf("bus%d", s.nextMsg)
	button := req.PrimaryButtonText
	if button == "" {
		button = "OK"
	}
	err := s.apply(script.Step{
		Op:          script.OpEnqueue,
		Message:     label,
		Identifier:  req.Identifier,
		Title:       req.Title,
		Description: req.Description,
		Button:      button,
		AutoDismiss: script.FormatAutoDismiss(req.AutoDismiss()),
		Page:        s.activeTab(),
	})
	if err != nil {
		return "", err
	}
	props, ok := s.runner.Properties(label)
	if !ok {
		// Dismissed while being enqueued, e.g. into a destroyed scope.
		return "", script.ErrUnknownMessage
	}
	s.busIDs[label] = props.ID
	s.busLabels[props.ID] = label
	return props.ID, nil
}

// dismissRequest dismisses a message posted over D-Bus.
func (s *session) dismissRequest(id string) error {
	label, ok := s.busLabels[id]
	if !ok {
		return bannerdbus.ErrUnknownMessage
	}
	return s.apply(script.Step{Op: script.OpDismiss, Message: label})
}

// status reports the queue state for D-Bus Status calls.
func (s *session) status() bannerdbus.Status {
	d := s.runner.Dispatcher()
	return bannerdbus.Status{Queued: uint32(d.Len()), Suspended: d.IsSuspended()}
}

// applyConfig picks up a reloaded configuration. The selection mode and
// tab count only apply at startup.
func (s *session) applyConfig(cfg *config.Config) {
	s.animator.SetDurations(cfg.Animation.Enter.Duration(), cfg.Animation.Exit.Duration())
	s.runner.SetAutoDismiss(cfg.Messages.AutoDismiss.Duration())
	s.maxTitleWidth = cfg.Messages.MaxTitleWidth
}

// advance runs animations and timers that are due.
func (s *session) advance() {
	now := s.now()
	if s.animator.Advance(now) > 0 {
		// Recorded so an exported session finishes them on replay too.
		if err := s.apply(script.Step{Op: script.OpFinishAnimations}); err != nil {
			s.logger.Warn("failed to record finished animations", "error", err)
		}
	}
	s.scheduler.Fire(now)
}

// nextWake returns when the next frame tick is needed: one frame from now
// while animating, otherwise at the earliest timer.
func (s *session) nextWake(frame time.Duration) (time.Time, bool) {
	if s.animator.Active() {
		return s.now().Add(frame), true
	}
	return s.scheduler.NextDue()
}

func (s *session) onEvent(e script.Event) {
	s.lastEvent = s.now()

	id, ok := s.busIDs[e.Message]
	if !ok {
		return
	}
	if e.Kind == script.EventDismissed {
		delete(s.busIDs, e.Message)
		delete(s.busLabels, id)
	}
	if s.server == nil {
		return
	}
	switch e.Kind {
	case script.EventPrimary:
		if err := s.server.EmitPrimaryActionInvoked(id); err != nil {
			s.logger.Warn("failed to emit primary action signal", "id", id, "error", err)
		}
	case script.EventDismissed:
		reason, _ := model.ParseDismissReason(e.Detail)
		if err := s.server.EmitDismissed(id, reason); err != nil {
			s.logger.Warn("failed to emit dismissed signal", "id", id, "error", err)
		}
	}
}
