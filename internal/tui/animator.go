package tui

import (
	"slices"
	"time"

	"github.com/jmylchreest/bannerq/internal/message"
)

// transition is a running banner animation.
type transition struct {
	id     int
	kind   message.Animation
	start  time.Time
	length time.Duration
	onDone func()
}

// frameAnimator completes banner transitions as frame ticks arrive. All
// methods run on the bubbletea update goroutine.
type frameAnimator struct {
	now     func() time.Time
	enter   time.Duration
	exit    time.Duration
	next    int
	running []*transition
}

func newFrameAnimator(enter, exit time.Duration, now func() time.Time) *frameAnimator {
	return &frameAnimator{now: now, enter: enter, exit: exit}
}

// SetDurations changes the length of transitions started later.
func (a *frameAnimator) SetDurations(enter, exit time.Duration) {
	a.enter = enter
	a.exit = exit
}

// Animate implements message.Animator. Zero-length transitions complete
// before Animate returns.
func (a *frameAnimator) Animate(kind message.Animation, onDone func()) func() {
	length := a.enter
	if kind == message.AnimationExit {
		length = a.exit
	}
	if length <= 0 {
		onDone()
		return func() {}
	}

	a.next++
	id := a.next
	a.running = append(a.running, &transition{
		id:     id,
		kind:   kind,
		start:  a.now(),
		length: length,
		onDone: onDone,
	})
	return func() {
		a.running = slices.DeleteFunc(a.running, func(t *transition) bool { return t.id == id })
	}
}

// Advance completes every transition that has run its length at now,
// including ones started by a completion callback, and returns how many
// completed.
func (a *frameAnimator) Advance(now time.Time) int {
	n := 0
	for {
		i := slices.IndexFunc(a.running, func(t *transition) bool {
			return now.Sub(t.start) >= t.length
		})
		if i < 0 {
			return n
		}
		t := a.running[i]
		a.running = slices.Delete(a.running, i, i+1)
		t.onDone()
		n++
	}
}

// Active reports whether any transition is running.
func (a *frameAnimator) Active() bool {
	return len(a.running) > 0
}

// Progress returns the kind and completed fraction of the most recently
// started transition.
func (a *frameAnimator) Progress(now time.Time) (message.Animation, float64, bool) {
	if len(a.running) == 0 {
		return 0, 0, false
	}
	t := a.running[len(a.running)-1]
	p := float64(now.Sub(t.start)) / float64(t.length)
	return t.kind, min(max(p, 0), 1), true
}

// timer is a pending Scheduler callback.
type timer struct {
	id  int
	due time.Time
	fn  func()
}

// timerScheduler runs auto-dismiss timers from frame ticks so callbacks
// stay on the update goroutine.
type timerScheduler struct {
	now    func() time.Time
	next   int
	timers []*timer
}

func newTimerScheduler(now func() time.Time) *timerScheduler {
	return &timerScheduler{now: now}
}

// After implements message.Scheduler.
func (s *timerScheduler) After(d time.Duration, fn func()) func() {
	s.next++
	id := s.next
	s.timers = append(s.timers, &timer{id: id, due: s.now().Add(d), fn: fn})
	return func() {
		s.timers = slices.DeleteFunc(s.timers, func(t *timer) bool { return t.id == id })
	}
}

// Fire runs every timer due at now, earliest first, and returns how many
// ran.
func (s *timerScheduler) Fire(now time.Time) int {
	n := 0
	for {
		t, ok := s.earliest()
		if !ok || t.due.After(now) {
			return n
		}
		s.timers = slices.DeleteFunc(s.timers, func(o *timer) bool { return o == t })
		t.fn()
		n++
	}
}

// NextDue returns the deadline of the earliest pending timer.
func (s *timerScheduler) NextDue() (time.Time, bool) {
	t, ok := s.earliest()
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

// Len returns the number of pending timers.
func (s *timerScheduler) Len() int {
	return len(s.timers)
}

func (s *timerScheduler) earliest() (*timer, bool) {
	if len(s.timers) == 0 {
		return nil, false
	}
	return slices.MinFunc(s.timers, func(a, b *timer) int {
		return a.due.Compare(b.due)
	}), true
}
