package script

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runYAML(t *testing.T, src string) (*Trace, error) {
	t.Helper()
	s, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	return Run(s, Options{})
}

func TestRun_FIFO(t *testing.T) {
	s, err := Parse("fifo.yaml", readFixture(t, "fifo.yaml"))
	require.NoError(t, err)

	trace, err := Run(s, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"shown:a", "hidden:a", "dismissed:a", "shown:b"}, trace.Kinds())
	assert.Equal(t, "dismissed_by_feature", trace.Filter(EventDismissed)[0].Detail)
	assert.Equal(t, 4, trace.Events[1].Step, "hidden once the exit transition finished")
	assert.Equal(t, 1, trace.MaxVisible)
	assert.Equal(t, []string{"b"}, trace.Remaining)
}

func TestRun_NavigationScope(t *testing.T) {
	s, err := Parse("navigation.json", readFixture(t, "navigation.json"))
	require.NoError(t, err)

	trace, err := Run(s, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"shown:a", "hidden:a", "dismissed:a", "shown:w"}, trace.Kinds())
	dismissed := trace.Filter(EventDismissed)
	require.Len(t, dismissed, 1)
	assert.Equal(t, "scope_destroyed", dismissed[0].Detail)
	assert.Equal(t, []string{"w"}, trace.Remaining)
}

func TestRun_SuspendResume(t *testing.T) {
	trace, err := runYAML(t, `
steps:
  - {op: enqueue, message: a, page: tab}
  - {op: suspend, token: lock}
  - {op: enqueue, message: b, page: tab}
  - {op: suspend, token: modal}
  - {op: resume, token: lock}
  - {op: resume, token: modal}
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"shown:a", "hidden:a", "shown:a"}, trace.Kinds())
	assert.Equal(t, 5, trace.Events[2].Step, "shown after the last token")
	assert.Equal(t, []string{"a", "b"}, trace.Remaining)
}

func TestRun_HiddenPageLifecycle(t *testing.T) {
	trace, err := runYAML(t, `
pages:
  - name: background
    visible: false
steps:
  - {op: enqueue, message: a, page: background}
  - {op: show_page, page: background}
  - {op: hide_page, page: background}
  - {op: destroy_page, page: background}
  - {op: enqueue, message: b, page: other}
`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"shown:a", "hidden:a", "dismissed:a", "shown:b",
	}, trace.Kinds())
	assert.Equal(t, "scope_destroyed", trace.Filter(EventDismissed)[0].Detail)
	assert.Equal(t, []string{"b"}, trace.Remaining)
}

func TestRun_PrimaryAndGesture(t *testing.T) {
	trace, err := runYAML(t, `
steps:
  - {op: enqueue, message: a, page: tab, button: Save}
  - {op: enqueue, message: b, page: tab, keep_on_primary: true}
  - {op: enqueue, message: c, page: tab}
  - {op: primary, message: a}
  - {op: finish_animations}
  - {op: primary, message: b}
  - {op: gesture, message: b}
  - {op: finish_animations}
`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"shown:a", "primary:a", "hidden:a", "dismissed:a", "shown:b",
		"primary:b",
		"hidden:b", "dismissed:b", "shown:c",
	}, trace.Kinds())
	dismissed := trace.Filter(EventDismissed)
	assert.Equal(t, "primary_action", dismissed[0].Detail)
	assert.Equal(t, "gesture", dismissed[1].Detail)
}

func TestRun_DismissAllCoordinated(t *testing.T) {
	trace, err := runYAML(t, `
mode: coordinated
steps:
  - {op: enqueue, message: a, page: tab}
  - {op: enqueue, message: b, page: tab}
  - {op: dismiss_all}
  - {op: enqueue, message: a, page: tab}
`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"shown:a", "hidden:a", "dismissed:a", "dismissed:b", "shown:a",
	}, trace.Kinds())
	assert.Equal(t, "activity_destroyed", trace.Filter(EventDismissed)[1].Detail)
	assert.Equal(t, []string{"a"}, trace.Remaining)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantErr   error
		wantIndex int
	}{
		{
			name:      "dismiss unknown label",
			src:       "steps:\n  - {op: dismiss, message: ghost}\n",
			wantErr:   ErrUnknownMessage,
			wantIndex: 0,
		},
		{
			name:      "resume unknown token",
			src:       "steps:\n  - {op: suspend, token: a}\n  - {op: resume, token: b}\n",
			wantErr:   ErrUnknownToken,
			wantIndex: 1,
		},
		{
			name:      "token reused",
			src:       "steps:\n  - {op: suspend, token: a}\n  - {op: suspend, token: a}\n",
			wantErr:   ErrTokenInUse,
			wantIndex: 1,
		},
		{
			name:      "duplicate label",
			src:       "steps:\n  - {op: enqueue, message: a, page: p}\n  - {op: enqueue, message: a, page: p}\n",
			wantErr:   ErrDuplicateLabel,
			wantIndex: 1,
		},
		{
			name:      "bad transition",
			src:       "steps:\n  - {op: navigate, page: p, transition: teleport}\n",
			wantErr:   ErrBadTransition,
			wantIndex: 0,
		},
		{
			name:      "enqueue on destroyed page",
			src:       "steps:\n  - {op: destroy_page, page: p}\n  - {op: enqueue, message: a, page: p}\n",
			wantErr:   ErrPageDestroyed,
			wantIndex: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace, err := runYAML(t, tt.src)
			require.NotNil(t, trace)
			assert.ErrorIs(t, err, tt.wantErr)

			var serr *StepError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantIndex, serr.Index)
		})
	}
}

func TestNewRunner_UnknownMode(t *testing.T) {
	_, err := NewRunner(&Script{Mode: "stacked"}, Options{})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestTrace_WriteTo(t *testing.T) {
	trace := &Trace{
		Events: []Event{
			{Step: 0, Op: OpEnqueue, Kind: EventShown, Message: "a"},
			{Step: 2, Op: OpDismiss, Kind: EventDismissed, Message: "a", Detail: "timer"},
		},
		MaxVisible: 1,
	}

	var buf bytes.Buffer
	_, err := trace.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "1st")
	assert.Contains(t, out, "3rd")
	assert.Contains(t, out, "(timer)")
	assert.Contains(t, out, "2 events, at most 1 visible, 0 still queued")
}

func TestManualAnimator(t *testing.T) {
	a := &ManualAnimator{}
	var done []string

	cancel := a.Animate(0, func() { done = append(done, "first") })
	a.Animate(1, func() {
		done = append(done, "second")
		a.Animate(0, func() { done = append(done, "chained") })
	})
	assert.Equal(t, 2, a.Pending())

	cancel()
	assert.Equal(t, 2, a.FinishAll())
	assert.Equal(t, []string{"second", "chained"}, done)
	assert.Zero(t, a.Pending())
}

// TestRun_RandomNeverOverlaps drives random operations and checks that at
// most one banner is ever attached.
func TestRun_RandomNeverOverlaps(t *testing.T) {
	ops := []string{
		OpEnqueue, OpEnqueue, OpEnqueue, OpDismiss, OpDismissAll,
		OpSuspend, OpResume, OpShowPage, OpHidePage, OpNavigate,
		OpDestroyPage, OpMoveWindow, OpFinishAnimations, OpPrimary, OpGesture,
	}
	scopes := []string{"web_contents", "navigation", "window"}
	transitions := []string{"link", "typed", "reload", "link|server_redirect"}

	for _, mode := range []string{"direct", "coordinated"} {
		t.Run(mode, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			r, err := NewRunner(&Script{Mode: mode}, Options{})
			require.NoError(t, err)

			next := 0
			for i := 0; i < 2000; i++ {
				page := fmt.Sprintf("p%d-%d", rng.Intn(3), next/40)
				step := Step{Op: ops[rng.Intn(len(ops))], Page: page}
				switch step.Op {
				case OpEnqueue:
					next++
					step.Message = fmt.Sprintf("m%d", next)
					step.Scope = scopes[rng.Intn(len(scopes))]
				case OpDismiss, OpPrimary, OpGesture:
					step.Message = fmt.Sprintf("m%d", next-rng.Intn(4))
				case OpSuspend, OpResume:
					step.Token = fmt.Sprintf("t%d", rng.Intn(3))
				case OpNavigate:
					step.Transition = transitions[rng.Intn(len(transitions))]
				}

				err := r.Apply(step)
				assert.NotErrorIs(t, err, ErrOverlap, "step %d: %+v", i, step)
			}

			assert.LessOrEqual(t, r.Trace().MaxVisible, 1)
		})
	}
}

type fakeScheduler struct {
	next   int
	timers map[int]func()
}

func (s *fakeScheduler) After(_ time.Duration, fn func()) func() {
	s.next++
	id := s.next
	s.timers[id] = fn
	return func() { delete(s.timers, id) }
}

func (s *fakeScheduler) fire() {
	timers := s.timers
	s.timers = make(map[int]func())
	for _, fn := range timers {
		fn()
	}
}

func TestRunner_TimerAndAccessors(t *testing.T) {
	sched := &fakeScheduler{timers: make(map[int]func())}
	var events []string
	r, err := NewRunner(&Script{}, Options{
		Scheduler:   sched,
		AutoDismiss: time.Second,
		OnEvent:     func(e Event) { events = append(events, e.Kind+":"+e.Message) },
	})
	require.NoError(t, err)

	require.NoError(t, r.Apply(Step{Op: OpEnqueue, Message: "a", Page: "tab"}))
	require.NoError(t, r.Apply(Step{Op: OpEnqueue, Message: "b", Page: "tab", AutoDismiss: AutoDismissNever}))

	label, props, ok := r.Attached()
	require.True(t, ok)
	assert.Equal(t, "a", label)
	assert.Equal(t, "a", props.Title)
	assert.Len(t, sched.timers, 1)

	queued := r.Queue()
	require.Len(t, queued, 2)
	assert.Equal(t, "a", queued[0].Label)
	assert.Equal(t, "b", queued[1].Label)
	assert.Same(t, r.Page("tab"), queued[1].Scope.Context)

	sched.fire()
	require.NoError(t, r.Apply(Step{Op: OpFinishAnimations}))

	assert.Equal(t, []string{"shown:a", "hidden:a", "dismissed:a", "shown:b"}, events)
	assert.Equal(t, "timer", r.Trace().Filter(EventDismissed)[0].Detail)
	assert.Empty(t, sched.timers, "b never times out")

	_, ok = r.Properties("a")
	assert.False(t, ok)
	label, _, _ = r.Attached()
	assert.Equal(t, "b", label)

	require.NoError(t, r.Apply(Step{Op: OpSuspend, Token: "user"}))
	assert.Equal(t, []string{"user"}, r.Tokens())
	assert.Len(t, r.Script().Steps, 4)
}
