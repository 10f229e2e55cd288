package script

import "github.com/jmylchreest/bannerq/internal/message"

// pendingAnimation is a transition waiting for FinishAll.
type pendingAnimation struct {
	id     int
	kind   message.Animation
	onDone func()
}

// ManualAnimator parks transitions until FinishAll is called, so a script
// can observe the in-between states.
type ManualAnimator struct {
	next    int
	pending []pendingAnimation
}

// Animate implements message.Animator.
func (a *ManualAnimator) Animate(kind message.Animation, onDone func()) func() {
	a.next++
	id := a.next
	a.pending = append(a.pending, pendingAnimation{id: id, kind: kind, onDone: onDone})
	return func() { a.drop(id) }
}

// Pending returns the number of running transitions.
func (a *ManualAnimator) Pending() int {
	return len(a.pending)
}

// FinishAll completes running transitions in start order, including any
// started by a completion callback, and returns how many it completed.
func (a *ManualAnimator) FinishAll() int {
	n := 0
	for len(a.pending) > 0 {
		p := a.pending[0]
		a.pending = a.pending[1:]
		p.onDone()
		n++
	}
	return n
}

func (a *ManualAnimator) drop(id int) {
	for i, p := range a.pending {
		if p.id == id {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}
