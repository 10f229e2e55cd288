// Package message implements the message handlers driven by the queue.
package message

import (
	"time"

	"github.com/jmylchreest/bannerq/internal/model"
)

// Animation is the kind of banner transition.
type Animation int

const (
	AnimationEnter Animation = iota
	AnimationExit
)

// String returns the animation name.
func (a Animation) String() string {
	if a == AnimationEnter {
		return "enter"
	}
	return "exit"
}

// Banner is the visual representation of a message owned by the host.
type Banner interface {
	Attach(props *model.MessageProperties)
	Detach()
}

// Animator runs banner transitions. Animate calls onDone exactly once when
// the transition completes, unless cancel was called first.
type Animator interface {
	Animate(kind Animation, onDone func()) (cancel func())
}

// Scheduler runs fn after d on the host's UI goroutine.
type Scheduler interface {
	After(d time.Duration, fn func()) (stop func())
}

// ImmediateAnimator completes every transition synchronously.
type ImmediateAnimator struct{}

// Animate implements Animator.
func (ImmediateAnimator) Animate(_ Animation, onDone func()) func() {
	onDone()
	return func() {}
}

// NopBanner draws nothing.
type NopBanner struct{}

// Attach implements Banner.
func (NopBanner) Attach(*model.MessageProperties) {}

// Detach implements Banner.
func (NopBanner) Detach() {}
