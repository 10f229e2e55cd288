package queue

import (
	"log/slog"
)

// AnimationCoordinator sequences hide-then-show transitions for a single
// visible message.
//
// It tracks two handles. displayed is the message chosen for display,
// possibly still waiting for the host to run its show. lastShown is the
// message whose show actually ran. When they differ a hide resolves
// immediately, because the hide callback of a message that was never
// shown would never fire.
type AnimationCoordinator struct {
	delegate Delegate
	logger   *slog.Logger

	displayed Handler
	lastShown Handler
	hiding    bool
	showSeq   uint64 // bumped whenever a candidate is chosen or dropped
}

// NewAnimationCoordinator creates a coordinator reporting to delegate.
func NewAnimationCoordinator(delegate Delegate, logger *slog.Logger) *AnimationCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if delegate == nil {
		delegate = DelegateFuncs{}
	}
	return &AnimationCoordinator{
		delegate: delegate,
		logger:   logger,
	}
}

// SetDelegate replaces the host delegate.
func (c *AnimationCoordinator) SetDelegate(delegate Delegate) {
	if delegate == nil {
		delegate = DelegateFuncs{}
	}
	c.delegate = delegate
}

// Displayed returns the message currently chosen for display, or nil.
func (c *AnimationCoordinator) Displayed() Handler {
	return c.displayed
}

// LastShown returns the message whose show last ran, or nil.
func (c *AnimationCoordinator) LastShown() Handler {
	return c.lastShown
}

// UpdateWithoutStacking moves the display towards candidate. A nil
// candidate hides whatever is displayed. onFinished runs after the show
// started or the hide finished; it is not called when nothing changes or
// while a previous hide is still in flight, since that hide will call its
// own onFinished.
func (c *AnimationCoordinator) UpdateWithoutStacking(candidate Handler, suspended bool, onFinished func()) {
	if candidate == c.displayed || c.hiding {
		return
	}

	if c.displayed == nil {
		c.displayed = candidate
		c.showSeq++
		seq := c.showSeq
		c.logger.Debug("start showing message", "identifier", candidate.Identifier())
		c.delegate.OnStartShowing(func() {
			// A later update replaced, dropped or chose this candidate
			// again first.
			if c.showSeq != seq || c.displayed != candidate || c.hiding {
				return
			}
			c.lastShown = candidate
			candidate.Show()
			callback(onFinished)
		})
		return
	}

	current := c.displayed
	c.showSeq++
	finish := func() {
		c.hiding = false
		c.displayed = nil
		c.lastShown = nil
		c.delegate.OnFinishHiding()
		callback(onFinished)
	}

	if c.lastShown != current {
		c.logger.Debug("dropping message that never finished showing", "identifier", current.Identifier())
		finish()
		return
	}

	c.hiding = true
	c.logger.Debug("hiding message", "identifier", current.Identifier(), "animate", !suspended)
	current.Hide(!suspended, once(finish))
}

// UpdateWithStacking would lay out several messages at once. Stacking has
// no defined ordering or visual policy, so it is deliberately left
// unimplemented: it changes nothing and returns ErrStackingUnsupported.
func (c *AnimationCoordinator) UpdateWithStacking(candidates []Handler, suspended bool, onFinished func()) error {
	c.logger.Warn("stacked message update requested but not supported",
		"candidates", len(candidates),
		"suspended", suspended,
	)
	return ErrStackingUnsupported
}

// once wraps fn so that only the first call runs.
func once(fn func()) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		fn()
	}
}

func callback(fn func()) {
	if fn != nil {
		fn()
	}
}
