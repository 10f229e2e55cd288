package queue

import (
	"fmt"

	"github.com/jmylchreest/bannerq/internal/model"
)

// recorder collects the calls made on fake handlers and delegates in the
// order they happened.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// fakeHandler is a Handler whose hide completes immediately unless
// asyncHide is set, in which case the test finishes it via finishHide.
type fakeHandler struct {
	name      string
	rec       *recorder
	asyncHide bool

	shows      int
	hides      int
	dismissals []model.DismissReason
	visible    bool
	onHidden   []func()
}

func newFakeHandler(name string, rec *recorder) *fakeHandler {
	return &fakeHandler{name: name, rec: rec}
}

func (h *fakeHandler) Show() {
	h.shows++
	h.visible = true
	h.rec.add("show %s", h.name)
}

func (h *fakeHandler) Hide(animate bool, onHidden func()) {
	h.hides++
	h.rec.add("hide %s animate=%t", h.name, animate)
	if h.asyncHide {
		h.onHidden = append(h.onHidden, onHidden)
		return
	}
	h.visible = false
	onHidden()
}

func (h *fakeHandler) finishHide() {
	callbacks := h.onHidden
	h.onHidden = nil
	h.visible = false
	for _, fn := range callbacks {
		fn()
	}
}

func (h *fakeHandler) Dismiss(reason model.DismissReason) {
	h.dismissals = append(h.dismissals, reason)
	h.rec.add("dismiss %s %s", h.name, reason)
}

func (h *fakeHandler) Identifier() model.MessageIdentifier {
	return model.MessageIdentifierTest
}

// fakeDelegate records delegate callbacks. With deferShow set, show callbacks
// are parked until runShows.
type fakeDelegate struct {
	rec       *recorder
	deferShow bool
	shows     []func()
}

func (d *fakeDelegate) OnStartShowing(show func()) {
	d.rec.add("start showing")
	if d.deferShow {
		d.shows = append(d.shows, show)
		return
	}
	show()
}

func (d *fakeDelegate) OnFinishHiding() {
	d.rec.add("finish hiding")
}

func (d *fakeDelegate) runShows() {
	shows := d.shows
	d.shows = nil
	for _, fn := range shows {
		fn()
	}
}

// visibleCount counts handlers that are shown and not yet hidden.
func visibleCount(handlers ...*fakeHandler) int {
	n := 0
	for _, h := range handlers {
		if h.visible {
			n++
		}
	}
	return n
}
