package script

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Event kinds recorded in a trace.
const (
	EventShown     = "shown"
	EventHidden    = "hidden"
	EventDismissed = "dismissed"
	EventPrimary   = "primary"
)

// Event is one observable change caused by a step.
type Event struct {
	Step    int // zero-based
	Op      string
	Kind    string
	Message string
	Detail  string
}

// Trace is the outcome of a replay.
type Trace struct {
	Events []Event

	// MaxVisible is the largest number of banners attached at once.
	MaxVisible int
	// Remaining lists the labels still queued when the script ended,
	// sorted.
	Remaining []string
}

// Kinds returns "kind:message" for every event, for compact comparison.
func (t *Trace) Kinds() []string {
	out := make([]string, len(t.Events))
	for i, e := range t.Events {
		out[i] = e.Kind + ":" + e.Message
	}
	return out
}

// Filter returns the events of one kind.
func (t *Trace) Filter(kind string) []Event {
	var out []Event
	for _, e := range t.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// WriteTo writes a human-readable trace.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, e := range t.Events {
		fmt.Fprintf(&b, "%-6s %-18s %-10s %s", humanize.Ordinal(e.Step+1), e.Op, e.Kind, e.Message)
		if e.Detail != "" {
			fmt.Fprintf(&b, " (%s)", e.Detail)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s, at most %d visible, %d still queued\n",
		english.Plural(len(t.Events), "event", ""), t.MaxVisible, len(t.Remaining))

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
