package scope

import "strings"

// Transition describes how a navigation was started: a core type in the
// low byte plus qualifier bits.
type Transition uint32

// Core transition types.
const (
	TransitionLink             Transition = 0
	TransitionTyped            Transition = 1
	TransitionAutoBookmark     Transition = 2
	TransitionAutoSubframe     Transition = 3
	TransitionManualSubframe   Transition = 4
	TransitionGenerated        Transition = 5
	TransitionAutoToplevel     Transition = 6
	TransitionFormSubmit       Transition = 7
	TransitionReload           Transition = 8
	TransitionKeyword          Transition = 9
	TransitionKeywordGenerated Transition = 10

	TransitionCoreMask Transition = 0xFF
)

// Transition qualifiers.
const (
	TransitionForwardBack    Transition = 0x01000000
	TransitionFromAddressBar Transition = 0x02000000
	TransitionHomePage       Transition = 0x04000000
	TransitionChainStart     Transition = 0x10000000
	TransitionChainEnd       Transition = 0x20000000
	TransitionClientRedirect Transition = 0x40000000
	TransitionServerRedirect Transition = 0x80000000

	TransitionRedirectMask = TransitionClientRedirect | TransitionServerRedirect
)

var coreTransitionNames = map[string]Transition{
	"link":              TransitionLink,
	"typed":             TransitionTyped,
	"auto_bookmark":     TransitionAutoBookmark,
	"auto_subframe":     TransitionAutoSubframe,
	"manual_subframe":   TransitionManualSubframe,
	"generated":         TransitionGenerated,
	"auto_toplevel":     TransitionAutoToplevel,
	"form_submit":       TransitionFormSubmit,
	"reload":            TransitionReload,
	"keyword":           TransitionKeyword,
	"keyword_generated": TransitionKeywordGenerated,
}

var qualifierNames = map[string]Transition{
	"forward_back":     TransitionForwardBack,
	"from_address_bar": TransitionFromAddressBar,
	"home_page":        TransitionHomePage,
	"chain_start":      TransitionChainStart,
	"chain_end":        TransitionChainEnd,
	"client_redirect":  TransitionClientRedirect,
	"server_redirect":  TransitionServerRedirect,
}

// Core returns the core type without qualifiers.
func (t Transition) Core() Transition {
	return t & TransitionCoreMask
}

// IsReload reports whether the navigation reloaded the current entry.
func (t Transition) IsReload() bool {
	return t.Core() == TransitionReload
}

// IsRedirect reports whether the navigation was a client or server redirect.
func (t Transition) IsRedirect() bool {
	return t&TransitionRedirectMask != 0
}

// ParseTransition parses names joined by "|", for example
// "link|client_redirect". At most one core type may be given; it defaults
// to link. Unknown names are reported as false.
func ParseTransition(s string) (Transition, bool) {
	var t Transition
	coreSeen := false
	for _, part := range strings.Split(s, "|") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if core, ok := coreTransitionNames[part]; ok {
			if coreSeen {
				return 0, false
			}
			coreSeen = true
			t |= core
			continue
		}
		if q, ok := qualifierNames[part]; ok {
			t |= q
			continue
		}
		return 0, false
	}
	return t, true
}

// Navigation describes a committed navigation in a context.
type Navigation struct {
	MainFrame     bool
	SameDocument  bool
	ReplacedEntry bool
	Transition    Transition
}

// EndsScope reports whether the navigation ends a navigation scope: a
// cross-document, non-replacing main-frame commit that is neither a
// reload nor a redirect.
func (n Navigation) EndsScope() bool {
	if !n.MainFrame || n.SameDocument || n.ReplacedEntry {
		return false
	}
	if n.Transition.IsReload() || n.Transition.IsRedirect() {
		return false
	}
	return true
}
