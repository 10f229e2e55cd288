// Package script replays scripted sequences of scheduler operations
// against a dispatcher and records what a user would have seen.
package script

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Operations understood by the runner.
const (
	OpEnqueue          = "enqueue"
	OpDismiss          = "dismiss"
	OpDismissAll       = "dismiss_all"
	OpSuspend          = "suspend"
	OpResume           = "resume"
	OpShowPage         = "show_page"
	OpHidePage         = "hide_page"
	OpNavigate         = "navigate"
	OpDestroyPage      = "destroy_page"
	OpMoveWindow       = "move_window"
	OpFinishAnimations = "finish_animations"
	OpPrimary          = "primary"
	OpGesture          = "gesture"
)

var knownOps = map[string]bool{
	OpEnqueue: true, OpDismiss: true, OpDismissAll: true,
	OpSuspend: true, OpResume: true,
	OpShowPage: true, OpHidePage: true, OpNavigate: true, OpDestroyPage: true, OpMoveWindow: true,
	OpFinishAnimations: true, OpPrimary: true, OpGesture: true,
}

// Script is a replayable list of steps.
type Script struct {
	Mode  string     `yaml:"mode,omitempty"` // direct, coordinated
	Pages []PageSpec `yaml:"pages,omitempty"`
	Steps []Step     `yaml:"steps"`
}

// PageSpec declares a page before the first step runs. Pages referenced
// without a declaration start visible.
type PageSpec struct {
	Name    string `yaml:"name"`
	Visible bool   `yaml:"visible"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Message is the label a step uses to refer to a message.
	Message       string `yaml:"message,omitempty"`
	Identifier    string `yaml:"identifier,omitempty"`
	Title         string `yaml:"title,omitempty"`
	Description   string `yaml:"description,omitempty"`
	Button        string `yaml:"button,omitempty"`
	Scope         string `yaml:"scope,omitempty"`        // web_contents, navigation, window
	AutoDismiss   string `yaml:"auto_dismiss,omitempty"` // duration or "never"
	KeepOnPrimary bool   `yaml:"keep_on_primary,omitempty"`

	Page string `yaml:"page,omitempty"`

	// Reason applies to dismiss and dismiss_all.
	Reason string `yaml:"reason,omitempty"`

	// Token names a suspend token for suspend and resume.
	Token string `yaml:"token,omitempty"`

	// Navigation details.
	Transition   string `yaml:"transition,omitempty"`
	SameDocument bool   `yaml:"same_document,omitempty"`
	Subframe     bool   `yaml:"subframe,omitempty"`
	Replaced     bool   `yaml:"replaced,omitempty"`
}

// AutoDismissNever disables the auto-dismiss timer of one message.
const AutoDismissNever = "never"

// ParseAutoDismiss converts a step's auto_dismiss value. Empty means the
// runner default and "never" a negative duration.
func ParseAutoDismiss(s string) (time.Duration, error) {
	switch s {
	case "":
		return 0, nil
	case AutoDismissNever:
		return -1, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid auto_dismiss %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid auto_dismiss %q: must be positive", s)
	}
	return d, nil
}

// FormatAutoDismiss is the inverse of ParseAutoDismiss.
func FormatAutoDismiss(d time.Duration) string {
	switch {
	case d == 0:
		return ""
	case d < 0:
		return AutoDismissNever
	default:
		return d.String()
	}
}

// Parse errors.
var (
	ErrUnknownOp     = errors.New("unknown operation")
	ErrMissingField  = errors.New("missing required field")
	ErrUnknownFormat = errors.New("unknown script format")
	ErrInvalidJSON   = errors.New("invalid JSON")
)

// Parse decodes data as YAML or JSON depending on the extension of name.
func Parse(name string, data []byte) (*Script, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// ParseYAML decodes a YAML script.
func ParseYAML(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseJSON decodes a JSON script with the same shape as the YAML form.
func ParseJSON(data []byte) (*Script, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)

	s := &Script{Mode: root.Get("mode").String()}
	root.Get("pages").ForEach(func(_, page gjson.Result) bool {
		s.Pages = append(s.Pages, PageSpec{
			Name:    page.Get("name").String(),
			Visible: page.Get("visible").Bool(),
		})
		return true
	})
	root.Get("steps").ForEach(func(_, step gjson.Result) bool {
		s.Steps = append(s.Steps, Step{
			Op:            step.Get("op").String(),
			Message:       step.Get("message").String(),
			Identifier:    step.Get("identifier").String(),
			Title:         step.Get("title").String(),
			Description:   step.Get("description").String(),
			Button:        step.Get("button").String(),
			Scope:         step.Get("scope").String(),
			AutoDismiss:   step.Get("auto_dismiss").String(),
			KeepOnPrimary: step.Get("keep_on_primary").Bool(),
			Page:          step.Get("page").String(),
			Reason:        step.Get("reason").String(),
			Token:         step.Get("token").String(),
			Transition:    step.Get("transition").String(),
			SameDocument:  step.Get("same_document").Bool(),
			Subframe:      step.Get("subframe").Bool(),
			Replaced:      step.Get("replaced").Bool(),
		})
		return true
	})

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes the script as YAML that ParseYAML accepts.
func (s *Script) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script: %w", err)
	}
	return data, nil
}

// Validate checks that every step names a known operation and carries the
// fields it needs.
func (s *Script) Validate() error {
	for i, p := range s.Pages {
		if p.Name == "" {
			return fmt.Errorf("page %d: %w: name", i, ErrMissingField)
		}
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return &StepError{Index: i, Op: step.Op, Err: err}
		}
	}
	return nil
}

func (s Step) validate() error {
	if !knownOps[s.Op] {
		return fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
	}
	var missing string
	switch s.Op {
	case OpEnqueue:
		if s.Message == "" {
			missing = "message"
		} else if s.Page == "" {
			missing = "page"
		}
		if missing == "" {
			if _, err := ParseAutoDismiss(s.AutoDismiss); err != nil {
				return err
			}
		}
	case OpDismiss, OpPrimary, OpGesture:
		if s.Message == "" {
			missing = "message"
		}
	case OpSuspend, OpResume:
		if s.Token == "" {
			missing = "token"
		}
	case OpShowPage, OpHidePage, OpNavigate, OpDestroyPage, OpMoveWindow:
		if s.Page == "" {
			missing = "page"
		}
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrMissingField, missing)
	}
	return nil
}

// StepError reports the step a parse or replay failure belongs to.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
