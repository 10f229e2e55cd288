// Package model defines the value types shared by the message scheduler,
// its handlers and the hosts that drive it.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageIdentifier tags a message with its kind. It is used for logging and
// for default visibility rules, never for identity.
type MessageIdentifier int

const (
	MessageIdentifierInvalid MessageIdentifier = iota
	MessageIdentifierTest
	MessageIdentifierSavePassword
	MessageIdentifierUpdatePassword
	MessageIdentifierPopupBlocked
	MessageIdentifierDownloadProgress
	MessageIdentifierSyncError
	MessageIdentifierNotificationBlocked
	MessageIdentifierAdsBlocked
	MessageIdentifierReaderMode
)

var messageIdentifierNames = map[MessageIdentifier]string{
	MessageIdentifierInvalid:             "invalid",
	MessageIdentifierTest:                "test",
	MessageIdentifierSavePassword:        "save_password",
	MessageIdentifierUpdatePassword:      "update_password",
	MessageIdentifierPopupBlocked:        "popup_blocked",
	MessageIdentifierDownloadProgress:    "download_progress",
	MessageIdentifierSyncError:           "sync_error",
	MessageIdentifierNotificationBlocked: "notification_blocked",
	MessageIdentifierAdsBlocked:          "ads_blocked",
	MessageIdentifierReaderMode:          "reader_mode",
}

// String returns the snake_case name of the identifier.
func (id MessageIdentifier) String() string {
	if name, ok := messageIdentifierNames[id]; ok {
		return name
	}
	return "unknown"
}

// ParseMessageIdentifier converts a snake_case name back to an identifier.
func ParseMessageIdentifier(s string) (MessageIdentifier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range messageIdentifierNames {
		if name == s && id != MessageIdentifierInvalid {
			return id, nil
		}
	}
	return MessageIdentifierInvalid, fmt.Errorf("unknown message identifier %q", s)
}

// DismissReason describes why a message left the queue.
type DismissReason int

const (
	DismissReasonUnknown DismissReason = iota
	DismissReasonPrimaryAction
	DismissReasonSecondaryAction
	DismissReasonTimer
	DismissReasonGesture
	DismissReasonTabSwitched
	DismissReasonTabDestroyed
	DismissReasonActivityDestroyed
	DismissReasonScopeDestroyed
	DismissReasonDismissedByFeature
)

var dismissReasonNames = map[DismissReason]string{
	DismissReasonUnknown:            "unknown",
	DismissReasonPrimaryAction:      "primary_action",
	DismissReasonSecondaryAction:    "secondary_action",
	DismissReasonTimer:              "timer",
	DismissReasonGesture:            "gesture",
	DismissReasonTabSwitched:        "tab_switched",
	DismissReasonTabDestroyed:       "tab_destroyed",
	DismissReasonActivityDestroyed:  "activity_destroyed",
	DismissReasonScopeDestroyed:     "scope_destroyed",
	DismissReasonDismissedByFeature: "dismissed_by_feature",
}

// String returns the snake_case name of the reason.
func (r DismissReason) String() string {
	if name, ok := dismissReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseDismissReason converts a snake_case name back to a reason.
// An empty string maps to DismissReasonUnknown.
func ParseDismissReason(s string) (DismissReason, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DismissReasonUnknown, nil
	}
	for r, name := range dismissReasonNames {
		if name == s {
			return r, nil
		}
	}
	return DismissReasonUnknown, fmt.Errorf("unknown dismiss reason %q", s)
}

// PrimaryActionResult tells the message what to do after its primary
// action callback ran.
type PrimaryActionResult int

const (
	// PrimaryActionDismissImmediately dismisses the message with
	// DismissReasonPrimaryAction.
	PrimaryActionDismissImmediately PrimaryActionResult = iota
	// PrimaryActionNoDismiss leaves the message on screen.
	PrimaryActionNoDismiss
)

// MessageProperties describes one message. A *MessageProperties is the
// identity of the message inside the dispatcher: two distinct values with
// equal fields are two different messages.
type MessageProperties struct {
	ID                string
	Identifier        MessageIdentifier
	Title             string
	Description       string
	PrimaryButtonText string

	// AutoDismiss overrides the configured auto-dismiss duration.
	// Zero means use the configured default, negative disables the timer.
	AutoDismiss time.Duration

	EnqueuedAt time.Time

	OnPrimaryAction func() PrimaryActionResult
	OnDismissed     func(reason DismissReason)
}

// Validation errors.
var (
	ErrEmptyMessageID       = errors.New("message id cannot be empty")
	ErrEmptyTitle           = errors.New("title cannot be empty")
	ErrInvalidIdentifier    = errors.New("message identifier must be set")
	ErrMissingPrimaryButton = errors.New("primary action requires primary button text")
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID returns a new monotonic ULID string.
func NewMessageID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// NewMessageProperties creates properties with a generated ID.
func NewMessageProperties(identifier MessageIdentifier, title string) (*MessageProperties, error) {
	id, err := NewMessageID()
	if err != nil {
		return nil, err
	}
	return &MessageProperties{
		ID:         id,
		Identifier: identifier,
		Title:      title,
	}, nil
}

// Validate checks that the properties can be turned into a message.
func (p *MessageProperties) Validate() error {
	if p.ID == "" {
		return ErrEmptyMessageID
	}
	if p.Identifier == MessageIdentifierInvalid {
		return ErrInvalidIdentifier
	}
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if p.OnPrimaryAction != nil && p.PrimaryButtonText == "" {
		return ErrMissingPrimaryButton
	}
	return nil
}

// TitleTruncated returns the title truncated to maxLen runes.
// If the title is longer, it is truncated and "..." is appended.
func (p *MessageProperties) TitleTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	title := []rune(strings.Join(strings.Fields(p.Title), " "))
	if len(title) <= maxLen {
		return string(title)
	}
	if maxLen <= 3 {
		return string(title[:maxLen])
	}
	return string(title[:maxLen-3]) + "..."
}

// String identifies the message in log output.
func (p *MessageProperties) String() string {
	return fmt.Sprintf("%s(%s)", p.Identifier, p.ID)
}
