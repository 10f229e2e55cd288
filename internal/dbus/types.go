package dbus

import (
	"time"

	"github.com/jmylchreest/bannerq/internal/model"
)

// Request is an incoming Enqueue call.
type Request struct {
	Identifier        string
	Title             string
	Description       string
	PrimaryButtonText string
	ExpireTimeout     int32 // -1 = configured default, 0 = never expire, else milliseconds
}

// Validate checks the identifier and title of the request.
func (r Request) Validate() error {
	if _, err := model.ParseMessageIdentifier(r.Identifier); err != nil {
		return err
	}
	if r.Title == "" {
		return model.ErrEmptyTitle
	}
	return nil
}

// AutoDismiss returns the auto-dismiss duration requested by
// ExpireTimeout, in MessageProperties.AutoDismiss terms.
func (r Request) AutoDismiss() time.Duration {
	return expireTimeout(r.ExpireTimeout)
}

// expireTimeout maps the freedesktop expire_timeout convention onto
// MessageProperties.AutoDismiss.
func expireTimeout(ms int32) time.Duration {
	switch {
	case ms < 0:
		return 0
	case ms == 0:
		return -1
	default:
		return time.Duration(ms) * time.Millisecond
	}
}

// Status is the reply to a Status call.
type Status struct {
	Queued    uint32
	Suspended bool
}
