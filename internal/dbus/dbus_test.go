package dbus

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bannerq/internal/model"
	"github.com/jmylchreest/bannerq/internal/queue"
)

func TestParseActiveChanged(t *testing.T) {
	tests := []struct {
		name       string
		sig        *dbus.Signal
		wantLocked bool
		wantOK     bool
	}{
		{
			name:       "freedesktop locked",
			sig:        &dbus.Signal{Name: "org.freedesktop.ScreenSaver.ActiveChanged", Body: []any{true}},
			wantLocked: true,
			wantOK:     true,
		},
		{
			name:   "gnome unlocked",
			sig:    &dbus.Signal{Name: "org.gnome.ScreenSaver.ActiveChanged", Body: []any{false}},
			wantOK: true,
		},
		{
			name: "other member",
			sig:  &dbus.Signal{Name: "org.freedesktop.ScreenSaver.WakeUpScreen", Body: []any{true}},
		},
		{
			name: "empty body",
			sig:  &dbus.Signal{Name: "org.freedesktop.ScreenSaver.ActiveChanged"},
		},
		{
			name: "wrong type",
			sig:  &dbus.Signal{Name: "org.freedesktop.ScreenSaver.ActiveChanged", Body: []any{"yes"}},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locked, ok := parseActiveChanged(tt.sig)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLocked, locked)
		})
	}
}

type fakeSuspender struct {
	next    queue.Token
	resumed []queue.Token
}

func (f *fakeSuspender) Suspend() queue.Token {
	f.next++
	return f.next
}

func (f *fakeSuspender) Resume(token queue.Token) {
	f.resumed = append(f.resumed, token)
}

func TestLockSuspender(t *testing.T) {
	target := &fakeSuspender{}
	l := NewLockSuspender(target)

	l.SetLocked(false)
	assert.Empty(t, target.resumed)

	l.SetLocked(true)
	l.SetLocked(true)
	assert.True(t, l.Locked())
	assert.Equal(t, queue.Token(1), target.next, "one token per lock")

	l.SetLocked(false)
	l.SetLocked(false)
	assert.False(t, l.Locked())
	assert.Equal(t, []queue.Token{1}, target.resumed)

	l.SetLocked(true)
	l.SetLocked(false)
	assert.Equal(t, []queue.Token{1, 2}, target.resumed)
}

func TestLockSuspender_DrivesQueue(t *testing.T) {
	m := queue.NewManager(queue.SelectionDirect, nil)
	l := NewLockSuspender(m)

	l.SetLocked(true)
	assert.True(t, m.IsSuspended())
	l.SetLocked(false)
	assert.False(t, m.IsSuspended())
}

func TestRequest_Validate(t *testing.T) {
	req := Request{
		Identifier:        "popup_blocked",
		Title:             "Pop-ups blocked",
		Description:       "3 pop-ups were blocked",
		PrimaryButtonText: "Allow",
		ExpireTimeout:     1500,
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, 1500*time.Millisecond, req.AutoDismiss())

	assert.Error(t, Request{Identifier: "bogus", Title: "x"}.Validate())
	assert.ErrorIs(t, Request{Identifier: "test"}.Validate(), model.ErrEmptyTitle)
}

func TestExpireTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), expireTimeout(-1), "server default")
	assert.Less(t, expireTimeout(0), time.Duration(0), "never expire")
	assert.Equal(t, 5*time.Second, expireTimeout(5000))
}

func TestMessageServer_Methods(t *testing.T) {
	s := NewMessageServer(nil)

	_, derr := s.Enqueue("test", "hello", "", "", -1)
	require.NotNil(t, derr)
	assert.Equal(t, errUnavailable, derr.Name)

	var got []Request
	s.SetEnqueueHandler(func(req Request) (string, error) {
		got = append(got, req)
		if req.Title == "" {
			return "", model.ErrEmptyTitle
		}
		return "01ID", nil
	})

	id, derr := s.Enqueue("test", "hello", "world", "OK", 0)
	require.Nil(t, derr)
	assert.Equal(t, "01ID", id)
	assert.Equal(t, []Request{{Identifier: "test", Title: "hello", Description: "world", PrimaryButtonText: "OK"}}, got)

	_, derr = s.Enqueue("test", "", "", "", 0)
	require.NotNil(t, derr)
	assert.Equal(t, errInvalidArgs, derr.Name)

	s.SetDismissHandler(func(id string) error {
		switch id {
		case "01ID":
			return nil
		case "broken":
			return errors.New("boom")
		default:
			return ErrUnknownMessage
		}
	})
	assert.Nil(t, s.Dismiss("01ID"))
	derr = s.Dismiss("missing")
	require.NotNil(t, derr)
	assert.Equal(t, errUnknownMessage, derr.Name)
	assert.NotNil(t, s.Dismiss("broken"))

	queued, suspended, derr := s.Status()
	require.Nil(t, derr)
	assert.Zero(t, queued)
	assert.False(t, suspended)

	s.SetStatusHandler(func() Status { return Status{Queued: 3, Suspended: true} })
	queued, suspended, _ = s.Status()
	assert.Equal(t, uint32(3), queued)
	assert.True(t, suspended)
}

func TestMessageServer_EmitWithoutConnection(t *testing.T) {
	s := NewMessageServer(nil)
	assert.Error(t, s.EmitDismissed("01ID", model.DismissReasonTimer))
	assert.Error(t, s.EmitPrimaryActionInvoked("01ID"))
	assert.NoError(t, s.Stop())
}
