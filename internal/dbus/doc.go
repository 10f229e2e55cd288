// Package dbus connects the message scheduler to the session bus.
// It exports a small service that lets other processes post and dismiss
// messages, and watches the session screen saver so messages are held
// back while the screen is locked.
package dbus
