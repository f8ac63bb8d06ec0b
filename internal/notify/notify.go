// Package notify delivers best-effort desktop notifications.
package notify

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	notifyBusName    = "org.freedesktop.Notifications"
	notifyObjectPath = "/org/freedesktop/Notifications"
	notifyCall       = "org.freedesktop.Notifications.Notify"
)

// Noop discards notifications. Used when no session bus is available.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(title, message string) {}

// DesktopNotifier shows notifications through the freedesktop notification
// service on the session bus. Delivery is fire-and-forget: the control loop
// is never blocked on the bus round trip.
type DesktopNotifier struct {
	conn     *dbus.Conn
	duration time.Duration
	logger   zerolog.Logger
}

// NewDesktopNotifier connects to the session bus. The duration controls how
// long a notification stays on screen.
func NewDesktopNotifier(duration time.Duration, logger zerolog.Logger) (*DesktopNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DesktopNotifier{
		conn:     conn,
		duration: duration,
		logger:   logger.With().Str("component", "notifier").Logger(),
	}, nil
}

// Notify shows a transient notification. Errors are logged and swallowed.
func (n *DesktopNotifier) Notify(title, message string) {
	go func() {
		obj := n.conn.Object(notifyBusName, notifyObjectPath)
		call := obj.Call(notifyCall, 0,
			"autoheadsetd",            // app name
			uint32(0),                 // no notification replaced
			"audio-headset",           // icon
			title,
			message,
			[]string{},                // no actions
			map[string]dbus.Variant{}, // no hints
			int32(n.duration.Milliseconds()),
		)
		if call.Err != nil {
			n.logger.Warn().Err(call.Err).Str("title", title).Msg("notification delivery failed")
		}
	}()
}

// Close releases the session bus connection.
func (n *DesktopNotifier) Close() error {
	return n.conn.Close()
}
