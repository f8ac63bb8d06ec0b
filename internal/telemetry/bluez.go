// Package telemetry implements the peripheral telemetry surface on top of
// BlueZ over the system D-Bus. BlueZ only reports a device as connected
// while it is actually powered and paired, which is exactly the power proxy
// the switcher needs.
package telemetry

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/navrozashvili/autoheadset/internal/switcher"
)

const (
	bluezBusName      = "org.bluez"
	deviceIface       = "org.bluez.Device1"
	objectManagerCall = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// BlueZProvider reports connected Bluetooth peripherals. It satisfies the
// switcher's TelemetryProvider contract: Initialize is retriable, and a
// failed query tears the connection down so the next Initialize rebuilds it.
type BlueZProvider struct {
	logger zerolog.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewBlueZProvider creates an unconnected provider. The bus connection is
// established by Initialize.
func NewBlueZProvider(logger zerolog.Logger) *BlueZProvider {
	return &BlueZProvider{
		logger: logger.With().Str("component", "bluez").Logger(),
	}
}

// Initialize connects to the system bus and verifies BlueZ is present.
// Calling it while already connected is a no-op.
func (p *BlueZProvider) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return nil
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == bluezBusName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return fmt.Errorf("%s not found on system bus, is bluetooth.service running?", bluezBusName)
	}

	p.conn = conn
	p.logger.Debug().Msg("connected to BlueZ")
	return nil
}

// Devices returns the currently connected Bluetooth devices with their
// freedesktop icon name as the device class. A failed call drops the bus
// connection so the caller's re-initialization starts from scratch.
func (p *BlueZProvider) Devices() ([]switcher.DeviceRecord, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("bluez provider not initialized")
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object(bluezBusName, "/")
	if err := obj.Call(objectManagerCall, 0).Store(&objects); err != nil {
		p.teardown()
		return nil, fmt.Errorf("get managed objects: %w", err)
	}

	var records []switcher.DeviceRecord
	for _, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if !boolProp(props, "Connected") {
			continue
		}
		records = append(records, switcher.DeviceRecord{
			Name:  stringProp(props, "Name"),
			Class: stringProp(props, "Icon"),
		})
	}
	return records, nil
}

// Close releases the bus connection.
func (p *BlueZProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *BlueZProvider) teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func boolProp(props map[string]dbus.Variant, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, ok := v.Value().(bool)
	return ok && b
}

func stringProp(props map[string]dbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}
