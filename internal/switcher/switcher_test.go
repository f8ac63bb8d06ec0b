package switcher

// Shared fakes for the switcher package tests.

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

type fakeAudio struct {
	endpoints []Endpoint
	listErr   error
	listCalls int

	setCalls []Endpoint
	setErr   error
}

func (f *fakeAudio) ListEndpoints() ([]Endpoint, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.endpoints, nil
}

func (f *fakeAudio) SetDefaultEndpoint(ep Endpoint) error {
	f.setCalls = append(f.setCalls, ep)
	return f.setErr
}

type fakeProvider struct {
	initErr   error
	initCalls int

	devices    []DeviceRecord
	devicesErr error
	queryCalls int
}

func (f *fakeProvider) Initialize() error {
	f.initCalls++
	return f.initErr
}

func (f *fakeProvider) Devices() ([]DeviceRecord, error) {
	f.queryCalls++
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices, nil
}

func (f *fakeProvider) Close() error {
	return nil
}

// setPresent makes the provider report a headset (or not) on the next query.
func (f *fakeProvider) setPresent(present bool) {
	if present {
		f.devices = []DeviceRecord{{Name: "HS70 Wireless", Class: "audio-headset"}}
	} else {
		f.devices = nil
	}
}

type notification struct {
	title   string
	message string
}

type fakeNotifier struct {
	notifications []notification
}

func (f *fakeNotifier) Notify(title, message string) {
	f.notifications = append(f.notifications, notification{title: title, message: message})
}

var errBoom = errors.New("boom")

const (
	testSpeakersName = "Speakers (Realtek Audio)"
	testHeadsetName  = "HS70 Wireless Gaming Headset"
)

func testEndpoints() []Endpoint {
	return []Endpoint{
		{ID: "sink-0", Name: testSpeakersName},
		{ID: "sink-1", Name: testHeadsetName},
		{ID: "sink-2", Name: "HDMI Output"},
	}
}

// newTestRig wires a controller with fakes, using a discard logger.
func newTestRig(audio *fakeAudio, provider *fakeProvider, notifier *fakeNotifier, cfg ControllerConfig) *Controller {
	logger := zerolog.Nop()
	resolver := NewEndpointResolver(audio, testSpeakersName, testHeadsetName, logger)
	gate := NewProviderGate(provider, logger)
	detector := NewPresenceDetector(gate, "audio-headset", logger)
	return NewController(audio, resolver, gate, detector, notifier, cfg, logger)
}

func defaultTestConfig() ControllerConfig {
	return ControllerConfig{
		SettlingInterval: 10 * time.Second,
		SteadyInterval:   2 * time.Second,
	}
}
