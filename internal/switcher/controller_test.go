package switcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPresenceDebounce verifies that only transitions (and the very first
// observation) trigger a switch, and that the first observation stays
// silent.
func TestPresenceDebounce(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	observations := []bool{true, true, true, false, false, true}
	for _, present := range observations {
		provider.setPresent(present)
		ctrl.Tick()
	}

	// First observation, true->false, false->true.
	require.Len(t, audio.setCalls, 3)
	assert.Equal(t, testHeadsetName, audio.setCalls[0].Name)
	assert.Equal(t, testSpeakersName, audio.setCalls[1].Name)
	assert.Equal(t, testHeadsetName, audio.setCalls[2].Name)

	// Notification suppressed only on the very first observation.
	assert.Len(t, notifier.notifications, 2)
}

// TestResolutionGating verifies that nothing downstream runs while endpoint
// resolution keeps failing.
func TestResolutionGating(t *testing.T) {
	audio := &fakeAudio{listErr: errBoom}
	provider := &fakeProvider{devices: []DeviceRecord{{Name: "hs", Class: "audio-headset"}}}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	for i := 0; i < 5; i++ {
		ctrl.Tick()
	}

	assert.Equal(t, 5, audio.listCalls, "resolution is retried every tick")
	assert.Zero(t, provider.initCalls, "telemetry must not be touched before endpoints resolve")
	assert.Zero(t, provider.queryCalls)
	assert.Empty(t, audio.setCalls)
	assert.Equal(t, "cold", ctrl.Status().State)
}

// TestTelemetryGating verifies that presence queries wait for the gate,
// that a failed init is attempted exactly once per tick, and that the tick
// on which initialization first succeeds performs the first query.
func TestTelemetryGating(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{initErr: errBoom}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	for i := 0; i < 3; i++ {
		ctrl.Tick()
	}
	assert.Equal(t, 3, provider.initCalls, "one init attempt per tick")
	assert.Zero(t, provider.queryCalls, "no presence query while the gate is down")
	assert.Equal(t, "endpoints-ready", ctrl.Status().State)

	provider.initErr = nil
	provider.setPresent(false)
	ctrl.Tick()

	assert.Equal(t, 4, provider.initCalls)
	assert.Equal(t, 1, provider.queryCalls, "first successful init tick performs the first query")
	assert.Equal(t, "armed", ctrl.Status().State)
}

// TestCadenceCollapse verifies the one-way settling-to-steady interval
// transition on the first successful presence observation.
func TestCadenceCollapse(t *testing.T) {
	cfg := defaultTestConfig()
	audio := &fakeAudio{endpoints: testEndpoints(), listErr: errBoom}
	provider := &fakeProvider{initErr: errBoom}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, cfg)

	ctrl.Tick() // resolution fails
	assert.Equal(t, cfg.SettlingInterval, ctrl.Interval())

	audio.listErr = nil
	ctrl.Tick() // resolves, gate init fails
	assert.Equal(t, cfg.SettlingInterval, ctrl.Interval())

	provider.initErr = nil
	provider.devicesErr = errBoom
	ctrl.Tick() // armed, but the query fails: no observation, no collapse
	assert.Equal(t, cfg.SettlingInterval, ctrl.Interval())

	provider.devicesErr = nil
	provider.setPresent(true)
	ctrl.Tick() // first real observation
	assert.Equal(t, "armed", ctrl.Status().State)
	assert.Equal(t, cfg.SteadyInterval, ctrl.Interval())

	// Never reverts, not even through later failures.
	provider.devicesErr = errBoom
	ctrl.Tick()
	ctrl.Tick()
	assert.Equal(t, cfg.SteadyInterval, ctrl.Interval())
}

// TestSelfHealing verifies that a query failure after readiness forces a
// re-initialization on the next tick instead of querying a stale handle.
func TestSelfHealing(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	provider.setPresent(true)
	ctrl.Tick()
	require.Equal(t, 1, provider.initCalls)
	require.Equal(t, 1, provider.queryCalls)

	provider.devicesErr = errBoom
	ctrl.Tick()
	assert.Equal(t, 2, provider.queryCalls)
	assert.Equal(t, 1, provider.initCalls, "invalidation happens on the failing tick, not a re-init")

	provider.devicesErr = nil
	ctrl.Tick()
	assert.Equal(t, 2, provider.initCalls, "next tick re-initializes before querying")
	assert.Equal(t, 3, provider.queryCalls)
}

// TestRoutingIsNotDeduplicated verifies that issuing the same routing action
// twice produces two identical downstream calls and nothing else.
func TestRoutingIsNotDeduplicated(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	provider.setPresent(true)
	ctrl.Tick() // binds endpoints and routes once

	ctrl.mu.Lock()
	ctrl.route(PresencePresent, false)
	ctrl.route(PresencePresent, false)
	ctrl.mu.Unlock()

	require.Len(t, audio.setCalls, 3)
	assert.Equal(t, audio.setCalls[1], audio.setCalls[2])
	assert.Equal(t, testHeadsetName, audio.setCalls[2].Name)
}

// TestStartupScenario walks the reference startup sequence: speakers and
// headset resolvable, telemetry ready, presence absent, absent, present.
func TestStartupScenario(t *testing.T) {
	audio := &fakeAudio{endpoints: []Endpoint{
		{ID: "a", Name: testSpeakersName},
		{ID: "b", Name: testHeadsetName},
	}}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	provider.setPresent(false)
	ctrl.Tick()
	require.Len(t, audio.setCalls, 1, "first observation routes to speakers")
	assert.Equal(t, "a", audio.setCalls[0].ID)
	assert.Empty(t, notifier.notifications, "startup must not announce the initial state")

	ctrl.Tick()
	assert.Len(t, audio.setCalls, 1, "steady state must not re-route")

	provider.setPresent(true)
	ctrl.Tick()
	require.Len(t, audio.setCalls, 2)
	assert.Equal(t, "b", audio.setCalls[1].ID)
	require.Len(t, notifier.notifications, 1)
	assert.Contains(t, notifier.notifications[0].message, testHeadsetName)
}

// TestRoutingFailureIsNotRetried pins the at-most-one-attempt-per-transition
// behavior: a failed switch updates the remembered presence, so an unchanged
// observation on the next tick does not retry.
func TestRoutingFailureIsNotRetried(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints(), setErr: errBoom}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	provider.setPresent(true)
	ctrl.Tick()
	require.Len(t, audio.setCalls, 1)

	ctrl.Tick()
	assert.Len(t, audio.setCalls, 1, "same observation must not retry a failed switch")
	assert.Empty(t, notifier.notifications, "no success notification for a failed switch")

	// A real transition still gets its attempt.
	audio.setErr = nil
	provider.setPresent(false)
	ctrl.Tick()
	require.Len(t, audio.setCalls, 2)
	assert.Equal(t, testSpeakersName, audio.setCalls[1].Name)
}

// TestQueryFailureKeepsRememberedState verifies the failure boundary around
// presence evaluation: a failing query leaves the remembered presence
// untouched, does not route, and stays silent — an extended provider outage
// must not turn the steady cadence into a notification stream.
func TestQueryFailureKeepsRememberedState(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, defaultTestConfig())

	provider.setPresent(true)
	ctrl.Tick()
	require.Len(t, audio.setCalls, 1)
	require.Equal(t, "present", ctrl.Status().Presence)

	provider.devicesErr = errBoom
	for i := 0; i < 5; i++ {
		ctrl.Tick()
	}
	assert.Len(t, audio.setCalls, 1, "a failed check must not route")
	assert.Equal(t, "present", ctrl.Status().Presence, "remembered state untouched")
	assert.Empty(t, notifier.notifications, "query failures are not surfaced to the user")

	// Recovery: the headset is still present, so nothing re-routes.
	provider.devicesErr = nil
	ctrl.Tick()
	ctrl.Tick()
	assert.Len(t, audio.setCalls, 1)
	assert.Empty(t, notifier.notifications)
}

// TestStartStop exercises the real timer loop end to end.
func TestStartStop(t *testing.T) {
	audio := &fakeAudio{endpoints: testEndpoints()}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	ctrl := newTestRig(audio, provider, notifier, ControllerConfig{
		SettlingInterval: 5 * time.Millisecond,
		SteadyInterval:   1 * time.Millisecond,
	})
	provider.setPresent(true)

	require.NoError(t, ctrl.Start())
	assert.Error(t, ctrl.Start(), "double start must fail")

	// Give the loop a few ticks.
	deadline := time.After(2 * time.Second)
	for ctrl.Status().Ticks < 3 {
		select {
		case <-deadline:
			t.Fatal("controller never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ctrl.Stop()
	assert.False(t, ctrl.IsRunning())

	status := ctrl.Status()
	assert.Equal(t, "armed", status.State)
	assert.Equal(t, "present", status.Presence)
	require.NotEmpty(t, audio.setCalls)
	assert.Equal(t, testHeadsetName, audio.setCalls[0].Name)

	// Stop is idempotent.
	ctrl.Stop()
}
