package switcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers best-effort user-visible notifications. Implementations
// must never block the control loop on delivery.
type Notifier interface {
	Notify(title, message string)
}

// ControllerState is the implicit state of the switch controller.
type ControllerState int32

const (
	// StateCold means the audio endpoints are not resolved yet.
	StateCold ControllerState = iota
	// StateEndpointsReady means endpoints are bound but telemetry is not.
	StateEndpointsReady
	// StateArmed means both dependencies are up and presence is polled.
	StateArmed
)

func (s ControllerState) String() string {
	switch s {
	case StateEndpointsReady:
		return "endpoints-ready"
	case StateArmed:
		return "armed"
	default:
		return "cold"
	}
}

// ControllerConfig holds the controller tunables.
type ControllerConfig struct {
	SettlingInterval time.Duration
	SteadyInterval   time.Duration
}

// Controller drives the whole switching loop: it resolves endpoints, gates
// telemetry readiness, detects presence transitions and issues routing
// commands. All loop state lives on this struct; ticks are serialized, so a
// slow collaborator call simply delays the next tick instead of overlapping
// it.
type Controller struct {
	running int32

	audio    AudioController
	resolver *EndpointResolver
	gate     *ProviderGate
	detector *PresenceDetector
	notifier Notifier
	logger   zerolog.Logger
	cfg      ControllerConfig

	mu           sync.Mutex
	state        ControllerState
	binding      *EndpointBinding
	lastPresence Presence // PresenceUnknown until the first real observation
	interval     time.Duration
	collapsed    bool
	lastSwitch   time.Time
	ticks        uint64

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewController wires the switching loop together.
func NewController(audio AudioController, resolver *EndpointResolver, gate *ProviderGate, detector *PresenceDetector, notifier Notifier, cfg ControllerConfig, logger zerolog.Logger) *Controller {
	headsetPresentGauge.Set(presenceGaugeValue(PresenceUnknown))
	return &Controller{
		audio:    audio,
		resolver: resolver,
		gate:     gate,
		detector: detector,
		notifier: notifier,
		logger:   logger.With().Str("component", "switch-controller").Logger(),
		cfg:      cfg,
		state:    StateCold,
		interval: cfg.SettlingInterval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the polling loop.
func (c *Controller) Start() error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return fmt.Errorf("switch controller already running")
	}
	c.logger.Info().
		Dur("settling_interval", c.cfg.SettlingInterval).
		Dur("steady_interval", c.cfg.SteadyInterval).
		Msg("switch controller starting")
	go c.run()
	return nil
}

// Stop terminates the polling loop and waits for the in-flight tick, if
// any, to finish.
func (c *Controller) Stop() {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return
	}
	close(c.stopChan)
	<-c.doneChan
	c.logger.Info().Msg("switch controller stopped")
}

// IsRunning reports whether the loop is active.
func (c *Controller) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}

func (c *Controller) run() {
	defer close(c.doneChan)

	current := c.Interval()
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.Tick()
			if next := c.Interval(); next != current {
				current = next
				ticker.Reset(current)
			}
		}
	}
}

// Interval returns the currently active poll interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Tick runs one iteration of the control loop. Exported so tests can drive
// the state machine without a timer.
//
// A tick gives each unready stage one attempt and stops at the first
// failure, so initialization retries are staggered across ticks instead of
// looping inside one.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticks++
	ticksTotal.Inc()

	// Stage 1: endpoint binding.
	if c.binding == nil {
		binding, err := c.resolver.Resolve()
		if err != nil {
			resolutionFailuresTotal.Inc()
			c.logger.Debug().Err(err).Msg("endpoint resolution failed, will retry")
			return
		}
		c.binding = &binding
		c.setState(StateEndpointsReady)
		c.logger.Info().
			Str("speakers", binding.Speakers.Name).
			Str("headset", binding.Headset.Name).
			Msg("audio endpoints bound")
	}

	// Stage 2: telemetry gate. A failed init attempt consumes the rest of
	// the tick; at most one attempt is made per tick.
	if !c.gate.Ready() && !c.gate.EnsureReady() {
		return
	}

	// Stage 3: armed, poll presence.
	c.setState(StateArmed)
	presence := c.detector.Check()
	if presence == PresenceUnknown {
		// Could not observe; remembered state stays untouched so the next
		// tick retries from the last known-good value.
		return
	}

	if c.lastPresence == PresenceUnknown || presence != c.lastPresence {
		first := c.lastPresence == PresenceUnknown
		c.lastPresence = presence
		c.route(presence, first)
	}
	headsetPresentGauge.Set(presenceGaugeValue(presence))

	// Stage 4: collapse the cadence after the first successful observation.
	if !c.collapsed {
		c.collapsed = true
		c.interval = c.cfg.SteadyInterval
		c.logger.Info().Dur("interval", c.interval).Msg("steady state reached, poll cadence collapsed")
	}
}

// route issues the switch for the given presence value. The remembered
// presence has already been updated by the caller and is not rolled back on
// failure: each transition gets at most one switch attempt.
func (c *Controller) route(presence Presence, first bool) {
	var target Endpoint
	if presence == PresencePresent {
		target = c.binding.Headset
	} else {
		target = c.binding.Speakers
	}

	// Unreachable while the binding invariant holds, but endpoint handles
	// are not re-validated per tick.
	if target.ID == "" && target.Name == "" {
		c.logger.Warn().Str("presence", presence.String()).Msg("no endpoint bound for target, skipping switch")
		return
	}

	if err := c.audio.SetDefaultEndpoint(target); err != nil {
		routingFailuresTotal.Inc()
		c.logger.Error().Err(err).Str("target", target.Name).Msg("failed to switch default output")
		return
	}

	c.lastSwitch = time.Now()
	switchesTotal.WithLabelValues(target.Name).Inc()
	c.logger.Info().
		Str("target", target.Name).
		Str("presence", presence.String()).
		Bool("first_observation", first).
		Msg("default audio output switched")

	// Startup should not announce a "switch" for the initial state.
	if !first {
		c.notifier.Notify("Audio output switched", fmt.Sprintf("Default audio output is now %s", target.Name))
	}
}

func (c *Controller) setState(state ControllerState) {
	if c.state == state {
		return
	}
	c.logger.Debug().
		Str("previous_state", c.state.String()).
		Str("new_state", state.String()).
		Msg("controller state changed")
	c.state = state
	controllerStateGauge.Set(float64(state))
}

func presenceGaugeValue(p Presence) float64 {
	switch p {
	case PresencePresent:
		return 1
	case PresenceAbsent:
		return 0
	default:
		return -1
	}
}

// Snapshot is a point-in-time view of the controller for the status surface.
type Snapshot struct {
	State         string           `json:"state"`
	Presence      string           `json:"presence"`
	ProviderState string           `json:"provider_state"`
	Binding       *EndpointBinding `json:"binding,omitempty"`
	Interval      string           `json:"poll_interval"`
	LastSwitch    *time.Time       `json:"last_switch,omitempty"`
	Ticks         uint64           `json:"ticks"`
}

// Status returns a snapshot of the loop state.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:         c.state.String(),
		Presence:      c.lastPresence.String(),
		ProviderState: c.gate.State().String(),
		Binding:       c.binding,
		Interval:      c.interval.String(),
		Ticks:         c.ticks,
	}
	if !c.lastSwitch.IsZero() {
		t := c.lastSwitch
		snap.LastSwitch = &t
	}
	return snap
}
