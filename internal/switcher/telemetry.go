package switcher

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DeviceRecord is one peripheral reported by the telemetry provider.
type DeviceRecord struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// TelemetryProvider is the narrow surface of the peripheral subsystem the
// switcher consumes. The provider only lists a device while it is actually
// powered and paired, which is what makes it usable as a power proxy.
type TelemetryProvider interface {
	// Initialize prepares the provider. Safe to call again after a failure.
	Initialize() error
	// Devices returns the peripherals currently known to the provider.
	Devices() ([]DeviceRecord, error)
	// Close releases the provider handle.
	Close() error
}

// ProviderState is the readiness of the telemetry provider as tracked by
// the gate.
type ProviderState int32

const (
	ProviderUninitialized ProviderState = iota
	ProviderReady
	ProviderFailed
)

func (s ProviderState) String() string {
	switch s {
	case ProviderReady:
		return "ready"
	case ProviderFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// ProviderGate wraps a TelemetryProvider with lazy, retriable
// initialization. Readiness is not sticky: any query failure drops the gate
// back to ProviderFailed so the next tick re-initializes, which covers a
// provider handle going stale mid-session (driver restart and the like).
type ProviderGate struct {
	provider TelemetryProvider
	logger   zerolog.Logger

	mu    sync.Mutex
	state ProviderState
}

// NewProviderGate wraps the given provider.
func NewProviderGate(provider TelemetryProvider, logger zerolog.Logger) *ProviderGate {
	return &ProviderGate{
		provider: provider,
		logger:   logger.With().Str("component", "telemetry-gate").Logger(),
	}
}

// Ready reports whether the provider is currently initialized.
func (g *ProviderGate) Ready() bool {
	return g.State() == ProviderReady
}

// State returns the current readiness state.
func (g *ProviderGate) State() ProviderState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// EnsureReady initializes the provider if it is not ready yet. It never
// raises: a failed attempt is logged, counted, and retried on whatever tick
// calls EnsureReady next. There is no retry cap and no backoff.
func (g *ProviderGate) EnsureReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == ProviderReady {
		return true
	}

	retrying := g.state == ProviderFailed
	if err := g.provider.Initialize(); err != nil {
		g.state = ProviderFailed
		telemetryInitFailuresTotal.Inc()
		g.logger.Warn().Err(err).Bool("retry", retrying).Msg("telemetry provider initialization failed")
		return false
	}

	g.state = ProviderReady
	g.logger.Info().Bool("retry", retrying).Msg("telemetry provider ready")
	return true
}

// Devices queries the provider's current device list. A query failure
// invalidates the gate so the next EnsureReady re-initializes.
func (g *ProviderGate) Devices() ([]DeviceRecord, error) {
	devices, err := g.provider.Devices()
	if err != nil {
		g.invalidate(err)
		return nil, fmt.Errorf("query telemetry devices: %w", err)
	}
	return devices, nil
}

// invalidate marks a previously ready provider as stale.
func (g *ProviderGate) invalidate(cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != ProviderFailed {
		g.logger.Warn().Err(cause).Str("previous_state", g.state.String()).Msg("telemetry provider invalidated")
	}
	g.state = ProviderFailed
}
