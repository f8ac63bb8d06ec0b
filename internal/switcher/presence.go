package switcher

import (
	"github.com/rs/zerolog"
)

// Presence is the outcome of one headset presence check. Unknown means the
// check could not be made (provider not ready, or a query failed); it is
// deliberately distinct from Absent so a telemetry hiccup never reads as
// "headset powered off".
type Presence int32

const (
	PresenceUnknown Presence = iota
	PresenceAbsent
	PresencePresent
)

func (p Presence) String() string {
	switch p {
	case PresencePresent:
		return "present"
	case PresenceAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// PresenceDetector evaluates whether a peripheral of the configured device
// class is currently powered and paired.
type PresenceDetector struct {
	gate        *ProviderGate
	deviceClass string
	logger      zerolog.Logger
}

// NewPresenceDetector creates a detector matching the given device class.
func NewPresenceDetector(gate *ProviderGate, deviceClass string, logger zerolog.Logger) *PresenceDetector {
	return &PresenceDetector{
		gate:        gate,
		deviceClass: deviceClass,
		logger:      logger.With().Str("component", "presence-detector").Logger(),
	}
}

// Check performs one presence evaluation. It never raises and never blocks
// past the underlying provider call. Both a not-ready gate and a failed
// query come back as PresenceUnknown; the failure already invalidated the
// gate, so the next tick re-initializes before querying again.
func (d *PresenceDetector) Check() Presence {
	if !d.gate.EnsureReady() {
		// Skipped check, not a confirmed "headset off".
		d.logger.Debug().Msg("telemetry not ready, skipping presence check")
		return PresenceUnknown
	}

	devices, err := d.gate.Devices()
	if err != nil {
		presenceCheckFailuresTotal.Inc()
		d.logger.Warn().Err(err).Msg("presence check failed, provider will re-initialize")
		return PresenceUnknown
	}

	for _, dev := range devices {
		if dev.Class == d.deviceClass {
			d.logger.Debug().Str("device", dev.Name).Msg("headset detected")
			return PresencePresent
		}
	}
	return PresenceAbsent
}
