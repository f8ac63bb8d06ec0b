package switcher

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Endpoint is an OS-level audio render device, identified by a stable ID
// and the human-visible name the resolver matches against.
type Endpoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AudioController is the narrow surface of the OS audio subsystem the
// switcher consumes. The handle behind an implementation is created once
// and reused for the lifetime of the process.
type AudioController interface {
	// ListEndpoints returns all currently visible render endpoints.
	ListEndpoints() ([]Endpoint, error)
	// SetDefaultEndpoint routes system audio to the given endpoint.
	SetDefaultEndpoint(Endpoint) error
}

// ErrEndpointNotFound is returned by Resolve when either configured
// endpoint is missing from the current enumeration.
var ErrEndpointNotFound = errors.New("endpoint not found")

// EndpointBinding pairs the two resolved endpoints the controller routes
// between. A binding is always fully populated; a failed resolution never
// produces a partial one.
type EndpointBinding struct {
	Speakers Endpoint `json:"speakers"`
	Headset  Endpoint `json:"headset"`
}

// EndpointResolver binds the configured speaker and headset names to live
// endpoints.
type EndpointResolver struct {
	audio        AudioController
	speakersName string
	headsetName  string
	logger       zerolog.Logger
}

// NewEndpointResolver creates a resolver matching the two given names.
func NewEndpointResolver(audio AudioController, speakersName, headsetName string, logger zerolog.Logger) *EndpointResolver {
	return &EndpointResolver{
		audio:        audio,
		speakersName: speakersName,
		headsetName:  headsetName,
		logger:       logger.With().Str("component", "endpoint-resolver").Logger(),
	}
}

// Resolve enumerates the current render endpoints and binds both configured
// names. Resolution is all-or-nothing: if either name has no exact match the
// whole call fails with ErrEndpointNotFound and no partial binding escapes.
func (r *EndpointResolver) Resolve() (EndpointBinding, error) {
	endpoints, err := r.audio.ListEndpoints()
	if err != nil {
		return EndpointBinding{}, fmt.Errorf("enumerate endpoints: %w", err)
	}

	speakers, ok := findByName(endpoints, r.speakersName)
	if !ok {
		return EndpointBinding{}, fmt.Errorf("speakers %q: %w", r.speakersName, ErrEndpointNotFound)
	}
	headset, ok := findByName(endpoints, r.headsetName)
	if !ok {
		return EndpointBinding{}, fmt.Errorf("headset %q: %w", r.headsetName, ErrEndpointNotFound)
	}

	r.logger.Debug().
		Str("speakers_id", speakers.ID).
		Str("headset_id", headset.ID).
		Int("visible_endpoints", len(endpoints)).
		Msg("resolved audio endpoints")

	return EndpointBinding{Speakers: speakers, Headset: headset}, nil
}

// findByName returns the first endpoint whose name matches exactly.
func findByName(endpoints []Endpoint, name string) (Endpoint, bool) {
	for _, ep := range endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}
