// Package audiodev implements the audio controller surface on top of
// PulseAudio/PipeWire via the native pactl command.
package audiodev

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/navrozashvili/autoheadset/internal/switcher"
)

// runner abstracts command execution so parsing and error paths are
// testable without a sound server.
type runner func(args ...string) ([]byte, error)

// PactlController lists sinks and changes the default sink through pactl.
// The same controller value is reused for every call; pactl itself carries
// no per-call state so there is nothing to re-create on failure.
type PactlController struct {
	run    runner
	logger zerolog.Logger
}

// NewPactlController creates a controller backed by the pactl binary.
func NewPactlController(logger zerolog.Logger) *PactlController {
	return &PactlController{
		run: func(args ...string) ([]byte, error) {
			cmd := exec.Command("pactl", args...)
			output, err := cmd.CombinedOutput()
			if err != nil {
				return nil, fmt.Errorf("pactl %v failed: %w (%s)", args, err, string(output))
			}
			return output, nil
		},
		logger: logger.With().Str("component", "pactl").Logger(),
	}
}

// pactlSink is the subset of `pactl --format=json list sinks` output the
// switcher needs.
type pactlSink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListEndpoints enumerates the currently available sinks. The sink name is
// the stable handle; the description is what users configure against.
func (c *PactlController) ListEndpoints() ([]switcher.Endpoint, error) {
	output, err := c.run("--format=json", "list", "sinks")
	if err != nil {
		return nil, err
	}
	return parseSinks(output)
}

// SetDefaultEndpoint routes system audio to the given sink.
func (c *PactlController) SetDefaultEndpoint(ep switcher.Endpoint) error {
	if ep.ID == "" {
		return fmt.Errorf("endpoint %q has no sink name", ep.Name)
	}
	if _, err := c.run("set-default-sink", ep.ID); err != nil {
		return err
	}
	c.logger.Debug().Str("sink", ep.ID).Msg("default sink set")
	return nil
}

func parseSinks(output []byte) ([]switcher.Endpoint, error) {
	var sinks []pactlSink
	if err := json.Unmarshal(output, &sinks); err != nil {
		return nil, fmt.Errorf("parse pactl sink list: %w", err)
	}

	endpoints := make([]switcher.Endpoint, 0, len(sinks))
	for _, s := range sinks {
		endpoints = append(endpoints, switcher.Endpoint{ID: s.Name, Name: s.Description})
	}
	return endpoints, nil
}
