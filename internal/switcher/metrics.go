package switcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheadset_ticks_total",
			Help: "Total number of control loop ticks executed",
		},
	)

	resolutionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheadset_resolution_failures_total",
			Help: "Total number of failed audio endpoint resolutions",
		},
	)

	telemetryInitFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheadset_telemetry_init_failures_total",
			Help: "Total number of failed telemetry provider initializations",
		},
	)

	presenceCheckFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheadset_presence_check_failures_total",
			Help: "Total number of presence checks that failed mid-query",
		},
	)

	switchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoheadset_switches_total",
			Help: "Total number of default output switches, by target",
		},
		[]string{"target"},
	)

	routingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheadset_routing_failures_total",
			Help: "Total number of failed default output switches",
		},
	)

	headsetPresentGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoheadset_headset_present",
			Help: "Last observed headset presence (1 present, 0 absent, -1 unknown)",
		},
	)

	controllerStateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoheadset_controller_state",
			Help: "Current controller state (0 cold, 1 endpoints ready, 2 armed)",
		},
	)
)
