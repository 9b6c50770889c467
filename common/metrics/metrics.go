package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Control-plane metrics, registered on the default registry. The telemetry
// listener exposes them on the metrics port.
var (
	// LaunchesTotal counts chain launches by terminal outcome
	LaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sfcd",
		Name:      "launches_total",
		Help:      "Chain launches by outcome.",
	}, []string{"outcome"})

	// StepProvisionDuration observes end-to-end provisioning time per chain step
	StepProvisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sfcd",
		Name:      "step_provision_duration_seconds",
		Help:      "Time from compute instance request to tagged step instance.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// VlanAllocationsTotal counts VLAN pair allocations by result
	VlanAllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sfcd",
		Name:      "vlan_allocations_total",
		Help:      "VLAN tag pair allocations by result.",
	}, []string{"result"})

	// DeltasPublishedTotal counts delta broadcasts by entity kind
	DeltasPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sfcd",
		Name:      "deltas_published_total",
		Help:      "Delta records broadcast to the fan-out topic.",
	}, []string{"entity_kind", "operation"})

	// PublishFailuresTotal counts fire-and-forget publish failures
	PublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sfcd",
		Name:      "publish_failures_total",
		Help:      "Broadcast publish failures (mutation still committed).",
	})

	// LifecycleEventsTotal counts reconciler events by disposition
	LifecycleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sfcd",
		Name:      "lifecycle_events_total",
		Help:      "Compute lifecycle events by disposition.",
	}, []string{"disposition"})
)
