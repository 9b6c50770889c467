package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nfvmesh/sfcd/common/bus"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/metrics"
	"github.com/nfvmesh/sfcd/common/models"
)

// LifecycleTopic is the compute platform's instance lifecycle event topic
const LifecycleTopic = "compute:lifecycle"

// AgentTopic returns the point-to-point topic for one compute host's agent
func AgentTopic(host string) string {
	return "sfc:agent:" + host
}

// instanceRemover is the write path for cleaning up step instances,
// satisfied by service.StepInstanceService.
type instanceRemover interface {
	ListByExternalID(ctx context.Context, externalID string) ([]*models.StepInstance, error)
	Delete(ctx context.Context, id uuid.UUID, actor string) (*models.StepInstance, error)
}

// LifecycleConsumer reconciles control-plane state against compute platform
// instance deletions. Cleanup is best-effort: every failure is logged and
// swallowed so one bad event never stalls the subscription.
type LifecycleConsumer struct {
	bus       bus.Bus
	instances instanceRemover
	log       *logger.Logger
}

// NewLifecycleConsumer creates a new lifecycle consumer
func NewLifecycleConsumer(b bus.Bus, instances instanceRemover, log *logger.Logger) *LifecycleConsumer {
	return &LifecycleConsumer{
		bus:       b,
		instances: instances,
		log:       log,
	}
}

// Start subscribes to the lifecycle topic and blocks until ctx is cancelled
func (c *LifecycleConsumer) Start(ctx context.Context) error {
	c.log.Info("starting lifecycle consumer", "topic", LifecycleTopic)
	return c.bus.Subscribe(ctx, LifecycleTopic, c.handleEvent)
}

// handleEvent processes one lifecycle event. Only deletions of instances
// carrying the managed tag are acted on; everything else is ignored.
func (c *LifecycleConsumer) handleEvent(ctx context.Context, topic string, payload []byte) error {
	var event models.LifecycleEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Error("failed to decode lifecycle event", "error", err)
		metrics.LifecycleEventsTotal.WithLabelValues("malformed").Inc()
		return nil
	}

	if !event.IsManagedDelete() {
		metrics.LifecycleEventsTotal.WithLabelValues("ignored").Inc()
		return nil
	}

	log := c.log.WithTenant(event.TenantID)
	log.Info("handling managed instance deletion",
		"external_instance_id", event.InstanceID,
		"host", event.Host,
	)

	instances, err := c.instances.ListByExternalID(ctx, event.InstanceID)
	if err != nil {
		log.Error("failed to look up step instances", "external_instance_id", event.InstanceID, "error", err)
		metrics.LifecycleEventsTotal.WithLabelValues("error").Inc()
		return nil
	}
	if len(instances) == 0 {
		// Unknown to the control plane; nothing to reconcile.
		log.Debug("no step instances for deleted compute instance", "external_instance_id", event.InstanceID)
		metrics.LifecycleEventsTotal.WithLabelValues("unknown").Inc()
		return nil
	}

	removed := 0
	for _, inst := range instances {
		if _, err := c.instances.Delete(ctx, inst.ID, "reconciler"); err != nil {
			log.Error("failed to delete step instance",
				"instance_id", inst.ID,
				"external_instance_id", event.InstanceID,
				"error", err,
			)
			continue
		}
		removed++
		c.castCleanup(ctx, &event, inst)
	}

	log.Info("reconciled deleted instance",
		"external_instance_id", event.InstanceID,
		"removed", removed,
		"of", len(instances),
	)
	metrics.LifecycleEventsTotal.WithLabelValues("reconciled").Inc()

	return nil
}

// castCleanup notifies the agent on the event's host that one step instance
// is gone so it can tear down local enforcement state. Best-effort.
func (c *LifecycleConsumer) castCleanup(ctx context.Context, event *models.LifecycleEvent, inst *models.StepInstance) {
	msg := map[string]any{
		"method":               fmt.Sprintf("%s_%s", models.OpDelete, models.KindStepInstance),
		"instance_id":          inst.ID,
		"external_instance_id": inst.ExternalInstanceID,
		"network_id":           inst.NetworkID,
		"vlan_in":              inst.VlanIn,
		"vlan_out":             inst.VlanOut,
		"tenant_id":            inst.TenantID,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to encode cleanup cast", "error", err)
		return
	}

	if err := c.bus.Cast(ctx, AgentTopic(event.Host), payload); err != nil {
		c.log.Error("failed to cast cleanup", "host", event.Host, "error", err)
	}
}
