package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nfvmesh/sfcd/common/clients"
	"github.com/nfvmesh/sfcd/common/config"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/metrics"
	"github.com/nfvmesh/sfcd/common/models"
)

// Read-side dependencies of the launcher, satisfied by the repositories.
type chainReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chain, error)
	ListAutoBoot(ctx context.Context) ([]*models.Chain, error)
}

type stepReader interface {
	ListByChain(ctx context.Context, chainID uuid.UUID) ([]*models.ChainStep, error)
}

type templateReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ApplianceTemplate, error)
	ListByCategory(ctx context.Context, tenantID, category string) ([]*models.ApplianceTemplate, error)
}

// instanceWriter is the transactional write path for step instances,
// satisfied by StepInstanceService (entity + delta in one tx, then publish).
type instanceWriter interface {
	Create(ctx context.Context, inst *models.StepInstance, actor string) error
	Tag(ctx context.Context, id uuid.UUID, vlanIn, vlanOut int, actor string) error
}

// tagAllocator hands out VLAN pairs, satisfied by VlanAllocator
type tagAllocator interface {
	Allocate(ctx context.Context, tenantID, networkID string) (int, int, error)
	Release(networkID string, tags ...int)
}

// NetworkAttachment names the networks one step's instance attaches to
type NetworkAttachment struct {
	Inbound  string `json:"inbound"`
	Outbound string `json:"outbound"`
}

// LaunchRequest describes one chain launch. The network mapping is keyed by
// sequence number, with Default as the fallback for unmapped steps.
type LaunchRequest struct {
	NetworkMapping map[int]NetworkAttachment `json:"network_mapping"`
	DefaultNetwork NetworkAttachment         `json:"default_network"`
	SelectionRule  string                    `json:"selection_rule"`
	Actor          string                    `json:"actor"`
}

// attachmentFor resolves the networks for one step
func (r *LaunchRequest) attachmentFor(sequenceNumber int) NetworkAttachment {
	if att, ok := r.NetworkMapping[sequenceNumber]; ok {
		return att
	}
	return r.DefaultNetwork
}

// StepOutcome reports what happened to one chain step during a launch
type StepOutcome struct {
	SequenceNumber     int       `json:"sequence_number"`
	ChainStepID        uuid.UUID `json:"chain_step_id"`
	InstanceID         uuid.UUID `json:"instance_id,omitempty"`
	ExternalInstanceID string    `json:"external_instance_id,omitempty"`
	VlanIn             *int      `json:"vlan_in,omitempty"`
	VlanOut            *int      `json:"vlan_out,omitempty"`
	Status             string    `json:"status"`
	Error              string    `json:"error,omitempty"`
}

// LaunchResult is the outcome of one launch. When a step fails the launch
// stops there: earlier steps stay provisioned (no compensating
// deprovisioning) and PartialFailure tells the caller to decide what to do.
type LaunchResult struct {
	ChainID        uuid.UUID     `json:"chain_id"`
	Steps          []StepOutcome `json:"steps"`
	PartialFailure bool          `json:"partial_failure"`
	FailedSequence *int          `json:"failed_sequence,omitempty"`
}

// Launcher provisions the VMs realizing a chain. One launch is one
// sequential worker: steps run strictly in sequence order because later
// steps may depend on networks and tags chosen by earlier ones. Launches of
// different chains run concurrently as independent workers.
type Launcher struct {
	chains    chainReader
	steps     stepReader
	templates templateReader
	instances instanceWriter
	vlans     tagAllocator
	compute   clients.ComputeClient
	selector  *Selector
	cfg       config.LaunchConfig
	log       *logger.Logger
}

// NewLauncher creates a new chain launch orchestrator
func NewLauncher(chains chainReader, steps stepReader, templates templateReader, instances instanceWriter, vlans tagAllocator, compute clients.ComputeClient, selector *Selector, cfg config.LaunchConfig, log *logger.Logger) *Launcher {
	return &Launcher{
		chains:    chains,
		steps:     steps,
		templates: templates,
		instances: instances,
		vlans:     vlans,
		compute:   compute,
		selector:  selector,
		cfg:       cfg,
		log:       log,
	}
}

// Launch provisions every step of a chain in ascending sequence order.
// The returned LaunchResult is non-nil even on error so callers see which
// steps were already provisioned.
func (l *Launcher) Launch(ctx context.Context, chainID uuid.UUID, req LaunchRequest) (*LaunchResult, error) {
	chain, err := l.chains.GetByID(ctx, chainID)
	if err != nil {
		return nil, err
	}

	steps, err := l.steps.ListByChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fault.NotFound("chain %s has no steps", chainID)
	}

	log := l.log.WithChain(chainID.String()).WithTenant(chain.TenantID)
	log.Info("launching chain", "name", chain.Name, "steps", len(steps))

	result := &LaunchResult{ChainID: chainID}

	for _, step := range steps {
		// A cancelled launch stops before the next unprocessed step;
		// already-provisioned steps remain.
		if err := ctx.Err(); err != nil {
			return l.fail(result, step, fault.Wrap(fault.KindCancelled, err, "launch cancelled before step %d", step.SequenceNumber))
		}

		outcome, err := l.launchStep(ctx, chain, step, &req, log)
		result.Steps = append(result.Steps, outcome)
		if err != nil {
			return l.failed(result, step.SequenceNumber, err)
		}
	}

	metrics.LaunchesTotal.WithLabelValues("ok").Inc()
	log.Info("chain launch complete", "steps", len(result.Steps))

	return result, nil
}

// BootAll launches every auto-boot chain once, best-effort per chain.
// Called at controller startup.
func (l *Launcher) BootAll(ctx context.Context) {
	if l.cfg.BootNetwork == "" {
		l.log.Info("auto-boot skipped: no boot network configured")
		return
	}

	chains, err := l.chains.ListAutoBoot(ctx)
	if err != nil {
		l.log.Error("failed to list auto-boot chains", "error", err)
		return
	}

	for _, chain := range chains {
		req := LaunchRequest{
			DefaultNetwork: NetworkAttachment{Inbound: l.cfg.BootNetwork, Outbound: l.cfg.BootNetwork},
			Actor:          "auto-boot",
		}
		if _, err := l.Launch(ctx, chain.ID, req); err != nil {
			l.log.Error("auto-boot launch failed", "chain_id", chain.ID, "error", err)
		}
	}
}

func (l *Launcher) launchStep(ctx context.Context, chain *models.Chain, step *models.ChainStep, req *LaunchRequest, log *logger.Logger) (StepOutcome, error) {
	started := time.Now()
	outcome := StepOutcome{
		SequenceNumber: step.SequenceNumber,
		ChainStepID:    step.ID,
		Status:         "failed",
	}

	tpl, err := l.resolveTemplate(ctx, chain, step, req)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}

	att := req.attachmentFor(step.SequenceNumber)

	externalID, err := l.provision(ctx, chain, step, tpl, att)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}
	outcome.ExternalInstanceID = externalID

	if err := l.waitForActive(ctx, externalID); err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}

	inst := &models.StepInstance{
		ID:                 uuid.New(),
		ChainStepID:        step.ID,
		ExternalInstanceID: externalID,
		NetworkID:          att.Inbound,
		Status:             models.StatusActive,
		TenantID:           chain.TenantID,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	if err := l.instances.Create(ctx, inst, req.Actor); err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}
	outcome.InstanceID = inst.ID

	vlanIn, vlanOut, err := l.vlans.Allocate(ctx, chain.TenantID, att.Inbound)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}

	if err := l.instances.Tag(ctx, inst.ID, vlanIn, vlanOut, req.Actor); err != nil {
		l.vlans.Release(att.Inbound, vlanIn, vlanOut)
		outcome.Error = err.Error()
		return outcome, err
	}

	outcome.VlanIn = &vlanIn
	outcome.VlanOut = &vlanOut
	outcome.Status = string(models.StatusTagged)

	metrics.StepProvisionDuration.Observe(time.Since(started).Seconds())
	log.Info("step provisioned",
		"sequence_number", step.SequenceNumber,
		"external_instance_id", externalID,
		"vlan_in", vlanIn,
		"vlan_out", vlanOut,
	)

	return outcome, nil
}

// resolveTemplate returns the pinned template, or lets the selection rule
// pick among the templates of the pinned template's category.
func (l *Launcher) resolveTemplate(ctx context.Context, chain *models.Chain, step *models.ChainStep, req *LaunchRequest) (*models.ApplianceTemplate, error) {
	pinned, err := l.templates.GetByID(ctx, step.ApplianceTemplateID)
	if err != nil {
		return nil, err
	}

	if req.SelectionRule == "" {
		return pinned, nil
	}

	candidates, err := l.templates.ListByCategory(ctx, chain.TenantID, pinned.Category)
	if err != nil {
		return nil, err
	}

	networks := map[string]any{
		"inbound":  req.attachmentFor(step.SequenceNumber).Inbound,
		"outbound": req.attachmentFor(step.SequenceNumber).Outbound,
	}

	return l.selector.Select(req.SelectionRule, candidates, networks)
}

func (l *Launcher) provision(ctx context.Context, chain *models.Chain, step *models.ChainStep, tpl *models.ApplianceTemplate, att NetworkAttachment) (string, error) {
	interfaces := []clients.NetworkInterface{{NetworkID: att.Inbound}}
	if att.Outbound != "" && att.Outbound != att.Inbound {
		interfaces = append(interfaces, clients.NetworkInterface{NetworkID: att.Outbound})
	}

	return l.compute.CreateInstance(ctx, clients.CreateInstanceRequest{
		Name:              chain.Name + "-" + tpl.Category,
		ImageRef:          tpl.ImageRef,
		Flavor:            tpl.Flavor,
		SecurityGroups:    []string{tpl.SecurityGroupRef},
		NetworkInterfaces: interfaces,
		Metadata: map[string]string{
			models.ManagedTagKey: "true",
			"chain_id":           chain.ID.String(),
			"chain_step_id":      step.ID.String(),
		},
	})
}

// waitForActive polls the compute platform until the instance is active.
// The poll suspends only this launch worker. An error state is
// InstanceError, deadline expiry is LaunchTimeout, context cancellation is
// Cancelled.
func (l *Launcher) waitForActive(ctx context.Context, externalID string) error {
	check := func() (bool, error) {
		state, err := l.compute.GetInstanceState(ctx, externalID)
		if err != nil {
			return false, err
		}
		switch state {
		case clients.StateActive:
			return true, nil
		case clients.StateError:
			return false, fault.InstanceError("compute platform reported error state for instance %s", externalID)
		default:
			return false, nil
		}
	}

	if done, err := check(); done || err != nil {
		return err
	}

	deadline := time.NewTimer(l.cfg.PollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fault.Wrap(fault.KindCancelled, ctx.Err(), "launch cancelled while waiting for instance %s", externalID)
		case <-deadline.C:
			return fault.LaunchTimeout("instance %s not active after %s", externalID, l.cfg.PollTimeout)
		case <-ticker.C:
			if done, err := check(); done || err != nil {
				return err
			}
		}
	}
}

func (l *Launcher) fail(result *LaunchResult, step *models.ChainStep, err error) (*LaunchResult, error) {
	result.Steps = append(result.Steps, StepOutcome{
		SequenceNumber: step.SequenceNumber,
		ChainStepID:    step.ID,
		Status:         "failed",
		Error:          err.Error(),
	})
	return l.failed(result, step.SequenceNumber, err)
}

func (l *Launcher) failed(result *LaunchResult, sequenceNumber int, err error) (*LaunchResult, error) {
	result.PartialFailure = true
	seq := sequenceNumber
	result.FailedSequence = &seq
	metrics.LaunchesTotal.WithLabelValues("failed").Inc()
	l.log.Error("chain launch failed",
		"chain_id", result.ChainID,
		"sequence_number", sequenceNumber,
		"error", err,
	)
	return result, err
}
