package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nfvmesh/sfcd/common/clients"
	"github.com/nfvmesh/sfcd/common/config"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChains struct {
	chains   map[uuid.UUID]*models.Chain
	autoBoot []*models.Chain
}

func (f *fakeChains) GetByID(ctx context.Context, id uuid.UUID) (*models.Chain, error) {
	chain, ok := f.chains[id]
	if !ok {
		return nil, fault.NotFound("chain %s not found", id)
	}
	return chain, nil
}

func (f *fakeChains) ListAutoBoot(ctx context.Context) ([]*models.Chain, error) {
	return f.autoBoot, nil
}

type fakeSteps struct {
	steps map[uuid.UUID][]*models.ChainStep
}

func (f *fakeSteps) ListByChain(ctx context.Context, chainID uuid.UUID) ([]*models.ChainStep, error) {
	return f.steps[chainID], nil
}

type fakeTemplates struct {
	templates map[uuid.UUID]*models.ApplianceTemplate
	byCat     map[string][]*models.ApplianceTemplate
}

func (f *fakeTemplates) GetByID(ctx context.Context, id uuid.UUID) (*models.ApplianceTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, fault.NotFound("appliance template %s not found", id)
	}
	return tpl, nil
}

func (f *fakeTemplates) ListByCategory(ctx context.Context, tenantID, category string) ([]*models.ApplianceTemplate, error) {
	return f.byCat[category], nil
}

// fakeInstances records step instance writes in call order
type fakeInstances struct {
	mu      sync.Mutex
	created []*models.StepInstance
	tagged  map[uuid.UUID][2]int
	tagErr  error
}

func (f *fakeInstances) Create(ctx context.Context, inst *models.StepInstance, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, inst)
	return nil
}

func (f *fakeInstances) Tag(ctx context.Context, id uuid.UUID, vlanIn, vlanOut int, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagErr != nil {
		return f.tagErr
	}
	if f.tagged == nil {
		f.tagged = make(map[uuid.UUID][2]int)
	}
	f.tagged[id] = [2]int{vlanIn, vlanOut}
	return nil
}

type fakeVlans struct {
	mu       sync.Mutex
	next     int
	released []int
}

func (f *fakeVlans) Allocate(ctx context.Context, tenantID, networkID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == 0 {
		f.next = 100
	}
	in := f.next
	f.next += 2
	return in, in + 1, nil
}

func (f *fakeVlans) Release(networkID string, tags ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, tags...)
}

// fakeCompute scripts per-instance state sequences
type fakeCompute struct {
	mu       sync.Mutex
	requests []clients.CreateInstanceRequest
	states   map[string][]clients.InstanceState
	serial   int
	failSeq  int // fail CreateInstance for the Nth call (1-based), 0 = never
}

func (f *fakeCompute) CreateInstance(ctx context.Context, req clients.CreateInstanceRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serial++
	if f.failSeq == f.serial {
		return "", errors.New("compute api unavailable")
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("vm-%d", f.serial), nil
}

func (f *fakeCompute) GetInstanceState(ctx context.Context, instanceID string) (clients.InstanceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.states[instanceID]
	if len(seq) == 0 {
		return clients.StateActive, nil
	}
	state := seq[0]
	if len(seq) > 1 {
		f.states[instanceID] = seq[1:]
	}
	return state, nil
}

type launchFixture struct {
	launcher  *Launcher
	chainID   uuid.UUID
	chains    *fakeChains
	steps     *fakeSteps
	instances *fakeInstances
	vlans     *fakeVlans
	compute   *fakeCompute
}

func newLaunchFixture(t *testing.T, stepCount int) *launchFixture {
	t.Helper()

	chainID := uuid.New()
	chain := &models.Chain{ID: chainID, TenantID: "tenant-a", Name: "edge-chain"}

	templates := &fakeTemplates{
		templates: make(map[uuid.UUID]*models.ApplianceTemplate),
		byCat:     make(map[string][]*models.ApplianceTemplate),
	}
	steps := make([]*models.ChainStep, 0, stepCount)
	for i := 1; i <= stepCount; i++ {
		tpl := &models.ApplianceTemplate{
			ID:       uuid.New(),
			TenantID: "tenant-a",
			Category: fmt.Sprintf("cat-%d", i),
			Vendor:   "acme",
			ImageRef: "img-1",
			Flavor:   "m1.small",
		}
		templates.templates[tpl.ID] = tpl
		templates.byCat[tpl.Category] = []*models.ApplianceTemplate{tpl}
		steps = append(steps, &models.ChainStep{
			ID:                  uuid.New(),
			ChainID:             chainID,
			ApplianceTemplateID: tpl.ID,
			SequenceNumber:      i,
			TenantID:            "tenant-a",
		})
	}

	f := &launchFixture{
		chainID:   chainID,
		chains:    &fakeChains{chains: map[uuid.UUID]*models.Chain{chainID: chain}},
		steps:     &fakeSteps{steps: map[uuid.UUID][]*models.ChainStep{chainID: steps}},
		instances: &fakeInstances{},
		vlans:     &fakeVlans{},
		compute:   &fakeCompute{states: make(map[string][]clients.InstanceState)},
	}

	f.launcher = NewLauncher(
		f.chains, f.steps, templates, f.instances, f.vlans, f.compute,
		NewSelector(),
		config.LaunchConfig{PollInterval: time.Millisecond, PollTimeout: 50 * time.Millisecond},
		testLogger(),
	)
	return f
}

func launchReq() LaunchRequest {
	return LaunchRequest{
		DefaultNetwork: NetworkAttachment{Inbound: "net-in", Outbound: "net-out"},
		Actor:          "operator",
	}
}

func TestLaunchProvisionsStepsInOrder(t *testing.T) {
	f := newLaunchFixture(t, 3)

	result, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.PartialFailure)
	require.Len(t, result.Steps, 3)
	require.Len(t, f.instances.created, 3)

	for i, outcome := range result.Steps {
		assert.Equal(t, i+1, outcome.SequenceNumber)
		assert.Equal(t, string(models.StatusTagged), outcome.Status)
		assert.Equal(t, fmt.Sprintf("vm-%d", i+1), outcome.ExternalInstanceID)
	}

	// Instances were created in sequence order, one per step.
	for i, inst := range f.instances.created {
		assert.Equal(t, fmt.Sprintf("vm-%d", i+1), inst.ExternalInstanceID)
		assert.Equal(t, models.StatusActive, inst.Status)
		assert.Equal(t, "net-in", inst.NetworkID)
	}

	// Every instance got tagged with its allocated pair.
	assert.Len(t, f.instances.tagged, 3)
}

func TestLaunchSetsManagedMetadata(t *testing.T) {
	f := newLaunchFixture(t, 1)

	_, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.NoError(t, err)

	require.Len(t, f.compute.requests, 1)
	req := f.compute.requests[0]
	assert.Equal(t, "true", req.Metadata[models.ManagedTagKey])
	assert.NotEmpty(t, req.Metadata["chain_id"])
	assert.NotEmpty(t, req.Metadata["chain_step_id"])
	require.Len(t, req.NetworkInterfaces, 2)
	assert.Equal(t, "net-in", req.NetworkInterfaces[0].NetworkID)
	assert.Equal(t, "net-out", req.NetworkInterfaces[1].NetworkID)
}

func TestLaunchPollTimeout(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.compute.states["vm-1"] = []clients.InstanceState{clients.StateBuilding}

	result, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindLaunchTimeout))

	require.NotNil(t, result)
	assert.True(t, result.PartialFailure)
	require.NotNil(t, result.FailedSequence)
	assert.Equal(t, 1, *result.FailedSequence)
	assert.Empty(t, f.instances.created)
}

func TestLaunchInstanceError(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.compute.states["vm-1"] = []clients.InstanceState{clients.StateBuilding, clients.StateError}

	result, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindInstanceError))
	assert.True(t, result.PartialFailure)
}

func TestLaunchPartialFailureKeepsEarlierSteps(t *testing.T) {
	f := newLaunchFixture(t, 3)
	f.compute.failSeq = 2 // step 2's CreateInstance fails

	result, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, result.PartialFailure)
	require.NotNil(t, result.FailedSequence)
	assert.Equal(t, 2, *result.FailedSequence)

	// Step 1 stays provisioned; step 3 never started.
	require.Len(t, result.Steps, 2)
	assert.Equal(t, string(models.StatusTagged), result.Steps[0].Status)
	assert.Equal(t, "failed", result.Steps[1].Status)
	assert.Len(t, f.instances.created, 1)
}

func TestLaunchCancelledBeforeNextStep(t *testing.T) {
	f := newLaunchFixture(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.launcher.Launch(ctx, f.chainID, launchReq())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindCancelled))
	assert.True(t, result.PartialFailure)
	assert.Empty(t, f.instances.created)
}

func TestLaunchTagFailureReleasesVlans(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.instances.tagErr = errors.New("tx failed")

	result, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.Error(t, err)
	assert.True(t, result.PartialFailure)
	assert.Equal(t, []int{100, 101}, f.vlans.released)
}

func TestLaunchUnknownChain(t *testing.T) {
	f := newLaunchFixture(t, 1)

	result, err := f.launcher.Launch(context.Background(), uuid.New(), launchReq())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
	assert.Nil(t, result)
}

func TestLaunchChainWithoutSteps(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.steps.steps[f.chainID] = nil

	_, err := f.launcher.Launch(context.Background(), f.chainID, launchReq())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestLaunchNetworkMappingOverridesDefault(t *testing.T) {
	f := newLaunchFixture(t, 2)

	req := launchReq()
	req.NetworkMapping = map[int]NetworkAttachment{
		2: {Inbound: "dmz", Outbound: "core"},
	}

	_, err := f.launcher.Launch(context.Background(), f.chainID, req)
	require.NoError(t, err)

	require.Len(t, f.compute.requests, 2)
	assert.Equal(t, "net-in", f.compute.requests[0].NetworkInterfaces[0].NetworkID)
	assert.Equal(t, "dmz", f.compute.requests[1].NetworkInterfaces[0].NetworkID)
}

func TestLaunchSelectionRule(t *testing.T) {
	f := newLaunchFixture(t, 1)

	// Add a second candidate in the same category; the rule prefers it.
	step := f.steps.steps[f.chainID][0]
	launcher := f.launcher
	pinned, err := launcher.templates.GetByID(context.Background(), step.ApplianceTemplateID)
	require.NoError(t, err)

	alt := &models.ApplianceTemplate{
		ID:       uuid.New(),
		TenantID: "tenant-a",
		Category: pinned.Category,
		Vendor:   "globex",
		ImageRef: "img-2",
		Flavor:   "m1.large",
	}
	tpls := launcher.templates.(*fakeTemplates)
	tpls.templates[alt.ID] = alt
	tpls.byCat[pinned.Category] = append(tpls.byCat[pinned.Category], alt)

	req := launchReq()
	req.SelectionRule = `template.vendor == "globex"`

	_, err = launcher.Launch(context.Background(), f.chainID, req)
	require.NoError(t, err)

	require.Len(t, f.compute.requests, 1)
	assert.Equal(t, "img-2", f.compute.requests[0].ImageRef)
}

func TestBootAllSkipsWithoutBootNetwork(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.chains.autoBoot = []*models.Chain{f.chains.chains[f.chainID]}

	// BootNetwork is empty in the fixture config.
	f.launcher.BootAll(context.Background())
	assert.Empty(t, f.instances.created)
}

func TestBootAllLaunchesAutoBootChains(t *testing.T) {
	f := newLaunchFixture(t, 1)
	f.chains.autoBoot = []*models.Chain{f.chains.chains[f.chainID]}
	f.launcher.cfg.BootNetwork = "mgmt"

	f.launcher.BootAll(context.Background())

	require.Len(t, f.instances.created, 1)
	assert.Equal(t, "mgmt", f.instances.created[0].NetworkID)
}
