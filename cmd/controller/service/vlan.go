package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/nfvmesh/sfcd/common/metrics"
)

// vlanScanner reports the tags currently assigned on a network. The live
// scan over step instances is the ground truth; there is no separate
// reservation table.
type vlanScanner interface {
	HeldVlans(ctx context.Context, networkID string) ([]int, error)
}

// VlanAllocator hands out VLAN tag pairs from the configured pool. The
// scan-then-pick is serialized per network: the network's mutex covers the
// scan, and tags handed out but not yet committed stay in an in-memory
// reserved set so a concurrent allocation on the same network cannot pick
// them. Unrelated networks allocate concurrently.
type VlanAllocator struct {
	scanner   vlanScanner
	poolStart int
	poolEnd   int
	log       *logger.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	reserved map[string]map[int]struct{}
}

// NewVlanAllocator creates an allocator over the closed pool [start, end]
func NewVlanAllocator(scanner vlanScanner, start, end int, log *logger.Logger) *VlanAllocator {
	return &VlanAllocator{
		scanner:   scanner,
		poolStart: start,
		poolEnd:   end,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
		reserved:  make(map[string]map[int]struct{}),
	}
}

// Allocate returns the two lowest free tags on the network as
// (vlan_in, vlan_out), or ResourceExhausted when fewer than two remain.
func (a *VlanAllocator) Allocate(ctx context.Context, tenantID, networkID string) (int, int, error) {
	lock := a.lockFor(networkID)
	lock.Lock()
	defer lock.Unlock()

	held, err := a.scanner.HeldVlans(ctx, networkID)
	if err != nil {
		metrics.VlanAllocationsTotal.WithLabelValues("error").Inc()
		return 0, 0, fmt.Errorf("scan held vlans on %s: %w", networkID, err)
	}

	taken := make(map[int]struct{}, len(held))
	for _, tag := range held {
		taken[tag] = struct{}{}
	}

	a.mu.Lock()
	pending := a.reserved[networkID]
	for tag := range pending {
		if _, committed := taken[tag]; committed {
			// Committed rows now cover this tag; drop the reservation.
			delete(pending, tag)
			continue
		}
		taken[tag] = struct{}{}
	}
	a.mu.Unlock()

	free := make([]int, 0, 2)
	for tag := a.poolStart; tag <= a.poolEnd && len(free) < 2; tag++ {
		if _, ok := taken[tag]; !ok {
			free = append(free, tag)
		}
	}

	if len(free) < 2 {
		metrics.VlanAllocationsTotal.WithLabelValues("exhausted").Inc()
		return 0, 0, fault.ResourceExhausted("vlan pool [%d, %d] exhausted on network %s", a.poolStart, a.poolEnd, networkID)
	}

	sort.Ints(free)
	a.reserve(networkID, free[0], free[1])

	metrics.VlanAllocationsTotal.WithLabelValues("ok").Inc()
	a.log.Info("allocated vlan pair",
		"tenant_id", tenantID,
		"network_id", networkID,
		"vlan_in", free[0],
		"vlan_out", free[1],
	)

	return free[0], free[1], nil
}

// Release returns tags to the pool when the caller failed to commit them
func (a *VlanAllocator) Release(networkID string, tags ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending := a.reserved[networkID]
	for _, tag := range tags {
		delete(pending, tag)
	}
}

func (a *VlanAllocator) reserve(networkID string, tags ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending := a.reserved[networkID]
	if pending == nil {
		pending = make(map[int]struct{})
		a.reserved[networkID] = pending
	}
	for _, tag := range tags {
		pending[tag] = struct{}{}
	}
}

func (a *VlanAllocator) lockFor(networkID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[networkID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[networkID] = lock
	}
	return lock
}
