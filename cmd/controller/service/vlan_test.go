package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScanner serves held tags per network from memory
type fakeScanner struct {
	mu   sync.Mutex
	held map[string][]int
	err  error
}

func (f *fakeScanner) HeldVlans(ctx context.Context, networkID string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]int(nil), f.held[networkID]...), nil
}

func (f *fakeScanner) commit(networkID string, tags ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[networkID] = append(f.held[networkID], tags...)
}

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func TestAllocateLowestTwoFree(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{"net-1": {10, 11}}}
	a := NewVlanAllocator(scanner, 10, 13, testLogger())

	in, out, err := a.Allocate(context.Background(), "tenant-a", "net-1")
	require.NoError(t, err)
	assert.Equal(t, 12, in)
	assert.Equal(t, 13, out)
}

func TestAllocateExhausted(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{"net-1": {10, 11, 12}}}
	a := NewVlanAllocator(scanner, 10, 13, testLogger())

	_, _, err := a.Allocate(context.Background(), "tenant-a", "net-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindResourceExhausted))
}

func TestAllocateScannerError(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{}, err: errors.New("db down")}
	a := NewVlanAllocator(scanner, 10, 13, testLogger())

	_, _, err := a.Allocate(context.Background(), "tenant-a", "net-1")
	assert.Error(t, err)
}

func TestUncommittedTagsNotReissued(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{}}
	a := NewVlanAllocator(scanner, 100, 105, testLogger())
	ctx := context.Background()

	// First allocation picks (100, 101) but nothing is committed yet.
	in1, out1, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)
	assert.Equal(t, 100, in1)
	assert.Equal(t, 101, out1)

	// A second allocation on the same network must not see them as free.
	in2, out2, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)
	assert.Equal(t, 102, in2)
	assert.Equal(t, 103, out2)
}

func TestReleaseReturnsTagsToPool(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{}}
	a := NewVlanAllocator(scanner, 100, 101, testLogger())
	ctx := context.Background()

	in, out, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)

	// Pool of two is now fully reserved.
	_, _, err = a.Allocate(ctx, "tenant-a", "net-1")
	require.True(t, fault.IsKind(err, fault.KindResourceExhausted))

	a.Release("net-1", in, out)

	in2, out2, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)
	assert.Equal(t, 100, in2)
	assert.Equal(t, 101, out2)
}

func TestReservationDroppedOnceCommitted(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{}}
	a := NewVlanAllocator(scanner, 100, 103, testLogger())
	ctx := context.Background()

	in, out, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)

	// The launcher commits the pair; the scan is now ground truth.
	scanner.commit("net-1", in, out)

	in2, out2, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)
	assert.Equal(t, 102, in2)
	assert.Equal(t, 103, out2)
}

func TestConcurrentAllocationTwoFreeTags(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{"net-1": {10, 11}}}
	a := NewVlanAllocator(scanner, 10, 13, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := a.Allocate(ctx, "tenant-a", "net-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, exhausted int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case fault.IsKind(err, fault.KindResourceExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly one winner for the last free pair.
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)
}

func TestDistinctNetworksIndependent(t *testing.T) {
	scanner := &fakeScanner{held: map[string][]int{}}
	a := NewVlanAllocator(scanner, 200, 201, testLogger())
	ctx := context.Background()

	in1, out1, err := a.Allocate(ctx, "tenant-a", "net-1")
	require.NoError(t, err)
	in2, out2, err := a.Allocate(ctx, "tenant-a", "net-2")
	require.NoError(t, err)

	assert.Equal(t, in1, in2)
	assert.Equal(t, out1, out2)
}
