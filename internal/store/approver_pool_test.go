package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corppay/be-approval-flows/internal/flow"
)

func seedPool() *ApproverPool {
	return NewApproverPool([]flow.Approver{
		{ID: "a1", Name: "Grace Nakato", Role: "Manager", Load: 2},
		{ID: "a2", Name: "Peter Okello", Role: "Manager", Load: 1},
		{ID: "a3", Name: "Irene Auma", Role: "Finance", Load: 3},
	})
}

func TestApproverPool_SnapshotPreservesOrder(t *testing.T) {
	p := seedPool()

	snap := p.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a1", snap[0].ID)
	assert.Equal(t, "a2", snap[1].ID)
	assert.Equal(t, "a3", snap[2].ID)
}

func TestApproverPool_SnapshotIsIsolated(t *testing.T) {
	p := seedPool()

	snap := p.Snapshot()
	snap[0].Load = 99

	got, err := p.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Load, "mutating a snapshot must not touch the pool")
}

func TestApproverPool_AdjustLoadClampsAtZero(t *testing.T) {
	p := seedPool()

	require.NoError(t, p.AdjustLoad("a2", -5))
	got, _ := p.Get("a2")
	assert.Equal(t, 0, got.Load)

	assert.ErrorIs(t, p.AdjustLoad("missing", 1), ErrApproverNotFound)
}

func TestApproverPool_SetOutOfOffice(t *testing.T) {
	p := seedPool()

	require.NoError(t, p.SetOutOfOffice("a3", true))
	got, _ := p.Get("a3")
	assert.True(t, got.OutOfOffice)

	require.NoError(t, p.SetOutOfOffice("a3", false))
	got, _ = p.Get("a3")
	assert.False(t, got.OutOfOffice)
}

func TestApproverPool_UpsertReplacesInPlace(t *testing.T) {
	p := seedPool()

	p.Upsert(flow.Approver{ID: "a2", Name: "Peter Okello", Role: "Manager", Load: 7})
	snap := p.Snapshot()
	require.Len(t, snap, 3, "replacing must not grow the pool")
	assert.Equal(t, 7, snap[1].Load)

	p.Upsert(flow.Approver{ID: "a4", Name: "Sarah Kintu", Role: "CFO"})
	assert.Len(t, p.Snapshot(), 4)
}

func TestApproverPool_ConcurrentLoadUpdates(t *testing.T) {
	p := seedPool()

	// Concurrent increments must not lose updates.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.AdjustLoad("a1", 1)
		}()
	}
	wg.Wait()

	got, err := p.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, 102, got.Load)
}
