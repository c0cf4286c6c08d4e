package store

import (
	"errors"
	"sync"

	"github.com/corppay/be-approval-flows/internal/flow"
)

var ErrApproverNotFound = errors.New("approver not found")

// ApproverPool is the shared mutable approver state: load counters and
// out-of-office flags, written by the external workload tracker and read by
// evaluations. All mutations happen under the pool lock so concurrent
// round-robin / least-load selections never observe lost updates.
type ApproverPool struct {
	mu        sync.RWMutex
	approvers []*flow.Approver // pool order is significant for selection
	byID      map[string]*flow.Approver
}

// NewApproverPool creates a pool seeded with the given members, preserving
// their order.
func NewApproverPool(members []flow.Approver) *ApproverPool {
	p := &ApproverPool{byID: make(map[string]*flow.Approver, len(members))}
	for i := range members {
		a := members[i]
		p.approvers = append(p.approvers, &a)
		p.byID[a.ID] = p.approvers[len(p.approvers)-1]
	}
	return p
}

// Snapshot returns an immutable copy of the pool for one evaluation.
func (p *ApproverPool) Snapshot() []flow.Approver {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := make([]flow.Approver, len(p.approvers))
	for i, a := range p.approvers {
		snap[i] = *a
	}
	return snap
}

// Get returns a copy of one approver.
func (p *ApproverPool) Get(id string) (flow.Approver, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.byID[id]
	if !ok {
		return flow.Approver{}, ErrApproverNotFound
	}
	return *a, nil
}

// AdjustLoad atomically adds delta to an approver's open-task count,
// clamping at zero.
func (p *ApproverPool) AdjustLoad(id string, delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byID[id]
	if !ok {
		return ErrApproverNotFound
	}
	a.Load += delta
	if a.Load < 0 {
		a.Load = 0
	}
	return nil
}

// SetOutOfOffice flips an approver's out-of-office flag.
func (p *ApproverPool) SetOutOfOffice(id string, away bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byID[id]
	if !ok {
		return ErrApproverNotFound
	}
	a.OutOfOffice = away
	return nil
}

// Upsert inserts a new approver at the end of the pool order, or replaces an
// existing one in place.
func (p *ApproverPool) Upsert(a flow.Approver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.byID[a.ID]; ok {
		*existing = a
		return
	}
	p.approvers = append(p.approvers, &a)
	p.byID[a.ID] = p.approvers[len(p.approvers)-1]
}
