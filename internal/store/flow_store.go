// Package store owns the two mutable pieces of state around the pure
// decision engine: the draft/published flow stores and the approver pool.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// minPublishReasonLen is the shortest acceptable publish reason.
const minPublishReasonLen = 10

var (
	ErrFlowNotFound = errors.New("flow not found")
	// ErrPublishReason rejects publishes without an adequate reason.
	ErrPublishReason = fmt.Errorf("publish reason must be at least %d characters", minPublishReasonLen)
	// ErrPublishAck rejects publishes without explicit acknowledgement.
	ErrPublishAck = errors.New("publish requires explicit acknowledgement")
)

// FlowStore holds drafts (edit path) and published snapshots (read path).
// Drafts are authoritative for the simulator preview; only published
// snapshots are authoritative for production decisions.
type FlowStore struct {
	mu        sync.RWMutex
	drafts    map[string]*flow.Flow
	published map[string]*flow.PublishedFlow
}

// NewFlowStore creates an empty store.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		drafts:    make(map[string]*flow.Flow),
		published: make(map[string]*flow.PublishedFlow),
	}
}

// Seed loads a flow set as drafts and immediately publishes each one, so a
// fresh installation can evaluate transactions out of the box.
func (s *FlowStore) Seed(flows []*flow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, f := range flows {
		s.drafts[f.ID] = f.Clone()
		s.published[f.ID] = &flow.PublishedFlow{
			Version:     uuid.NewString(),
			Reason:      "initial seed",
			PublishedAt: now,
			Flow:        f.Clone(),
		}
	}
}

// Create stores a new draft. A missing ID is generated.
func (s *FlowStore) Create(f *flow.Flow) *flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	for i := range f.Stages {
		if f.Stages[i].ID == "" {
			f.Stages[i].ID = uuid.NewString()
		}
	}
	s.drafts[f.ID] = f.Clone()
	return f.Clone()
}

// GetDraft returns a copy of a draft flow.
func (s *FlowStore) GetDraft(id string) (*flow.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.drafts[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f.Clone(), nil
}

// ListDrafts returns copies of all drafts ordered by name.
func (s *FlowStore) ListDrafts() []*flow.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flows := make([]*flow.Flow, 0, len(s.drafts))
	for _, f := range s.drafts {
		flows = append(flows, f.Clone())
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].Name < flows[j].Name })
	return flows
}

// Update replaces an existing draft.
func (s *FlowStore) Update(f *flow.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[f.ID]; !ok {
		return ErrFlowNotFound
	}
	for i := range f.Stages {
		if f.Stages[i].ID == "" {
			f.Stages[i].ID = uuid.NewString()
		}
	}
	s.drafts[f.ID] = f.Clone()
	return nil
}

// Delete removes a draft. The published snapshot, if any, stays live until
// explicitly retired.
func (s *FlowStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrFlowNotFound
	}
	delete(s.drafts, id)
	return nil
}

// Publish performs the atomic snapshot-and-swap from draft to published.
// The precondition checks (reason length, acknowledgement) belong to the
// publish workflow, not the decision engine. An in-flight evaluation holding
// the previous snapshot pointer is unaffected by the swap.
func (s *FlowStore) Publish(id, reason string, acknowledge bool) (*flow.PublishedFlow, error) {
	if len(reason) < minPublishReasonLen {
		return nil, ErrPublishReason
	}
	if !acknowledge {
		return nil, ErrPublishAck
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil, ErrFlowNotFound
	}

	snapshot := &flow.PublishedFlow{
		Version:     uuid.NewString(),
		Reason:      reason,
		PublishedAt: time.Now().UTC(),
		Flow:        draft.Clone(),
	}
	s.published[id] = snapshot
	return snapshot, nil
}

// GetPublished returns the live snapshot for a flow. The returned value must
// be treated as immutable.
func (s *FlowStore) GetPublished(id string) (*flow.PublishedFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.published[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return p, nil
}

// ListPublished returns all live snapshots ordered by flow name.
func (s *FlowStore) ListPublished() []*flow.PublishedFlow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := make([]*flow.PublishedFlow, 0, len(s.published))
	for _, p := range s.published {
		snaps = append(snaps, p)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Flow.Name < snaps[j].Flow.Name })
	return snaps
}

// ApplyTemplate merges a generated flow pack into the draft store. Replace
// drops every existing draft first; append unions. Generated flows are not
// auto-published.
func (s *FlowStore) ApplyTemplate(flows []*flow.Flow, mode flow.ApplyMode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == flow.ApplyReplace {
		s.drafts = make(map[string]*flow.Flow)
	}
	for _, f := range flows {
		s.drafts[f.ID] = f.Clone()
	}
	return len(flows)
}
