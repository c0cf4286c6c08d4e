package client

import (
	"context"
	"sync"
)

// StaticEligibilityClient implements service.EligibilityClientInterface from
// an in-memory table.
//
// NOTE: The directory service does not yet expose a per-user auto-approval
// eligibility lookup. Until that RPC lands, eligibility is seeded statically
// (or taken verbatim from the scenario) and unknown users fall back to the
// configured default.
type StaticEligibilityClient struct {
	mu       sync.RWMutex
	eligible map[string]bool
	fallback bool
}

// NewStaticEligibilityClient creates a client with the given default for
// unknown users.
func NewStaticEligibilityClient(defaultEligible bool) *StaticEligibilityClient {
	return &StaticEligibilityClient{
		eligible: make(map[string]bool),
		fallback: defaultEligible,
	}
}

// SetEligible records a user's eligibility.
func (c *StaticEligibilityClient) SetEligible(userID string, eligible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eligible[userID] = eligible
}

// IsAutoApprovalEligible reports whether the user may use auto-approval.
func (c *StaticEligibilityClient) IsAutoApprovalEligible(ctx context.Context, userID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if eligible, ok := c.eligible[userID]; ok {
		return eligible, nil
	}
	return c.fallback, nil
}
