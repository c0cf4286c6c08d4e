package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corppay/be-approval-flows/internal/flow"
	"github.com/corppay/be-approval-flows/internal/store"
)

type fakeEligibilityClient struct {
	eligible map[string]bool
	err      error
	calls    int
}

func (c *fakeEligibilityClient) IsAutoApprovalEligible(_ context.Context, userID string) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.eligible[userID], nil
}

func newTestService(t *testing.T, eligibility *fakeEligibilityClient) *ApprovalFlowService {
	t.Helper()

	flows := store.NewFlowStore()
	flows.Seed(flow.BaselineFlows())

	pool := store.NewApproverPool([]flow.Approver{
		{ID: "apr-001", Name: "Grace Nakato", Role: "Manager", Load: 2},
		{ID: "apr-002", Name: "Peter Okello", Role: "Manager", Load: 1},
		{ID: "apr-003", Name: "Irene Auma", Role: "Finance", Load: 3},
		{ID: "apr-005", Name: "Sarah Kintu", Role: "CFO"},
	})

	return NewApprovalFlowService(flows, pool, eligibility, nil, nil, zerolog.Nop())
}

func TestCreateFlow_RejectsInvalid(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.CreateFlow(context.Background(), &flow.Flow{
		ScopeType: flow.ScopeModule,
		Module:    "Procurement",
	})
	assert.ErrorIs(t, err, flow.ErrNameRequired)

	_, err = svc.CreateFlow(context.Background(), &flow.Flow{
		Name:      "Negative",
		ScopeType: flow.ScopeModule,
		Module:    "Procurement",
		Rule:      flow.Rule{RequireApprovalOverUGX: -5},
	})
	assert.ErrorIs(t, err, flow.ErrNegativeAmount)
}

func TestCreateFlow_RejectsBrokenCondition(t *testing.T) {
	svc := newTestService(t, nil)

	f := &flow.Flow{
		Name:      "Conditional",
		Enabled:   true,
		ScopeType: flow.ScopeUnscopedRequest,
		Rule:      flow.Rule{Condition: "amount >"},
	}
	_, err := svc.CreateFlow(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flow condition")

	f.Rule.Condition = "amount > 100000"
	created, err := svc.CreateFlow(context.Background(), f)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestSimulate_ResolvesEligibility(t *testing.T) {
	eligibility := &fakeEligibilityClient{eligible: map[string]bool{"u-1": true}}
	svc := newTestService(t, eligibility)

	// flow-procurement auto-approves eligible users at or under 200k.
	d, err := svc.Simulate(context.Background(), "flow-procurement", flow.Scenario{
		AmountUGX: 150_000,
		Module:    "Procurement",
		UserID:    "u-1",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusAutoApproved, d.Status)
	assert.Equal(t, 1, eligibility.calls)
}

func TestSimulate_ExplicitEligibilitySkipsLookup(t *testing.T) {
	eligibility := &fakeEligibilityClient{eligible: map[string]bool{"u-1": true}}
	svc := newTestService(t, eligibility)

	eligible := true
	_, err := svc.Simulate(context.Background(), "flow-procurement", flow.Scenario{
		AmountUGX: 150_000,
		Module:    "Procurement",
		UserID:    "u-1",
		Eligible:  &eligible,
	}, false)
	require.NoError(t, err)
	assert.Zero(t, eligibility.calls)
}

func TestSimulate_EligibilityErrorMeansNotEligible(t *testing.T) {
	eligibility := &fakeEligibilityClient{err: errors.New("directory unavailable")}
	svc := newTestService(t, eligibility)

	d, err := svc.Simulate(context.Background(), "flow-procurement", flow.Scenario{
		AmountUGX: 150_000,
		Module:    "Procurement",
		UserID:    "u-1",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusAutoApproved, d.Status,
		"150k is under the 500k approval trigger, so the flow still approves without stages")
	assert.Contains(t, d.Reasons, "blocked: user not eligible for auto-approval")
}

func TestSimulate_RejectsInvalidScenario(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Simulate(context.Background(), "flow-procurement", flow.Scenario{AmountUGX: -1}, false)
	assert.ErrorIs(t, err, flow.ErrNegativeAmount)
}

func TestSimulate_DraftVersusPublished(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	// Disable the draft; the published snapshot keeps the old copy.
	draft, err := svc.GetDraft(ctx, "flow-procurement")
	require.NoError(t, err)
	draft.Enabled = false
	require.NoError(t, svc.UpdateFlow(ctx, draft))

	sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement", AttachmentsProvided: true}

	published, err := svc.Simulate(ctx, "flow-procurement", sc, false)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusRequiresApproval, published.Status)

	fromDraft, err := svc.Simulate(ctx, "flow-procurement", sc, true)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusBlocked, fromDraft.Status)
	assert.Contains(t, fromDraft.Reasons, "flow disabled")
}

func TestSimulate_UnknownFlow(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Simulate(context.Background(), "flow-nope", flow.Scenario{}, false)
	assert.ErrorIs(t, err, store.ErrFlowNotFound)
}

func TestPublish_PassesPreconditionsThrough(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Publish(ctx, "flow-procurement", "short", true, "ops@corppay")
	assert.ErrorIs(t, err, store.ErrPublishReason)

	_, err = svc.Publish(ctx, "flow-procurement", "tighten procurement SLAs", false, "ops@corppay")
	assert.ErrorIs(t, err, store.ErrPublishAck)

	snapshot, err := svc.Publish(ctx, "flow-procurement", "tighten procurement SLAs", true, "ops@corppay")
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.Version)
}

func TestApplyTemplate(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	applied, err := svc.ApplyTemplate(ctx, flow.IndustryBalanced, flow.ApplyAppend)
	require.NoError(t, err)
	assert.Equal(t, len(flow.BaselineFlows()), applied)

	drafts, _ := svc.ListFlows(ctx)
	assert.Len(t, drafts, 2*len(flow.BaselineFlows()))

	_, err = svc.ApplyTemplate(ctx, flow.IndustryTag("aerospace"), flow.ApplyAppend)
	assert.Error(t, err)

	_, err = svc.ApplyTemplate(ctx, flow.IndustryBalanced, flow.ApplyMode("merge"))
	assert.Error(t, err)
}

func TestApproverPassthroughs(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AdjustApproverLoad(ctx, "apr-002", 3))
	require.NoError(t, svc.SetApproverOutOfOffice(ctx, "apr-001", true))

	var peter, grace flow.Approver
	for _, a := range svc.ListApprovers(ctx) {
		switch a.ID {
		case "apr-001":
			grace = a
		case "apr-002":
			peter = a
		}
	}
	assert.Equal(t, 4, peter.Load)
	assert.True(t, grace.OutOfOffice)

	assert.ErrorIs(t, svc.AdjustApproverLoad(ctx, "apr-404", 1), store.ErrApproverNotFound)
}
