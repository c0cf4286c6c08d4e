package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corppay/be-approval-flows/internal/flow"
)

func ugx(v int64) *int64 { return &v }

// procurementFlow builds the canonical three-stage module flow used across
// the tests. Stages are deliberately stored out of threshold order.
func procurementFlow() *flow.Flow {
	return &flow.Flow{
		ID:        "flow-test",
		Name:      "Procurement Spend",
		Enabled:   true,
		ScopeType: flow.ScopeModule,
		Module:    "Procurement",
		Rule: flow.Rule{
			AutoApprove:               flow.AutoApproveRule{Enabled: true, ThresholdUGX: 200_000, EligibleOnly: true},
			RequireApprovalOverUGX:    200_000,
			RequireAttachmentsOverUGX: ugx(2_000_000),
		},
		Stages: []flow.Stage{
			{
				ID: "stg-cfo", Name: "CFO Sign-off", MinAmountUGX: 5_000_000,
				Role: "CFO", Assignment: flow.AssignFirstAvailable, SLAHours: 72,
				Escalation: &flow.Escalation{Kind: flow.EscalateNextStage},
			},
			{
				ID: "stg-manager", Name: "Manager Review", MinAmountUGX: 200_000,
				Role: "Manager", Assignment: flow.AssignLeastLoad, SLAHours: 24,
				Escalation: &flow.Escalation{Kind: flow.EscalateNextStage},
			},
			{
				ID: "stg-finance", Name: "Finance Review", MinAmountUGX: 1_000_000,
				Role: "Finance", Assignment: flow.AssignRoundRobin, SLAHours: 48,
				Escalation: &flow.Escalation{Kind: flow.EscalateRole, Role: "CFO"},
			},
		},
	}
}

func testPool() []flow.Approver {
	return []flow.Approver{
		{ID: "a1", Name: "Grace Nakato", Role: "Manager", Load: 2},
		{ID: "a2", Name: "Peter Okello", Role: "Manager", Load: 1},
		{ID: "a3", Name: "Irene Auma", Role: "Finance", Load: 3},
		{ID: "a4", Name: "David Ssempa", Role: "Finance", Load: 1},
		{ID: "a5", Name: "Sarah Kintu", Role: "CFO", Load: 0},
	}
}

func eligible(v bool) *bool { return &v }

func TestEvaluate_AutoApprove(t *testing.T) {
	f := procurementFlow()
	sc := flow.Scenario{
		AmountUGX: 150_000,
		Module:    "Procurement",
		Eligible:  eligible(true),
	}

	d := Evaluate(f, sc, testPool())

	assert.Equal(t, flow.StatusAutoApproved, d.Status)
	assert.Contains(t, d.Reasons, reasonAutoApproved)
	assert.Empty(t, d.Stages, "auto-approved decisions never carry stages")
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	f := procurementFlow()
	sc := flow.Scenario{
		AmountUGX: 200_000, // exactly at the auto-approve threshold
		Module:    "Procurement",
		Eligible:  eligible(true),
	}

	d := Evaluate(f, sc, testPool())
	assert.Equal(t, flow.StatusAutoApproved, d.Status)
	assert.Contains(t, d.Reasons, reasonAutoApproved)
}

func TestEvaluate_NotEligibleFallsThrough(t *testing.T) {
	f := procurementFlow()

	// Under the auto-approve threshold but not eligible: the miss is
	// recorded, then the approval trigger resolves the evaluation.
	sc := flow.Scenario{AmountUGX: 150_000, Module: "Procurement", Eligible: eligible(false)}
	d := Evaluate(f, sc, testPool())

	assert.Equal(t, flow.StatusAutoApproved, d.Status)
	assert.Equal(t, []string{reasonNotEligible, reasonNoApprovalNeeded}, d.Reasons)
}

func TestEvaluate_StagedApproval(t *testing.T) {
	f := procurementFlow()
	sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement", Eligible: eligible(false)}

	d := Evaluate(f, sc, testPool())

	require.Equal(t, flow.StatusRequiresApproval, d.Status)
	require.Len(t, d.Stages, 1, "Finance and CFO stages must be absent")
	assert.Equal(t, "stg-manager", d.Stages[0].StageID)
	assert.Equal(t, "Manager", d.Stages[0].Role)
}

func TestEvaluate_OrderingInvariant(t *testing.T) {
	f := procurementFlow() // stages stored CFO, Manager, Finance
	sc := flow.Scenario{AmountUGX: 6_000_000, Module: "Procurement", AttachmentsProvided: true}

	d := Evaluate(f, sc, testPool())

	require.Equal(t, flow.StatusRequiresApproval, d.Status)
	require.Len(t, d.Stages, 3)
	assert.Equal(t, []string{"stg-manager", "stg-finance", "stg-cfo"},
		[]string{d.Stages[0].StageID, d.Stages[1].StageID, d.Stages[2].StageID},
		"resolved stages must be sorted ascending by minimum amount")
}

func TestEvaluate_GatePrecedence(t *testing.T) {
	// Missing attachments above the threshold always blocks, no matter how
	// the auto-approve rule is configured.
	f := procurementFlow()
	f.Rule.AutoApprove = flow.AutoApproveRule{Enabled: true, ThresholdUGX: 10_000_000}

	sc := flow.Scenario{AmountUGX: 2_500_000, Module: "Procurement", AttachmentsProvided: false}
	d := Evaluate(f, sc, testPool())

	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Empty(t, d.Stages, "blocked decisions never carry stages")
	require.Len(t, d.Reasons, 1)
	assert.Contains(t, d.Reasons[0], "attachments required")
}

func TestEvaluate_CommentGate(t *testing.T) {
	f := procurementFlow()
	f.Rule.RequireCommentOverUGX = ugx(0) // always required

	sc := flow.Scenario{AmountUGX: 100_000, Module: "Procurement", AttachmentsProvided: true}
	d := Evaluate(f, sc, testPool())

	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Contains(t, d.Reasons[0], "comment required")
}

func TestEvaluate_DisabledFlow(t *testing.T) {
	f := procurementFlow()
	f.Enabled = false

	d := Evaluate(f, flow.Scenario{AmountUGX: 100_000, Module: "Procurement"}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Equal(t, []string{reasonFlowDisabled}, d.Reasons)
}

func TestEvaluate_ModuleScopeMismatch(t *testing.T) {
	f := procurementFlow()

	d := Evaluate(f, flow.Scenario{AmountUGX: 100_000, Module: "Travel"}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Contains(t, d.Reasons[0], "module scope mismatch")
}

func TestEvaluate_MarketplaceScopeMismatch(t *testing.T) {
	f := &flow.Flow{
		ID:          "flow-mld",
		Name:        "MyLiveDealz Marketplace",
		Enabled:     true,
		ScopeType:   flow.ScopeMarketplace,
		Module:      flow.MarketplaceModule,
		Marketplace: "MyLiveDealz",
	}

	d := Evaluate(f, flow.Scenario{AmountUGX: 100_000, Marketplace: "ExpressMart"}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Contains(t, d.Reasons[0], "marketplace scope mismatch")

	// A scenario without any marketplace value cannot match either.
	d = Evaluate(f, flow.Scenario{AmountUGX: 100_000}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
}

func TestEvaluate_UnscopedFlowAlwaysMatchesScope(t *testing.T) {
	f := procurementFlow()
	f.ScopeType = flow.ScopeUnscopedRequest
	f.Module = ""

	d := Evaluate(f, flow.Scenario{AmountUGX: 650_000, Module: "Anything"}, testPool())
	assert.Equal(t, flow.StatusRequiresApproval, d.Status)
}

func TestEvaluate_Condition(t *testing.T) {
	f := procurementFlow()
	f.Rule.Condition = `amount < 1000000 && module == "Procurement"`

	d := Evaluate(f, flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}, testPool())
	assert.Equal(t, flow.StatusRequiresApproval, d.Status)

	d = Evaluate(f, flow.Scenario{AmountUGX: 2_500_000, Module: "Procurement", AttachmentsProvided: true}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Equal(t, []string{reasonConditionNotMet}, d.Reasons)

	f.Rule.Condition = `no_such_variable > 1`
	d = Evaluate(f, flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}, testPool())
	assert.Equal(t, flow.StatusBlocked, d.Status)
	assert.Equal(t, []string{reasonConditionInvalid}, d.Reasons)
}

func TestEvaluate_NoStagesForAmount(t *testing.T) {
	f := procurementFlow()
	f.Stages = nil

	d := Evaluate(f, flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}, testPool())

	assert.Equal(t, flow.StatusRequiresApproval, d.Status)
	assert.Empty(t, d.Stages)
	assert.Contains(t, d.Reasons, reasonNoStages)
}

func TestEvaluate_NoApproverPool(t *testing.T) {
	f := procurementFlow()
	sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}

	d := Evaluate(f, sc, nil)

	require.Equal(t, flow.StatusRequiresApproval, d.Status)
	require.Len(t, d.Stages, 1)
	assert.Equal(t, flow.AssigneeNoPool, d.Stages[0].AssignedTo)

	var warnings int
	for _, r := range d.Reasons {
		if r == `warning: no approver candidates for stage "Manager Review"` {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestEvaluate_SLABreachLaw(t *testing.T) {
	f := procurementFlow()
	pool := testPool()

	tests := []struct {
		name     string
		elapsed  int
		breached bool
		dueIn    int
	}{
		{"well within SLA", 6, false, 18},
		{"exactly at SLA", 24, false, 0},
		{"past SLA", 30, true, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement", ElapsedHours: tc.elapsed}
			d := Evaluate(f, sc, pool)

			require.Len(t, d.Stages, 1)
			assert.Equal(t, tc.breached, d.Stages[0].Breached)
			assert.Equal(t, tc.dueIn, d.Stages[0].SLADueInHours)
		})
	}
}

func TestEvaluate_EscalationTargets(t *testing.T) {
	f := procurementFlow()
	sc := flow.Scenario{AmountUGX: 6_000_000, Module: "Procurement", AttachmentsProvided: true}

	d := Evaluate(f, sc, testPool())
	require.Len(t, d.Stages, 3)

	// Next-stage escalation resolves to the following active stage's role.
	assert.Equal(t, "Finance", d.Stages[0].EscalationTo)
	// Fixed-role escalation is used verbatim.
	assert.Equal(t, "CFO", d.Stages[1].EscalationTo)
	// Next-stage escalation on the final stage falls back to the admin role.
	assert.Equal(t, flow.FallbackEscalationRole, d.Stages[2].EscalationTo)
}

func TestEvaluate_EscalationNone(t *testing.T) {
	f := procurementFlow()
	f.Stages[1].Escalation = nil // manager stage

	sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}
	d := Evaluate(f, sc, testPool())

	require.Len(t, d.Stages, 1)
	assert.Equal(t, flow.EscalateNone, d.Stages[0].EscalationTo)
}

func TestEvaluate_DelegateUser(t *testing.T) {
	f := procurementFlow()
	f.Stages[1].Delegation = &flow.Delegation{Mode: flow.DelegateUser, DelegateUser: "Finance Desk"}

	sc := flow.Scenario{
		AmountUGX:        650_000,
		Module:           "Procurement",
		OutOfOfficeRoles: []string{"Manager"},
	}
	d := Evaluate(f, sc, testPool())

	require.Len(t, d.Stages, 1)
	assert.Equal(t, "Finance Desk", d.Stages[0].AssignedTo)
	assert.Equal(t, flow.EscalateDelegate, d.Stages[0].EscalationTo)
	assert.False(t, d.Stages[0].Skipped)
}

func TestEvaluate_DelegateRolePool(t *testing.T) {
	f := procurementFlow()
	f.Stages[1].Delegation = &flow.Delegation{Mode: flow.DelegateRolePool, DelegateRole: "Finance"}

	sc := flow.Scenario{
		AmountUGX:        650_000,
		Module:           "Procurement",
		OutOfOfficeRoles: []string{"Manager"},
	}
	d := Evaluate(f, sc, testPool())

	require.Len(t, d.Stages, 1)
	// Least-loaded finance approver takes over.
	assert.Equal(t, "David Ssempa", d.Stages[0].AssignedTo)
	assert.Equal(t, flow.EscalateRolePool, d.Stages[0].EscalationTo)
}

func TestEvaluate_DelegationOnlyWhenRoleOut(t *testing.T) {
	f := procurementFlow()
	f.Stages[1].Delegation = &flow.Delegation{Mode: flow.DelegateUser, DelegateUser: "Finance Desk"}

	sc := flow.Scenario{AmountUGX: 650_000, Module: "Procurement"}
	d := Evaluate(f, sc, testPool())

	require.Len(t, d.Stages, 1)
	assert.Equal(t, "Peter Okello", d.Stages[0].AssignedTo, "least-loaded manager keeps the stage")
}

func TestEvaluate_SkipNoticeAppearsOnce(t *testing.T) {
	f := procurementFlow()
	f.Stages[1].Delegation = &flow.Delegation{Mode: flow.DelegateSkipToNext}
	f.Stages[2].Delegation = &flow.Delegation{Mode: flow.DelegateSkipToNext}
	f.Stages[2].Role = "Manager" // both skippable stages share the OOO role

	sc := flow.Scenario{
		AmountUGX:           6_000_000,
		Module:              "Procurement",
		AttachmentsProvided: true,
		OutOfOfficeRoles:    []string{"Manager"},
	}
	d := Evaluate(f, sc, testPool())

	require.Equal(t, flow.StatusRequiresApproval, d.Status)

	var skippedStages, skipNotices int
	for _, st := range d.Stages {
		if st.Skipped {
			skippedStages++
			assert.Equal(t, flow.AssigneeSkipped, st.AssignedTo)
		}
	}
	for _, r := range d.Reasons {
		if r == reasonDelegationSkip {
			skipNotices++
		}
	}
	assert.Equal(t, 2, skippedStages)
	assert.Equal(t, 1, skipNotices, "the skip notice appears exactly once")
}

func TestEvaluate_Determinism(t *testing.T) {
	f := procurementFlow()
	pool := testPool()
	sc := flow.Scenario{
		AmountUGX:           6_000_000,
		Module:              "Procurement",
		AttachmentsProvided: true,
		ElapsedHours:        30,
	}

	first := Evaluate(f, sc, pool)
	second := Evaluate(f, sc, pool)

	assert.Equal(t, first, second, "repeated evaluations with no state changes must be identical")
}

func TestBaseAssignee_Strategies(t *testing.T) {
	pool := []flow.Approver{
		{ID: "m1", Name: "Away Manager", Role: "Manager", Load: 0, OutOfOffice: true},
		{ID: "m2", Name: "Busy Manager", Role: "Manager", Load: 5},
		{ID: "m3", Name: "Free Manager", Role: "Manager", Load: 0},
	}

	t.Run("first available skips flagged approvers", func(t *testing.T) {
		st := flow.Stage{ID: "s", Role: "Manager", Assignment: flow.AssignFirstAvailable}
		assert.Equal(t, "Busy Manager", baseAssignee(st, pool))
	})

	t.Run("first available degrades to pool head when everyone is away", func(t *testing.T) {
		away := []flow.Approver{
			{ID: "m1", Name: "Away One", Role: "Manager", OutOfOffice: true},
			{ID: "m2", Name: "Away Two", Role: "Manager", OutOfOffice: true},
		}
		st := flow.Stage{ID: "s", Role: "Manager", Assignment: flow.AssignFirstAvailable}
		assert.Equal(t, "Away One", baseAssignee(st, away))
	})

	t.Run("least load prefers in-office on ties", func(t *testing.T) {
		st := flow.Stage{ID: "s", Role: "Manager", Assignment: flow.AssignLeastLoad}
		assert.Equal(t, "Free Manager", baseAssignee(st, pool))
	})

	t.Run("specific user ignores the pool", func(t *testing.T) {
		st := flow.Stage{ID: "s", Role: "Manager", Assignment: flow.AssignSpecificUser, SpecificUser: "Head of Legal"}
		assert.Equal(t, "Head of Legal", baseAssignee(st, nil))
	})

	t.Run("round robin is stable for a stage id", func(t *testing.T) {
		st := flow.Stage{ID: "stg-fixed", Role: "Manager", Assignment: flow.AssignRoundRobin}
		picked := baseAssignee(st, pool)
		for i := 0; i < 10; i++ {
			assert.Equal(t, picked, baseAssignee(st, pool))
		}
	})

	t.Run("round robin spreads across stage ids", func(t *testing.T) {
		names := map[string]bool{}
		for _, id := range []string{"stg-a", "stg-b", "stg-c", "stg-d", "stg-e", "stg-f"} {
			st := flow.Stage{ID: id, Role: "Manager", Assignment: flow.AssignRoundRobin}
			names[baseAssignee(st, pool)] = true
		}
		assert.Greater(t, len(names), 1, "different stages should not all land on one approver")
	})
}
