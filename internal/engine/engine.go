// Package engine implements the approval decision engine: a pure function of
// (scenario, flow, approver snapshot) with no shared state, safe to invoke
// from any number of concurrent evaluations as long as each call gets an
// immutable flow and pool snapshot.
package engine

import (
	"fmt"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// Reason strings assembled into the decision trace, in evaluation order.
const (
	reasonFlowDisabled     = "flow disabled"
	reasonConditionNotMet  = "flow condition not met"
	reasonConditionInvalid = "flow condition invalid"
	reasonNotEligible      = "blocked: user not eligible for auto-approval"
	reasonAutoApproved     = "auto-approved: amount within auto-approve threshold"
	reasonNoApprovalNeeded = "no approval needed: amount under approval trigger"
	reasonNoStages         = "no stages configured for this amount"
	reasonDelegationSkip   = "out-of-office delegation skipped one or more stages"
)

// Evaluate runs a scenario through a flow against an approver pool snapshot
// and assembles the decision. All failure modes are policy outcomes carried
// in the decision; Evaluate never returns an error and never panics on
// well-formed input.
func Evaluate(f *flow.Flow, sc flow.Scenario, pool []flow.Approver) flow.Decision {
	var reasons []string

	// 1. Scope.
	if reason, ok := matchScope(f, sc); !ok {
		return blocked(append(reasons, reason))
	}
	if f.Rule.Condition != "" {
		if reason, ok := conditionMet(f.Rule.Condition, sc); !ok {
			return blocked(append(reasons, reason))
		}
	}

	// 2. Requirement gate — before auto-approval, so missing evidence can
	// never be bypassed by a low amount.
	if reason, ok := checkEvidence(f.Rule, sc); !ok {
		return blocked(append(reasons, reason))
	}

	// 3. Auto-approval band and approval trigger.
	if decision, done := decideAutoApproval(f.Rule, sc, &reasons); done {
		return decision
	}

	// 4. Stage resolution.
	active := activeStages(f.Stages, sc.AmountUGX)
	if len(active) == 0 {
		// Configuration gap, not a crash: surfaced for the policy author.
		reasons = append(reasons, reasonNoStages)
		return flow.Decision{Status: flow.StatusRequiresApproval, Reasons: reasons}
	}

	reasons = append(reasons,
		fmt.Sprintf("requires approval: amount above %d UGX trigger, %d stage(s) active",
			f.Rule.RequireApprovalOverUGX, len(active)))

	results := make([]flow.StageResult, 0, len(active))
	skipNoticed := false
	poolWarned := map[string]bool{}

	for i, st := range active {
		assignedTo, escOverride, skipped := resolveAssignee(st, pool, sc)
		dueIn, breached := resolveSLA(st, sc)

		escalateTo := escOverride
		if escalateTo == "" {
			escalateTo = resolveEscalation(st, active, i)
		}

		// The skip notice appears exactly once no matter how many stages
		// were skipped.
		if skipped && !skipNoticed {
			reasons = append(reasons, reasonDelegationSkip)
			skipNoticed = true
		}
		if assignedTo == flow.AssigneeNoPool && !poolWarned[st.ID] {
			reasons = append(reasons, fmt.Sprintf("warning: no approver candidates for stage %q", st.Name))
			poolWarned[st.ID] = true
		}

		results = append(results, flow.StageResult{
			StageID:       st.ID,
			StageName:     st.Name,
			Role:          st.Role,
			AssignedTo:    assignedTo,
			SLADueInHours: dueIn,
			Breached:      breached,
			EscalationTo:  escalateTo,
			Skipped:       skipped,
		})
	}

	return flow.Decision{
		Status:  flow.StatusRequiresApproval,
		Reasons: reasons,
		Stages:  results,
	}
}

// blocked assembles a Blocked decision. Blocked decisions never carry
// resolved stages.
func blocked(reasons []string) flow.Decision {
	return flow.Decision{Status: flow.StatusBlocked, Reasons: reasons}
}
