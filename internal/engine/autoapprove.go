package engine

import "github.com/corppay/be-approval-flows/internal/flow"

// decideAutoApproval evaluates the auto-approve band and the approval
// trigger. Returns (decision, true) when the evaluation resolves here.
//
// The two resolved paths are deliberately kept distinct: passing the
// auto-approve rule and sitting under the approval trigger are different
// policy facts, even though both surface as AutoApproved.
func decideAutoApproval(rule flow.Rule, sc flow.Scenario, reasons *[]string) (flow.Decision, bool) {
	// Amount exactly at the threshold is inside the auto-approve band.
	if rule.AutoApprove.Enabled && sc.AmountUGX <= rule.AutoApprove.ThresholdUGX {
		if rule.AutoApprove.EligibleOnly && !sc.UserEligible() {
			// Not an immediate block: record the miss and fall through to
			// the approval-trigger check.
			*reasons = append(*reasons, reasonNotEligible)
		} else {
			*reasons = append(*reasons, reasonAutoApproved)
			return flow.Decision{Status: flow.StatusAutoApproved, Reasons: *reasons}, true
		}
	}

	if sc.AmountUGX <= rule.RequireApprovalOverUGX {
		*reasons = append(*reasons, reasonNoApprovalNeeded)
		return flow.Decision{Status: flow.StatusAutoApproved, Reasons: *reasons}, true
	}

	return flow.Decision{}, false
}
