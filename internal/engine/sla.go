package engine

import "github.com/corppay/be-approval-flows/internal/flow"

// resolveSLA computes the remaining time budget and breach flag for a stage,
// independent of how it was assigned.
func resolveSLA(st flow.Stage, sc flow.Scenario) (dueInHours int, breached bool) {
	dueInHours = st.SLAHours - sc.ElapsedHours
	if dueInHours < 0 {
		dueInHours = 0
	}
	return dueInHours, sc.ElapsedHours > st.SLAHours
}

// resolveEscalation names the escalation target for the stage at index idx
// within the active stage list. Next-stage escalation from the final stage
// falls back to the top-level admin role.
func resolveEscalation(st flow.Stage, active []flow.Stage, idx int) string {
	if st.Escalation == nil {
		return flow.EscalateNone
	}

	switch st.Escalation.Kind {
	case flow.EscalateNextStage:
		if idx+1 < len(active) {
			return active[idx+1].Role
		}
		return flow.FallbackEscalationRole
	case flow.EscalateRole:
		return st.Escalation.Role
	}
	return flow.EscalateNone
}
