package engine

import (
	"hash/fnv"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// resolveAssignee picks the approver for one stage and applies out-of-office
// delegation. It returns the assignee, an escalation override when delegation
// redirected the stage, and whether the stage became a pass-through.
func resolveAssignee(st flow.Stage, pool []flow.Approver, sc flow.Scenario) (assignedTo, escalationOverride string, skipped bool) {
	assignedTo = baseAssignee(st, pool)

	// Delegation only fires when the stage's role is globally out of office
	// for this evaluation.
	if st.Delegation == nil || !sc.RoleOutOfOffice(st.Role) {
		return assignedTo, "", false
	}

	switch st.Delegation.Mode {
	case flow.DelegateUser:
		return st.Delegation.DelegateUser, flow.EscalateDelegate, false
	case flow.DelegateRolePool:
		// Re-run least-load selection against the delegate role.
		cands := candidatesForRole(pool, st.Delegation.DelegateRole)
		if len(cands) == 0 {
			return flow.AssigneeNoPool, flow.EscalateRolePool, false
		}
		return leastLoaded(cands).Name, flow.EscalateRolePool, false
	case flow.DelegateSkipToNext:
		// The stage still appears in the decision, marked for pass-through.
		return flow.AssigneeSkipped, "", true
	}
	return assignedTo, "", false
}

// baseAssignee applies the stage's assignment strategy against the pool.
// An empty candidate pool degrades to a sentinel value, not an error.
func baseAssignee(st flow.Stage, pool []flow.Approver) string {
	if st.Assignment == flow.AssignSpecificUser {
		return st.SpecificUser
	}

	cands := candidatesForRole(pool, st.Role)
	if len(cands) == 0 {
		return flow.AssigneeNoPool
	}

	switch st.Assignment {
	case flow.AssignFirstAvailable:
		// First candidate not flagged away; if everyone is flagged, the
		// first candidate still gets it — delegation handles OOO downstream.
		for _, c := range cands {
			if !c.OutOfOffice {
				return c.Name
			}
		}
		return cands[0].Name
	case flow.AssignLeastLoad:
		return leastLoaded(cands).Name
	case flow.AssignRoundRobin:
		// A stable hash of the stage id keeps repeated evaluations landing
		// on the same candidate while the pool is unchanged.
		return cands[stageHash(st.ID)%uint32(len(cands))].Name
	}
	return cands[0].Name
}

// candidatesForRole returns the pool members for a role in pool order.
func candidatesForRole(pool []flow.Approver, role string) []flow.Approver {
	var cands []flow.Approver
	for _, a := range pool {
		if a.Role == role {
			cands = append(cands, a)
		}
	}
	return cands
}

// leastLoaded picks the candidate with the minimum open-task load, preferring
// an in-office candidate when loads tie. Ties beyond that resolve to pool
// order, keeping selection deterministic.
func leastLoaded(cands []flow.Approver) flow.Approver {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Load < best.Load {
			best = c
			continue
		}
		if c.Load == best.Load && best.OutOfOffice && !c.OutOfOffice {
			best = c
		}
	}
	return best
}

func stageHash(stageID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(stageID))
	return h.Sum32()
}
