package engine

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// matchScope applies the flow's scope rules to a scenario. A non-match
// returns the blocking reason; it never errors.
func matchScope(f *flow.Flow, sc flow.Scenario) (string, bool) {
	if !f.Enabled {
		return reasonFlowDisabled, false
	}

	switch f.ScopeType {
	case flow.ScopeModule:
		if sc.Module != f.Module {
			return fmt.Sprintf("module scope mismatch: flow applies to %q", f.Module), false
		}
	case flow.ScopeMarketplace:
		// Marketplace flows nest under the fixed e-commerce module; the
		// scenario must carry a matching marketplace.
		if sc.Marketplace == "" || sc.Marketplace != f.Marketplace {
			return fmt.Sprintf("marketplace scope mismatch: flow applies to %q", f.Marketplace), false
		}
	case flow.ScopeUnscopedRequest:
		// Always passes scope matching.
	}
	return "", true
}

// conditionMet evaluates the flow's optional condition expression against the
// scenario. The expression must evaluate to boolean true; anything else,
// including an evaluation error, blocks the transaction.
func conditionMet(condition string, sc flow.Scenario) (string, bool) {
	env := map[string]interface{}{
		"amount":      sc.AmountUGX,
		"module":      sc.Module,
		"marketplace": sc.Marketplace,
		"eligible":    sc.UserEligible(),
	}

	out, err := expr.Eval(condition, env)
	if err != nil {
		return reasonConditionInvalid, false
	}
	if met, ok := out.(bool); !ok || !met {
		return reasonConditionNotMet, false
	}
	return "", true
}
