package flow

import (
	"errors"
	"fmt"
)

// Validation errors returned at the service boundary. Policy outcomes
// (scope mismatch, missing evidence, ...) are decision data, never errors.
var (
	ErrNameRequired   = errors.New("flow name is required")
	ErrNegativeAmount = errors.New("amounts must not be negative")
	ErrNegativeHours  = errors.New("hours must not be negative")
)

// Validate checks structural invariants of a flow definition. It does not
// evaluate anything against a scenario.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return ErrNameRequired
	}

	switch f.ScopeType {
	case ScopeModule:
		if f.Module == "" {
			return errors.New("module-scoped flow requires a module")
		}
	case ScopeMarketplace:
		if f.Marketplace == "" {
			return errors.New("marketplace-scoped flow requires a marketplace")
		}
		if f.Module != "" && f.Module != MarketplaceModule {
			return fmt.Errorf("marketplace flows are fixed to the %q module", MarketplaceModule)
		}
	case ScopeUnscopedRequest:
		// No scope fields to check.
	default:
		return fmt.Errorf("unknown scope type %q", f.ScopeType)
	}

	if f.Rule.AutoApprove.ThresholdUGX < 0 || f.Rule.RequireApprovalOverUGX < 0 {
		return ErrNegativeAmount
	}
	if f.Rule.RequireAttachmentsOverUGX != nil && *f.Rule.RequireAttachmentsOverUGX < 0 {
		return ErrNegativeAmount
	}
	if f.Rule.RequireCommentOverUGX != nil && *f.Rule.RequireCommentOverUGX < 0 {
		return ErrNegativeAmount
	}

	for i := range f.Stages {
		if err := f.Stages[i].validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i+1, err)
		}
	}

	if f.SLA.ReminderLeadHours < 0 {
		return ErrNegativeHours
	}
	return nil
}

func (s *Stage) validate() error {
	if s.MinAmountUGX < 0 {
		return ErrNegativeAmount
	}
	if s.SLAHours < 0 {
		return ErrNegativeHours
	}

	switch s.Assignment {
	case AssignSpecificUser:
		if s.SpecificUser == "" {
			return errors.New("specific_user assignment requires a user")
		}
	case AssignRoundRobin, AssignLeastLoad, AssignFirstAvailable:
		if s.Role == "" {
			return errors.New("stage requires an approver role")
		}
	default:
		return fmt.Errorf("unknown assignment strategy %q", s.Assignment)
	}

	if s.Escalation != nil {
		switch s.Escalation.Kind {
		case EscalateNextStage:
		case EscalateRole:
			if s.Escalation.Role == "" {
				return errors.New("role escalation requires a role")
			}
		default:
			return fmt.Errorf("unknown escalation kind %q", s.Escalation.Kind)
		}
	}

	if s.Delegation != nil {
		switch s.Delegation.Mode {
		case DelegateUser:
			if s.Delegation.DelegateUser == "" {
				return errors.New("delegate_user delegation requires a delegate")
			}
		case DelegateRolePool:
			if s.Delegation.DelegateRole == "" {
				return errors.New("role_pool delegation requires a role")
			}
		case DelegateSkipToNext:
		default:
			return fmt.Errorf("unknown delegation mode %q", s.Delegation.Mode)
		}
	}
	return nil
}

// ValidateScenario rejects numerically invalid scenarios at the boundary so
// the engine never sees them.
func ValidateScenario(s Scenario) error {
	if s.AmountUGX < 0 {
		return ErrNegativeAmount
	}
	if s.ElapsedHours < 0 {
		return ErrNegativeHours
	}
	return nil
}
