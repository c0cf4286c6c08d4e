package flow

import "github.com/google/uuid"

// IndustryTag selects one of the pre-built template packs.
type IndustryTag string

const (
	IndustryStricterCompliance IndustryTag = "stricter_compliance"
	IndustryBalanced           IndustryTag = "balanced"
)

// ApplyMode controls how a generated pack is merged into the flow store.
type ApplyMode string

const (
	ApplyAppend  ApplyMode = "append"
	ApplyReplace ApplyMode = "replace"
)

// KnownIndustryTag reports whether tag names a supported template pack.
func KnownIndustryTag(tag IndustryTag) bool {
	return tag == IndustryStricterCompliance || tag == IndustryBalanced
}

func ugx(v int64) *int64 { return &v }

// BaselineFlows returns the built-in flow set the template packs derive from.
// It also seeds new installations.
func BaselineFlows() []*Flow {
	return []*Flow{
		{
			ID:        "flow-procurement",
			Name:      "Procurement Spend",
			Enabled:   true,
			ScopeType: ScopeModule,
			Module:    "Procurement",
			Rule: Rule{
				AutoApprove:               AutoApproveRule{Enabled: true, ThresholdUGX: 200_000, EligibleOnly: true},
				RequireApprovalOverUGX:    500_000,
				RequireAttachmentsOverUGX: ugx(2_000_000),
				RequireCommentOverUGX:     ugx(5_000_000),
			},
			Stages: []Stage{
				{
					ID: "stg-proc-manager", Name: "Manager Review", MinAmountUGX: 200_000,
					Role: "Manager", Assignment: AssignLeastLoad, SLAHours: 24,
					Escalation: &Escalation{Kind: EscalateNextStage},
					Delegation: &Delegation{Mode: DelegateRolePool, DelegateRole: "Finance"},
				},
				{
					ID: "stg-proc-finance", Name: "Finance Review", MinAmountUGX: 1_000_000,
					Role: "Finance", Assignment: AssignRoundRobin, SLAHours: 48,
					Escalation: &Escalation{Kind: EscalateNextStage},
				},
				{
					ID: "stg-proc-cfo", Name: "CFO Sign-off", MinAmountUGX: 5_000_000,
					Role: "CFO", Assignment: AssignFirstAvailable, SLAHours: 72,
					Escalation: &Escalation{Kind: EscalateRole, Role: FallbackEscalationRole},
				},
			},
			SLA: SLAPolicy{
				BreachAlerts:      true,
				NotifyChannels:    []NotifyChannel{ChannelEmail, ChannelWhatsApp},
				ReminderLeadHours: 4,
			},
		},
		{
			ID:        "flow-travel",
			Name:      "Travel & Expenses",
			Enabled:   true,
			ScopeType: ScopeModule,
			Module:    "Travel",
			Rule: Rule{
				AutoApprove:            AutoApproveRule{Enabled: true, ThresholdUGX: 500_000},
				RequireApprovalOverUGX: 1_000_000,
				RequireCommentOverUGX:  ugx(3_000_000),
			},
			Stages: []Stage{
				{
					ID: "stg-travel-manager", Name: "Manager Review", MinAmountUGX: 1_000_000,
					Role: "Manager", Assignment: AssignRoundRobin, SLAHours: 48,
					Delegation: &Delegation{Mode: DelegateSkipToNext},
				},
				{
					ID: "stg-travel-finance", Name: "Finance Review", MinAmountUGX: 4_000_000,
					Role: "Finance", Assignment: AssignLeastLoad, SLAHours: 72,
					Escalation: &Escalation{Kind: EscalateRole, Role: "CFO"},
				},
			},
			SLA: SLAPolicy{
				BreachAlerts:      true,
				NotifyChannels:    []NotifyChannel{ChannelEmail},
				ReminderLeadHours: 8,
			},
		},
		{
			ID:        "flow-medical",
			Name:      "Medical Benefits",
			Enabled:   true,
			ScopeType: ScopeModule,
			Module:    "Medical",
			Rule: Rule{
				AutoApprove:               AutoApproveRule{Enabled: false},
				RequireApprovalOverUGX:    100_000,
				RequireAttachmentsOverUGX: ugx(0), // receipts always required
			},
			Stages: []Stage{
				{
					ID: "stg-med-hr", Name: "HR Review", MinAmountUGX: 100_000,
					Role: "HR", Assignment: AssignLeastLoad, SLAHours: 24,
					Escalation: &Escalation{Kind: EscalateNextStage},
					Delegation: &Delegation{Mode: DelegateUser, DelegateUser: "Benefits Desk"},
				},
				{
					ID: "stg-med-finance", Name: "Finance Review", MinAmountUGX: 2_000_000,
					Role: "Finance", Assignment: AssignLeastLoad, SLAHours: 48,
					Escalation: &Escalation{Kind: EscalateRole, Role: FallbackEscalationRole},
				},
			},
			SLA: SLAPolicy{
				BreachAlerts:      true,
				NotifyChannels:    []NotifyChannel{ChannelEmail, ChannelSMS},
				ReminderLeadHours: 2,
			},
		},
		{
			ID:          "flow-mylivedealz",
			Name:        "MyLiveDealz Marketplace",
			Enabled:     true,
			ScopeType:   ScopeMarketplace,
			Module:      MarketplaceModule,
			Marketplace: "MyLiveDealz",
			Rule: Rule{
				AutoApprove:            AutoApproveRule{Enabled: true, ThresholdUGX: 300_000, EligibleOnly: true},
				RequireApprovalOverUGX: 300_000,
			},
			Stages: []Stage{
				{
					ID: "stg-mld-commerce", Name: "Commerce Review", MinAmountUGX: 300_000,
					Role: "Manager", Assignment: AssignRoundRobin, SLAHours: 24,
					Escalation: &Escalation{Kind: EscalateNextStage},
					Delegation: &Delegation{Mode: DelegateUser, DelegateUser: "Finance Desk"},
				},
				{
					ID: "stg-mld-finance", Name: "Finance Review", MinAmountUGX: 2_500_000,
					Role: "Finance", Assignment: AssignLeastLoad, SLAHours: 48,
				},
			},
			SLA: SLAPolicy{
				BreachAlerts:      true,
				NotifyChannels:    []NotifyChannel{ChannelEmail, ChannelWeChat},
				ReminderLeadHours: 4,
			},
		},
		{
			ID:        "flow-rfq",
			Name:      "Request for Quote",
			Enabled:   true,
			ScopeType: ScopeUnscopedRequest,
			Rule: Rule{
				AutoApprove:            AutoApproveRule{Enabled: false},
				RequireApprovalOverUGX: 0,
				RequireCommentOverUGX:  ugx(0), // justification always required
			},
			Stages: []Stage{
				{
					ID: "stg-rfq-proc", Name: "Procurement Review", MinAmountUGX: 0,
					Role: "Manager", Assignment: AssignFirstAvailable, SLAHours: 96,
				},
			},
			SLA: SLAPolicy{
				BreachAlerts:      false,
				ReminderLeadHours: 12,
			},
		},
	}
}

// tagAdjustment rewrites thresholds and SLA hours for one industry pack.
// Adjustments are keyed off the flow's module so packs stay structurally
// consistent with the baseline shape.
type tagAdjustment func(f *Flow)

var tagAdjustments = map[IndustryTag]tagAdjustment{
	// Tighten medical and finance-sensitive thresholds, shorten SLAs.
	IndustryStricterCompliance: func(f *Flow) {
		switch f.Module {
		case "Medical", "Procurement":
			f.Rule.AutoApprove.ThresholdUGX /= 2
			f.Rule.RequireApprovalOverUGX /= 2
			if f.Rule.RequireAttachmentsOverUGX == nil {
				f.Rule.RequireAttachmentsOverUGX = ugx(1_000_000)
			} else {
				*f.Rule.RequireAttachmentsOverUGX /= 2
			}
		}
		for i := range f.Stages {
			f.Stages[i].SLAHours = scaleHours(f.Stages[i].SLAHours, 3, 4)
		}
		f.SLA.BreachAlerts = true
	},
	// Loosen travel thresholds, keep everything else at baseline.
	IndustryBalanced: func(f *Flow) {
		if f.Module == "Travel" {
			f.Rule.AutoApprove.ThresholdUGX = f.Rule.AutoApprove.ThresholdUGX * 3 / 2
			f.Rule.RequireApprovalOverUGX = f.Rule.RequireApprovalOverUGX * 3 / 2
		}
	},
}

// scaleHours multiplies hours by num/den, never dropping below one hour.
func scaleHours(hours, num, den int) int {
	scaled := hours * num / den
	if scaled < 1 && hours > 0 {
		return 1
	}
	return scaled
}

// GenerateTemplate clones the baseline flow set and applies the per-tag
// threshold rules. Every generated flow (and stage) gets a fresh ID; the
// baseline is never mutated. Returns nil for an unknown tag.
func GenerateTemplate(tag IndustryTag) []*Flow {
	adjust, ok := tagAdjustments[tag]
	if !ok {
		return nil
	}

	base := BaselineFlows()
	generated := make([]*Flow, 0, len(base))
	for _, src := range base {
		f := src.Clone()
		f.ID = uuid.NewString()
		for i := range f.Stages {
			f.Stages[i].ID = uuid.NewString()
		}
		adjust(f)
		generated = append(generated, f)
	}
	return generated
}
