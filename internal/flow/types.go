package flow

import "time"

// ── Scope ─────────────────────────────────────────────────────────────────────

// ScopeType determines which transaction context a flow applies to.
type ScopeType string

const (
	ScopeModule          ScopeType = "module"
	ScopeMarketplace     ScopeType = "marketplace"
	ScopeUnscopedRequest ScopeType = "unscoped_request"
)

// MarketplaceModule is the module every marketplace-scoped flow is implicitly
// nested under.
const MarketplaceModule = "E-Commerce"

// ── Assignment / delegation / escalation ──────────────────────────────────────

// AssignmentStrategy selects one approver among a role's candidates.
type AssignmentStrategy string

const (
	AssignRoundRobin     AssignmentStrategy = "round_robin"
	AssignLeastLoad      AssignmentStrategy = "least_load"
	AssignFirstAvailable AssignmentStrategy = "first_available"
	AssignSpecificUser   AssignmentStrategy = "specific_user"
)

// DelegationMode controls where a stage is routed when its assignee's role is
// out of office for the evaluation.
type DelegationMode string

const (
	DelegateUser       DelegationMode = "delegate_user"
	DelegateRolePool   DelegationMode = "role_pool"
	DelegateSkipToNext DelegationMode = "skip_to_next_stage"
)

// Delegation is the optional out-of-office fallback for a stage.
type Delegation struct {
	Mode         DelegationMode `json:"mode"`
	DelegateUser string         `json:"delegate_user,omitempty"` // mode = delegate_user
	DelegateRole string         `json:"delegate_role,omitempty"` // mode = role_pool
}

// EscalationKind is the tagged variant for a stage's escalation target.
type EscalationKind string

const (
	EscalateNextStage EscalationKind = "next_stage"
	EscalateRole      EscalationKind = "role"
)

// Escalation is the optional breach-escalation config for a stage.
type Escalation struct {
	Kind EscalationKind `json:"kind"`
	Role string         `json:"role,omitempty"` // kind = role
}

// FallbackEscalationRole receives next-stage escalations from the final stage.
const FallbackEscalationRole = "Administrator"

// ── Stage ─────────────────────────────────────────────────────────────────────

// Stage is one approval checkpoint. It activates only when the transaction
// amount is at or above MinAmount.
type Stage struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	MinAmountUGX int64              `json:"min_amount_ugx"`
	Role         string             `json:"role"`
	Assignment   AssignmentStrategy `json:"assignment"`
	SpecificUser string             `json:"specific_user,omitempty"` // assignment = specific_user
	SLAHours     int                `json:"sla_hours"`
	Escalation   *Escalation        `json:"escalation,omitempty"`
	Delegation   *Delegation        `json:"delegation,omitempty"`
}

// ── Rule ──────────────────────────────────────────────────────────────────────

// AutoApproveRule is the auto-approval band of a flow.
type AutoApproveRule struct {
	Enabled      bool  `json:"enabled"`
	ThresholdUGX int64 `json:"threshold_ugx"`
	EligibleOnly bool  `json:"eligible_only"`
}

// Rule holds a flow's threshold configuration. The attachment/comment
// thresholds are pointers: nil means the requirement is off, a value of 0
// means always required.
type Rule struct {
	AutoApprove               AutoApproveRule `json:"auto_approve"`
	RequireApprovalOverUGX    int64           `json:"require_approval_over_ugx"`
	RequireAttachmentsOverUGX *int64          `json:"require_attachments_over_ugx,omitempty"`
	RequireCommentOverUGX     *int64          `json:"require_comment_over_ugx,omitempty"`
	// Condition is an optional boolean expression evaluated against the
	// scenario (amount, module, marketplace, eligible). A flow whose
	// condition evaluates false blocks the transaction.
	Condition string `json:"condition,omitempty"`
}

// ── SLA policy ────────────────────────────────────────────────────────────────

// NotifyChannel is one delivery channel for breach alerts. Delivery itself is
// owned by the notifications platform; flows only pick the channel set.
type NotifyChannel string

const (
	ChannelEmail    NotifyChannel = "email"
	ChannelSMS      NotifyChannel = "sms"
	ChannelWhatsApp NotifyChannel = "whatsapp"
	ChannelWeChat   NotifyChannel = "wechat"
)

// SLAPolicy is the flow-level breach alerting configuration.
type SLAPolicy struct {
	BreachAlerts      bool            `json:"breach_alerts"`
	NotifyChannels    []NotifyChannel `json:"notify_channels,omitempty"`
	ReminderLeadHours int             `json:"reminder_lead_hours"`
}

// ── Flow ──────────────────────────────────────────────────────────────────────

// Flow is a named approval policy bound to exactly one scope. Stages are kept
// in storage order; the engine sorts active stages by MinAmountUGX.
type Flow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Enabled     bool      `json:"enabled"`
	ScopeType   ScopeType `json:"scope_type"`
	Module      string    `json:"module,omitempty"`      // scope = module (fixed for marketplace)
	Marketplace string    `json:"marketplace,omitempty"` // scope = marketplace
	Rule        Rule      `json:"rule"`
	Stages      []Stage   `json:"stages"`
	SLA         SLAPolicy `json:"sla"`
}

// Clone returns a deep copy of the flow.
func (f *Flow) Clone() *Flow {
	c := *f
	c.Stages = make([]Stage, len(f.Stages))
	for i, s := range f.Stages {
		c.Stages[i] = s
		if s.Escalation != nil {
			esc := *s.Escalation
			c.Stages[i].Escalation = &esc
		}
		if s.Delegation != nil {
			del := *s.Delegation
			c.Stages[i].Delegation = &del
		}
	}
	if f.Rule.RequireAttachmentsOverUGX != nil {
		v := *f.Rule.RequireAttachmentsOverUGX
		c.Rule.RequireAttachmentsOverUGX = &v
	}
	if f.Rule.RequireCommentOverUGX != nil {
		v := *f.Rule.RequireCommentOverUGX
		c.Rule.RequireCommentOverUGX = &v
	}
	c.SLA.NotifyChannels = append([]NotifyChannel(nil), f.SLA.NotifyChannels...)
	return &c
}

// ── Approver pool ─────────────────────────────────────────────────────────────

// Approver is one member of a role's candidate pool. Load and OutOfOffice are
// maintained by the external workload tracker; the engine only reads them.
type Approver struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Load        int    `json:"load"`
	OutOfOffice bool   `json:"out_of_office"`
}

// ── Scenario ──────────────────────────────────────────────────────────────────

// Scenario is one transaction to evaluate against a flow.
type Scenario struct {
	AmountUGX           int64    `json:"amount_ugx"`
	Module              string   `json:"module,omitempty"`
	Marketplace         string   `json:"marketplace,omitempty"`
	UserID              string   `json:"user_id,omitempty"`
	Eligible            *bool    `json:"eligible,omitempty"` // nil = resolve via eligibility service
	AttachmentsProvided bool     `json:"attachments_provided"`
	CommentProvided     bool     `json:"comment_provided"`
	ElapsedHours        int      `json:"elapsed_hours"`
	OutOfOfficeRoles    []string `json:"out_of_office_roles,omitempty"`
}

// RoleOutOfOffice reports whether a role is globally out of office for this
// evaluation.
func (s Scenario) RoleOutOfOffice(role string) bool {
	for _, r := range s.OutOfOfficeRoles {
		if r == role {
			return true
		}
	}
	return false
}

// UserEligible returns the scenario's eligibility flag, defaulting to false
// when it was never resolved.
func (s Scenario) UserEligible() bool {
	return s.Eligible != nil && *s.Eligible
}

// ── Decision ──────────────────────────────────────────────────────────────────

// DecisionStatus is the overall outcome of one evaluation.
type DecisionStatus string

const (
	StatusAutoApproved     DecisionStatus = "AutoApproved"
	StatusRequiresApproval DecisionStatus = "RequiresApproval"
	StatusBlocked          DecisionStatus = "Blocked"
)

// Sentinel assignee and escalation values surfaced in stage results.
const (
	AssigneeNoPool   = "(no approver pool)"
	AssigneeSkipped  = "(skipped)"
	EscalateNone     = "(none)"
	EscalateDelegate = "(delegate)"
	EscalateRolePool = "(role pool)"
)

// StageResult is one resolved checkpoint in a RequiresApproval decision.
type StageResult struct {
	StageID       string `json:"stageId"`
	StageName     string `json:"stageName"`
	Role          string `json:"role"`
	AssignedTo    string `json:"assignedTo"`
	SLADueInHours int    `json:"slaDueInHours"`
	Breached      bool   `json:"breached"`
	EscalationTo  string `json:"escalationTo"`
	Skipped       bool   `json:"skipped,omitempty"` // out-of-office pass-through
}

// Decision is the engine output. Stages is populated only when Status is
// RequiresApproval.
type Decision struct {
	Status  DecisionStatus `json:"status"`
	Reasons []string       `json:"reasons"`
	Stages  []StageResult  `json:"stages,omitempty"`
}

// PublishedFlow is an immutable snapshot created by the publish workflow.
// Live transactions evaluate against the snapshot, never the draft.
type PublishedFlow struct {
	Version     string    `json:"version"`
	Reason      string    `json:"reason"`
	PublishedAt time.Time `json:"published_at"`
	Flow        *Flow     `json:"flow"`
}
