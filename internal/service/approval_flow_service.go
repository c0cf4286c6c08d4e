package service

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog"

	"github.com/corppay/be-approval-flows/internal/client"
	"github.com/corppay/be-approval-flows/internal/engine"
	"github.com/corppay/be-approval-flows/internal/flow"
	"github.com/corppay/be-approval-flows/internal/repository"
	"github.com/corppay/be-approval-flows/internal/store"
)

// EligibilityClientInterface resolves a user's auto-approval eligibility from
// the directory service when a scenario names a user without an explicit
// eligibility value.
type EligibilityClientInterface interface {
	IsAutoApprovalEligible(ctx context.Context, userID string) (bool, error)
}

// ApprovalFlowService orchestrates flow authoring, publishing, template packs
// and scenario evaluation. The decision engine itself stays pure; persistence
// and notification side effects live here and are always best-effort.
type ApprovalFlowService struct {
	flows       *store.FlowStore
	pool        *store.ApproverPool
	eligibility EligibilityClientInterface
	audit       *repository.AuditRepository        // nil when no database is configured
	notifier    *client.NotificationPublisher      // nil when NATS is not configured
	log         zerolog.Logger
}

// NewApprovalFlowService creates a new ApprovalFlowService.
func NewApprovalFlowService(
	flows *store.FlowStore,
	pool *store.ApproverPool,
	eligibility EligibilityClientInterface,
	audit *repository.AuditRepository,
	notifier *client.NotificationPublisher,
	log zerolog.Logger,
) *ApprovalFlowService {
	return &ApprovalFlowService{
		flows:       flows,
		pool:        pool,
		eligibility: eligibility,
		audit:       audit,
		notifier:    notifier,
		log:         log,
	}
}

// ── Flow authoring ────────────────────────────────────────────────────────────

// CreateFlow validates and stores a new draft.
func (s *ApprovalFlowService) CreateFlow(ctx context.Context, f *flow.Flow) (*flow.Flow, error) {
	if err := s.validateFlow(f); err != nil {
		return nil, err
	}
	created := s.flows.Create(f)

	s.log.Info().
		Str("flow_id", created.ID).
		Str("scope", string(created.ScopeType)).
		Int("stages", len(created.Stages)).
		Msg("Draft flow created")
	return created, nil
}

// UpdateFlow replaces an existing draft.
func (s *ApprovalFlowService) UpdateFlow(ctx context.Context, f *flow.Flow) error {
	if err := s.validateFlow(f); err != nil {
		return err
	}
	return s.flows.Update(f)
}

// DeleteFlow removes a draft. The published snapshot stays live.
func (s *ApprovalFlowService) DeleteFlow(ctx context.Context, id string) error {
	return s.flows.Delete(id)
}

// GetDraft returns one draft flow.
func (s *ApprovalFlowService) GetDraft(ctx context.Context, id string) (*flow.Flow, error) {
	return s.flows.GetDraft(id)
}

// ListFlows returns all drafts together with the published snapshots.
func (s *ApprovalFlowService) ListFlows(ctx context.Context) ([]*flow.Flow, []*flow.PublishedFlow) {
	return s.flows.ListDrafts(), s.flows.ListPublished()
}

// validateFlow runs structural validation plus a compile check on the
// optional condition expression, so authors learn about a broken expression
// at save time rather than at evaluation time.
func (s *ApprovalFlowService) validateFlow(f *flow.Flow) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Rule.Condition != "" {
		if _, err := expr.Compile(f.Rule.Condition, expr.AsBool()); err != nil {
			return fmt.Errorf("invalid flow condition: %w", err)
		}
	}
	return nil
}

// ── Publish ───────────────────────────────────────────────────────────────────

// Publish snapshots a draft into the live store. The reason-length and
// acknowledgement preconditions are enforced by the store; publish events are
// audited and announced best-effort.
func (s *ApprovalFlowService) Publish(ctx context.Context, id, reason string, acknowledge bool, actor string) (*flow.PublishedFlow, error) {
	snapshot, err := s.flows.Publish(id, reason, acknowledge)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("flow_id", id).
		Str("version", snapshot.Version).
		Str("actor", actor).
		Msg("Flow published")

	s.appendAudit(ctx, &repository.AuditEntry{
		FlowID:      id,
		FlowVersion: snapshot.Version,
		EventType:   repository.EventFlowPublished,
		PerformedBy: actor,
		Metadata:    map[string]interface{}{"reason": reason},
	})
	if s.notifier != nil {
		s.notifier.PublishFlowPublished(ctx, snapshot, actor)
	}
	return snapshot, nil
}

// ── Evaluation ────────────────────────────────────────────────────────────────

// Simulate evaluates a scenario against a flow. useDraft selects the draft
// copy (simulator/preview); the default is the published snapshot, the only
// copy authoritative for production decisions.
func (s *ApprovalFlowService) Simulate(ctx context.Context, flowID string, sc flow.Scenario, useDraft bool) (flow.Decision, error) {
	if err := flow.ValidateScenario(sc); err != nil {
		return flow.Decision{}, err
	}

	// Resolve eligibility when the scenario names a user but carries no
	// explicit flag.
	if sc.Eligible == nil && sc.UserID != "" && s.eligibility != nil {
		eligible, err := s.eligibility.IsAutoApprovalEligible(ctx, sc.UserID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", sc.UserID).
				Msg("Could not resolve eligibility; treating user as not eligible")
			eligible = false
		}
		sc.Eligible = &eligible
	}

	var (
		target  *flow.Flow
		version string
	)
	if useDraft {
		draft, err := s.flows.GetDraft(flowID)
		if err != nil {
			return flow.Decision{}, err
		}
		target = draft
	} else {
		snapshot, err := s.flows.GetPublished(flowID)
		if err != nil {
			return flow.Decision{}, err
		}
		target = snapshot.Flow
		version = snapshot.Version
	}

	decision := engine.Evaluate(target, sc, s.pool.Snapshot())

	s.log.Debug().
		Str("flow_id", flowID).
		Str("status", string(decision.Status)).
		Int64("amount_ugx", sc.AmountUGX).
		Bool("draft", useDraft).
		Msg("Scenario evaluated")

	s.appendAudit(ctx, &repository.AuditEntry{
		FlowID:      flowID,
		FlowVersion: version,
		EventType:   repository.EventDecisionEvaluated,
		Status:      string(decision.Status),
		Reasons:     decision.Reasons,
		AmountUGX:   sc.AmountUGX,
		PerformedBy: sc.UserID,
	})

	if s.notifier != nil && target.SLA.BreachAlerts && anyBreached(decision) {
		s.notifier.PublishBreachAlert(ctx, target, version, decision)
	}
	return decision, nil
}

func anyBreached(d flow.Decision) bool {
	for _, st := range d.Stages {
		if st.Breached {
			return true
		}
	}
	return false
}

// ── Templates ─────────────────────────────────────────────────────────────────

// ApplyTemplate generates an industry pack and merges it into the draft
// store. Returns the number of flows applied.
func (s *ApprovalFlowService) ApplyTemplate(ctx context.Context, tag flow.IndustryTag, mode flow.ApplyMode) (int, error) {
	if !flow.KnownIndustryTag(tag) {
		return 0, fmt.Errorf("unknown industry tag %q", tag)
	}
	if mode != flow.ApplyAppend && mode != flow.ApplyReplace {
		return 0, fmt.Errorf("unknown apply mode %q", mode)
	}

	generated := flow.GenerateTemplate(tag)
	applied := s.flows.ApplyTemplate(generated, mode)

	s.log.Info().
		Str("industry", string(tag)).
		Str("mode", string(mode)).
		Int("flows", applied).
		Msg("Template pack applied")

	s.appendAudit(ctx, &repository.AuditEntry{
		EventType: repository.EventTemplateApplied,
		Metadata: map[string]interface{}{
			"industry": string(tag),
			"mode":     string(mode),
			"flows":    applied,
		},
	})
	return applied, nil
}

// ── Audit trail ───────────────────────────────────────────────────────────────

// AuditTrail returns a flow's audit history, newest first. Without a
// configured audit database the trail is empty rather than an error.
func (s *ApprovalFlowService) AuditTrail(ctx context.Context, flowID string, limit int) ([]*repository.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListByFlow(ctx, flowID, limit)
}

// ── Approver pool ─────────────────────────────────────────────────────────────

// ListApprovers returns a point-in-time copy of the pool.
func (s *ApprovalFlowService) ListApprovers(ctx context.Context) []flow.Approver {
	return s.pool.Snapshot()
}

// AdjustApproverLoad applies a workload delta reported by the task tracker.
func (s *ApprovalFlowService) AdjustApproverLoad(ctx context.Context, id string, delta int) error {
	return s.pool.AdjustLoad(id, delta)
}

// SetApproverOutOfOffice flips an approver's availability flag.
func (s *ApprovalFlowService) SetApproverOutOfOffice(ctx context.Context, id string, away bool) error {
	return s.pool.SetOutOfOffice(id, away)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendAudit writes an audit entry and logs a warning on failure (never
// returns an error — audit persistence must not fail an evaluation).
func (s *ApprovalFlowService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("flow_id", entry.FlowID).
			Str("event_type", entry.EventType).
			Msg("Failed to write audit log entry")
	}
}
