package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit event types.
const (
	EventDecisionEvaluated = "decision_evaluated"
	EventFlowPublished     = "flow_published"
	EventTemplateApplied   = "template_applied"
)

// AuditEntry is one immutable record in the approval audit log. Decisions and
// publish events are recorded here by the service layer; the decision engine
// itself never persists anything.
type AuditEntry struct {
	ID          string                 `json:"id"`
	FlowID      string                 `json:"flow_id,omitempty"`
	FlowVersion string                 `json:"flow_version,omitempty"`
	EventType   string                 `json:"event_type"`       // decision_evaluated | flow_published | template_applied
	Status      string                 `json:"status,omitempty"` // decision status, when EventType is decision_evaluated
	Reasons     []string               `json:"reasons,omitempty"`
	AmountUGX   int64                  `json:"amount_ugx"`
	PerformedBy string                 `json:"performed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"` // arbitrary JSON context
	RecordedAt  time.Time              `json:"recorded_at"`
}

// AuditRepository appends and reads immutable audit log entries.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. The table is append-only; this is the only
// mutation operation exposed.
func (r *AuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	reasonsJSON, err := json.Marshal(entry.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal audit reasons: %w", err)
	}

	var metadataJSON []byte
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO approval_audit_log
		    (flow_id, flow_version, event_type,
		     status, reasons, amount_ugx,
		     performed_by, metadata)
		VALUES ($1, $2, $3,
		        $4, $5, $6,
		        $7, $8)
		RETURNING id, recorded_at
	`

	return r.db.QueryRow(ctx, query,
		nullable(entry.FlowID),
		nullable(entry.FlowVersion),
		entry.EventType,
		nullable(entry.Status),
		reasonsJSON,
		entry.AmountUGX,
		nullable(entry.PerformedBy),
		metadataJSON,
	).Scan(&entry.ID, &entry.RecordedAt)
}

// ListByFlow returns the audit trail for a flow, newest first.
func (r *AuditRepository) ListByFlow(ctx context.Context, flowID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, flow_id, flow_version, event_type,
		       status, reasons, amount_ugx,
		       performed_by, metadata, recorded_at
		FROM approval_audit_log
		WHERE flow_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, flowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var (
			entry        AuditEntry
			flowID       *string
			flowVersion  *string
			status       *string
			performedBy  *string
			reasonsJSON  []byte
			metadataJSON []byte
		)
		if err := rows.Scan(
			&entry.ID, &flowID, &flowVersion, &entry.EventType,
			&status, &reasonsJSON, &entry.AmountUGX,
			&performedBy, &metadataJSON, &entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.FlowID = deref(flowID)
		entry.FlowVersion = deref(flowVersion)
		entry.Status = deref(status)
		entry.PerformedBy = deref(performedBy)
		if len(reasonsJSON) > 0 {
			if err := json.Unmarshal(reasonsJSON, &entry.Reasons); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit reasons: %w", err)
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
