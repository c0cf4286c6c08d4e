package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// NotificationPublisher publishes approval-flow events to NATS for
// consumption by the notifications platform, which owns actual delivery
// (email/SMS/WhatsApp/WeChat). This service only decides which channels
// apply; it never sends anything itself.
//
// Subject convention: notifications.approvals.<event_type>
// Event types: sla_breach, flow_published
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt an
// evaluation.
type NotificationPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType   string                 `json:"event_type"`
	FlowID      string                 `json:"flow_id"`
	FlowName    string                 `json:"flow_name"`
	FlowVersion string                 `json:"flow_version,omitempty"`
	ActorID     string                 `json:"actor_id,omitempty"`
	Channels    []flow.NotifyChannel   `json:"channels,omitempty"`
	Severity    string                 `json:"severity,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection.
func NewNotificationPublisher(nc *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nc: nc, log: log}
}

// PublishBreachAlert announces that an evaluation produced one or more
// breached stages, carrying the flow's configured channel set.
func (p *NotificationPublisher) PublishBreachAlert(ctx context.Context, f *flow.Flow, version string, d flow.Decision) {
	var breachedStages []map[string]interface{}
	for _, st := range d.Stages {
		if !st.Breached {
			continue
		}
		breachedStages = append(breachedStages, map[string]interface{}{
			"stage_id":      st.StageID,
			"stage_name":    st.StageName,
			"assigned_to":   st.AssignedTo,
			"escalation_to": st.EscalationTo,
		})
	}
	if len(breachedStages) == 0 {
		return
	}

	p.publish("sla_breach", &NotificationEvent{
		EventType:   "sla_breach",
		FlowID:      f.ID,
		FlowName:    f.Name,
		FlowVersion: version,
		Channels:    f.SLA.NotifyChannels,
		Severity:    "warning",
		Payload:     map[string]interface{}{"stages": breachedStages},
	})
}

// PublishFlowPublished announces that a draft was published into a live
// snapshot.
func (p *NotificationPublisher) PublishFlowPublished(ctx context.Context, snapshot *flow.PublishedFlow, actor string) {
	p.publish("flow_published", &NotificationEvent{
		EventType:   "flow_published",
		FlowID:      snapshot.Flow.ID,
		FlowName:    snapshot.Flow.Name,
		FlowVersion: snapshot.Version,
		ActorID:     actor,
		Severity:    "info",
		Payload:     map[string]interface{}{"reason": snapshot.Reason},
	})
}

func (p *NotificationPublisher) publish(eventType string, event *NotificationEvent) {
	if p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.approvals.%s", eventType)
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("flow_id", event.FlowID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("flow_id", event.FlowID).
		Msg("notification: event published")
}
