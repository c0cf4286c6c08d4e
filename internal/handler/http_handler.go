package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/corppay/be-approval-flows/internal/flow"
	"github.com/corppay/be-approval-flows/internal/repository"
	"github.com/corppay/be-approval-flows/internal/service"
	"github.com/corppay/be-approval-flows/internal/store"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	service *service.ApprovalFlowService
	log     zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(service *service.ApprovalFlowService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		log:     log,
	}
}

// Routes mounts all API routes on the given router.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/flows", h.ListFlows)
		r.Post("/flows", h.CreateFlow)
		r.Get("/flows/{flowID}", h.GetFlow)
		r.Put("/flows/{flowID}", h.UpdateFlow)
		r.Delete("/flows/{flowID}", h.DeleteFlow)
		r.Post("/flows/{flowID}/publish", h.PublishFlow)
		r.Post("/flows/{flowID}/simulate", h.SimulateFlow)
		r.Get("/flows/{flowID}/audit", h.AuditTrail)
		r.Post("/templates/apply", h.ApplyTemplate)
		r.Get("/approvers", h.ListApprovers)
		r.Put("/approvers/{approverID}", h.UpdateApprover)
	})
}

// ListFlows returns all drafts together with published snapshot summaries.
func (h *HTTPHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	drafts, published := h.service.ListFlows(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"drafts":    drafts,
		"published": published,
	})
}

// CreateFlow stores a new draft flow.
func (h *HTTPHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var f flow.Flow
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateFlow(r.Context(), &f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetFlow returns one draft flow.
func (h *HTTPHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// UpdateFlow replaces a draft flow.
func (h *HTTPHandler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var f flow.Flow
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	f.ID = chi.URLParam(r, "flowID")

	if err := h.service.UpdateFlow(r.Context(), &f); err != nil {
		if errors.Is(err, store.ErrFlowNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &f)
}

// DeleteFlow removes a draft flow.
func (h *HTTPHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteFlow(r.Context(), chi.URLParam(r, "flowID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishFlow snapshots a draft into the live store.
func (h *HTTPHandler) PublishFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason      string `json:"reason"`
		Acknowledge bool   `json:"acknowledge"`
		Actor       string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.Publish(r.Context(), chi.URLParam(r, "flowID"), req.Reason, req.Acknowledge, req.Actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// SimulateFlow evaluates a scenario against a flow. The draft toggle selects
// the draft copy; the default is the published snapshot.
func (h *HTTPHandler) SimulateFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		flow.Scenario
		Draft bool `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	decision, err := h.service.Simulate(r.Context(), chi.URLParam(r, "flowID"), req.Scenario, req.Draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// AuditTrail returns a flow's audit history, newest first.
func (h *HTTPHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.AuditTrail(r.Context(), chi.URLParam(r, "flowID"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read audit trail")
		http.Error(w, "Failed to read audit trail", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*repository.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ApplyTemplate generates an industry pack and merges it into the drafts.
func (h *HTTPHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Industry string `json:"industry"`
		Mode     string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = string(flow.ApplyAppend)
	}

	applied, err := h.service.ApplyTemplate(r.Context(), flow.IndustryTag(req.Industry), flow.ApplyMode(req.Mode))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied": applied,
		"mode":    req.Mode,
	})
}

// ListApprovers returns a point-in-time copy of the approver pool.
func (h *HTTPHandler) ListApprovers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListApprovers(r.Context()))
}

// UpdateApprover applies a load delta and/or out-of-office change reported by
// the external workload tracker.
func (h *HTTPHandler) UpdateApprover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoadDelta   *int  `json:"load_delta,omitempty"`
		OutOfOffice *bool `json:"out_of_office,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.LoadDelta == nil && req.OutOfOffice == nil {
		http.Error(w, "load_delta or out_of_office is required", http.StatusBadRequest)
		return
	}

	approverID := chi.URLParam(r, "approverID")
	if req.LoadDelta != nil {
		if err := h.service.AdjustApproverLoad(r.Context(), approverID, *req.LoadDelta); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if req.OutOfOffice != nil {
		if err := h.service.SetApproverOutOfOffice(r.Context(), approverID, *req.OutOfOffice); err != nil {
			h.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// writeError maps store/validation errors to HTTP status codes.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrFlowNotFound), errors.Is(err, store.ErrApproverNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrPublishReason), errors.Is(err, store.ErrPublishAck):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, flow.ErrNegativeAmount), errors.Is(err, flow.ErrNegativeHours),
		errors.Is(err, flow.ErrNameRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
