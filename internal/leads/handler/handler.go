// Package handler exposes the lead lifecycle HTTP endpoints.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveillance_portal_backend/internal/access"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/escalation"
	"surveillance_portal_backend/internal/leads/query"
	"surveillance_portal_backend/internal/leads/service"
	"surveillance_portal_backend/internal/leads/sla"
	"surveillance_portal_backend/internal/leads/transport"
	"surveillance_portal_backend/platform/httpkit"
	"surveillance_portal_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// Handler serves the lead endpoints.
type Handler struct {
	svc   *service.Service
	query *query.Service
	val   *validator.Validator
}

// New creates the leads handler.
func New(svc *service.Service, querySvc *query.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, query: querySvc, val: val}
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead, time.Now()))
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp, err := h.query.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	resp, err := h.query.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// ApplyAction handles POST /leads/:id/actions.
func (h *Handler) ApplyAction(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.ApplyAction(c.Request.Context(), leadID, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now()))
}

// Escalate handles POST /leads/:id/escalations.
func (h *Handler) Escalate(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.EscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.svc.SubmitEscalation(c.Request.Context(), leadID, actor, escalation.Request{
		Reason:       req.Reason,
		EscalateTo:   domain.EscalationTier(req.EscalateTo),
		UrgencyLevel: domain.Urgency(req.UrgencyLevel),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "escalated"})
}

// Delete handles DELETE /leads/:id. Physically a cancel.
func (h *Handler) Delete(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	version, err := strconv.Atoi(c.Query("version"))
	if err != nil || version < 1 {
		httpkit.Error(c, http.StatusBadRequest, "version query parameter is required", nil)
		return
	}

	lead, err := h.svc.Delete(c.Request.Context(), leadID, actor, version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now()))
}

// AuditTrail handles GET /leads/:id/audit.
func (h *Handler) AuditTrail(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	entries, err := h.svc.AuditTrail(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, transport.AuditEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			ActorName: entry.ActorName,
			Timestamp: entry.Timestamp,
			Details:   entry.Details,
		})
	}
	httpkit.OK(c, resp)
}

// Export handles GET /leads/:id/export.
func (h *Handler) Export(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Export(c.Request.Context(), leadID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Advisories handles GET /leads/:id/advisories: the escalation signals that
// currently apply to the lead.
func (h *Handler) Advisories(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	now := time.Now()
	info := sla.Compute(lead.SLADeadline, now)
	advisories := escalation.Evaluate(lead, info, now)
	httpkit.OK(c, gin.H{
		"advisories":           advisories,
		"autoEscalateEligible": escalation.Eligible(info),
		"sla":                  info,
	})
}

// AllowedActions handles GET /lead-statuses/:status/actions.
func (h *Handler) AllowedActions(c *gin.Context) {
	status := domain.Status(c.Param("status"))
	if !status.Valid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown status", nil)
		return
	}
	httpkit.OK(c, gin.H{"status": status, "actions": domain.AllowedActions(status)})
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return leadID, true
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := c.Get(httpkit.ContextUserIDKey)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return service.Actor{}, false
	}
	name, _ := c.Get(httpkit.ContextUserNameKey)
	role, _ := c.Get(httpkit.ContextRoleKey)

	nameText, _ := name.(string)
	roleText, _ := role.(string)
	return service.Actor{
		ID:   userID.(uuid.UUID),
		Name: nameText,
		Role: access.Role(roleText),
	}, true
}

func parseFilter(c *gin.Context) (query.Filter, error) {
	var filter query.Filter

	for _, raw := range c.QueryArray("status") {
		status := domain.Status(raw)
		if !status.Valid() {
			return query.Filter{}, errInvalidFilter("status", raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if raw := c.Query("urgency"); raw != "" {
		urgency := domain.Urgency(raw)
		if !urgency.Valid() {
			return query.Filter{}, errInvalidFilter("urgency", raw)
		}
		filter.Urgency = &urgency
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.Category(raw)
		if !category.Valid() {
			return query.Filter{}, errInvalidFilter("category", raw)
		}
		filter.Category = &category
	}
	for name, target := range map[string]**uuid.UUID{
		"assigneeId": &filter.AssigneeID,
		"storeId":    &filter.StoreID,
		"zoneId":     &filter.ZoneID,
	} {
		if raw := c.Query(name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return query.Filter{}, errInvalidFilter(name, raw)
			}
			*target = &id
		}
	}

	filter.Search = c.Query("search")
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return filter, nil
}

type filterError struct {
	field string
	value string
}

func (e filterError) Error() string {
	return "invalid " + e.field + " filter: " + e.value
}

func errInvalidFilter(field, value string) error {
	return filterError{field: field, value: value}
}
