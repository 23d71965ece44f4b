// Package handler exposes the risk aggregation HTTP endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"surveillance_portal_backend/internal/risk/repository"
	"surveillance_portal_backend/internal/risk/scoring"
	"surveillance_portal_backend/internal/risk/service"
	"surveillance_portal_backend/platform/httpkit"
)

// Handler serves the risk profile endpoints.
type Handler struct {
	svc *service.Service
}

// New creates the risk handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /risk-profiles. Results are ordered by score, highest
// first, so the watch desk sees the worst entities at the top.
func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{
		WatchlistedOnly: c.Query("watchlisted") == "true",
		ActiveAlertOnly: c.Query("activeAlert") == "true",
	}
	if raw := c.Query("entityType"); raw != "" {
		entityType := scoring.EntityType(raw)
		if entityType != scoring.EntityStore && entityType != scoring.EntityZone {
			httpkit.Error(c, http.StatusBadRequest, "entityType filter must be store or zone", nil)
			return
		}
		params.EntityType = &entityType
	}
	if raw := c.Query("level"); raw != "" {
		level := scoring.RiskLevel(raw)
		switch level {
		case scoring.LevelCritical, scoring.LevelHigh, scoring.LevelMedium, scoring.LevelLow:
		default:
			httpkit.Error(c, http.StatusBadRequest, "unknown level filter", nil)
			return
		}
		params.Level = &level
	}
	params.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	params.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	profiles, total, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"profiles": profiles, "total": total})
}

// Get handles GET /risk-profiles/:entityId.
func (h *Handler) Get(c *gin.Context) {
	entityID, ok := parseEntityID(c)
	if !ok {
		return
	}

	profile, err := h.svc.Get(c.Request.Context(), entityID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profile)
}

// Recompute handles POST /risk-profiles/:entityId/recompute for manual
// refreshes after data corrections.
func (h *Handler) Recompute(c *gin.Context) {
	entityID, ok := parseEntityID(c)
	if !ok {
		return
	}

	entityType := scoring.EntityType(c.Query("entityType"))
	if entityType != scoring.EntityStore && entityType != scoring.EntityZone {
		httpkit.Error(c, http.StatusBadRequest, "entityType query parameter must be store or zone", nil)
		return
	}

	profile, err := h.svc.Recompute(c.Request.Context(), entityType, entityID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profile)
}

// SetWatchlist handles PUT /risk-profiles/:entityId/watchlist.
func (h *Handler) SetWatchlist(c *gin.Context) {
	entityID, ok := parseEntityID(c)
	if !ok {
		return
	}

	var req struct {
		Watchlisted bool `json:"watchlisted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	if err := h.svc.SetWatchlisted(c.Request.Context(), entityID, req.Watchlisted); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entityId": entityID, "watchlisted": req.Watchlisted})
}

// AcknowledgeAlert handles POST /risk-profiles/:entityId/alert/ack. Alerts
// stay raised until someone acknowledges them.
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	entityID, ok := parseEntityID(c)
	if !ok {
		return
	}

	if err := h.svc.AcknowledgeAlert(c.Request.Context(), entityID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entityId": entityID, "acknowledged": true})
}

func parseEntityID(c *gin.Context) (uuid.UUID, bool) {
	entityID, err := uuid.Parse(c.Param("entityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid entity id", nil)
		return uuid.Nil, false
	}
	return entityID, true
}
