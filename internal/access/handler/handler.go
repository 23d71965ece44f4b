// Package handler exposes the permission matrix HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"surveillance_portal_backend/internal/access"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/httpkit"
)

// Handler serves the permission matrix endpoints.
type Handler struct {
	svc *access.Service
}

// New creates the access handler.
func New(svc *access.Service) *Handler {
	return &Handler{svc: svc}
}

// Matrix handles GET /permissions: the active matrix plus any pending edits.
func (h *Handler) Matrix(c *gin.Context) {
	httpkit.OK(c, gin.H{
		"entries": h.svc.Entries(),
		"staged":  h.svc.Staged(),
	})
}

// Check handles GET /permissions/check?role=...&action=... and returns the
// matrix verdict without applying anything.
func (h *Handler) Check(c *gin.Context) {
	role := access.Role(c.Query("role"))
	if !role.Valid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown role", nil)
		return
	}
	action := domain.Action(c.Query("action"))
	if !action.Valid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown action", nil)
		return
	}

	result, note := h.svc.Check(role, action)
	resp := gin.H{"role": role, "action": action, "result": result}
	if note != "" {
		resp["conditionNote"] = note
	}
	httpkit.OK(c, resp)
}

// Stage handles POST /central/permissions/stage. Staged edits are held in
// memory and have no effect until saved.
func (h *Handler) Stage(c *gin.Context) {
	var req struct {
		Action        string `json:"action" binding:"required"`
		Role          string `json:"role" binding:"required"`
		Decision      string `json:"decision" binding:"required"`
		ConditionNote string `json:"conditionNote"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	err := h.svc.Stage(access.Entry{
		Action:        domain.Action(req.Action),
		Role:          access.Role(req.Role),
		Decision:      access.Decision(req.Decision),
		ConditionNote: req.ConditionNote,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"staged": h.svc.Staged()})
}

// Discard handles POST /central/permissions/discard.
func (h *Handler) Discard(c *gin.Context) {
	h.svc.Discard()
	httpkit.OK(c, gin.H{"staged": []access.Entry{}})
}

// Save handles POST /central/permissions/save.
func (h *Handler) Save(c *gin.Context) {
	if err := h.svc.Save(c.Request.Context(), currentRole(c)); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entries": h.svc.Entries()})
}

// Reset handles POST /central/permissions/reset.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context(), currentRole(c)); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entries": h.svc.Entries()})
}

func currentRole(c *gin.Context) access.Role {
	value, _ := c.Get(httpkit.ContextRoleKey)
	text, _ := value.(string)
	return access.Role(text)
}
