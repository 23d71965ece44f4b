package handler

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"surveillance_portal_backend/internal/leads/transport"
	"surveillance_portal_backend/platform/httpkit"
)

// PublicHandler serves the unauthenticated tip-line endpoints.
type PublicHandler struct {
	inner      *Handler
	appBaseURL string
}

// NewPublic creates the public intake handler. appBaseURL is used to build
// the tracking link printed on the submission receipt.
func NewPublic(inner *Handler, appBaseURL string) *PublicHandler {
	return &PublicHandler{inner: inner, appBaseURL: strings.TrimRight(appBaseURL, "/")}
}

// SubmitTip handles POST /public/tips.
func (h *PublicHandler) SubmitTip(c *gin.Context) {
	var req transport.PublicIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.inner.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.inner.svc.CreateFromPublicIntake(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	trackingURL := h.appBaseURL + "/track/" + lead.Code
	resp := transport.PublicIntakeResponse{
		Code:        lead.Code,
		TrackingURL: trackingURL,
	}
	// The QR image is a convenience for printed receipts; a generation
	// failure must not fail the submission.
	if png, err := qrcode.Encode(trackingURL, qrcode.Medium, 256); err == nil {
		resp.TrackingQRCode = base64.StdEncoding.EncodeToString(png)
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// TrackTip handles GET /public/tips/:code. Reporters only see the status of
// their own submission, never the internal detail.
func (h *PublicHandler) TrackTip(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		httpkit.Error(c, http.StatusBadRequest, "tracking code is required", nil)
		return
	}

	lead, err := h.inner.svc.GetByCode(c.Request.Context(), code)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"code":        lead.Code,
		"status":      lead.Status,
		"statusLabel": lead.Status.Label(),
		"reportedAt":  lead.ReportedAt.Format(time.RFC3339),
	})
}
