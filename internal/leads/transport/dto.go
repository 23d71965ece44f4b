// Package transport defines the request and response shapes of the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/sla"
)

// CreateLeadRequest is the authenticated intake payload.
type CreateLeadRequest struct {
	Description   string     `json:"description" validate:"required,min=10"`
	Category      string     `json:"category" validate:"required"`
	Confidence    string     `json:"confidence" validate:"omitempty,oneof=low medium high"`
	Urgency       string     `json:"urgency" validate:"omitempty,oneof=low medium high critical"`
	ReporterName  string     `json:"reporterName" validate:"omitempty,max=200"`
	ReporterPhone string     `json:"reporterPhone" validate:"omitempty,max=32"`
	StoreID       *uuid.UUID `json:"storeId"`
	ZoneID        *uuid.UUID `json:"zoneId"`
	ReportedAt    *time.Time `json:"reportedAt"`
}

// PublicIntakeRequest is the unauthenticated tip-line payload. It is a
// narrower surface than CreateLeadRequest on purpose.
type PublicIntakeRequest struct {
	Description   string `json:"description" validate:"required,min=10,max=4000"`
	Category      string `json:"category" validate:"omitempty"`
	ReporterName  string `json:"reporterName" validate:"omitempty,max=200"`
	ReporterPhone string `json:"reporterPhone" validate:"omitempty,max=32"`
}

// ActionRequest applies one lifecycle action to a lead. Which payload fields
// are required depends on the action; the service validates per action.
type ActionRequest struct {
	Action  string `json:"action" validate:"required"`
	Version int    `json:"version" validate:"required,min=1"`

	// note, reject, hold, cancel, update_sla, complete, reopen_*
	Reason string `json:"reason,omitempty"`
	// note
	Note string `json:"note,omitempty"`
	// assign
	AssigneeID   *uuid.UUID `json:"assigneeId,omitempty"`
	AssigneeName string     `json:"assigneeName,omitempty"`
	TeamName     string     `json:"teamName,omitempty"`
	// complete
	Outcome    string `json:"outcome,omitempty"`
	RiskImpact string `json:"riskImpact,omitempty"`
	// update_sla
	NewDeadline *time.Time `json:"newDeadline,omitempty"`
	// add_evidence
	EvidenceKeys []string `json:"evidenceKeys,omitempty"`
	// EvidenceMetadata carries capture metadata (EXIF time, GPS) recorded with
	// the uploaded objects.
	EvidenceMetadata map[string]any `json:"evidenceMetadata,omitempty"`
}

// EscalationRequest raises a lead to a higher organizational tier.
type EscalationRequest struct {
	Reason       string `json:"reason" validate:"required,min=5"`
	EscalateTo   string `json:"escalateTo" validate:"required,oneof=team branch central"`
	UrgencyLevel string `json:"urgencyLevel" validate:"required,oneof=low medium high critical"`
}

// LeadResponse is a lead enriched with the derived fields the UI renders:
// status label, live SLA readout, and the action set the current status
// allows.
type LeadResponse struct {
	ID               uuid.UUID          `json:"id"`
	Code             string             `json:"code"`
	DegradedIdentity bool               `json:"degradedIdentity,omitempty"`
	Status           domain.Status      `json:"status"`
	StatusLabel      string             `json:"statusLabel"`
	Urgency          domain.Urgency     `json:"urgency"`
	Category         domain.Category    `json:"category"`
	Description      string             `json:"description"`
	ReporterName     string             `json:"reporterName,omitempty"`
	ReporterPhone    string             `json:"reporterPhone,omitempty"`
	StoreID          *uuid.UUID         `json:"storeId,omitempty"`
	ZoneID           *uuid.UUID         `json:"zoneId,omitempty"`
	Assignment       *domain.Assignment `json:"assignment,omitempty"`
	SLA              SLAResponse        `json:"sla"`
	Outcome          *domain.Outcome    `json:"outcome,omitempty"`
	AllowedActions   []domain.Action    `json:"allowedActions"`
	Version          int                `json:"version"`
	ReportedAt       time.Time          `json:"reportedAt"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// SLAResponse is the computed SLA readout for one lead.
type SLAResponse struct {
	Deadline       time.Time    `json:"deadline"`
	RemainingHours int          `json:"remainingHours"`
	IsOverdue      bool         `json:"isOverdue"`
	Severity       sla.Severity `json:"severity"`
	DisplayText    string       `json:"displayText"`
}

// ToLeadResponse derives the render-ready view of a lead at the given time.
func ToLeadResponse(lead domain.Lead, now time.Time) LeadResponse {
	info := sla.Compute(lead.SLADeadline, now)
	return LeadResponse{
		ID:               lead.ID,
		Code:             lead.Code,
		DegradedIdentity: lead.DegradedIdentity,
		Status:           lead.Status,
		StatusLabel:      lead.Status.Label(),
		Urgency:          lead.Urgency,
		Category:         lead.Category,
		Description:      lead.Description,
		ReporterName:     lead.ReporterName,
		ReporterPhone:    lead.ReporterPhone,
		StoreID:          lead.StoreID,
		ZoneID:           lead.ZoneID,
		Assignment:       lead.Assignment,
		SLA: SLAResponse{
			Deadline:       info.Deadline,
			RemainingHours: info.RemainingHours,
			IsOverdue:      info.IsOverdue,
			Severity:       info.Severity,
			DisplayText:    info.DisplayText(),
		},
		Outcome:        lead.Outcome,
		AllowedActions: domain.AllowedActions(lead.Status),
		Version:        lead.Version,
		ReportedAt:     lead.ReportedAt,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

// ListLeadsResponse is a filtered page of leads plus any data-quality
// warnings raised while assembling it.
type ListLeadsResponse struct {
	Leads    []LeadResponse `json:"leads"`
	Total    int            `json:"total"`
	Warnings []string       `json:"warnings,omitempty"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	Action    domain.Action  `json:"action"`
	ActorID   uuid.UUID      `json:"actorId"`
	ActorName string         `json:"actorName"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// ExportResponse is the resolved-lead export payload: the lead plus its full
// audit trail.
type ExportResponse struct {
	Lead       LeadResponse         `json:"lead"`
	AuditTrail []AuditEntryResponse `json:"auditTrail"`
	ExportedAt time.Time            `json:"exportedAt"`
}

// PublicIntakeResponse acknowledges an anonymous tip with a tracking code and
// a QR image for the printed receipt.
type PublicIntakeResponse struct {
	Code           string `json:"code"`
	TrackingURL    string `json:"trackingUrl"`
	TrackingQRCode string `json:"trackingQrCode"` // base64 PNG
}
