// Package service orchestrates the lead lifecycle: permission checks,
// status-machine enforcement, per-action payload validation, versioned writes,
// audit-trail appends, and event publication.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"surveillance_portal_backend/internal/access"
	"surveillance_portal_backend/internal/events"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/escalation"
	"surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/leads/transport"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
	"surveillance_portal_backend/platform/phone"
)

// Default SLA budgets per triage urgency.
var slaBudgets = map[domain.Urgency]time.Duration{
	domain.UrgencyCritical: 24 * time.Hour,
	domain.UrgencyHigh:     48 * time.Hour,
	domain.UrgencyMedium:   72 * time.Hour,
	domain.UrgencyLow:      120 * time.Hour,
}

// Actor is the authenticated user applying an action.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role access.Role
}

// Authorizer resolves (role, action) against the permission matrix.
type Authorizer interface {
	Authorize(role access.Role, action domain.Action) error
}

// Service implements the lead lifecycle engine.
type Service struct {
	repo  repository.Repository
	audit repository.AuditRepository
	auth  Authorizer
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates the lead service. nowFn may be nil, defaulting to time.Now.
func New(repo repository.Repository, audit repository.AuditRepository, auth Authorizer, bus events.Bus, log *logger.Logger, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{repo: repo, audit: audit, auth: auth, bus: bus, log: log, now: nowFn}
}

// Create registers a new lead from authenticated intake.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (domain.Lead, error) {
	category := domain.Category(req.Category)
	if !category.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown category %q", req.Category))
	}

	urgency := domain.Urgency(req.Urgency)
	if req.Urgency == "" {
		urgency = domain.UrgencyFromConfidence(domain.Confidence(req.Confidence))
	} else if !urgency.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown urgency %q", req.Urgency))
	}

	now := s.now()
	reportedAt := now
	if req.ReportedAt != nil {
		reportedAt = *req.ReportedAt
	}

	lead := domain.Lead{
		ID:            uuid.New(),
		Code:          generateCode(now),
		Status:        domain.StatusNew,
		Urgency:       urgency,
		Confidence:    domain.Confidence(req.Confidence),
		Category:      category,
		Description:   strings.TrimSpace(req.Description),
		ReporterName:  strings.TrimSpace(req.ReporterName),
		ReporterPhone: phone.NormalizeE164(req.ReporterPhone),
		StoreID:       req.StoreID,
		ZoneID:        req.ZoneID,
		SLADeadline:   reportedAt.Add(slaBudgets[urgency]),
		ReportedAt:    reportedAt,
	}
	if lead.Confidence == "" {
		lead.Confidence = domain.ConfidenceMedium
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return domain.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    created.ID,
		Code:      created.Code,
		StoreID:   created.StoreID,
		ZoneID:    created.ZoneID,
	})
	return created, nil
}

// CreateFromPublicIntake registers an anonymous tip. Tips start at low
// confidence and an uncategorized report falls back to other.
func (s *Service) CreateFromPublicIntake(ctx context.Context, req transport.PublicIntakeRequest) (domain.Lead, error) {
	category := req.Category
	if category == "" || !domain.Category(category).Valid() {
		category = string(domain.CategoryOther)
	}
	return s.Create(ctx, transport.CreateLeadRequest{
		Description:   req.Description,
		Category:      category,
		Confidence:    string(domain.ConfidenceLow),
		ReporterName:  req.ReporterName,
		ReporterPhone: req.ReporterPhone,
	})
}

// Get retrieves a single lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode retrieves a lead by its public tracking code.
func (s *Service) GetByCode(ctx context.Context, code string) (domain.Lead, error) {
	return s.repo.GetByCode(ctx, code)
}

// AuditTrail returns the lead's append-only history.
func (s *Service) AuditTrail(ctx context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return nil, err
	}
	return s.audit.ListByLead(ctx, leadID)
}

// ApplyAction runs the full transition pipeline for one action: permission
// check, status-machine check, payload validation, versioned write, audit
// append, event publication. The returned lead reflects the applied action.
func (s *Service) ApplyAction(ctx context.Context, leadID uuid.UUID, actor Actor, req transport.ActionRequest) (domain.Lead, error) {
	action := domain.Action(req.Action)
	if !action.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown action %q", req.Action))
	}

	if err := s.auth.Authorize(actor.Role, action); err != nil {
		return domain.Lead{}, err
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}

	if action == domain.ActionEscalate {
		return domain.Lead{}, apperr.BadRequest("escalation has a dedicated endpoint")
	}
	if !domain.CanApply(lead.Status, action) {
		return domain.Lead{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot %s: lead is %s", action, lead.Status))
	}
	if req.Version != lead.Version {
		return domain.Lead{}, apperr.Conflict("lead was modified by another user, refresh and retry")
	}

	now := s.now()
	details := map[string]any{}
	mutated := lead

	// Exhaustive per-action payload rules. Every failure names the missing
	// precondition so the client can re-prompt.
	switch action {
	case domain.ActionView, domain.ActionExport:
		// Read-only actions: no write, no audit entry.
		return lead, nil

	case domain.ActionNote:
		if strings.TrimSpace(req.Note) == "" {
			return domain.Lead{}, apperr.Validation("note must not be empty")
		}
		details["note"] = strings.TrimSpace(req.Note)

	case domain.ActionStartVerification:
		// No payload.

	case domain.ActionAssign:
		if req.AssigneeID == nil {
			return domain.Lead{}, apperr.Validation("assignee is required")
		}
		if strings.TrimSpace(req.AssigneeName) == "" {
			return domain.Lead{}, apperr.Validation("assignee name is required")
		}
		mutated.Assignment = &domain.Assignment{
			UserID:     *req.AssigneeID,
			UserName:   req.AssigneeName,
			TeamName:   req.TeamName,
			AssignedAt: now,
		}
		details["assigneeId"] = req.AssigneeID.String()
		details["assigneeName"] = req.AssigneeName

	case domain.ActionReject:
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("reject reason must not be empty")
		}
		details["reason"] = strings.TrimSpace(req.Reason)

	case domain.ActionHold:
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("hold reason must not be empty")
		}
		details["reason"] = strings.TrimSpace(req.Reason)

	case domain.ActionCancel:
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("cancel reason must not be empty")
		}
		details["reason"] = strings.TrimSpace(req.Reason)

	case domain.ActionAddEvidence:
		if len(req.EvidenceKeys) == 0 {
			return domain.Lead{}, apperr.Validation("at least one evidence object is required")
		}
		details["evidenceKeys"] = req.EvidenceKeys
		if len(req.EvidenceMetadata) > 0 {
			details["evidenceMetadata"] = req.EvidenceMetadata
		}

	case domain.ActionUpdateSLA:
		if req.NewDeadline == nil {
			return domain.Lead{}, apperr.Validation("new deadline is required")
		}
		if req.NewDeadline.Before(now) {
			return domain.Lead{}, apperr.Validation("new deadline must not be in the past")
		}
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("sla change reason must not be empty")
		}
		details["previousDeadline"] = lead.SLADeadline
		details["newDeadline"] = *req.NewDeadline
		details["reason"] = strings.TrimSpace(req.Reason)
		mutated.SLADeadline = *req.NewDeadline

	case domain.ActionComplete:
		outcome := domain.Outcome(req.Outcome)
		if !outcome.Valid() {
			return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown outcome %q", req.Outcome))
		}
		impact := domain.RiskImpact(req.RiskImpact)
		if !impact.Valid() {
			return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown risk impact %q", req.RiskImpact))
		}
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("completion reason must not be empty")
		}
		mutated.Outcome = &outcome
		mutated.RiskImpact = &impact
		details["outcome"] = string(outcome)
		details["riskImpact"] = string(impact)
		details["reason"] = strings.TrimSpace(req.Reason)

	case domain.ActionReopenToProgress, domain.ActionReopenToVerification:
		if strings.TrimSpace(req.Reason) == "" {
			return domain.Lead{}, apperr.Validation("reopen reason must not be empty")
		}
		details["reason"] = strings.TrimSpace(req.Reason)
		details["previousOutcome"] = outcomeDetail(lead.Outcome)
		mutated.Outcome = nil
		mutated.RiskImpact = nil
	}

	target, changed := domain.TransitionTarget(lead.Status, action)
	if changed {
		details["fromStatus"] = string(lead.Status)
		details["toStatus"] = string(target)
	}
	mutated.Status = target

	updated, err := s.repo.Update(ctx, mutated)
	if err != nil {
		return domain.Lead{}, err
	}

	entry := domain.AuditEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Timestamp: now,
		Details:   details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		// The trail is the system of record for who did what. A transition
		// without its entry must not stand, so revert the write.
		s.log.AuditAppendFailed(lead.ID.String(), string(action), err)
		if _, revertErr := s.repo.Update(ctx, revertTo(lead, updated.Version)); revertErr != nil {
			s.log.DatabaseError("revert lead after audit failure", revertErr)
		}
		return domain.Lead{}, apperr.Internal("transition rolled back: audit trail unavailable")
	}

	s.log.LeadTransition(lead.ID.String(), string(action), string(lead.Status), string(updated.Status), actor.ID.String())

	event := events.LeadTransitioned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     updated.ID,
		Code:       updated.Code,
		Action:     action,
		FromStatus: lead.Status,
		ToStatus:   updated.Status,
		ActorID:    actor.ID,
		StoreID:    updated.StoreID,
		ZoneID:     updated.ZoneID,
		Outcome:    updated.Outcome,
	}
	s.bus.Publish(ctx, event)

	return updated, nil
}

// SubmitEscalation raises a lead to a higher tier. Escalation never changes
// lead status; it appends to the trail and notifies the addressed tier.
func (s *Service) SubmitEscalation(ctx context.Context, leadID uuid.UUID, actor Actor, req escalation.Request) error {
	if err := s.auth.Authorize(actor.Role, domain.ActionEscalate); err != nil {
		return err
	}
	if err := escalation.ValidateRequest(req); err != nil {
		return err
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status.IsTerminal() {
		return apperr.InvalidTransition(fmt.Sprintf("cannot escalate: lead is %s", lead.Status))
	}

	entry := domain.AuditEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Action:    domain.ActionEscalate,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Timestamp: s.now(),
		Details: map[string]any{
			"reason":       req.Reason,
			"escalateTo":   string(req.EscalateTo),
			"urgencyLevel": string(req.UrgencyLevel),
		},
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.AuditAppendFailed(lead.ID.String(), string(domain.ActionEscalate), err)
		return apperr.Internal("escalation rolled back: audit trail unavailable")
	}

	s.bus.Publish(ctx, events.EscalationSubmitted{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		Code:         lead.Code,
		Reason:       req.Reason,
		EscalateTo:   req.EscalateTo,
		UrgencyLevel: req.UrgencyLevel,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
	})
	return nil
}

// Delete is intentionally a cancel: leads are never physically removed, so
// the audit trail and risk history stay intact.
func (s *Service) Delete(ctx context.Context, leadID uuid.UUID, actor Actor, version int) (domain.Lead, error) {
	return s.ApplyAction(ctx, leadID, actor, transport.ActionRequest{
		Action:  string(domain.ActionCancel),
		Version: version,
		Reason:  "intake_error",
	})
}

// Export assembles the lead and its full audit trail for download. Only
// statuses whose action set includes export qualify.
func (s *Service) Export(ctx context.Context, leadID uuid.UUID, actor Actor) (transport.ExportResponse, error) {
	if err := s.auth.Authorize(actor.Role, domain.ActionExport); err != nil {
		return transport.ExportResponse{}, err
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.ExportResponse{}, err
	}
	if !domain.CanApply(lead.Status, domain.ActionExport) {
		return transport.ExportResponse{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot export: lead is %s", lead.Status))
	}

	trail, err := s.audit.ListByLead(ctx, leadID)
	if err != nil {
		return transport.ExportResponse{}, err
	}

	now := s.now()
	resp := transport.ExportResponse{
		Lead:       transport.ToLeadResponse(lead, now),
		ExportedAt: now,
	}
	for _, entry := range trail {
		resp.AuditTrail = append(resp.AuditTrail, transport.AuditEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			ActorName: entry.ActorName,
			Timestamp: entry.Timestamp,
			Details:   entry.Details,
		})
	}
	return resp, nil
}

// revertTo rebuilds the pre-transition lead carrying the post-write version so
// the compensating update passes the version guard.
func revertTo(original domain.Lead, currentVersion int) domain.Lead {
	reverted := original
	reverted.Version = currentVersion
	return reverted
}

func outcomeDetail(o *domain.Outcome) string {
	if o == nil {
		return ""
	}
	return string(*o)
}

// generateCode builds the human-facing lead code. Codes are display handles,
// not identity: collisions are tolerated and resolved at query time.
func generateCode(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("TL-%s-%s", now.Format("20060102"), suffix)
}
