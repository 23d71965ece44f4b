package service

import (
	"context"
	"errors"
	"testing"
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
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	leads map[uuid.UUID]domain.Lead
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]domain.Lead)}
}

func (f *fakeRepo) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	lead.Version = 1
	lead.CreatedAt = testNow
	lead.UpdatedAt = testNow
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (domain.Lead, error) {
	for _, lead := range f.leads {
		if lead.Code == code {
			return lead, nil
		}
	}
	return domain.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) Update(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	current, ok := f.leads[lead.ID]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if current.Version != lead.Version {
		return domain.Lead{}, apperr.Conflict("lead was modified by another user, refresh and retry")
	}
	lead.Version++
	lead.UpdatedAt = testNow
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]domain.Lead, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) ListByEntity(_ context.Context, _ string, _ uuid.UUID) ([]domain.Lead, error) {
	return nil, nil
}

func (f *fakeRepo) ListSLAImminent(_ context.Context, _ time.Time) ([]domain.Lead, error) {
	return nil, nil
}

type fakeAudit struct {
	entries []domain.AuditEntry
	failing bool
}

func (f *fakeAudit) Append(_ context.Context, entry domain.AuditEntry) error {
	if f.failing {
		return errors.New("audit store unavailable")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListByLead(_ context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	for _, entry := range f.entries {
		if entry.LeadID == leadID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type allowAll struct{}

func (allowAll) Authorize(access.Role, domain.Action) error { return nil }

type denyAll struct{ err error }

func (d denyAll) Authorize(access.Role, domain.Action) error { return d.err }

func newTestService(t *testing.T, auth Authorizer) (*Service, *fakeRepo, *fakeAudit) {
	t.Helper()
	repo := newFakeRepo()
	audit := &fakeAudit{}
	bus := events.NewInMemoryBus(logger.New("test"))
	svc := New(repo, audit, auth, bus, logger.New("test"), func() time.Time { return testNow })
	return svc, repo, audit
}

func seedLead(repo *fakeRepo, status domain.Status) domain.Lead {
	lead := domain.Lead{
		ID:          uuid.New(),
		Code:        "TL-20260310-TEST0001",
		Status:      status,
		Urgency:     domain.UrgencyHigh,
		Confidence:  domain.ConfidenceMedium,
		Category:    domain.CategoryCounterfeit,
		Description: "suspected counterfeit goods at market stall",
		SLADeadline: testNow.Add(48 * time.Hour),
		Version:     1,
		ReportedAt:  testNow.Add(-time.Hour),
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
	repo.leads[lead.ID] = lead
	return lead
}

func actor() Actor {
	return Actor{ID: uuid.New(), Name: "Officer Tran", Role: access.RoleBranch}
}

func TestCreateDerivesUrgencyAndDeadline(t *testing.T) {
	svc, _, _ := newTestService(t, allowAll{})

	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Description: "large shipment of untaxed cigarettes",
		Category:    "smuggling",
		Confidence:  "high",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if lead.Status != domain.StatusNew {
		t.Errorf("Status = %s, want new", lead.Status)
	}
	if lead.Urgency != domain.UrgencyHigh {
		t.Errorf("Urgency = %s, want high (derived from confidence)", lead.Urgency)
	}
	if want := testNow.Add(48 * time.Hour); !lead.SLADeadline.Equal(want) {
		t.Errorf("SLADeadline = %v, want %v", lead.SLADeadline, want)
	}
	if lead.Code == "" || lead.Version != 1 {
		t.Errorf("lead not initialized: code=%q version=%d", lead.Code, lead.Version)
	}
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t, allowAll{})

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Description: "something suspicious happening here",
		Category:    "weather",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestCompleteFromVerificationIsInvalidTransition(t *testing.T) {
	svc, repo, audit := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInVerification)

	_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:     string(domain.ActionComplete),
		Version:    lead.Version,
		Outcome:    string(domain.OutcomeTruePositive),
		RiskImpact: string(domain.RiskImpactMaintain),
		Reason:     "violation confirmed on site",
	})

	if apperr.GetKind(err) != apperr.KindInvalidTransition {
		t.Fatalf("kind = %v, want invalid transition", apperr.GetKind(err))
	}
	if got := repo.leads[lead.ID]; got.Status != domain.StatusInVerification || got.Version != 1 {
		t.Errorf("failed action mutated lead: status=%s version=%d", got.Status, got.Version)
	}
	if len(audit.entries) != 0 {
		t.Errorf("failed action appended %d audit entries", len(audit.entries))
	}
}

func TestVersionMismatchIsConflict(t *testing.T) {
	svc, repo, _ := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInVerification)

	_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:  string(domain.ActionReject),
		Version: lead.Version + 1,
		Reason:  "duplicate report",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestRetryAfterRefetchSucceeds(t *testing.T) {
	svc, repo, _ := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInVerification)

	// Another user wins the race.
	winner := repo.leads[lead.ID]
	winner.Description = "updated by someone else"
	if _, err := repo.Update(context.Background(), winner); err != nil {
		t.Fatalf("setup update: %v", err)
	}

	req := transport.ActionRequest{
		Action:  string(domain.ActionReject),
		Version: lead.Version,
		Reason:  "duplicate report",
	}
	if _, err := svc.ApplyAction(context.Background(), lead.ID, actor(), req); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("stale write kind = %v, want conflict", apperr.GetKind(err))
	}

	fresh, err := svc.Get(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	req.Version = fresh.Version
	updated, err := svc.ApplyAction(context.Background(), lead.ID, actor(), req)
	if err != nil {
		t.Fatalf("retry after refetch: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Errorf("Status = %s, want rejected", updated.Status)
	}
}

func TestPayloadValidationPerAction(t *testing.T) {
	tests := []struct {
		name   string
		status domain.Status
		req    transport.ActionRequest
	}{
		{"reject without reason", domain.StatusInVerification, transport.ActionRequest{Action: "reject", Reason: "   "}},
		{"note without text", domain.StatusNew, transport.ActionRequest{Action: "note"}},
		{"assign without assignee", domain.StatusInVerification, transport.ActionRequest{Action: "assign"}},
		{"cancel without reason", domain.StatusInProgress, transport.ActionRequest{Action: "cancel"}},
		{"complete without outcome", domain.StatusInProgress, transport.ActionRequest{Action: "complete", RiskImpact: "maintain", Reason: "done"}},
		{"complete without risk impact", domain.StatusInProgress, transport.ActionRequest{Action: "complete", Outcome: "true_positive", Reason: "done"}},
		{"complete without reason", domain.StatusInProgress, transport.ActionRequest{Action: "complete", Outcome: "true_positive", RiskImpact: "maintain"}},
		{"update_sla in the past", domain.StatusInProgress, transport.ActionRequest{Action: "update_sla", Reason: "ext", NewDeadline: timePtr(testNow.Add(-time.Hour))}},
		{"update_sla without reason", domain.StatusInProgress, transport.ActionRequest{Action: "update_sla", NewDeadline: timePtr(testNow.Add(time.Hour))}},
		{"add_evidence without objects", domain.StatusInProgress, transport.ActionRequest{Action: "add_evidence"}},
		{"reopen without reason", domain.StatusResolved, transport.ActionRequest{Action: "reopen_to_progress"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, allowAll{})
			lead := seedLead(repo, tc.status)
			tc.req.Version = lead.Version

			_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), tc.req)
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("kind = %v (%v), want validation", apperr.GetKind(err), err)
			}
		})
	}
}

func TestCompleteRecordsOutcomeAndTransitions(t *testing.T) {
	svc, repo, audit := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInProgress)

	updated, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:     string(domain.ActionComplete),
		Version:    lead.Version,
		Outcome:    string(domain.OutcomeTruePositive),
		RiskImpact: string(domain.RiskImpactIncrease),
		Reason:     "counterfeit stock seized",
	})
	if err != nil {
		t.Fatalf("ApplyAction: %v", err)
	}

	if updated.Status != domain.StatusResolved {
		t.Errorf("Status = %s, want resolved", updated.Status)
	}
	if updated.Outcome == nil || *updated.Outcome != domain.OutcomeTruePositive {
		t.Errorf("Outcome = %v, want true_positive", updated.Outcome)
	}
	if updated.RiskImpact == nil || *updated.RiskImpact != domain.RiskImpactIncrease {
		t.Errorf("RiskImpact = %v, want increase", updated.RiskImpact)
	}
	if updated.Version != lead.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, lead.Version+1)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionComplete {
		t.Fatalf("audit entries = %+v, want one complete entry", audit.entries)
	}
	if audit.entries[0].Details["outcome"] != "true_positive" {
		t.Errorf("audit details missing outcome: %v", audit.entries[0].Details)
	}
}

func TestReopenClearsOutcome(t *testing.T) {
	svc, repo, _ := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusResolved)
	outcome := domain.OutcomeTruePositive
	lead.Outcome = &outcome
	repo.leads[lead.ID] = lead

	updated, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:  string(domain.ActionReopenToVerification),
		Version: lead.Version,
		Reason:  "new evidence surfaced",
	})
	if err != nil {
		t.Fatalf("ApplyAction: %v", err)
	}
	if updated.Status != domain.StatusInVerification {
		t.Errorf("Status = %s, want in_verification", updated.Status)
	}
	if updated.Outcome != nil {
		t.Errorf("Outcome = %v, want cleared", updated.Outcome)
	}
}

func TestPermissionDenialHaltsAction(t *testing.T) {
	forbidden := apperr.Forbidden("role doi may not perform reject")
	svc, repo, audit := newTestService(t, denyAll{err: forbidden})
	lead := seedLead(repo, domain.StatusInVerification)

	_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:  string(domain.ActionReject),
		Version: lead.Version,
		Reason:  "invalid report",
	})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want forbidden", apperr.GetKind(err))
	}
	if err.Error() != forbidden.Error() {
		t.Errorf("denial reason rewritten: %q", err.Error())
	}
	if len(audit.entries) != 0 {
		t.Error("denied action must not touch the audit trail")
	}
}

func TestScopeCheckHaltsAction(t *testing.T) {
	svc, repo, _ := newTestService(t, denyAll{err: apperr.ScopeCheckRequired("only within own jurisdiction")})
	lead := seedLead(repo, domain.StatusInVerification)

	_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:       string(domain.ActionAssign),
		Version:      lead.Version,
		AssigneeID:   uuidPtr(uuid.New()),
		AssigneeName: "Team Lead",
	})
	if apperr.GetKind(err) != apperr.KindScopeCheck {
		t.Errorf("kind = %v, want scope check", apperr.GetKind(err))
	}
}

func TestAuditFailureRollsBackTransition(t *testing.T) {
	svc, repo, audit := newTestService(t, allowAll{})
	audit.failing = true
	lead := seedLead(repo, domain.StatusInVerification)

	_, err := svc.ApplyAction(context.Background(), lead.ID, actor(), transport.ActionRequest{
		Action:  string(domain.ActionReject),
		Version: lead.Version,
		Reason:  "duplicate report",
	})
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Fatalf("kind = %v, want internal", apperr.GetKind(err))
	}
	if got := repo.leads[lead.ID]; got.Status != domain.StatusInVerification {
		t.Errorf("transition stood despite audit failure: status=%s", got.Status)
	}
}

func TestDeleteIsCancelWithAuditEntry(t *testing.T) {
	svc, repo, audit := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInVerification)

	updated, err := svc.Delete(context.Background(), lead.ID, actor(), lead.Version)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if updated.Status != domain.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", updated.Status)
	}
	if len(audit.entries) != 1 || audit.entries[0].Details["reason"] != "intake_error" {
		t.Errorf("audit entries = %+v, want one cancel with intake_error reason", audit.entries)
	}
}

func TestEscalateTerminalLeadFails(t *testing.T) {
	svc, repo, _ := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusCancelled)

	err := svc.SubmitEscalation(context.Background(), lead.ID, actor(), escalation.Request{
		Reason:       "needs central attention",
		EscalateTo:   domain.TierCentral,
		UrgencyLevel: domain.UrgencyCritical,
	})
	if apperr.GetKind(err) != apperr.KindInvalidTransition {
		t.Errorf("kind = %v, want invalid transition", apperr.GetKind(err))
	}
}

func TestEscalateAppendsAuditEntry(t *testing.T) {
	svc, repo, audit := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInProgress)

	err := svc.SubmitEscalation(context.Background(), lead.ID, actor(), escalation.Request{
		Reason:       "repeat offender, needs branch decision",
		EscalateTo:   domain.TierBranch,
		UrgencyLevel: domain.UrgencyHigh,
	})
	if err != nil {
		t.Fatalf("SubmitEscalation: %v", err)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionEscalate {
		t.Fatalf("audit entries = %+v, want one escalate entry", audit.entries)
	}
	if got := repo.leads[lead.ID]; got.Status != domain.StatusInProgress {
		t.Errorf("escalation changed status to %s", got.Status)
	}
}

func TestExportRequiresExportableStatus(t *testing.T) {
	svc, repo, _ := newTestService(t, allowAll{})
	lead := seedLead(repo, domain.StatusInProgress)

	_, err := svc.Export(context.Background(), lead.ID, actor())
	if apperr.GetKind(err) != apperr.KindInvalidTransition {
		t.Errorf("kind = %v, want invalid transition", apperr.GetKind(err))
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
