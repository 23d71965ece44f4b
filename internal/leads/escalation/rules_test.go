package escalation

import (
	"testing"
	"time"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/sla"
	"surveillance_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

func testLead(urgency domain.Urgency, reportedAgo, updatedAgo time.Duration, assigned bool, now time.Time) domain.Lead {
	lead := domain.Lead{
		ID:         uuid.New(),
		Urgency:    urgency,
		ReportedAt: now.Add(-reportedAgo),
		UpdatedAt:  now.Add(-updatedAgo),
	}
	if assigned {
		lead.Assignment = &domain.Assignment{UserID: uuid.New(), UserName: "Officer", AssignedAt: now}
	}
	return lead
}

func hasRule(advisories []Advisory, rule Rule) bool {
	for _, a := range advisories {
		if a.Rule == rule {
			return true
		}
	}
	return false
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lead      domain.Lead
		deadline  time.Time
		wantRules []Rule
	}{
		{
			name:      "sla imminent at ninety minutes",
			lead:      testLead(domain.UrgencyMedium, time.Hour, time.Minute, true, now),
			deadline:  now.Add(90 * time.Minute),
			wantRules: []Rule{RuleSLAImminent},
		},
		{
			name:      "overdue also qualifies",
			lead:      testLead(domain.UrgencyMedium, time.Hour, time.Minute, true, now),
			deadline:  now.Add(-3 * time.Hour),
			wantRules: []Rule{RuleSLAImminent},
		},
		{
			name:      "critical unassigned past grace",
			lead:      testLead(domain.UrgencyCritical, time.Hour, time.Minute, false, now),
			deadline:  now.Add(72 * time.Hour),
			wantRules: []Rule{RuleCriticalUnassigned},
		},
		{
			name:      "critical assigned does not fire",
			lead:      testLead(domain.UrgencyCritical, time.Hour, time.Minute, true, now),
			deadline:  now.Add(72 * time.Hour),
			wantRules: nil,
		},
		{
			name:      "high urgency stale",
			lead:      testLead(domain.UrgencyHigh, 10*time.Hour, 5*time.Hour, true, now),
			deadline:  now.Add(72 * time.Hour),
			wantRules: []Rule{RuleHighStale},
		},
		{
			name:      "fresh lead with comfortable sla",
			lead:      testLead(domain.UrgencyLow, time.Minute, time.Minute, false, now),
			deadline:  now.Add(72 * time.Hour),
			wantRules: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := sla.Compute(tc.deadline, now)
			got := Evaluate(tc.lead, info, now)

			if len(got) != len(tc.wantRules) {
				t.Fatalf("Evaluate returned %d advisories, want %d: %+v", len(got), len(tc.wantRules), got)
			}
			for _, rule := range tc.wantRules {
				if !hasRule(got, rule) {
					t.Errorf("missing advisory %q", rule)
				}
			}
		})
	}
}

func TestEligible(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if !Eligible(sla.Compute(now.Add(90*time.Minute), now)) {
		t.Error("lead with 90 minutes of SLA left should be auto-escalation eligible")
	}
	if !Eligible(sla.Compute(now.Add(-time.Hour), now)) {
		t.Error("overdue lead should be auto-escalation eligible")
	}
	if Eligible(sla.Compute(now.Add(3*time.Hour), now)) {
		t.Error("lead with 3 hours of SLA left should not be eligible")
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{Reason: "repeat offender", EscalateTo: domain.TierBranch, UrgencyLevel: domain.UrgencyHigh}, false},
		{"empty reason", Request{Reason: "  ", EscalateTo: domain.TierBranch, UrgencyLevel: domain.UrgencyHigh}, true},
		{"bad tier", Request{Reason: "x", EscalateTo: "precinct", UrgencyLevel: domain.UrgencyHigh}, true},
		{"low urgency", Request{Reason: "x", EscalateTo: domain.TierCentral, UrgencyLevel: domain.UrgencyLow}, true},
		{"critical urgency", Request{Reason: "x", EscalateTo: domain.TierCentral, UrgencyLevel: domain.UrgencyCritical}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req)
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.wantErr && !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("error kind = %v, want KindValidation", apperr.GetKind(err))
			}
		})
	}
}
