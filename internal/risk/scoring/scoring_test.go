package scoring

import (
	"testing"
	"time"

	"surveillance_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func closedLead(outcome domain.Outcome, createdAgo time.Duration) domain.Lead {
	o := outcome
	return domain.Lead{
		ID:        uuid.New(),
		Status:    domain.StatusResolved,
		Outcome:   &o,
		Category:  domain.CategoryCounterfeit,
		Urgency:   domain.UrgencyMedium,
		CreatedAt: testNow.Add(-createdAgo),
	}
}

func activeLead(status domain.Status, urgency domain.Urgency, createdAgo time.Duration) domain.Lead {
	return domain.Lead{
		ID:        uuid.New(),
		Status:    status,
		Urgency:   urgency,
		Category:  domain.CategoryCounterfeit,
		CreatedAt: testNow.Add(-createdAgo),
	}
}

func TestComputeCounts(t *testing.T) {
	entityID := uuid.New()
	leads := []domain.Lead{
		closedLead(domain.OutcomeTruePositive, 24*time.Hour),
		closedLead(domain.OutcomeTruePositive, 48*time.Hour),
		closedLead(domain.OutcomeFalsePositive, 72*time.Hour),
	}

	profile := Compute(entityID, EntityStore, leads, testNow)

	// A false_positive close still lands the lead in resolved, not rejected.
	if profile.TotalLeads != 3 {
		t.Errorf("TotalLeads = %d, want 3", profile.TotalLeads)
	}
	if profile.ResolvedLeads != 3 {
		t.Errorf("ResolvedLeads = %d, want 3", profile.ResolvedLeads)
	}
	if profile.RejectedLeads != 0 {
		t.Errorf("RejectedLeads = %d, want 0", profile.RejectedLeads)
	}
	if profile.ActiveLeads != 0 {
		t.Errorf("ActiveLeads = %d, want 0", profile.ActiveLeads)
	}
}

func TestComputeCountInvariant(t *testing.T) {
	leads := []domain.Lead{
		activeLead(domain.StatusNew, domain.UrgencyLow, time.Hour),
		activeLead(domain.StatusInVerification, domain.UrgencyHigh, 2*time.Hour),
		activeLead(domain.StatusInProgress, domain.UrgencyCritical, 3*time.Hour),
		closedLead(domain.OutcomeTruePositive, 4*time.Hour),
		{ID: uuid.New(), Status: domain.StatusRejected, Category: domain.CategoryOther, CreatedAt: testNow.Add(-5 * time.Hour)},
		{ID: uuid.New(), Status: domain.StatusCancelled, Category: domain.CategoryOther, CreatedAt: testNow.Add(-6 * time.Hour)},
	}

	profile := Compute(uuid.New(), EntityZone, leads, testNow)

	if profile.ActiveLeads != 3 || profile.ResolvedLeads != 1 || profile.RejectedLeads != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1", profile.ActiveLeads, profile.ResolvedLeads, profile.RejectedLeads)
	}
	if got := profile.ActiveLeads + profile.ResolvedLeads + profile.RejectedLeads; got > profile.TotalLeads {
		t.Errorf("active+resolved+rejected = %d exceeds total %d", got, profile.TotalLeads)
	}
}

func TestComputeIdempotent(t *testing.T) {
	entityID := uuid.New()
	leads := []domain.Lead{
		activeLead(domain.StatusInProgress, domain.UrgencyCritical, time.Hour),
		closedLead(domain.OutcomeTruePositive, 40*24*time.Hour),
		closedLead(domain.OutcomeFalsePositive, 10*24*time.Hour),
	}

	first := Compute(entityID, EntityStore, leads, testNow)
	second := Compute(entityID, EntityStore, leads, testNow)

	if first != second {
		t.Errorf("recompute from the same lead set differs:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestTruePositiveCloseNeverDecreasesScore(t *testing.T) {
	entityID := uuid.New()
	urgencies := []domain.Urgency{domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh, domain.UrgencyCritical}
	impacts := []domain.RiskImpact{domain.RiskImpactIncrease, domain.RiskImpactMaintain, domain.RiskImpactDecrease}

	for _, urgency := range urgencies {
		for _, impact := range impacts {
			base := []domain.Lead{
				closedLead(domain.OutcomeTruePositive, 24*time.Hour),
				activeLead(domain.StatusInProgress, urgency, 2*time.Hour),
			}
			before := Compute(entityID, EntityStore, base, testNow)

			closed := make([]domain.Lead, len(base))
			copy(closed, base)
			outcome := domain.OutcomeTruePositive
			imp := impact
			closed[1].Status = domain.StatusResolved
			closed[1].Outcome = &outcome
			closed[1].RiskImpact = &imp
			after := Compute(entityID, EntityStore, closed, testNow)

			if after.RiskScore < before.RiskScore {
				t.Errorf("urgency=%s impact=%s: true_positive close decreased score %d -> %d",
					urgency, impact, before.RiskScore, after.RiskScore)
			}
		}
	}
}

func TestFalsePositiveCloseNeverIncreasesScore(t *testing.T) {
	entityID := uuid.New()
	base := []domain.Lead{
		closedLead(domain.OutcomeTruePositive, 24*time.Hour),
		closedLead(domain.OutcomeTruePositive, 48*time.Hour),
		activeLead(domain.StatusInVerification, domain.UrgencyHigh, 2*time.Hour),
	}
	before := Compute(entityID, EntityStore, base, testNow)

	closed := make([]domain.Lead, len(base))
	copy(closed, base)
	outcome := domain.OutcomeFalsePositive
	closed[2].Status = domain.StatusResolved
	closed[2].Outcome = &outcome
	after := Compute(entityID, EntityStore, closed, testNow)

	if after.RiskScore > before.RiskScore {
		t.Errorf("false_positive close increased score %d -> %d", before.RiskScore, after.RiskScore)
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{100, LevelCritical},
		{80, LevelCritical},
		{79, LevelHigh},
		{60, LevelHigh},
		{59, LevelMedium},
		{35, LevelMedium},
		{34, LevelLow},
		{0, LevelLow},
	}

	for _, tc := range tests {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestTrendDirection(t *testing.T) {
	entityID := uuid.New()

	// Prior window quiet, current window busy: trend must be increasing.
	busyNow := []domain.Lead{
		activeLead(domain.StatusInProgress, domain.UrgencyCritical, 24*time.Hour),
		activeLead(domain.StatusInProgress, domain.UrgencyCritical, 48*time.Hour),
		closedLead(domain.OutcomeTruePositive, 45*24*time.Hour),
	}
	profile := Compute(entityID, EntityStore, busyNow, testNow)
	if profile.TrendDirection != TrendIncreasing {
		t.Errorf("TrendDirection = %s, want increasing (change %.1f%%)", profile.TrendDirection, profile.MonthOverMonthChange)
	}

	// Prior window busy, current quiet: decreasing.
	busyBefore := []domain.Lead{
		closedLead(domain.OutcomeTruePositive, 45*24*time.Hour),
		closedLead(domain.OutcomeTruePositive, 50*24*time.Hour),
		closedLead(domain.OutcomeTruePositive, 55*24*time.Hour),
	}
	profile = Compute(entityID, EntityStore, busyBefore, testNow)
	if profile.TrendDirection != TrendDecreasing {
		t.Errorf("TrendDirection = %s, want decreasing (change %.1f%%)", profile.TrendDirection, profile.MonthOverMonthChange)
	}

	// No leads at all: stable.
	profile = Compute(entityID, EntityStore, nil, testNow)
	if profile.TrendDirection != TrendStable {
		t.Errorf("TrendDirection = %s, want stable", profile.TrendDirection)
	}
}

func TestComputeNeverSetsOperatorFlags(t *testing.T) {
	profile := Compute(uuid.New(), EntityStore, []domain.Lead{closedLead(domain.OutcomeTruePositive, time.Hour)}, testNow)
	if profile.IsWatchlisted || profile.HasActiveAlert {
		t.Error("Compute must not set watchlist or alert flags")
	}
}
