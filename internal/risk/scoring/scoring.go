// Package scoring implements the risk aggregation engine: a pure rollup that
// turns the set of leads linked to an entity into a RiskProfile. Recomputing
// from the same lead set always yields an identical profile.
package scoring

import (
	"time"

	"surveillance_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// EntityType identifies what kind of entity a profile describes.
type EntityType string

const (
	EntityStore EntityType = "store"
	EntityZone  EntityType = "zone"
)

// RiskLevel is the deterministic banding of a risk score.
type RiskLevel string

const (
	LevelCritical RiskLevel = "critical"
	LevelHigh     RiskLevel = "high"
	LevelMedium   RiskLevel = "medium"
	LevelLow      RiskLevel = "low"
)

// Trend describes the direction of an entity's risk over consecutive windows.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// Profile is the derived per-entity risk rollup. IsWatchlisted and
// HasActiveAlert are operator/rule flags carried alongside the computed
// fields; Compute never sets them.
type Profile struct {
	EntityID             uuid.UUID  `json:"entityId"`
	EntityType           EntityType `json:"entityType"`
	RiskScore            int        `json:"riskScore"`
	RiskLevel            RiskLevel  `json:"riskLevel"`
	TotalLeads           int        `json:"totalLeads"`
	ActiveLeads          int        `json:"activeLeads"`
	ResolvedLeads        int        `json:"resolvedLeads"`
	RejectedLeads        int        `json:"rejectedLeads"`
	TrendDirection       Trend      `json:"trendDirection"`
	MonthOverMonthChange float64    `json:"monthOverMonthChange"`
	IsWatchlisted        bool       `json:"isWatchlisted"`
	HasActiveAlert       bool       `json:"hasActiveAlert"`
	ComputedAt           time.Time  `json:"computedAt"`
}

const (
	windowDays = 30

	// Per-lead score weights. True-positive weights must stay at or above the
	// unresolved-urgency weights: closing an unresolved critical lead as
	// true_positive removes its urgency contribution, and the close must never
	// lower the score.
	weightTruePositiveIncrease = 16.0
	weightTruePositiveMaintain = 12.0
	weightTruePositiveDecrease = 10.0
	weightFalsePositive        = -4.0
	weightMonitoring           = 6.0
	weightUnresolvedCritical   = 10.0
	weightUnresolvedHigh       = 6.0

	trendThresholdPct = 5.0
)

// categoryWeights rank violation categories by public-harm severity.
var categoryWeights = map[domain.Category]float64{
	domain.CategoryFoodSafety:     9,
	domain.CategoryCounterfeit:    8,
	domain.CategorySmuggling:      8,
	domain.CategoryIllegalTrading: 6,
	domain.CategoryPriceFraud:     5,
	domain.CategoryUnlicensed:     4,
	domain.CategoryOther:          2,
}

// Compute derives the RiskProfile for an entity from its associated leads.
// The caller supplies now so repeated calls over the same input are
// bit-identical. Watchlist and alert flags default to false; the persistence
// layer merges the stored flags back in.
func Compute(entityID uuid.UUID, entityType EntityType, leads []domain.Lead, now time.Time) Profile {
	profile := Profile{
		EntityID:   entityID,
		EntityType: entityType,
		ComputedAt: now,
	}

	for _, lead := range leads {
		profile.TotalLeads++
		switch {
		case lead.Status.IsActive():
			profile.ActiveLeads++
		case lead.Status == domain.StatusResolved:
			profile.ResolvedLeads++
		case lead.Status == domain.StatusRejected:
			profile.RejectedLeads++
		}
	}

	windowStart := now.AddDate(0, 0, -windowDays)
	priorStart := now.AddDate(0, 0, -2*windowDays)

	profile.RiskScore = scoreLeads(leads, windowStart)
	profile.RiskLevel = LevelForScore(profile.RiskScore)

	priorScore := scoreWindow(leads, priorStart, windowStart)
	currentScore := scoreWindow(leads, windowStart, now.Add(time.Second))
	profile.TrendDirection, profile.MonthOverMonthChange = trend(currentScore, priorScore)

	return profile
}

// scoreLeads computes the entity score over the full lead set. Category
// severity only counts for leads created inside the trailing window; outcome
// and unresolved-urgency contributions are window-independent so that closing
// a lead has the same effect regardless of its age.
func scoreLeads(leads []domain.Lead, windowStart time.Time) int {
	score := 0.0
	for _, lead := range leads {
		if !lead.CreatedAt.Before(windowStart) {
			score += categoryWeights[lead.Category]
		}
		score += outcomeWeight(lead)
		score += unresolvedWeight(lead)
	}
	return clampScore(score)
}

// scoreWindow computes the score over leads created in [from, to) only,
// used for trend comparison between consecutive windows.
func scoreWindow(leads []domain.Lead, from, to time.Time) int {
	score := 0.0
	for _, lead := range leads {
		if lead.CreatedAt.Before(from) || !lead.CreatedAt.Before(to) {
			continue
		}
		score += categoryWeights[lead.Category]
		score += outcomeWeight(lead)
		score += unresolvedWeight(lead)
	}
	return clampScore(score)
}

func outcomeWeight(lead domain.Lead) float64 {
	if lead.Status != domain.StatusResolved || lead.Outcome == nil {
		return 0
	}
	switch *lead.Outcome {
	case domain.OutcomeTruePositive:
		return truePositiveWeight(lead.RiskImpact)
	case domain.OutcomeFalsePositive:
		return weightFalsePositive
	case domain.OutcomeMonitoring:
		return weightMonitoring
	default:
		return 0
	}
}

// truePositiveWeight honors the completing officer's riskImpact directive by
// scaling the increment. Even "decrease" stays at the unresolved-critical
// weight so a true-positive close can never lower the score.
func truePositiveWeight(impact *domain.RiskImpact) float64 {
	if impact == nil {
		return weightTruePositiveMaintain
	}
	switch *impact {
	case domain.RiskImpactIncrease:
		return weightTruePositiveIncrease
	case domain.RiskImpactDecrease:
		return weightTruePositiveDecrease
	default:
		return weightTruePositiveMaintain
	}
}

func unresolvedWeight(lead domain.Lead) float64 {
	if !lead.Status.IsActive() {
		return 0
	}
	switch lead.Urgency {
	case domain.UrgencyCritical:
		return weightUnresolvedCritical
	case domain.UrgencyHigh:
		return weightUnresolvedHigh
	default:
		return 0
	}
}

// LevelForScore bands a score into a risk level. Fixed thresholds, used
// consistently across dashboard filters and detail views.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 35:
		return LevelMedium
	default:
		return LevelLow
	}
}

func trend(current, prior int) (Trend, float64) {
	if prior == 0 {
		if current > 0 {
			return TrendIncreasing, 100
		}
		return TrendStable, 0
	}

	change := (float64(current) - float64(prior)) / float64(prior) * 100
	switch {
	case change > trendThresholdPct:
		return TrendIncreasing, change
	case change < -trendThresholdPct:
		return TrendDecreasing, change
	default:
		return TrendStable, change
	}
}

func clampScore(value float64) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return int(value + 0.5)
}
