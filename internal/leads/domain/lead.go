package domain

import (
	"time"

	"github.com/google/uuid"
)

// Urgency is the triage urgency of a lead, independent of status.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Confidence is the analyst's assessment of a lead's reliability.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// UrgencyFromConfidence derives urgency when a source record exposes
// confidence but not urgency. Unknown confidence maps to medium.
func UrgencyFromConfidence(c Confidence) Urgency {
	switch c {
	case ConfidenceHigh:
		return UrgencyHigh
	case ConfidenceMedium:
		return UrgencyMedium
	case ConfidenceLow:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

// Category is the violation category assigned at triage.
type Category string

const (
	CategoryCounterfeit    Category = "counterfeit"
	CategorySmuggling      Category = "smuggling"
	CategoryIllegalTrading Category = "illegal_trading"
	CategoryFoodSafety     Category = "food_safety"
	CategoryPriceFraud     Category = "price_fraud"
	CategoryUnlicensed     Category = "unlicensed"
	CategoryOther          Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCounterfeit, CategorySmuggling, CategoryIllegalTrading,
		CategoryFoodSafety, CategoryPriceFraud, CategoryUnlicensed, CategoryOther:
		return true
	}
	return false
}

// Outcome classifies a completed lead.
type Outcome string

const (
	OutcomeTruePositive  Outcome = "true_positive"
	OutcomeFalsePositive Outcome = "false_positive"
	OutcomeMonitoring    Outcome = "monitoring"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeTruePositive, OutcomeFalsePositive, OutcomeMonitoring:
		return true
	}
	return false
}

// RiskImpact is the completing officer's directive for the entity risk rollup.
type RiskImpact string

const (
	RiskImpactIncrease RiskImpact = "increase"
	RiskImpactDecrease RiskImpact = "decrease"
	RiskImpactMaintain RiskImpact = "maintain"
)

// Valid reports whether r is a known risk impact.
func (r RiskImpact) Valid() bool {
	switch r {
	case RiskImpactIncrease, RiskImpactDecrease, RiskImpactMaintain:
		return true
	}
	return false
}

// EscalationTier is the organizational tier an escalation is addressed to.
type EscalationTier string

const (
	TierTeam    EscalationTier = "team"    // field team (doi)
	TierBranch  EscalationTier = "branch"  // provincial branch (chi cuc)
	TierCentral EscalationTier = "central" // central department (cuc)
)

// Valid reports whether t is a known escalation tier.
func (t EscalationTier) Valid() bool {
	switch t {
	case TierTeam, TierBranch, TierCentral:
		return true
	}
	return false
}

// Assignment records who a lead is assigned to. Absence means unassigned.
type Assignment struct {
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
	TeamName   string    `json:"teamName"`
	AssignedAt time.Time `json:"assignedAt"`
}

// Lead is the canonical lead shape: the external contract every richer
// storage schema must losslessly round-trip through.
type Lead struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	// DegradedIdentity marks a record that arrived without a stable id and was
	// assigned a synthetic fallback. Such leads are displayed, never dropped.
	DegradedIdentity bool        `json:"degradedIdentity,omitempty"`
	Status           Status      `json:"status"`
	Urgency          Urgency     `json:"urgency"`
	Confidence       Confidence  `json:"confidence"`
	Category         Category    `json:"category"`
	Description      string      `json:"description"`
	ReporterName     string      `json:"reporterName,omitempty"`
	ReporterPhone    string      `json:"reporterPhone,omitempty"`
	StoreID          *uuid.UUID  `json:"storeId,omitempty"`
	ZoneID           *uuid.UUID  `json:"zoneId,omitempty"`
	Assignment       *Assignment `json:"assignment,omitempty"`
	SLADeadline      time.Time   `json:"slaDeadline"`
	Outcome          *Outcome    `json:"outcome,omitempty"`
	RiskImpact       *RiskImpact `json:"riskImpact,omitempty"`
	Version          int         `json:"version"`
	ReportedAt       time.Time   `json:"reportedAt"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Assigned reports whether the lead has an assignee.
func (l Lead) Assigned() bool {
	return l.Assignment != nil
}

// AuditEntry is one immutable record in a lead's append-only audit trail.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"leadId"`
	Action    Action         `json:"action"`
	ActorID   uuid.UUID      `json:"actorId"`
	ActorName string         `json:"actorName"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}
