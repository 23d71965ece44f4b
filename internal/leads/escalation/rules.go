// Package escalation derives advisory escalation signals from a lead's SLA
// state and validates manually submitted escalation requests. Advisories never
// mutate lead state; escalation is only committed when an operator submits it.
package escalation

import (
	"fmt"
	"strings"
	"time"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/sla"
	"surveillance_portal_backend/platform/apperr"
)

// Rule identifies which trigger produced an advisory.
type Rule string

const (
	// RuleSLAImminent fires when remaining SLA is at or below the auto-escalation
	// threshold. Overdue leads qualify as well.
	RuleSLAImminent Rule = "sla_imminent"
	// RuleCriticalUnassigned fires for a critical-urgency lead left unassigned
	// for more than 30 minutes after it was reported.
	RuleCriticalUnassigned Rule = "critical_unassigned"
	// RuleHighStale fires for a high-urgency lead with no change for more than
	// 4 hours since its last update.
	RuleHighStale Rule = "high_stale"
)

const (
	autoEscalateHours = 2
	unassignedGrace   = 30 * time.Minute
	staleGrace        = 4 * time.Hour
)

// Advisory is a signal surfaced to the operator. It carries no side effects.
type Advisory struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Evaluate returns every advisory that currently applies to the lead.
func Evaluate(lead domain.Lead, info sla.Info, now time.Time) []Advisory {
	var advisories []Advisory

	if info.RemainingHours <= autoEscalateHours {
		advisories = append(advisories, Advisory{
			Rule:    RuleSLAImminent,
			Message: fmt.Sprintf("SLA %s", info.DisplayText()),
		})
	}

	if lead.Urgency == domain.UrgencyCritical && !lead.Assigned() && now.Sub(lead.ReportedAt) > unassignedGrace {
		advisories = append(advisories, Advisory{
			Rule:    RuleCriticalUnassigned,
			Message: "critical lead unassigned for more than 30 minutes",
		})
	}

	if lead.Urgency == domain.UrgencyHigh && now.Sub(lead.UpdatedAt) > staleGrace {
		advisories = append(advisories, Advisory{
			Rule:    RuleHighStale,
			Message: "high-urgency lead with no activity for more than 4 hours",
		})
	}

	return advisories
}

// Eligible reports whether the lead qualifies for auto-escalation flagging.
func Eligible(info sla.Info) bool {
	return info.RemainingHours <= autoEscalateHours
}

// Request is a manually submitted escalation.
type Request struct {
	Reason       string
	EscalateTo   domain.EscalationTier
	UrgencyLevel domain.Urgency
}

// ValidateRequest checks a manual escalation submission. Each failure names
// the offending precondition.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Reason) == "" {
		return apperr.Validation("escalation reason must not be empty")
	}
	if !req.EscalateTo.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown escalation tier %q", req.EscalateTo))
	}
	if req.UrgencyLevel != domain.UrgencyHigh && req.UrgencyLevel != domain.UrgencyCritical {
		return apperr.Validation("escalation urgency must be high or critical")
	}
	return nil
}
