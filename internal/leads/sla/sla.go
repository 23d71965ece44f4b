// Package sla provides the clock and SLA calculator: pure functions turning a
// deadline timestamp into remaining time, an overdue flag, and a severity
// bucket for display.
package sla

import (
	"fmt"
	"math"
	"time"
)

// Severity is the display bucket derived from remaining time.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityOverdue  Severity = "overdue"
)

// Info is the computed SLA state for a lead at a given instant.
type Info struct {
	Deadline       time.Time `json:"deadline"`
	RemainingHours int       `json:"remainingHours"`
	IsOverdue      bool      `json:"isOverdue"`
	Severity       Severity  `json:"severity"`
}

// Compute derives the SLA state from a deadline and the current time.
// RemainingHours is floor((deadline - now) / 1h) and is negative once the
// deadline has passed; IsOverdue is exactly RemainingHours < 0.
func Compute(deadline, now time.Time) Info {
	remaining := int(math.Floor(deadline.Sub(now).Hours()))
	overdue := remaining < 0

	return Info{
		Deadline:       deadline,
		RemainingHours: remaining,
		IsOverdue:      overdue,
		Severity:       severityFor(remaining, overdue),
	}
}

func severityFor(remainingHours int, overdue bool) Severity {
	switch {
	case overdue:
		return SeverityOverdue
	case remainingHours <= 4:
		return SeverityCritical
	case remainingHours <= 24:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// DisplayText renders the remaining time the way list views show it.
func (i Info) DisplayText() string {
	if i.IsOverdue {
		return fmt.Sprintf("overdue by %dh", -i.RemainingHours)
	}
	return fmt.Sprintf("%dh remaining", i.RemainingHours)
}
