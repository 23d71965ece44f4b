package sla

import (
	"testing"
	"time"
)

func TestCompute(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		deadline      time.Time
		wantRemaining int
		wantOverdue   bool
		wantSeverity  Severity
	}{
		{"ninety minutes left", now.Add(90 * time.Minute), 1, false, SeverityCritical},
		{"three hours past", now.Add(-3 * time.Hour), -3, true, SeverityOverdue},
		{"exactly four hours", now.Add(4 * time.Hour), 4, false, SeverityCritical},
		{"five hours left", now.Add(5 * time.Hour), 5, false, SeverityWarning},
		{"exactly one day", now.Add(24 * time.Hour), 24, false, SeverityWarning},
		{"two days left", now.Add(48 * time.Hour), 48, false, SeverityNormal},
		{"thirty minutes past", now.Add(-30 * time.Minute), -1, true, SeverityOverdue},
		{"at the deadline", now, 0, false, SeverityCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.deadline, now)
			if got.RemainingHours != tc.wantRemaining {
				t.Errorf("RemainingHours = %d, want %d", got.RemainingHours, tc.wantRemaining)
			}
			if got.IsOverdue != tc.wantOverdue {
				t.Errorf("IsOverdue = %v, want %v", got.IsOverdue, tc.wantOverdue)
			}
			if got.Severity != tc.wantSeverity {
				t.Errorf("Severity = %q, want %q", got.Severity, tc.wantSeverity)
			}
			// The overdue flag must always agree with the sign of RemainingHours.
			if got.IsOverdue != (got.RemainingHours < 0) {
				t.Errorf("IsOverdue = %v inconsistent with RemainingHours = %d", got.IsOverdue, got.RemainingHours)
			}
		})
	}
}

func TestDisplayText(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := Compute(now.Add(6*time.Hour), now).DisplayText(); got != "6h remaining" {
		t.Errorf("DisplayText = %q, want %q", got, "6h remaining")
	}
	if got := Compute(now.Add(-3*time.Hour), now).DisplayText(); got != "overdue by 3h" {
		t.Errorf("DisplayText = %q, want %q", got, "overdue by 3h")
	}
}
