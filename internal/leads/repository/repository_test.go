package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

// stubRow plays a lead row back through the scan column order.
type stubRow struct {
	id   uuid.UUID
	code string
}

func (s stubRow) Scan(dest ...any) error {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	*(dest[0].(*uuid.UUID)) = s.id
	*(dest[1].(*string)) = s.code
	*(dest[2].(*bool)) = false
	*(dest[3].(*string)) = string(domain.StatusInProgress)
	*(dest[4].(*string)) = string(domain.UrgencyHigh)
	*(dest[5].(*string)) = string(domain.ConfidenceMedium)
	*(dest[6].(*string)) = string(domain.CategoryCounterfeit)
	*(dest[7].(*string)) = "suspected counterfeit goods at market stall"
	*(dest[16].(*time.Time)) = now.Add(48 * time.Hour)
	*(dest[19].(*int)) = 1
	*(dest[20].(*time.Time)) = now
	*(dest[21].(*time.Time)) = now
	*(dest[22].(*time.Time)) = now
	return nil
}

func TestScanAssignsFallbackIDWhenMissing(t *testing.T) {
	repo := &Repo{log: logger.New("test")}

	lead, err := repo.scanLead(stubRow{id: uuid.Nil, code: "TL-20260310-TEST0001"})
	if err != nil {
		t.Fatalf("scanLead: %v", err)
	}

	if lead.ID == uuid.Nil {
		t.Fatal("record without a stable id was not assigned a fallback")
	}
	if !lead.DegradedIdentity {
		t.Error("fallback id assigned without marking the record degraded")
	}
	if lead.Code != "TL-20260310-TEST0001" {
		t.Errorf("Code = %q, record fields must survive the fallback", lead.Code)
	}
}

func TestScanKeepsStableID(t *testing.T) {
	repo := &Repo{log: logger.New("test")}
	id := uuid.New()

	lead, err := repo.scanLead(stubRow{id: id, code: "TL-20260310-TEST0002"})
	if err != nil {
		t.Fatalf("scanLead: %v", err)
	}

	if lead.ID != id {
		t.Errorf("ID = %s, want %s", lead.ID, id)
	}
	if lead.DegradedIdentity {
		t.Error("record with a stable id marked degraded")
	}
}

func TestUpdateRefusesLeadWithoutStableID(t *testing.T) {
	repo := &Repo{}

	_, err := repo.Update(context.Background(), domain.Lead{DegradedIdentity: true, Version: 1})
	if apperr.GetKind(err) != apperr.KindMissingIdentity {
		t.Errorf("kind = %v, want missing identity", apperr.GetKind(err))
	}
}
