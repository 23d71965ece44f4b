package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLeadJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	storeID := uuid.New()
	zoneID := uuid.New()
	outcome := OutcomeTruePositive
	riskImpact := RiskImpactIncrease

	tests := []struct {
		name string
		lead Lead
	}{
		{
			name: "fully populated",
			lead: Lead{
				ID:               uuid.New(),
				Code:             "TL-20260310-ABCD1234",
				DegradedIdentity: true,
				Status:           StatusResolved,
				Urgency:          UrgencyCritical,
				Confidence:       ConfidenceHigh,
				Category:         CategoryFoodSafety,
				Description:      "expired goods repackaged with forged date labels",
				ReporterName:     "Nguyen Van A",
				ReporterPhone:    "+84912345678",
				StoreID:          &storeID,
				ZoneID:           &zoneID,
				Assignment: &Assignment{
					UserID:     uuid.New(),
					UserName:   "Officer Tran",
					TeamName:   "Team 3",
					AssignedAt: now.Add(-2 * time.Hour),
				},
				SLADeadline: now.Add(12 * time.Hour),
				Outcome:     &outcome,
				RiskImpact:  &riskImpact,
				Version:     4,
				ReportedAt:  now.Add(-24 * time.Hour),
				CreatedAt:   now.Add(-24 * time.Hour),
				UpdatedAt:   now,
			},
		},
		{
			name: "minimal unassigned",
			lead: Lead{
				ID:          uuid.New(),
				Code:        "TL-20260310-EF567890",
				Status:      StatusNew,
				Urgency:     UrgencyMedium,
				Confidence:  ConfidenceLow,
				Category:    CategoryOther,
				Description: "anonymous report of unlicensed street vendors",
				SLADeadline: now.Add(72 * time.Hour),
				Version:     1,
				ReportedAt:  now,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.lead)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var got Lead
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if !reflect.DeepEqual(got, tc.lead) {
				t.Errorf("round trip changed the lead:\n got %+v\nwant %+v", got, tc.lead)
			}
		})
	}
}
