// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the system.
type LeadCreated struct {
	BaseEvent
	LeadID  uuid.UUID  `json:"leadId"`
	Code    string     `json:"code"`
	StoreID *uuid.UUID `json:"storeId,omitempty"`
	ZoneID  *uuid.UUID `json:"zoneId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadTransitioned is published after any action is applied to a lead,
// including no-op-status actions like note or assign.
type LeadTransitioned struct {
	BaseEvent
	LeadID     uuid.UUID     `json:"leadId"`
	Code       string        `json:"code"`
	Action     domain.Action `json:"action"`
	FromStatus domain.Status `json:"fromStatus"`
	ToStatus   domain.Status `json:"toStatus"`
	ActorID    uuid.UUID     `json:"actorId"`
	StoreID    *uuid.UUID    `json:"storeId,omitempty"`
	ZoneID     *uuid.UUID    `json:"zoneId,omitempty"`
	// Outcome is set only for complete actions. A false_positive completion
	// does not trigger a risk recompute.
	Outcome *domain.Outcome `json:"outcome,omitempty"`
}

func (e LeadTransitioned) EventName() string { return "leads.lead.transitioned" }

// EscalationSubmitted is published when a lead is escalated to a higher tier,
// whether by an officer or by the SLA sweep.
type EscalationSubmitted struct {
	BaseEvent
	LeadID       uuid.UUID             `json:"leadId"`
	Code         string                `json:"code"`
	Reason       string                `json:"reason"`
	EscalateTo   domain.EscalationTier `json:"escalateTo"`
	UrgencyLevel domain.Urgency        `json:"urgencyLevel"`
	ActorID      uuid.UUID             `json:"actorId"`
	ActorName    string                `json:"actorName"`
	Automatic    bool                  `json:"automatic"`
}

func (e EscalationSubmitted) EventName() string { return "leads.escalation.submitted" }
