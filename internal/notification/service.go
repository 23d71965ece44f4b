package notification

import (
	"context"
	"fmt"

	"surveillance_portal_backend/internal/events"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/config"
	"surveillance_portal_backend/platform/logger"
)

// Service listens for escalation events and emails the addressed tier.
// Delivery is best-effort: a failed email never fails the escalation itself.
type Service struct {
	sender Sender
	cfg    config.EmailConfig
	log    *logger.Logger
}

// NewService creates the notification service.
func NewService(sender Sender, cfg config.EmailConfig, log *logger.Logger) *Service {
	return &Service{sender: sender, cfg: cfg, log: log}
}

// RegisterEventHandlers subscribes the service to escalation events.
func (s *Service) RegisterEventHandlers(bus events.Bus) {
	bus.Subscribe(events.EscalationSubmitted{}.EventName(), events.HandlerFunc(s.onEscalationSubmitted))
}

func (s *Service) onEscalationSubmitted(ctx context.Context, event events.Event) error {
	escalated, ok := event.(events.EscalationSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if !s.cfg.GetEmailEnabled() {
		return nil
	}

	recipients := s.cfg.GetEscalationRecipients(string(escalated.EscalateTo))
	if len(recipients) == 0 {
		s.log.Warn("no escalation recipients configured",
			"tier", escalated.EscalateTo,
			"code", escalated.Code,
		)
		return nil
	}

	subject := fmt.Sprintf("[%s] Lead %s escalated", escalated.UrgencyLevel, escalated.Code)
	content, err := renderEmailTemplate("escalation.html", escalationEmailData{
		Title:        subject,
		Heading:      "Lead escalated",
		Code:         escalated.Code,
		TierLabel:    tierLabel(escalated.EscalateTo),
		UrgencyLevel: string(escalated.UrgencyLevel),
		Reason:       escalated.Reason,
		ActorName:    escalated.ActorName,
		Automatic:    escalated.Automatic,
	})
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, recipients, subject, content); err != nil {
		s.log.Error("escalation email failed",
			"code", escalated.Code,
			"tier", escalated.EscalateTo,
			"error", err,
		)
		return err
	}

	s.log.Info("escalation email sent",
		"code", escalated.Code,
		"tier", escalated.EscalateTo,
		"recipients", len(recipients),
	)
	return nil
}

func tierLabel(tier domain.EscalationTier) string {
	switch tier {
	case domain.TierCentral:
		return "central department"
	case domain.TierBranch:
		return "provincial branch"
	default:
		return "field team"
	}
}
