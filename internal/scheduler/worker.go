package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/events"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/leads/sla"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/config"
	"surveillance_portal_backend/platform/logger"
)

// sweepActorName identifies automatic escalations on the audit trail.
const sweepActorName = "sla-sweep"

// Worker consumes scheduler tasks. It escalates leads the sweep flagged,
// re-checking eligibility at execution time.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   repository.Repository
	audit  repository.AuditRepository
	bus    events.Bus
	log    *logger.Logger
}

// NewWorker creates the scheduler worker.
func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connectionSettings(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool, log),
		audit:  repository.NewAudit(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLeadSLAEscalate, w.handleLeadSLAEscalate)

	return w, nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadSLAEscalate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadSLAEscalatePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetByID(ctx, leadID)
	if err != nil {
		// The lead may have been purged between enqueue and execution.
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}

	if lead.Status.IsTerminal() {
		return nil
	}

	now := time.Now()
	info := sla.Compute(lead.SLADeadline, now)
	if info.RemainingHours > int(sweepHorizon/time.Hour) {
		return nil
	}

	tier := domain.TierBranch
	if lead.Urgency == domain.UrgencyCritical {
		tier = domain.TierCentral
	}
	urgency := lead.Urgency
	if urgency != domain.UrgencyCritical {
		urgency = domain.UrgencyHigh
	}

	reason := "SLA " + info.DisplayText()
	entry := domain.AuditEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Action:    domain.ActionEscalate,
		ActorID:   uuid.Nil,
		ActorName: sweepActorName,
		Timestamp: now,
		Details: map[string]any{
			"reason":       reason,
			"escalateTo":   tier,
			"urgencyLevel": urgency,
			"automatic":    true,
		},
	}
	if err := w.audit.Append(ctx, entry); err != nil {
		return err
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.EscalationSubmitted{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			Code:         lead.Code,
			Reason:       reason,
			EscalateTo:   tier,
			UrgencyLevel: urgency,
			ActorID:      uuid.Nil,
			ActorName:    sweepActorName,
			Automatic:    true,
		})
	}

	w.log.Info("lead auto-escalated",
		"leadId", lead.ID,
		"code", lead.Code,
		"tier", tier,
		"remainingHours", info.RemainingHours,
	)
	return nil
}
