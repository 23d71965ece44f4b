package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/leads/sla"
	"surveillance_portal_backend/platform/config"
	"surveillance_portal_backend/platform/logger"
)

// sweepHorizon is how far ahead of the deadline a lead is considered for
// automatic escalation. Matches the advisory threshold shown to operators.
const sweepHorizon = 2 * time.Hour

// SLASweepDispatcher periodically scans for active leads whose SLA deadline
// is imminent or passed and enqueues an escalation task per lead. The task ID
// is derived from the lead so a lead is not escalated twice while its first
// task is still queued.
type SLASweepDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     repository.Repository
	interval time.Duration
	log      *logger.Logger
}

// NewSLASweepDispatcher creates the sweep dispatcher.
func NewSLASweepDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*SLASweepDispatcher, error) {
	opt, queue, err := connectionSettings(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.GetSLASweepInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SLASweepDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     repository.New(pool, log),
		interval: interval,
		log:      log,
	}, nil
}

func (d *SLASweepDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run sweeps until the context is cancelled.
func (d *SLASweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.sweep(ctx)
	}
}

func (d *SLASweepDispatcher) sweep(ctx context.Context) {
	now := time.Now()
	leads, err := d.repo.ListSLAImminent(ctx, now.Add(sweepHorizon))
	if err != nil {
		d.log.Warn("sla sweep query failed", "error", err)
		return
	}

	for _, lead := range leads {
		info := sla.Compute(lead.SLADeadline, now)
		if info.RemainingHours > int(sweepHorizon/time.Hour) {
			continue
		}

		task, err := NewLeadSLAEscalateTask(LeadSLAEscalatePayload{
			LeadID: lead.ID.String(),
			Code:   lead.Code,
		})
		if err != nil {
			d.log.Warn("sla sweep task build failed", "leadId", lead.ID, "error", err)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task,
			asynq.Queue(d.queue),
			asynq.TaskID("sla-escalate:"+lead.ID.String()),
			asynq.Retention(24*time.Hour),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			d.log.Warn("sla sweep enqueue failed", "leadId", lead.ID, "error", err)
		}
	}
}
