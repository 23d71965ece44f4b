// Package repository persists leads and their audit trail on Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

const leadNotFoundMessage = "lead not found"

// ListParams filters and paginates lead listings. Zero values mean "no
// filter"; results are ordered by created_at descending.
type ListParams struct {
	Statuses   []domain.Status
	Urgency    *domain.Urgency
	Category   *domain.Category
	AssigneeID *uuid.UUID
	StoreID    *uuid.UUID
	ZoneID     *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// Repository is the lead persistence contract.
type Repository interface {
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByCode(ctx context.Context, code string) (domain.Lead, error)
	// Update writes the lead conditionally on its version and bumps it. A
	// version mismatch returns a conflict error; the caller re-fetches and
	// retries.
	Update(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
	// ListByEntity returns every lead linked to a store or zone, for the risk
	// rollup.
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.Lead, error)
	// ListSLAImminent returns active leads whose deadline falls before the
	// horizon, including already-overdue ones.
	ListSLAImminent(ctx context.Context, horizon time.Time) ([]domain.Lead, error)
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a new lead repository.
func New(pool *pgxpool.Pool, log *logger.Logger) *Repo {
	return &Repo{pool: pool, log: log}
}

var _ Repository = (*Repo)(nil)

const leadColumns = `
	id, code, degraded_identity, status, urgency, confidence, category, description,
	reporter_name, reporter_phone, store_id, zone_id,
	assigned_user_id, assigned_user_name, assigned_team_name, assigned_at,
	sla_deadline, outcome, risk_impact, version, reported_at, created_at, updated_at`

// Create inserts a lead.
func (r *Repo) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	query := `
		INSERT INTO leads (
			id, code, degraded_identity, status, urgency, confidence, category, description,
			reporter_name, reporter_phone, store_id, zone_id,
			sla_deadline, version, reported_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14)
		RETURNING ` + leadColumns

	row := r.pool.QueryRow(ctx, query,
		lead.ID, lead.Code, lead.DegradedIdentity, string(lead.Status), string(lead.Urgency),
		string(lead.Confidence), string(lead.Category), lead.Description,
		nullString(lead.ReporterName), nullString(lead.ReporterPhone),
		lead.StoreID, lead.ZoneID, lead.SLADeadline, lead.ReportedAt,
	)
	created, err := r.scanLead(row)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return created, nil
}

// GetByID retrieves a lead by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := r.scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return domain.Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

// GetByCode retrieves a lead by its human-facing code.
func (r *Repo) GetByCode(ctx context.Context, code string) (domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE code = $1 ORDER BY created_at DESC LIMIT 1`

	lead, err := r.scanLead(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return domain.Lead{}, fmt.Errorf("get lead by code: %w", err)
	}
	return lead, nil
}

// Update writes the full lead row guarded by its version. The row's version
// is bumped on success.
func (r *Repo) Update(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	// A zero id cannot address a row. Degraded records carry a synthetic
	// fallback id that exists only in memory, so writes against them are
	// refused rather than aimed at a row that is not there.
	if lead.ID == uuid.Nil {
		return domain.Lead{}, apperr.MissingIdentity("lead has no stable id; refusing write")
	}

	query := `
		UPDATE leads
		SET status = $3,
			urgency = $4,
			confidence = $5,
			category = $6,
			description = $7,
			reporter_name = $8,
			reporter_phone = $9,
			store_id = $10,
			zone_id = $11,
			assigned_user_id = $12,
			assigned_user_name = $13,
			assigned_team_name = $14,
			assigned_at = $15,
			sla_deadline = $16,
			outcome = $17,
			risk_impact = $18,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + leadColumns

	var assignedUserID *uuid.UUID
	var assignedUserName, assignedTeamName *string
	var assignedAt *time.Time
	if lead.Assignment != nil {
		assignedUserID = &lead.Assignment.UserID
		assignedUserName = &lead.Assignment.UserName
		assignedTeamName = &lead.Assignment.TeamName
		assignedAt = &lead.Assignment.AssignedAt
	}

	row := r.pool.QueryRow(ctx, query,
		lead.ID, lead.Version,
		string(lead.Status), string(lead.Urgency), string(lead.Confidence),
		string(lead.Category), lead.Description,
		nullString(lead.ReporterName), nullString(lead.ReporterPhone),
		lead.StoreID, lead.ZoneID,
		assignedUserID, assignedUserName, assignedTeamName, assignedAt,
		lead.SLADeadline, outcomeString(lead.Outcome), riskImpactString(lead.RiskImpact),
	)
	updated, err := r.scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, r.classifyVersionMiss(ctx, lead.ID)
		}
		return domain.Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return updated, nil
}

// classifyVersionMiss distinguishes a missing lead from a stale version.
func (r *Repo) classifyVersionMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check lead existence: %w", err)
	}
	if !exists {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return apperr.Conflict("lead was modified by another user, refresh and retry")
}

// List returns leads matching the filters plus the unpaginated total.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClauses := []string{"1 = 1"}
	args := []interface{}{}
	arg := 0

	next := func(value interface{}) string {
		arg++
		args = append(args, value)
		return fmt.Sprintf("$%d", arg)
	}

	if len(params.Statuses) > 0 {
		statuses := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			statuses[i] = string(s)
		}
		whereClauses = append(whereClauses, "status = ANY("+next(statuses)+")")
	}
	if params.Urgency != nil {
		whereClauses = append(whereClauses, "urgency = "+next(string(*params.Urgency)))
	}
	if params.Category != nil {
		whereClauses = append(whereClauses, "category = "+next(string(*params.Category)))
	}
	if params.AssigneeID != nil {
		whereClauses = append(whereClauses, "assigned_user_id = "+next(*params.AssigneeID))
	}
	if params.StoreID != nil {
		whereClauses = append(whereClauses, "store_id = "+next(*params.StoreID))
	}
	if params.ZoneID != nil {
		whereClauses = append(whereClauses, "zone_id = "+next(*params.ZoneID))
	}
	if params.Search != "" {
		placeholder := next("%" + params.Search + "%")
		whereClauses = append(whereClauses, "(code ILIKE "+placeholder+" OR description ILIKE "+placeholder+")")
	}

	where := strings.Join(whereClauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + where +
		` ORDER BY created_at DESC LIMIT ` + next(limit) + ` OFFSET ` + next(params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListByEntity returns all leads referencing the store or zone.
func (r *Repo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.Lead, error) {
	column := "store_id"
	if entityType == "zone" {
		column = "zone_id"
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("list leads by entity: %w", err)
	}
	defer rows.Close()

	return r.collectLeads(rows)
}

// ListSLAImminent returns non-terminal leads whose deadline is before horizon.
func (r *Repo) ListSLAImminent(ctx context.Context, horizon time.Time) ([]domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE status IN ('new', 'in_verification', 'in_progress') AND sla_deadline < $1
		ORDER BY sla_deadline ASC`

	rows, err := r.pool.Query(ctx, query, horizon)
	if err != nil {
		return nil, fmt.Errorf("list sla imminent leads: %w", err)
	}
	defer rows.Close()

	return r.collectLeads(rows)
}

func (r *Repo) collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	var leads []domain.Lead
	for rows.Next() {
		lead, err := r.scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func (r *Repo) scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var status, urgency, confidence, category string
	var reporterName, reporterPhone *string
	var assignedUserID *uuid.UUID
	var assignedUserName, assignedTeamName *string
	var assignedAt *time.Time
	var outcome, riskImpact *string

	if err := row.Scan(
		&lead.ID, &lead.Code, &lead.DegradedIdentity, &status, &urgency, &confidence,
		&category, &lead.Description, &reporterName, &reporterPhone,
		&lead.StoreID, &lead.ZoneID,
		&assignedUserID, &assignedUserName, &assignedTeamName, &assignedAt,
		&lead.SLADeadline, &outcome, &riskImpact, &lead.Version,
		&lead.ReportedAt, &lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	lead.Urgency = domain.Urgency(urgency)
	lead.Confidence = domain.Confidence(confidence)
	lead.Category = domain.Category(category)
	if reporterName != nil {
		lead.ReporterName = *reporterName
	}
	if reporterPhone != nil {
		lead.ReporterPhone = *reporterPhone
	}
	if assignedUserID != nil && assignedAt != nil {
		lead.Assignment = &domain.Assignment{
			UserID:     *assignedUserID,
			AssignedAt: *assignedAt,
		}
		if assignedUserName != nil {
			lead.Assignment.UserName = *assignedUserName
		}
		if assignedTeamName != nil {
			lead.Assignment.TeamName = *assignedTeamName
		}
	}
	if outcome != nil {
		o := domain.Outcome(*outcome)
		lead.Outcome = &o
	}
	if riskImpact != nil {
		ri := domain.RiskImpact(*riskImpact)
		lead.RiskImpact = &ri
	}

	// A row with a zero id has no stable identity. The record is still
	// surfaced under a clearly-marked synthetic fallback id rather than
	// dropped; losing visibility into a live lead is worse than displaying a
	// degraded one.
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
		lead.DegradedIdentity = true
		if r.log != nil {
			r.log.DataQualityDefect("lead_missing_id", lead.ID.String())
		}
	}
	return lead, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func outcomeString(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func riskImpactString(r *domain.RiskImpact) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}
