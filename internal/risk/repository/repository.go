// Package repository persists per-entity risk profiles.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/risk/scoring"
	"surveillance_portal_backend/platform/apperr"
)

const profileNotFoundMessage = "risk profile not found"

// ListParams filters the risk profile listing.
type ListParams struct {
	EntityType      *scoring.EntityType
	Level           *scoring.RiskLevel
	WatchlistedOnly bool
	ActiveAlertOnly bool
	Limit           int
	Offset          int
}

// Repository is the risk profile persistence contract.
type Repository interface {
	// Upsert writes the computed profile fields. The stored operator flags
	// (watchlist, alert) are preserved and returned merged into the profile.
	Upsert(ctx context.Context, profile scoring.Profile) (scoring.Profile, error)
	Get(ctx context.Context, entityID uuid.UUID) (scoring.Profile, error)
	List(ctx context.Context, params ListParams) ([]scoring.Profile, int, error)
	SetWatchlisted(ctx context.Context, entityID uuid.UUID, watchlisted bool) error
	SetAlert(ctx context.Context, entityID uuid.UUID, active bool) error
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new risk profile repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const profileColumns = `
	entity_id, entity_type, risk_score, risk_level, total_leads, active_leads,
	resolved_leads, rejected_leads, trend_direction, month_over_month_change,
	is_watchlisted, has_active_alert, computed_at`

// Upsert writes the computed rollup. Operator flags are never touched here:
// the scoring function does not own them.
func (r *Repo) Upsert(ctx context.Context, profile scoring.Profile) (scoring.Profile, error) {
	query := `
		INSERT INTO risk_profiles (
			entity_id, entity_type, risk_score, risk_level, total_leads, active_leads,
			resolved_leads, rejected_leads, trend_direction, month_over_month_change, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (entity_id) DO UPDATE
		SET entity_type = EXCLUDED.entity_type,
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			total_leads = EXCLUDED.total_leads,
			active_leads = EXCLUDED.active_leads,
			resolved_leads = EXCLUDED.resolved_leads,
			rejected_leads = EXCLUDED.rejected_leads,
			trend_direction = EXCLUDED.trend_direction,
			month_over_month_change = EXCLUDED.month_over_month_change,
			computed_at = EXCLUDED.computed_at
		RETURNING ` + profileColumns

	row := r.pool.QueryRow(ctx, query,
		profile.EntityID, string(profile.EntityType), profile.RiskScore, string(profile.RiskLevel),
		profile.TotalLeads, profile.ActiveLeads, profile.ResolvedLeads, profile.RejectedLeads,
		string(profile.TrendDirection), profile.MonthOverMonthChange, profile.ComputedAt,
	)
	merged, err := scanProfile(row)
	if err != nil {
		return scoring.Profile{}, fmt.Errorf("upsert risk profile: %w", err)
	}
	return merged, nil
}

// Get retrieves one profile.
func (r *Repo) Get(ctx context.Context, entityID uuid.UUID) (scoring.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM risk_profiles WHERE entity_id = $1`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scoring.Profile{}, apperr.NotFound(profileNotFoundMessage)
		}
		return scoring.Profile{}, fmt.Errorf("get risk profile: %w", err)
	}
	return profile, nil
}

// List returns profiles ordered by score descending.
func (r *Repo) List(ctx context.Context, params ListParams) ([]scoring.Profile, int, error) {
	where := "1 = 1"
	args := []interface{}{}
	arg := 0

	next := func(value interface{}) string {
		arg++
		args = append(args, value)
		return fmt.Sprintf("$%d", arg)
	}

	if params.EntityType != nil {
		where += " AND entity_type = " + next(string(*params.EntityType))
	}
	if params.Level != nil {
		where += " AND risk_level = " + next(string(*params.Level))
	}
	if params.WatchlistedOnly {
		where += " AND is_watchlisted"
	}
	if params.ActiveAlertOnly {
		where += " AND has_active_alert"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_profiles WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count risk profiles: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + profileColumns + ` FROM risk_profiles WHERE ` + where +
		` ORDER BY risk_score DESC LIMIT ` + next(limit) + ` OFFSET ` + next(params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list risk profiles: %w", err)
	}
	defer rows.Close()

	var profiles []scoring.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan risk profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate risk profiles: %w", err)
	}
	return profiles, total, nil
}

// SetWatchlisted records the explicit operator watchlist decision.
func (r *Repo) SetWatchlisted(ctx context.Context, entityID uuid.UUID, watchlisted bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE risk_profiles SET is_watchlisted = $2 WHERE entity_id = $1`, entityID, watchlisted)
	if err != nil {
		return fmt.Errorf("set watchlist flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(profileNotFoundMessage)
	}
	return nil
}

// SetAlert raises or acknowledges the active-alert flag.
func (r *Repo) SetAlert(ctx context.Context, entityID uuid.UUID, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE risk_profiles SET has_active_alert = $2 WHERE entity_id = $1`, entityID, active)
	if err != nil {
		return fmt.Errorf("set alert flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(profileNotFoundMessage)
	}
	return nil
}

func scanProfile(row pgx.Row) (scoring.Profile, error) {
	var profile scoring.Profile
	var entityType, level, trend string
	if err := row.Scan(
		&profile.EntityID, &entityType, &profile.RiskScore, &level,
		&profile.TotalLeads, &profile.ActiveLeads, &profile.ResolvedLeads, &profile.RejectedLeads,
		&trend, &profile.MonthOverMonthChange,
		&profile.IsWatchlisted, &profile.HasActiveAlert, &profile.ComputedAt,
	); err != nil {
		return scoring.Profile{}, err
	}
	profile.EntityType = scoring.EntityType(entityType)
	profile.RiskLevel = scoring.RiskLevel(level)
	profile.TrendDirection = scoring.Trend(trend)
	return profile, nil
}
