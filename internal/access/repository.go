package access

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/leads/domain"
)

// Repository persists permission matrix overrides.
type Repository interface {
	UpsertEntries(ctx context.Context, entries []Entry) error
	ListEntries(ctx context.Context) ([]Entry, error)
	DeleteAll(ctx context.Context) error
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo creates a permission matrix repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// UpsertEntries writes matrix cells, replacing existing (action, role) rows.
func (r *Repo) UpsertEntries(ctx context.Context, entries []Entry) error {
	query := `
		INSERT INTO permission_matrix (action, role, decision, condition_note, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (action, role) DO UPDATE
		SET decision = EXCLUDED.decision,
			condition_note = EXCLUDED.condition_note,
			updated_at = now()`

	for _, entry := range entries {
		if _, err := r.pool.Exec(ctx, query,
			string(entry.Action), string(entry.Role), string(entry.Decision), entry.ConditionNote,
		); err != nil {
			return fmt.Errorf("upsert permission cell (%s, %s): %w", entry.Action, entry.Role, err)
		}
	}
	return nil
}

// ListEntries returns every stored matrix override.
func (r *Repo) ListEntries(ctx context.Context) ([]Entry, error) {
	query := `SELECT action, role, decision, condition_note FROM permission_matrix`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list permission cells: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var action, role, decision string
		if err := rows.Scan(&action, &role, &decision, &entry.ConditionNote); err != nil {
			return nil, fmt.Errorf("scan permission cell: %w", err)
		}
		entry.Action = domain.Action(action)
		entry.Role = Role(role)
		entry.Decision = Decision(decision)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permission cells: %w", err)
	}
	return entries, nil
}

// DeleteAll clears stored overrides so the compiled defaults apply again.
func (r *Repo) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM permission_matrix`); err != nil {
		return fmt.Errorf("reset permission matrix: %w", err)
	}
	return nil
}
