package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveillance_portal_backend/internal/leads/domain"
)

// AuditRepository is the append-only audit trail contract. Append errors must
// surface to the caller: a transition whose audit append fails is rolled back.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error)
}

// AuditRepo implements AuditRepository on Postgres.
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAudit creates a new audit repository.
func NewAudit(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

var _ AuditRepository = (*AuditRepo)(nil)

// Append writes one audit entry. There is no update or delete path.
func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry) error {
	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO lead_audit_entries (id, lead_id, action, actor_id, actor_name, occurred_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.pool.Exec(ctx, query,
		entry.ID, entry.LeadID, string(entry.Action), entry.ActorID, entry.ActorName,
		entry.Timestamp, details,
	); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByLead returns a lead's audit trail, oldest first.
func (r *AuditRepo) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, lead_id, action, actor_id, actor_name, occurred_at, details
		FROM lead_audit_entries
		WHERE lead_id = $1
		ORDER BY occurred_at ASC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var action string
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.LeadID, &action, &entry.ActorID, &entry.ActorName, &entry.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = domain.Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
