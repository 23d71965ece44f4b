// Package query is the read side of the leads module: filtered list fetches
// with in-flight de-duplication, caller timeouts, code-collision handling,
// and the derived display fields list views render.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/leads/transport"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

const (
	defaultLimit = 100
	maxLimit     = 200

	// DefaultFetchTimeout bounds list and detail fetches when the caller does
	// not supply a deadline of its own.
	DefaultFetchTimeout = 10 * time.Second
)

// Filter is the caller-facing lead list filter.
type Filter struct {
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

// key canonicalizes the filter so identical concurrent fetches coalesce.
func (f Filter) key() string {
	var b strings.Builder
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)
	b.WriteString(strings.Join(statuses, ","))
	b.WriteByte('|')
	if f.Urgency != nil {
		b.WriteString(string(*f.Urgency))
	}
	b.WriteByte('|')
	if f.Category != nil {
		b.WriteString(string(*f.Category))
	}
	b.WriteByte('|')
	if f.AssigneeID != nil {
		b.WriteString(f.AssigneeID.String())
	}
	b.WriteByte('|')
	if f.StoreID != nil {
		b.WriteString(f.StoreID.String())
	}
	b.WriteByte('|')
	if f.ZoneID != nil {
		b.WriteString(f.ZoneID.String())
	}
	fmt.Fprintf(&b, "|%s|%d|%d", f.Search, f.Limit, f.Offset)
	return b.String()
}

// Service serves lead reads. Identical concurrent list fetches share one
// repository round trip via singleflight.
type Service struct {
	repo  repository.Repository
	log   *logger.Logger
	group singleflight.Group
	now   func() time.Time
}

// New creates the lead query service. nowFn may be nil, defaulting to time.Now.
func New(repo repository.Repository, log *logger.Logger, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{repo: repo, log: log, now: nowFn}
}

type listResult struct {
	leads    []domain.Lead
	total    int
	warnings []string
}

// List returns a filtered lead page with derived display fields. A concurrent
// request with an identical filter awaits the in-flight fetch instead of
// issuing its own.
func (s *Service) List(ctx context.Context, filter Filter) (transport.ListLeadsResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	fetchCtx, cancel := ensureDeadline(ctx)
	defer cancel()

	value, err, _ := s.group.Do(filter.key(), func() (interface{}, error) {
		leads, total, err := s.repo.List(fetchCtx, repository.ListParams{
			Statuses:   filter.Statuses,
			Urgency:    filter.Urgency,
			Category:   filter.Category,
			AssigneeID: filter.AssigneeID,
			StoreID:    filter.StoreID,
			ZoneID:     filter.ZoneID,
			Search:     filter.Search,
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		})
		if err != nil {
			return nil, err
		}
		deduped, warnings := dedupeByCode(leads)
		return listResult{leads: deduped, total: total, warnings: warnings}, nil
	})
	if err != nil {
		return transport.ListLeadsResponse{}, mapFetchErr(err)
	}

	result := value.(listResult)
	now := s.now()
	resp := transport.ListLeadsResponse{
		Total:    result.total,
		Warnings: result.warnings,
		Leads:    make([]transport.LeadResponse, 0, len(result.leads)),
	}
	for _, lead := range result.leads {
		resp.Leads = append(resp.Leads, transport.ToLeadResponse(lead, now))
	}
	for _, warning := range result.warnings {
		s.log.Warn("lead code collision", "warning", warning)
	}
	return resp, nil
}

// Get returns one lead with derived fields.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	fetchCtx, cancel := ensureDeadline(ctx)
	defer cancel()

	lead, err := s.repo.GetByID(fetchCtx, id)
	if err != nil {
		return transport.LeadResponse{}, mapFetchErr(err)
	}
	return transport.ToLeadResponse(lead, s.now()), nil
}

// dedupeByCode retains only the latest-created lead per code. Collisions are
// surfaced as warnings, never silently dropped. Relative order of survivors
// is preserved.
func dedupeByCode(leads []domain.Lead) ([]domain.Lead, []string) {
	winners := make(map[string]domain.Lead, len(leads))
	for _, lead := range leads {
		current, seen := winners[lead.Code]
		if !seen || lead.CreatedAt.After(current.CreatedAt) {
			winners[lead.Code] = lead
		}
	}

	var deduped []domain.Lead
	var warnings []string
	emitted := make(map[string]bool, len(winners))
	for _, lead := range leads {
		winner := winners[lead.Code]
		if lead.ID != winner.ID {
			warnings = append(warnings, fmt.Sprintf(
				"duplicate code %s: kept lead %s (created %s), superseded %s",
				lead.Code, winner.ID, winner.CreatedAt.Format(time.RFC3339), lead.ID))
			continue
		}
		if !emitted[lead.Code] {
			deduped = append(deduped, lead)
			emitted[lead.Code] = true
		}
	}
	return deduped, warnings
}

func ensureDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultFetchTimeout)
}

// mapFetchErr surfaces deadline expiry as a typed fetch timeout. Reads are
// side-effect-free, so a timeout leaves no partial state behind.
func mapFetchErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("lead fetch exceeded the caller's deadline")
	}
	return err
}
