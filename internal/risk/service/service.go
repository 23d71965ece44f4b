// Package service owns the risk profile lifecycle: event-driven recomputation
// from the linked lead set, a Redis read-through cache, and the operator
// watchlist/alert flags.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"surveillance_portal_backend/internal/events"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/risk/repository"
	"surveillance_portal_backend/internal/risk/scoring"
	"surveillance_portal_backend/platform/logger"
)

// LeadSource supplies the lead set a profile is recomputed from.
type LeadSource interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.Lead, error)
}

// Service implements the risk aggregation module.
type Service struct {
	repo     repository.Repository
	leads    LeadSource
	cache    *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// New creates the risk service. cache may be nil to run uncached; nowFn may be
// nil, defaulting to time.Now.
func New(repo repository.Repository, leads LeadSource, cache *redis.Client, cacheTTL time.Duration, log *logger.Logger, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, leads: leads, cache: cache, cacheTTL: cacheTTL, log: log, now: nowFn}
}

// RegisterEventHandlers subscribes the recompute pipeline to lead events.
func (s *Service) RegisterEventHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(s.onLeadCreated))
	bus.Subscribe(events.LeadTransitioned{}.EventName(), events.HandlerFunc(s.onLeadTransitioned))
}

func (s *Service) onLeadCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return s.recomputeLinked(ctx, created.StoreID, created.ZoneID)
}

func (s *Service) onLeadTransitioned(ctx context.Context, event events.Event) error {
	transitioned, ok := event.(events.LeadTransitioned)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	// A false_positive completion explicitly does not move the needle.
	if transitioned.Action == domain.ActionComplete &&
		transitioned.Outcome != nil && *transitioned.Outcome == domain.OutcomeFalsePositive {
		return nil
	}
	// Only status-changing transitions alter the rollup inputs.
	if transitioned.FromStatus == transitioned.ToStatus {
		return nil
	}
	return s.recomputeLinked(ctx, transitioned.StoreID, transitioned.ZoneID)
}

func (s *Service) recomputeLinked(ctx context.Context, storeID, zoneID *uuid.UUID) error {
	var firstErr error
	if storeID != nil {
		if _, err := s.Recompute(ctx, scoring.EntityStore, *storeID); err != nil {
			firstErr = err
		}
	}
	if zoneID != nil {
		if _, err := s.Recompute(ctx, scoring.EntityZone, *zoneID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Recompute rebuilds the entity's profile from scratch out of its lead set.
// Safe under repetition: the same lead set always produces the same profile.
func (s *Service) Recompute(ctx context.Context, entityType scoring.EntityType, entityID uuid.UUID) (scoring.Profile, error) {
	leads, err := s.leads.ListByEntity(ctx, string(entityType), entityID)
	if err != nil {
		return scoring.Profile{}, fmt.Errorf("fetch leads for recompute: %w", err)
	}

	computed := scoring.Compute(entityID, entityType, leads, s.now())
	merged, err := s.repo.Upsert(ctx, computed)
	if err != nil {
		return scoring.Profile{}, err
	}

	// Rule firing: a critical profile raises the alert flag. Clearing it is
	// only ever an explicit acknowledgement.
	if merged.RiskLevel == scoring.LevelCritical && !merged.HasActiveAlert {
		if err := s.repo.SetAlert(ctx, entityID, true); err != nil {
			s.log.Error("raise risk alert", "entity_id", entityID, "error", err)
		} else {
			merged.HasActiveAlert = true
		}
	}

	s.invalidate(ctx, entityID)
	return merged, nil
}

// Get returns the entity's profile, served from cache when warm.
func (s *Service) Get(ctx context.Context, entityID uuid.UUID) (scoring.Profile, error) {
	if profile, ok := s.cacheGet(ctx, entityID); ok {
		return profile, nil
	}

	profile, err := s.repo.Get(ctx, entityID)
	if err != nil {
		return scoring.Profile{}, err
	}
	s.cacheSet(ctx, profile)
	return profile, nil
}

// List returns profiles matching the filters, highest score first.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]scoring.Profile, int, error) {
	return s.repo.List(ctx, params)
}

// SetWatchlisted records the operator's watchlist decision.
func (s *Service) SetWatchlisted(ctx context.Context, entityID uuid.UUID, watchlisted bool) error {
	if err := s.repo.SetWatchlisted(ctx, entityID, watchlisted); err != nil {
		return err
	}
	s.invalidate(ctx, entityID)
	return nil
}

// AcknowledgeAlert clears the active alert for an entity.
func (s *Service) AcknowledgeAlert(ctx context.Context, entityID uuid.UUID) error {
	if err := s.repo.SetAlert(ctx, entityID, false); err != nil {
		return err
	}
	s.invalidate(ctx, entityID)
	return nil
}

func cacheKey(entityID uuid.UUID) string {
	return "risk:profile:" + entityID.String()
}

func (s *Service) cacheGet(ctx context.Context, entityID uuid.UUID) (scoring.Profile, bool) {
	if s.cache == nil {
		return scoring.Profile{}, false
	}

	raw, err := s.cache.Get(ctx, cacheKey(entityID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error("risk cache read", "entity_id", entityID, "error", err)
		}
		return scoring.Profile{}, false
	}

	var profile scoring.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		s.log.Error("risk cache decode", "entity_id", entityID, "error", err)
		return scoring.Profile{}, false
	}
	return profile, true
}

func (s *Service) cacheSet(ctx context.Context, profile scoring.Profile) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(profile.EntityID), raw, s.cacheTTL).Err(); err != nil {
		s.log.Error("risk cache write", "entity_id", profile.EntityID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, entityID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(entityID)).Err(); err != nil {
		s.log.Error("risk cache invalidate", "entity_id", entityID, "error", err)
	}
}
