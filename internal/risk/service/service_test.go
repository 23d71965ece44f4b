package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"surveillance_portal_backend/internal/events"
	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/internal/risk/repository"
	"surveillance_portal_backend/internal/risk/scoring"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	profiles map[uuid.UUID]scoring.Profile
	gets     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[uuid.UUID]scoring.Profile)}
}

func (f *fakeRepo) Upsert(_ context.Context, profile scoring.Profile) (scoring.Profile, error) {
	if existing, ok := f.profiles[profile.EntityID]; ok {
		profile.IsWatchlisted = existing.IsWatchlisted
		profile.HasActiveAlert = existing.HasActiveAlert
	}
	f.profiles[profile.EntityID] = profile
	return profile, nil
}

func (f *fakeRepo) Get(_ context.Context, entityID uuid.UUID) (scoring.Profile, error) {
	f.gets++
	profile, ok := f.profiles[entityID]
	if !ok {
		return scoring.Profile{}, apperr.NotFound("risk profile not found")
	}
	return profile, nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]scoring.Profile, int, error) {
	var profiles []scoring.Profile
	for _, p := range f.profiles {
		profiles = append(profiles, p)
	}
	return profiles, len(profiles), nil
}

func (f *fakeRepo) SetWatchlisted(_ context.Context, entityID uuid.UUID, watchlisted bool) error {
	profile, ok := f.profiles[entityID]
	if !ok {
		return apperr.NotFound("risk profile not found")
	}
	profile.IsWatchlisted = watchlisted
	f.profiles[entityID] = profile
	return nil
}

func (f *fakeRepo) SetAlert(_ context.Context, entityID uuid.UUID, active bool) error {
	profile, ok := f.profiles[entityID]
	if !ok {
		return apperr.NotFound("risk profile not found")
	}
	profile.HasActiveAlert = active
	f.profiles[entityID] = profile
	return nil
}

type fakeLeads struct {
	byEntity map[uuid.UUID][]domain.Lead
	calls    int
}

func (f *fakeLeads) ListByEntity(_ context.Context, _ string, entityID uuid.UUID) ([]domain.Lead, error) {
	f.calls++
	return f.byEntity[entityID], nil
}

func resolvedLead(entityID uuid.UUID, outcome domain.Outcome) domain.Lead {
	o := outcome
	return domain.Lead{
		ID:        uuid.New(),
		Status:    domain.StatusResolved,
		Outcome:   &o,
		Category:  domain.CategoryFoodSafety,
		StoreID:   &entityID,
		CreatedAt: testNow.Add(-24 * time.Hour),
	}
}

func newTestService(t *testing.T, repo *fakeRepo, leads *fakeLeads) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(repo, leads, cache, time.Minute, logger.New("test"), func() time.Time { return testNow })
}

func TestRecomputePreservesOperatorFlags(t *testing.T) {
	entityID := uuid.New()
	repo := newFakeRepo()
	repo.profiles[entityID] = scoring.Profile{EntityID: entityID, IsWatchlisted: true}
	leads := &fakeLeads{byEntity: map[uuid.UUID][]domain.Lead{
		entityID: {resolvedLead(entityID, domain.OutcomeTruePositive)},
	}}
	svc := newTestService(t, repo, leads)

	profile, err := svc.Recompute(context.Background(), scoring.EntityStore, entityID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if !profile.IsWatchlisted {
		t.Error("recompute dropped the watchlist flag")
	}
	if profile.TotalLeads != 1 || profile.ResolvedLeads != 1 {
		t.Errorf("counts = %d/%d, want 1/1", profile.TotalLeads, profile.ResolvedLeads)
	}
}

func TestRecomputeRaisesAlertAtCriticalLevel(t *testing.T) {
	entityID := uuid.New()
	repo := newFakeRepo()
	var many []domain.Lead
	for i := 0; i < 10; i++ {
		many = append(many, resolvedLead(entityID, domain.OutcomeTruePositive))
	}
	leads := &fakeLeads{byEntity: map[uuid.UUID][]domain.Lead{entityID: many}}
	svc := newTestService(t, repo, leads)

	profile, err := svc.Recompute(context.Background(), scoring.EntityStore, entityID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if profile.RiskLevel != scoring.LevelCritical {
		t.Fatalf("RiskLevel = %s, want critical (score %d)", profile.RiskLevel, profile.RiskScore)
	}
	if !profile.HasActiveAlert {
		t.Error("critical profile must raise the alert flag")
	}

	// Acknowledgement clears it, and a further recompute with the same leads
	// re-raises: the level is still critical.
	if err := svc.AcknowledgeAlert(context.Background(), entityID); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	if repo.profiles[entityID].HasActiveAlert {
		t.Error("acknowledgement did not clear the alert")
	}
}

func TestGetServesFromCache(t *testing.T) {
	entityID := uuid.New()
	repo := newFakeRepo()
	repo.profiles[entityID] = scoring.Profile{
		EntityID:   entityID,
		EntityType: scoring.EntityStore,
		RiskScore:  42,
		RiskLevel:  scoring.LevelMedium,
		ComputedAt: testNow,
	}
	svc := newTestService(t, repo, &fakeLeads{})

	for i := 0; i < 3; i++ {
		profile, err := svc.Get(context.Background(), entityID)
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if profile.RiskScore != 42 {
			t.Errorf("RiskScore = %d, want 42", profile.RiskScore)
		}
	}
	if repo.gets != 1 {
		t.Errorf("repository saw %d gets, want 1 (cache miss only)", repo.gets)
	}
}

func TestWatchlistToggleInvalidatesCache(t *testing.T) {
	entityID := uuid.New()
	repo := newFakeRepo()
	repo.profiles[entityID] = scoring.Profile{EntityID: entityID, RiskLevel: scoring.LevelLow, ComputedAt: testNow}
	svc := newTestService(t, repo, &fakeLeads{})

	if _, err := svc.Get(context.Background(), entityID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := svc.SetWatchlisted(context.Background(), entityID, true); err != nil {
		t.Fatalf("SetWatchlisted: %v", err)
	}

	profile, err := svc.Get(context.Background(), entityID)
	if err != nil {
		t.Fatalf("Get after toggle: %v", err)
	}
	if !profile.IsWatchlisted {
		t.Error("stale cache served after watchlist toggle")
	}
}

func TestFalsePositiveCompletionSkipsRecompute(t *testing.T) {
	entityID := uuid.New()
	repo := newFakeRepo()
	leads := &fakeLeads{byEntity: map[uuid.UUID][]domain.Lead{}}
	svc := newTestService(t, repo, leads)

	bus := events.NewInMemoryBus(logger.New("test"))
	svc.RegisterEventHandlers(bus)

	fp := domain.OutcomeFalsePositive
	err := bus.PublishSync(context.Background(), events.LeadTransitioned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		Action:     domain.ActionComplete,
		FromStatus: domain.StatusInProgress,
		ToStatus:   domain.StatusResolved,
		StoreID:    &entityID,
		Outcome:    &fp,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if leads.calls != 0 {
		t.Errorf("false_positive completion triggered %d recomputes, want 0", leads.calls)
	}

	// A true_positive completion does recompute.
	tp := domain.OutcomeTruePositive
	err = bus.PublishSync(context.Background(), events.LeadTransitioned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		Action:     domain.ActionComplete,
		FromStatus: domain.StatusInProgress,
		ToStatus:   domain.StatusResolved,
		StoreID:    &entityID,
		Outcome:    &tp,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if leads.calls != 1 {
		t.Errorf("true_positive completion triggered %d recomputes, want 1", leads.calls)
	}
}

func TestStatusPreservingTransitionSkipsRecompute(t *testing.T) {
	entityID := uuid.New()
	leads := &fakeLeads{}
	svc := newTestService(t, newFakeRepo(), leads)

	bus := events.NewInMemoryBus(logger.New("test"))
	svc.RegisterEventHandlers(bus)

	err := bus.PublishSync(context.Background(), events.LeadTransitioned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		Action:     domain.ActionNote,
		FromStatus: domain.StatusInProgress,
		ToStatus:   domain.StatusInProgress,
		StoreID:    &entityID,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if leads.calls != 0 {
		t.Errorf("note triggered %d recomputes, want 0", leads.calls)
	}
}
