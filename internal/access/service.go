package access

import (
	"context"
	"fmt"
	"sync"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

// Service wraps the permission matrix with staged editing. Edits accumulate
// in memory and take effect only on save; only the central role may save or
// reset.
type Service struct {
	repo Repository
	log  *logger.Logger

	matrix *Matrix

	mu     sync.Mutex
	staged map[cellKey]Entry
}

// NewService loads the matrix (compiled defaults overlaid with stored edits)
// and returns the access service.
func NewService(ctx context.Context, repo Repository, log *logger.Logger) (*Service, error) {
	matrix, err := NewDefault()
	if err != nil {
		return nil, err
	}

	stored, err := repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load permission overrides: %w", err)
	}
	for _, entry := range stored {
		matrix.Set(entry)
	}

	return &Service{
		repo:   repo,
		log:    log,
		matrix: matrix,
		staged: make(map[cellKey]Entry),
	}, nil
}

// Check resolves (role, action) against the active matrix. Staged edits do
// not affect checks until saved.
func (s *Service) Check(role Role, action domain.Action) (Result, string) {
	return s.matrix.Check(role, action)
}

// Authorize converts a matrix check into an error for the transition path.
// Conditional cells surface as a scope-check requirement, never as a grant.
func (s *Service) Authorize(role Role, action domain.Action) error {
	result, note := s.matrix.Check(role, action)
	switch result {
	case ResultGranted:
		return nil
	case ResultScopeCheck:
		if note == "" {
			note = "jurisdiction check required"
		}
		return apperr.ScopeCheckRequired(note)
	default:
		return apperr.Forbidden(fmt.Sprintf("role %s may not perform %s", role, action))
	}
}

// Entries returns the active matrix cells.
func (s *Service) Entries() []Entry {
	return s.matrix.Entries()
}

// Staged returns the pending, unsaved edits.
func (s *Service) Staged() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.staged))
	for _, entry := range s.staged {
		entries = append(entries, entry)
	}
	return entries
}

// Stage records a cell edit without applying it.
func (s *Service) Stage(entry Entry) error {
	if !entry.Action.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown action %q", entry.Action))
	}
	if !entry.Role.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown role %q", entry.Role))
	}
	if !entry.Decision.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown decision %q", entry.Decision))
	}
	if entry.Decision == DecisionConditional && entry.ConditionNote == "" {
		return apperr.Validation("conditional cells require a condition note")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[cellKey{entry.Action, entry.Role}] = entry
	return nil
}

// Discard drops all staged edits.
func (s *Service) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = make(map[cellKey]Entry)
}

// Save persists the staged edits and applies them to the active matrix.
// Restricted to the central role.
func (s *Service) Save(ctx context.Context, actorRole Role) error {
	if actorRole != RoleCentral {
		return apperr.Forbidden("only the central department may edit permissions")
	}

	s.mu.Lock()
	entries := make([]Entry, 0, len(s.staged))
	for _, entry := range s.staged {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	if len(entries) == 0 {
		return apperr.Validation("no staged permission edits to save")
	}

	if err := s.repo.UpsertEntries(ctx, entries); err != nil {
		return err
	}
	for _, entry := range entries {
		s.matrix.Set(entry)
	}

	s.mu.Lock()
	s.staged = make(map[cellKey]Entry)
	s.mu.Unlock()

	s.log.Info("permission matrix updated", "cells", len(entries))
	return nil
}

// Reset discards staged edits, clears stored overrides, and restores the
// compiled defaults. Restricted to the central role.
func (s *Service) Reset(ctx context.Context, actorRole Role) error {
	if actorRole != RoleCentral {
		return apperr.Forbidden("only the central department may reset permissions")
	}

	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}

	defaults, err := NewDefault()
	if err != nil {
		return err
	}
	s.matrix.Replace(defaults.Entries())

	s.Discard()
	s.log.Info("permission matrix reset to defaults")
	return nil
}
