// Package access implements the role/action permission matrix consulted
// before any lead transition is applied. Cells are granted, denied, or
// conditional; conditional cells are honored only after the jurisdiction
// scope-check collaborator confirms.
package access

import (
	_ "embed"
	"fmt"
	"sync"

	"surveillance_portal_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// Role is the surveillance organization role carried in the actor's token.
type Role string

const (
	// RoleCentral is the central department (cục).
	RoleCentral Role = "cuc"
	// RoleBranch is a provincial branch (chi cục).
	RoleBranch Role = "chi_cuc"
	// RoleTeam is a field team (đội).
	RoleTeam Role = "doi"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCentral, RoleBranch, RoleTeam:
		return true
	}
	return false
}

// Decision is the configured value of a matrix cell.
type Decision string

const (
	DecisionGranted     Decision = "granted"
	DecisionDenied      Decision = "denied"
	DecisionConditional Decision = "conditional"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionGranted, DecisionDenied, DecisionConditional:
		return true
	}
	return false
}

// Result is the outcome of a permission check. Conditional cells resolve to
// ResultScopeCheck: the caller must consult the scope-check collaborator
// before executing the action, never silently downgrade.
type Result string

const (
	ResultGranted    Result = "granted"
	ResultDenied     Result = "denied"
	ResultScopeCheck Result = "requiresScopeCheck"
)

// Entry is one matrix cell.
type Entry struct {
	Action        domain.Action `json:"action" yaml:"action"`
	Role          Role          `json:"role" yaml:"role"`
	Decision      Decision      `json:"decision" yaml:"decision"`
	ConditionNote string        `json:"conditionNote,omitempty" yaml:"conditionNote,omitempty"`
}

type cellKey struct {
	action domain.Action
	role   Role
}

// Matrix is an in-memory permission matrix. It is safe for concurrent reads
// and staged writes.
type Matrix struct {
	mu    sync.RWMutex
	cells map[cellKey]Entry
}

//go:embed defaults.yaml
var defaultsYAML []byte

// NewDefault builds a matrix from the compiled-in defaults.
func NewDefault() (*Matrix, error) {
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse default permission matrix: %w", err)
	}

	m := &Matrix{cells: make(map[cellKey]Entry, len(doc.Entries))}
	for _, entry := range doc.Entries {
		if !entry.Decision.Valid() {
			return nil, fmt.Errorf("default matrix cell (%s, %s) has unknown decision %q", entry.Action, entry.Role, entry.Decision)
		}
		m.cells[cellKey{entry.Action, entry.Role}] = entry
	}
	return m, nil
}

// Check resolves (role, action) to a permission result. Cells absent from the
// matrix are denied.
func (m *Matrix) Check(role Role, action domain.Action) (Result, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.cells[cellKey{action, role}]
	if !ok {
		return ResultDenied, ""
	}

	switch entry.Decision {
	case DecisionGranted:
		return ResultGranted, ""
	case DecisionConditional:
		return ResultScopeCheck, entry.ConditionNote
	default:
		return ResultDenied, ""
	}
}

// Entries returns every cell in the matrix, for display and editing.
func (m *Matrix) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.cells))
	for _, entry := range m.cells {
		entries = append(entries, entry)
	}
	return entries
}

// Set replaces one cell. Used when applying staged edits or stored overrides.
func (m *Matrix) Set(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[cellKey{entry.Action, entry.Role}] = entry
}

// Snapshot returns a deep copy of the current cells keyed for comparison.
func (m *Matrix) Snapshot() map[string]Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]Entry, len(m.cells))
	for key, entry := range m.cells {
		snapshot[string(key.action)+"/"+string(key.role)] = entry
	}
	return snapshot
}

// Replace swaps in a whole new cell set. Used by reset.
func (m *Matrix) Replace(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells = make(map[cellKey]Entry, len(entries))
	for _, entry := range entries {
		m.cells[cellKey{entry.Action, entry.Role}] = entry
	}
}
