package access

import (
	"context"
	"testing"

	"surveillance_portal_backend/internal/leads/domain"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/logger"
)

type fakeRepo struct {
	stored []Entry
}

func (f *fakeRepo) UpsertEntries(_ context.Context, entries []Entry) error {
	f.stored = append(f.stored, entries...)
	return nil
}

func (f *fakeRepo) ListEntries(_ context.Context) ([]Entry, error) {
	return f.stored, nil
}

func (f *fakeRepo) DeleteAll(_ context.Context) error {
	f.stored = nil
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{}
	svc, err := NewService(context.Background(), repo, logger.New("test"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestDefaultMatrixDecisions(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		role   Role
		action domain.Action
		want   Result
	}{
		{RoleTeam, domain.ActionAssign, ResultScopeCheck},
		{RoleTeam, domain.ActionReject, ResultDenied},
		{RoleTeam, domain.ActionView, ResultGranted},
		{RoleTeam, domain.ActionEscalate, ResultGranted},
		{RoleBranch, domain.ActionAssign, ResultGranted},
		{RoleBranch, domain.ActionCancel, ResultScopeCheck},
		{RoleCentral, domain.ActionExport, ResultGranted},
	}

	for _, tc := range tests {
		got, note := svc.Check(tc.role, tc.action)
		if got != tc.want {
			t.Errorf("Check(%s, %s) = %s, want %s", tc.role, tc.action, got, tc.want)
		}
		if got == ResultScopeCheck && note == "" {
			t.Errorf("Check(%s, %s): conditional cell must carry a note", tc.role, tc.action)
		}
	}
}

func TestUnknownCellIsDenied(t *testing.T) {
	svc, _ := newTestService(t)
	if got, _ := svc.Check(Role("auditor"), domain.ActionView); got != ResultDenied {
		t.Errorf("unknown role resolved to %s, want denied", got)
	}
}

func TestAuthorizeMapsConditionalToScopeCheck(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Authorize(RoleTeam, domain.ActionAssign)
	if apperr.GetKind(err) != apperr.KindScopeCheck {
		t.Fatalf("Authorize(doi, assign) kind = %v, want scope check", apperr.GetKind(err))
	}

	err = svc.Authorize(RoleTeam, domain.ActionReject)
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Errorf("Authorize(doi, reject) kind = %v, want forbidden", apperr.GetKind(err))
	}

	if err := svc.Authorize(RoleCentral, domain.ActionReject); err != nil {
		t.Errorf("Authorize(cuc, reject) = %v, want nil", err)
	}
}

func TestStagedEditsApplyOnlyOnSave(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	edit := Entry{Action: domain.ActionReject, Role: RoleTeam, Decision: DecisionGranted}
	if err := svc.Stage(edit); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if got, _ := svc.Check(RoleTeam, domain.ActionReject); got != ResultDenied {
		t.Fatalf("staged edit leaked into active matrix: %s", got)
	}

	if err := svc.Save(ctx, RoleBranch); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("non-central save kind = %v, want forbidden", apperr.GetKind(err))
	}

	if err := svc.Save(ctx, RoleCentral); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, _ := svc.Check(RoleTeam, domain.ActionReject); got != ResultGranted {
		t.Errorf("saved edit not applied: %s", got)
	}
	if len(repo.stored) != 1 {
		t.Errorf("stored %d entries, want 1", len(repo.stored))
	}
	if len(svc.Staged()) != 0 {
		t.Error("staged edits must be cleared after save")
	}
}

func TestStageValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name  string
		entry Entry
	}{
		{"unknown action", Entry{Action: "purge", Role: RoleTeam, Decision: DecisionGranted}},
		{"unknown role", Entry{Action: domain.ActionView, Role: "root", Decision: DecisionGranted}},
		{"unknown decision", Entry{Action: domain.ActionView, Role: RoleTeam, Decision: "maybe"}},
		{"conditional without note", Entry{Action: domain.ActionView, Role: RoleTeam, Decision: DecisionConditional}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Stage(tc.entry); apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("Stage kind = %v, want validation", apperr.GetKind(err))
			}
		})
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if err := svc.Stage(Entry{Action: domain.ActionReject, Role: RoleTeam, Decision: DecisionGranted}); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := svc.Save(ctx, RoleCentral); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := svc.Reset(ctx, RoleTeam); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("non-central reset kind = %v, want forbidden", apperr.GetKind(err))
	}

	if err := svc.Reset(ctx, RoleCentral); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := svc.Check(RoleTeam, domain.ActionReject); got != ResultDenied {
		t.Errorf("reset did not restore default: %s", got)
	}
	if len(repo.stored) != 0 {
		t.Errorf("reset left %d stored entries", len(repo.stored))
	}
}
