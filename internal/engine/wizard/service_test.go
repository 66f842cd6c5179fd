package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkops/internal/engine/departments"
	"checkops/internal/engine/environments"
	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database/dbtest"
)

func setup(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := dbtest.New(t)
	for _, q := range []string{
		`INSERT INTO profiles (id, name, is_admin, created_at) VALUES ('prf_1', 'Administrator', 1, 0)`,
		`INSERT INTO users (id, email, password_hash, name, profile_id, created_at, updated_at) VALUES ('usr_1', 'a@x.com', 'h', 'A', 'prf_1', 0, 0)`,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES ('usr_2', 'b@x.com', 'h', 'B', 0, 0)`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return NewService(db, departments.NewService(db), environments.NewService(db)), db
}

var validOrg = OrganizationInput{Name: "Acme", EmployeeCount: 12, Country: "BR", City: "Recife", NicheID: "nch_food"}

func wizardCompleted(t *testing.T, db *sql.DB, branchID string) bool {
	t.Helper()
	var done bool
	require.NoError(t, db.QueryRow(`SELECT wizard_completed FROM branches WHERE id = ?`, branchID).Scan(&done))
	return done
}

func TestNiches(t *testing.T) {
	svc, _ := setup(t)
	niches, err := svc.Niches(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, niches)

	ids := make([]string, len(niches))
	for i, n := range niches {
		ids[i] = n.ID
	}
	assert.Contains(t, ids, "nch_food")
}

func TestGetSteps(t *testing.T) {
	got := GetSteps()
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
		assert.Equal(t, i+1, s.Order)
	}
	assert.Equal(t, []string{"welcome", "organization", "branch", "departments", "environments", "completion"}, ids)
}

func TestFullFlow(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	p, err := svc.GetProgress(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, p.CurrentStep)

	org, err := svc.CommitOrganization(ctx, "usr_1", validOrg)
	require.NoError(t, err)

	branch, err := svc.CommitBranch(ctx, "usr_1", BranchInput{Name: "Downtown"})
	require.NoError(t, err)
	assert.Equal(t, org.ID, branch.OrganizationID)
	assert.False(t, wizardCompleted(t, db, branch.ID))

	_, err = svc.CommitDepartments(ctx, "usr_1", DepartmentsInput{Departments: []departments.CreateInput{
		{Name: "Kitchen", Responsibles: []string{"b@x.com", "new@x.com"}},
	}})
	require.NoError(t, err)
	assert.False(t, wizardCompleted(t, db, branch.ID))

	_, err = svc.Complete(ctx, "usr_1")
	assert.True(t, apperrors.Is(err, apperrors.KindPreconditionFailed), "no environments yet")
	assert.False(t, wizardCompleted(t, db, branch.ID))

	envs, err := svc.CommitEnvironments(ctx, "usr_1", EnvironmentsInput{Environments: []string{"Hall", "Storage"}})
	require.NoError(t, err)
	assert.Equal(t, 1, envs[0].Position)
	assert.Equal(t, 2, envs[1].Position)

	status, err := svc.Complete(ctx, "usr_1")
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.True(t, wizardCompleted(t, db, branch.ID))

	assert.Equal(t, "Acme", status.Data.Organization.Name)
	assert.Equal(t, "Downtown", status.Data.Branch.Name)
	require.Len(t, status.Data.Departments, 1)
	assert.Equal(t, []ResponsibleSnapshot{{Email: "b@x.com", Status: "ACTIVE"}, {Email: "new@x.com", Status: "PENDING"}}, status.Data.Departments[0].Responsibles)
	assert.Equal(t, []EnvironmentSnapshot{{Name: "Hall", Position: 1}, {Name: "Storage", Position: 2}}, status.Data.Environments)

	var selected, userOrg string
	require.NoError(t, db.QueryRow(`SELECT selected_branch_id, organization_id FROM users WHERE id = 'usr_1'`).Scan(&selected, &userOrg))
	assert.Equal(t, branch.ID, selected)
	assert.Equal(t, org.ID, userOrg)

	// deleting everything afterwards never clears the flag
	_, err = db.Exec(`DELETE FROM departments WHERE branch_id = ?`, branch.ID)
	require.NoError(t, err)
	assert.True(t, wizardCompleted(t, db, branch.ID))

	_, err = svc.CommitEnvironments(ctx, "usr_1", EnvironmentsInput{Environments: []string{"Again"}})
	assert.True(t, apperrors.Is(err, apperrors.KindPreconditionFailed))
}

func TestCompletionStatusNotCompleted(t *testing.T) {
	svc, _ := setup(t)

	status, err := svc.GetCompletionStatus(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.False(t, status.Completed)
	assert.Nil(t, status.Data)
}

func TestCommitOrganizationNamesMissingFields(t *testing.T) {
	svc, db := setup(t)

	_, err := svc.CommitOrganization(context.Background(), "usr_1", OrganizationInput{Name: "Acme", City: "Recife"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, []string{"employeeCount", "country", "nicheId"}, appErr.Fields)

	_, err = svc.CommitOrganization(context.Background(), "usr_1", OrganizationInput{Name: "Acme", EmployeeCount: 1, Country: "BR", City: "Recife", NicheID: "nch_nope"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"nicheId"}, appErr.Fields)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM organizations`).Scan(&n))
	assert.Zero(t, n)
}

func TestCommitOrganizationAdoptsPlaceholder(t *testing.T) {
	svc, db := setup(t)
	for _, q := range []string{
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org_ph', '', 0, 0)`,
		`INSERT INTO user_organizations (user_id, organization_id, created_at) VALUES ('usr_1', 'org_ph', 0)`,
		`UPDATE users SET organization_id = 'org_ph' WHERE id = 'usr_1'`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}

	org, err := svc.CommitOrganization(context.Background(), "usr_1", validOrg)
	require.NoError(t, err)
	assert.Equal(t, "org_ph", org.ID)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM organizations`).Scan(&n))
	assert.Equal(t, 1, n)

	again, err := svc.CommitOrganization(context.Background(), "usr_1", OrganizationInput{Name: "Acme 2", EmployeeCount: 3, Country: "BR", City: "Natal", NicheID: "nch_retail"})
	require.NoError(t, err)
	assert.Equal(t, "org_ph", again.ID, "resubmitting the step updates the same organization")
}

func TestStepPreconditions(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CommitBranch(ctx, "usr_2", BranchInput{Name: "X"})
	assert.True(t, apperrors.Is(err, apperrors.KindPreconditionFailed))

	_, err = svc.CommitDepartments(ctx, "usr_2", DepartmentsInput{Departments: []departments.CreateInput{{Name: "K"}}})
	assert.True(t, apperrors.Is(err, apperrors.KindPreconditionFailed))

	_, err = svc.CommitDepartments(ctx, "usr_2", DepartmentsInput{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.Complete(ctx, "usr_2")
	assert.True(t, apperrors.Is(err, apperrors.KindPreconditionFailed))
}

func TestCommitBranchIsIdempotent(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	_, err := svc.CommitOrganization(ctx, "usr_1", validOrg)
	require.NoError(t, err)

	first, err := svc.CommitBranch(ctx, "usr_1", BranchInput{Name: "Downtown"})
	require.NoError(t, err)
	second, err := svc.CommitBranch(ctx, "usr_1", BranchInput{Name: "Uptown"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int
	var name string
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(name) FROM branches`).Scan(&n, &name))
	assert.Equal(t, 1, n)
	assert.Equal(t, "Uptown", name)
}

func TestSaveDraft(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, "usr_1", DraftInput{Step: "bogus"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.SaveDraft(ctx, "usr_1", DraftInput{Step: StepOrganization, Payload: json.RawMessage(`[1,2]`)})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.SaveDraft(ctx, "usr_1", DraftInput{Step: StepOrganization, Payload: json.RawMessage(`{"name":"Ac"}`)})
	require.NoError(t, err)

	p, err := svc.GetProgress(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, StepOrganization, p.CurrentStep)
	assert.JSONEq(t, `{"name":"Ac"}`, string(p.DraftPayload))
	assert.Nil(t, p.OrganizationID)
}

func TestCommitDepartmentsNormalizesEmails(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CommitOrganization(ctx, "usr_1", validOrg)
	require.NoError(t, err)
	_, err = svc.CommitBranch(ctx, "usr_1", BranchInput{Name: "Downtown"})
	require.NoError(t, err)

	depts, err := svc.CommitDepartments(ctx, "usr_1", DepartmentsInput{Departments: []departments.CreateInput{
		{Name: " Kitchen ", Responsibles: []string{" B@x.com", "b@x.com "}},
	}})
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, "Kitchen", depts[0].Name)
	require.Len(t, depts[0].Responsibles, 1)
	assert.Equal(t, "b@x.com", depts[0].Responsibles[0].Email)
	assert.Equal(t, "ACTIVE", string(depts[0].Responsibles[0].Status))
}
