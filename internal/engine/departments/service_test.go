package departments

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database"
	"checkops/internal/platform/database/dbtest"
	"checkops/internal/platform/models"
)

func setup(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := dbtest.New(t)
	for _, q := range []string{
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES ('usr_1', 'known@x.com', 'h', 'K', 0, 0)`,
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org_1', 'Acme', 0, 0)`,
		`INSERT INTO branches (id, organization_id, name, created_at, updated_at) VALUES ('br_1', 'org_1', 'Main', 0, 0)`,
		`INSERT INTO branches (id, organization_id, name, created_at, updated_at) VALUES ('br_2', 'org_1', 'Second', 0, 0)`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return NewService(db), db
}

func TestCreateResolvesResponsibleStatus(t *testing.T) {
	svc, _ := setup(t)

	dept, err := svc.Create(context.Background(), "br_1", CreateInput{
		Name:         "Kitchen",
		Responsibles: []string{"known@x.com", "new@x.com", "KNOWN@x.com "},
	})
	require.NoError(t, err)
	require.Len(t, dept.Responsibles, 2)

	byEmail := map[string]*models.DepartmentResponsible{}
	for _, r := range dept.Responsibles {
		byEmail[r.Email] = r
	}
	assert.Equal(t, models.ResponsibleActive, byEmail["known@x.com"].Status)
	require.NotNil(t, byEmail["known@x.com"].UserID)
	assert.Equal(t, "usr_1", *byEmail["known@x.com"].UserID)
	assert.Equal(t, models.ResponsiblePending, byEmail["new@x.com"].Status)
	assert.Nil(t, byEmail["new@x.com"].UserID)
}

func TestCreateTrimsResponsibleBeforeValidating(t *testing.T) {
	svc, _ := setup(t)

	dept, err := svc.Create(context.Background(), "br_1", CreateInput{Name: "Kitchen", Responsibles: []string{" Known@x.com"}})
	require.NoError(t, err)
	require.Len(t, dept.Responsibles, 1)
	assert.Equal(t, "known@x.com", dept.Responsibles[0].Email)
	assert.Equal(t, models.ResponsibleActive, dept.Responsibles[0].Status)
}

func TestCreateValidation(t *testing.T) {
	svc, db := setup(t)

	_, err := svc.Create(context.Background(), "br_1", CreateInput{Name: "  "})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.Create(context.Background(), "br_1", CreateInput{Name: "Bar", Responsibles: []string{"not-an-email"}})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM departments`).Scan(&n))
	assert.Zero(t, n)
}

func TestAddResponsibleDuplicate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	dept, err := svc.Create(ctx, "br_1", CreateInput{Name: "Kitchen", Responsibles: []string{"new@x.com"}})
	require.NoError(t, err)

	_, err = svc.AddResponsible(ctx, "br_1", dept.ID, "New@x.com")
	assert.True(t, apperrors.Is(err, apperrors.KindConflict), "got %v", err)

	r, err := svc.AddResponsible(ctx, "br_1", dept.ID, "known@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.ResponsibleActive, r.Status)

	require.NoError(t, svc.RemoveResponsible(ctx, "br_1", dept.ID, r.ID))
	err = svc.RemoveResponsible(ctx, "br_1", dept.ID, r.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestScopedToBranch(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	dept, err := svc.Create(ctx, "br_1", CreateInput{Name: "Kitchen"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "br_2", dept.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = svc.Rename(ctx, "br_2", dept.ID, "Hijack")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	err = svc.Delete(ctx, "br_2", dept.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	renamed, err := svc.Rename(ctx, "br_1", dept.ID, "Cuisine")
	require.NoError(t, err)
	assert.Equal(t, "Cuisine", renamed.Name)

	list, err := svc.List(ctx, "br_2")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Delete(ctx, "br_1", dept.ID))
}

func TestReplaceAllTx(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "br_1", CreateInput{Name: "Old"})
	require.NoError(t, err)

	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := svc.ReplaceAllTx(ctx, tx, "br_1", []CreateInput{{Name: "Kitchen"}, {Name: "Hall"}})
		return err
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, "br_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Kitchen", list[0].Name)
	assert.Equal(t, "Hall", list[1].Name)
}
