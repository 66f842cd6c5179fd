package environments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database/dbtest"
)

func setup(t *testing.T) *Service {
	t.Helper()
	db := dbtest.New(t)
	for _, q := range []string{
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org_1', 'Acme', 0, 0)`,
		`INSERT INTO branches (id, organization_id, name, created_at, updated_at) VALUES ('br_1', 'org_1', 'Main', 0, 0)`,
		`INSERT INTO branches (id, organization_id, name, created_at, updated_at) VALUES ('br_2', 'org_1', 'Second', 0, 0)`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return NewService(db)
}

func intp(i int) *int { return &i }

func TestCreateAssignsNextPosition(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "br_1", CreateInput{Name: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)

	placed, err := svc.Create(ctx, "br_1", CreateInput{Name: "Storage", Position: intp(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, placed.Position)

	next, err := svc.Create(ctx, "br_1", CreateInput{Name: "Hall"})
	require.NoError(t, err)
	assert.Equal(t, 6, next.Position)

	other, err := svc.Create(ctx, "br_2", CreateInput{Name: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Position)
}

func TestPositionsAreDistinct(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "br_1", CreateInput{Name: "Kitchen", Position: intp(2)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "br_1", CreateInput{Name: "Hall", Position: intp(2)})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict), "got %v", err)

	hall, err := svc.Create(ctx, "br_1", CreateInput{Name: "Hall"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "br_1", hall.ID, UpdateInput{Position: intp(2)})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	moved, err := svc.Update(ctx, "br_1", hall.ID, UpdateInput{Position: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Position)

	list, err := svc.List(ctx, "br_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hall", list[0].Name)
	assert.Equal(t, "Kitchen", list[1].Name)
}

func TestCreateValidation(t *testing.T) {
	svc := setup(t)

	_, err := svc.Create(context.Background(), "br_1", CreateInput{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.Create(context.Background(), "br_1", CreateInput{Name: "X", Position: intp(0)})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestDeleteScopedToBranch(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	env, err := svc.Create(ctx, "br_1", CreateInput{Name: "Kitchen"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "br_2", env.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	require.NoError(t, svc.Delete(ctx, "br_1", env.ID))
}
