package repositories

import (
	"context"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type NicheRepository struct {
	db database.DBTX
}

func NewNicheRepository(db database.DBTX) *NicheRepository {
	return &NicheRepository{db: db}
}

func (r *NicheRepository) List(ctx context.Context) ([]*models.Niche, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM niches ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	niches := []*models.Niche{}
	for rows.Next() {
		n := &models.Niche{}
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, err
		}
		niches = append(niches, n)
	}
	return niches, rows.Err()
}

func (r *NicheRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM niches WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}
