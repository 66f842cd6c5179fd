package environments

import (
	"context"
	"database/sql"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, e *models.Environment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO environments (id, branch_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.BranchID, e.Name, e.Position, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, branchID, id string) (*models.Environment, error) {
	e := &models.Environment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, position, created_at, updated_at
		FROM environments WHERE id = ? AND branch_id = ?
	`, id, branchID).Scan(&e.ID, &e.BranchID, &e.Name, &e.Position, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *Repository) ListByBranch(ctx context.Context, branchID string) ([]*models.Environment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, branch_id, name, position, created_at, updated_at
		FROM environments WHERE branch_id = ?
		ORDER BY position ASC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	envs := []*models.Environment{}
	for rows.Next() {
		e := &models.Environment{}
		if err := rows.Scan(&e.ID, &e.BranchID, &e.Name, &e.Position, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		envs = append(envs, e)
	}
	return envs, rows.Err()
}

func (r *Repository) NextPosition(ctx context.Context, branchID string) (int, error) {
	var pos int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM environments WHERE branch_id = ?`, branchID).Scan(&pos)
	return pos, err
}

// PositionTaken reports whether another environment of the branch holds pos.
func (r *Repository) PositionTaken(ctx context.Context, branchID string, pos int, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM environments WHERE branch_id = ? AND position = ? AND id != ?)
	`, branchID, pos, excludeID).Scan(&taken)
	return taken, err
}

func (r *Repository) CountByBranch(ctx context.Context, branchID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM environments WHERE branch_id = ?`, branchID).Scan(&n)
	return n, err
}

func (r *Repository) Update(ctx context.Context, e *models.Environment) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE environments SET name = ?, position = ?, updated_at = ?
		WHERE id = ? AND branch_id = ?
	`, e.Name, e.Position, e.UpdatedAt, e.ID, e.BranchID)
	return err
}

func (r *Repository) Delete(ctx context.Context, branchID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM environments WHERE id = ? AND branch_id = ?`, id, branchID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) DeleteByBranch(ctx context.Context, branchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM environments WHERE branch_id = ?`, branchID)
	return err
}
