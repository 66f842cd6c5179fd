package departments

import (
	"context"
	"database/sql"
	"strings"

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

func (r *Repository) Create(ctx context.Context, d *models.Department) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO departments (id, branch_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.BranchID, d.Name, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetByID returns the department only when it belongs to branchID.
func (r *Repository) GetByID(ctx context.Context, branchID, id string) (*models.Department, error) {
	d := &models.Department{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, created_at, updated_at
		FROM departments WHERE id = ? AND branch_id = ?
	`, id, branchID).Scan(&d.ID, &d.BranchID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	responsibles, err := r.listResponsibles(ctx, []string{d.ID})
	if err != nil {
		return nil, err
	}
	d.Responsibles = responsibles[d.ID]
	if d.Responsibles == nil {
		d.Responsibles = []*models.DepartmentResponsible{}
	}
	return d, nil
}

func (r *Repository) ListByBranch(ctx context.Context, branchID string) ([]*models.Department, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, branch_id, name, created_at, updated_at
		FROM departments WHERE branch_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	depts := []*models.Department{}
	var ids []string
	for rows.Next() {
		d := &models.Department{}
		if err := rows.Scan(&d.ID, &d.BranchID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		depts = append(depts, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	responsibles, err := r.listResponsibles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range depts {
		d.Responsibles = responsibles[d.ID]
		if d.Responsibles == nil {
			d.Responsibles = []*models.DepartmentResponsible{}
		}
	}
	return depts, nil
}

func (r *Repository) CountByBranch(ctx context.Context, branchID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments WHERE branch_id = ?`, branchID).Scan(&n)
	return n, err
}

func (r *Repository) Rename(ctx context.Context, branchID, id, name string, now int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, updated_at = ? WHERE id = ? AND branch_id = ?`, name, now, id, branchID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) Delete(ctx context.Context, branchID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ? AND branch_id = ?`, id, branchID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) DeleteByBranch(ctx context.Context, branchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE branch_id = ?`, branchID)
	return err
}

func (r *Repository) AddResponsible(ctx context.Context, dr *models.DepartmentResponsible) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO department_responsibles (id, department_id, user_id, email, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dr.ID, dr.DepartmentID, dr.UserID, dr.Email, dr.Status, dr.CreatedAt)
	return err
}

func (r *Repository) RemoveResponsible(ctx context.Context, departmentID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM department_responsibles WHERE id = ? AND department_id = ?`, id, departmentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) listResponsibles(ctx context.Context, departmentIDs []string) (map[string][]*models.DepartmentResponsible, error) {
	out := make(map[string][]*models.DepartmentResponsible, len(departmentIDs))
	if len(departmentIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(departmentIDs)), ",")
	args := make([]interface{}, len(departmentIDs))
	for i, id := range departmentIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, department_id, user_id, email, status, created_at
		FROM department_responsibles WHERE department_id IN (`+placeholders+`)
		ORDER BY created_at ASC, rowid ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		dr := &models.DepartmentResponsible{}
		if err := rows.Scan(&dr.ID, &dr.DepartmentID, &dr.UserID, &dr.Email, &dr.Status, &dr.CreatedAt); err != nil {
			return nil, err
		}
		out[dr.DepartmentID] = append(out[dr.DepartmentID], dr)
	}
	return out, rows.Err()
}
