package dashboard

import (
	"context"
	"database/sql"
)

type DailyStat struct {
	Date       string `json:"date"`
	Executions int    `json:"executions"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountChecklists(ctx context.Context, branchID string) (total, active int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(actived), 0) FROM checklists WHERE branch_id = ?
	`, branchID).Scan(&total, &active)
	return total, active, err
}

func (r *Repository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *Repository) CountDepartments(ctx context.Context, branchID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM departments WHERE branch_id = ?`, branchID)
}

func (r *Repository) CountEnvironments(ctx context.Context, branchID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM environments WHERE branch_id = ?`, branchID)
}

// ResultTotals counts item results of executions created since start.
func (r *Repository) ResultTotals(ctx context.Context, branchID string, start int64) (positive, total int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(res.is_positive), 0), COUNT(res.id)
		FROM execution_item_results res
		JOIN checklist_executions e ON e.id = res.execution_id
		JOIN checklists c ON c.id = e.checklist_id
		WHERE c.branch_id = ? AND e.created_at >= ?
	`, branchID, start).Scan(&positive, &total)
	return positive, total, err
}

// DailyExecutions groups executions created since start by UTC day.
func (r *Repository) DailyExecutions(ctx context.Context, branchID string, start int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date(e.created_at, 'unixepoch') AS day, COUNT(*)
		FROM checklist_executions e
		JOIN checklists c ON c.id = e.checklist_id
		WHERE c.branch_id = ? AND e.created_at >= ?
		GROUP BY day
	`, branchID, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}
