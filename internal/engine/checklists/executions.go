package checklists

import (
	"context"
	"database/sql"

	"checkops/internal/platform/models"
)

func (r *Repository) CreateExecution(ctx context.Context, e *models.ChecklistExecution) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checklist_executions (id, checklist_id, user_id, status, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.ChecklistID, e.UserID, e.Status, e.CompletedAt, e.CreatedAt)
	return err
}

func (r *Repository) CreateItemResult(ctx context.Context, res *models.ItemResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO execution_item_results (id, execution_id, item_id, is_positive, note)
		VALUES (?, ?, ?, ?, ?)
	`, res.ID, res.ExecutionID, res.ItemID, res.IsPositive, res.Note)
	return err
}

const executionColumns = `e.id, e.checklist_id, e.user_id, e.status, e.completed_at, e.created_at,
	(SELECT COUNT(*) FROM execution_item_results r WHERE r.execution_id = e.id AND r.is_positive = 1),
	(SELECT COUNT(*) FROM execution_item_results r WHERE r.execution_id = e.id AND r.is_positive = 0)`

func scanExecution(row scanner) (*models.ChecklistExecution, error) {
	e := &models.ChecklistExecution{}
	var completedAt sql.NullInt64
	if err := row.Scan(&e.ID, &e.ChecklistID, &e.UserID, &e.Status, &completedAt, &e.CreatedAt,
		&e.PositiveCount, &e.NegativeCount); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Int64
	}
	return e, nil
}

// ListExecutions returns the branch's executions newest first, optionally
// narrowed to one checklist.
func (r *Repository) ListExecutions(ctx context.Context, branchID, checklistID string, limit int) ([]*models.ChecklistExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM checklist_executions e
		JOIN checklists c ON c.id = e.checklist_id
		WHERE c.branch_id = ?`
	args := []interface{}{branchID}
	if checklistID != "" {
		query += ` AND e.checklist_id = ?`
		args = append(args, checklistID)
	}
	query += ` ORDER BY e.created_at DESC, e.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.ChecklistExecution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) GetExecution(ctx context.Context, branchID, id string) (*models.ChecklistExecution, error) {
	e, err := scanExecution(r.db.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM checklist_executions e
		JOIN checklists c ON c.id = e.checklist_id
		WHERE e.id = ? AND c.branch_id = ?
	`, id, branchID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *Repository) ListItemResults(ctx context.Context, executionID string) ([]*models.ItemResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, item_id, is_positive, note
		FROM execution_item_results WHERE execution_id = ? ORDER BY rowid ASC
	`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.ItemResult{}
	for rows.Next() {
		res := &models.ItemResult{}
		if err := rows.Scan(&res.ID, &res.ExecutionID, &res.ItemID, &res.IsPositive, &res.Note); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
