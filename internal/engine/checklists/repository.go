package checklists

import (
	"context"
	"database/sql"
	"encoding/json"
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

type scanner interface {
	Scan(dest ...interface{}) error
}

const checklistColumns = `c.id, c.branch_id, c.environment_id, c.name, c.description, c.frequency, c.scheduled_time, c.days_of_week, c.actived, c.created_by, c.created_at, c.updated_at`

func scanChecklist(row scanner, extra ...interface{}) (*models.Checklist, error) {
	c := &models.Checklist{}
	var days string
	dest := append([]interface{}{&c.ID, &c.BranchID, &c.EnvironmentID, &c.Name, &c.Description, &c.Frequency,
		&c.ScheduledTime, &days, &c.Actived, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(days), &c.DaysOfWeek)
	if c.DaysOfWeek == nil {
		c.DaysOfWeek = []int{}
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Checklist) error {
	days, err := json.Marshal(c.DaysOfWeek)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checklists (id, branch_id, environment_id, name, description, frequency, scheduled_time, days_of_week, actived, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.BranchID, c.EnvironmentID, c.Name, c.Description, c.Frequency, c.ScheduledTime, string(days), c.Actived, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repository) CreateSection(ctx context.Context, s *models.ChecklistSection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checklist_sections (id, checklist_id, name, position) VALUES (?, ?, ?, ?)`,
		s.ID, s.ChecklistID, s.Name, s.Position)
	return err
}

func (r *Repository) CreateItem(ctx context.Context, i *models.ChecklistItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checklist_items (id, checklist_id, section_id, description, response_type_id, department_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, i.ID, i.ChecklistID, i.SectionID, i.Description, i.ResponseTypeID, i.DepartmentID, i.Position)
	return err
}

func (r *Repository) AddResponsible(ctx context.Context, checklistID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checklist_responsibles (checklist_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		checklistID, userID)
	return err
}

func (r *Repository) GetByID(ctx context.Context, branchID, id string) (*models.Checklist, error) {
	c, err := scanChecklist(r.db.QueryRowContext(ctx,
		`SELECT `+checklistColumns+` FROM checklists c WHERE c.id = ? AND c.branch_id = ?`, id, branchID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListSummaries returns the branch's checklists, newest first, with section
// and item counts and the time of the latest execution.
func (r *Repository) ListSummaries(ctx context.Context, branchID string) ([]*models.ChecklistSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checklistColumns+`,
		       (SELECT COUNT(*) FROM checklist_sections s WHERE s.checklist_id = c.id),
		       (SELECT COUNT(*) FROM checklist_items i WHERE i.checklist_id = c.id),
		       (SELECT MAX(e.created_at) FROM checklist_executions e WHERE e.checklist_id = c.id)
		FROM checklists c
		WHERE c.branch_id = ?
		ORDER BY c.created_at DESC, c.rowid DESC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.ChecklistSummary{}
	for rows.Next() {
		var sectionCount, itemCount int
		var lastExec sql.NullInt64
		c, err := scanChecklist(rows, &sectionCount, &itemCount, &lastExec)
		if err != nil {
			return nil, err
		}
		summary := &models.ChecklistSummary{Checklist: *c, SectionCount: sectionCount, ItemCount: itemCount}
		if lastExec.Valid {
			summary.LastExecutionAt = &lastExec.Int64
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (r *Repository) ListSections(ctx context.Context, checklistID string) ([]*models.ChecklistSection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, checklist_id, name, position FROM checklist_sections
		WHERE checklist_id = ? ORDER BY position ASC
	`, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.ChecklistSection
	for rows.Next() {
		s := &models.ChecklistSection{Items: []*models.ChecklistItem{}}
		if err := rows.Scan(&s.ID, &s.ChecklistID, &s.Name, &s.Position); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *Repository) ListItems(ctx context.Context, checklistID string) ([]*models.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.checklist_id, i.section_id, i.description, i.response_type_id, i.department_id, i.position
		FROM checklist_items i
		JOIN checklist_sections s ON s.id = i.section_id
		WHERE i.checklist_id = ?
		ORDER BY s.position ASC, i.position ASC
	`, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ChecklistItem
	for rows.Next() {
		i := &models.ChecklistItem{}
		if err := rows.Scan(&i.ID, &i.ChecklistID, &i.SectionID, &i.Description, &i.ResponseTypeID, &i.DepartmentID, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *Repository) ItemIDs(ctx context.Context, checklistID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM checklist_items WHERE checklist_id = ?`, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *Repository) ListResponsibles(ctx context.Context, checklistID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM checklist_responsibles WHERE checklist_id = ? ORDER BY rowid ASC`, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ToggleActive flips the active flag and reports whether the checklist exists.
func (r *Repository) ToggleActive(ctx context.Context, branchID, id string, now int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checklists SET actived = 1 - actived, updated_at = ?
		WHERE id = ? AND branch_id = ?
	`, now, id, branchID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) Delete(ctx context.Context, branchID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM checklists WHERE id = ? AND branch_id = ?`, id, branchID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ResolveResponseTypes maps each given id or code to a response type id.
func (r *Repository) ResolveResponseTypes(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code FROM response_types`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		out[id] = id
		out[code] = id
	}
	return out, rows.Err()
}

func (r *Repository) ListResponseTypes(ctx context.Context) ([]*models.ResponseType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name FROM response_types ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []*models.ResponseType{}
	for rows.Next() {
		t := &models.ResponseType{}
		if err := rows.Scan(&t.ID, &t.Code, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *Repository) EnvironmentInBranch(ctx context.Context, branchID, environmentID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM environments WHERE id = ? AND branch_id = ?)`, environmentID, branchID).Scan(&ok)
	return ok, err
}

func (r *Repository) DepartmentIDs(ctx context.Context, branchID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM departments WHERE branch_id = ?`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// MemberIDs returns which of userIDs belong to the organization.
func (r *Repository) MemberIDs(ctx context.Context, orgID string, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(userIDs) == 0 {
		return out, nil
	}
	args := []interface{}{orgID}
	for _, id := range userIDs {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM user_organizations
		WHERE organization_id = ? AND user_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
