package repositories

import (
	"context"
	"database/sql"
	"time"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type BranchRepository struct {
	db database.DBTX
}

func NewBranchRepository(db database.DBTX) *BranchRepository {
	return &BranchRepository{db: db}
}

func (r *BranchRepository) WithTx(tx *sql.Tx) *BranchRepository {
	return &BranchRepository{db: tx}
}

const branchColumns = `id, organization_id, name, wizard_completed, position, created_at, updated_at`

func scanBranch(row scanner) (*models.Branch, error) {
	b := &models.Branch{}
	err := row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.WizardCompleted, &b.Position, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *BranchRepository) Create(ctx context.Context, b *models.Branch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO branches (id, organization_id, name, wizard_completed, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.OrganizationID, b.Name, b.WizardCompleted, b.Position, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BranchRepository) Rename(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE branches SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now().Unix(), id)
	return err
}

func (r *BranchRepository) GetByID(ctx context.Context, id string) (*models.Branch, error) {
	return scanBranch(r.db.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = ?`, id))
}

func (r *BranchRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Branch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE organization_id = ? ORDER BY position ASC, created_at ASC, rowid ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *BranchRepository) NextPosition(ctx context.Context, orgID string) (int, error) {
	var pos int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM branches WHERE organization_id = ?`, orgID).Scan(&pos)
	return pos, err
}

// MarkWizardCompleted only ever sets the flag.
func (r *BranchRepository) MarkWizardCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE branches SET wizard_completed = 1, updated_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}

// GetForMember returns the branch when it belongs to an organization the
// user is a member of, or nil otherwise.
func (r *BranchRepository) GetForMember(ctx context.Context, userID, branchID string) (*models.Branch, error) {
	return scanBranch(r.db.QueryRowContext(ctx, `
		SELECT b.id, b.organization_id, b.name, b.wizard_completed, b.position, b.created_at, b.updated_at
		FROM branches b
		JOIN user_organizations uo ON uo.organization_id = b.organization_id
		WHERE b.id = ? AND uo.user_id = ?
	`, branchID, userID))
}

// FirstCompletedForUser returns the first wizard-completed branch across the
// user's organizations, in membership order.
func (r *BranchRepository) FirstCompletedForUser(ctx context.Context, userID string) (*models.Branch, error) {
	return scanBranch(r.db.QueryRowContext(ctx, `
		SELECT b.id, b.organization_id, b.name, b.wizard_completed, b.position, b.created_at, b.updated_at
		FROM user_organizations uo
		JOIN branches b ON b.organization_id = uo.organization_id
		WHERE uo.user_id = ? AND b.wizard_completed = 1
		ORDER BY uo.created_at ASC, b.position ASC, b.created_at ASC, b.rowid ASC
		LIMIT 1
	`, userID))
}
