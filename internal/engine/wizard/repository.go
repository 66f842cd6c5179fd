package wizard

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

func (r *Repository) Get(ctx context.Context, userID string) (*models.WizardProgress, error) {
	p := &models.WizardProgress{}
	var draft string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, current_step, draft_payload, organization_id, branch_id, updated_at
		FROM wizard_progress WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.CurrentStep, &draft, &p.OrganizationID, &p.BranchID, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.DraftPayload = []byte(draft)
	return p, nil
}

// Upsert writes the whole progress row keyed by user.
func (r *Repository) Upsert(ctx context.Context, p *models.WizardProgress) error {
	draft := string(p.DraftPayload)
	if draft == "" {
		draft = "{}"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wizard_progress (user_id, current_step, draft_payload, organization_id, branch_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_step = excluded.current_step,
			draft_payload = excluded.draft_payload,
			organization_id = excluded.organization_id,
			branch_id = excluded.branch_id,
			updated_at = excluded.updated_at
	`, p.UserID, p.CurrentStep, draft, p.OrganizationID, p.BranchID, p.UpdatedAt)
	return err
}
