package billing

import (
	"context"
	"database/sql"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

// Repository stores checkout sessions and payments.
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

const sessionColumns = `id, user_id, organization_id, plan_id, status, amount, currency, provider_session_id, subscription_id, created_at, updated_at`

func scanSession(row scanner) (*models.CheckoutSession, error) {
	cs := &models.CheckoutSession{}
	err := row.Scan(&cs.ID, &cs.UserID, &cs.OrganizationID, &cs.PlanID, &cs.Status, &cs.Amount, &cs.Currency,
		&cs.ProviderSessionID, &cs.SubscriptionID, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return cs, nil
}

func (r *Repository) CreateSession(ctx context.Context, cs *models.CheckoutSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions (id, user_id, organization_id, plan_id, status, amount, currency, provider_session_id, subscription_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cs.ID, cs.UserID, cs.OrganizationID, cs.PlanID, cs.Status, cs.Amount, cs.Currency,
		cs.ProviderSessionID, cs.SubscriptionID, cs.CreatedAt, cs.UpdatedAt)
	return err
}

func (r *Repository) GetSessionByProviderID(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM checkout_sessions WHERE provider_session_id = ?`, providerSessionID))
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id, status string, subscriptionID *string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions SET status = ?, subscription_id = COALESCE(?, subscription_id), updated_at = ?
		WHERE id = ?
	`, status, subscriptionID, now, id)
	return err
}

func (r *Repository) ListSessionsByUser(ctx context.Context, userID string) ([]*models.CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM checkout_sessions
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.CheckoutSession{}
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// CreatePayment inserts the payment unless one with the same provider
// payment id exists, and reports whether it was inserted.
func (r *Repository) CreatePayment(ctx context.Context, p *models.Payment) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, subscription_id, checkout_session_id, status, amount, currency, provider_payment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_payment_id) DO NOTHING
	`, p.ID, p.UserID, p.SubscriptionID, p.CheckoutSessionID, p.Status, p.Amount, p.Currency, p.ProviderPaymentID, p.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, subscription_id, checkout_session_id, status, amount, currency, provider_payment_id, created_at
		FROM payments WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Payment{}
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.CheckoutSessionID, &p.Status, &p.Amount,
			&p.Currency, &p.ProviderPaymentID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
