package repositories

import (
	"context"
	"database/sql"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type PlanRepository struct {
	db database.DBTX
}

func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) WithTx(tx *sql.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

const planColumns = `id, name, price, included_units, max_users, max_checklists, extra_user_price, extra_unit_price, is_custom, created_at`

func scanPlan(row scanner) (*models.Plan, error) {
	p := &models.Plan{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.IncludedUnits, &p.MaxUsers, &p.MaxChecklists,
		&p.ExtraUserPrice, &p.ExtraUnitPrice, &p.IsCustom, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]*models.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY is_custom ASC, CAST(price AS REAL) ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	return scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
}

func (r *PlanRepository) GetByName(ctx context.Context, name string) (*models.Plan, error) {
	return scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE name = ?`, name))
}

type SubscriptionRepository struct {
	db database.DBTX
}

func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(tx *sql.Tx) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

const subscriptionColumns = `id, user_id, plan_id, status, starts_at, ends_at, created_at, updated_at`

func scanSubscription(row scanner) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, status, starts_at, ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.PlanID, s.Status, s.StartsAt, s.EndsAt, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	return scanSubscription(r.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
}

// GetActiveForUser returns the most recently created ACTIVE subscription.
func (r *SubscriptionRepository) GetActiveForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	return scanSubscription(r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID, models.SubscriptionActive))
}

// CancelActive ends every ACTIVE subscription of the user.
func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, ends_at = ?, updated_at = ?
		WHERE user_id = ? AND status = ?
	`, models.SubscriptionCanceled, now, now, userID, models.SubscriptionActive)
	return err
}

func (r *SubscriptionRepository) SetEndsAt(ctx context.Context, id string, endsAt, now int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET ends_at = ?, updated_at = ? WHERE id = ?`, endsAt, now, id)
	return err
}

// ListExpired returns ACTIVE subscriptions whose end has passed.
func (r *SubscriptionRepository) ListExpired(ctx context.Context, now int64) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = ? AND ends_at IS NOT NULL AND ends_at <= ?
	`, models.SubscriptionActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) SetStatus(ctx context.Context, id, status string, now int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	return err
}
