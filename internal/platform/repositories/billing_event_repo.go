package repositories

import (
	"context"
	"database/sql"
	"time"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type BillingEventRepository struct {
	db database.DBTX
}

func NewBillingEventRepository(db database.DBTX) *BillingEventRepository {
	return &BillingEventRepository{db: db}
}

func (r *BillingEventRepository) WithTx(tx *sql.Tx) *BillingEventRepository {
	return &BillingEventRepository{db: tx}
}

const billingEventColumns = `id, provider_event_id, event_type, status, payload, attempts, last_error, created_at, processed_at`

func scanBillingEvent(row scanner) (*models.BillingEvent, error) {
	var e models.BillingEvent
	var payload string
	var lastError sql.NullString
	err := row.Scan(&e.ID, &e.ProviderEventID, &e.EventType, &e.Status, &payload, &e.Attempts, &lastError, &e.CreatedAt, &e.ProcessedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.Payload = []byte(payload)
	if lastError.Valid {
		e.LastError = &lastError.String
	}
	return &e, nil
}

// Record stores the event unless one with the same provider id exists and
// reports whether it was inserted.
func (r *BillingEventRepository) Record(ctx context.Context, e *models.BillingEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_events (id, provider_event_id, event_type, status, payload, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(provider_event_id) DO NOTHING
	`, e.ID, e.ProviderEventID, e.EventType, e.Status, string(e.Payload), e.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *BillingEventRepository) GetByProviderID(ctx context.Context, providerEventID string) (*models.BillingEvent, error) {
	return scanBillingEvent(r.db.QueryRowContext(ctx,
		`SELECT `+billingEventColumns+` FROM billing_events WHERE provider_event_id = ?`, providerEventID))
}

func (r *BillingEventRepository) MarkProcessed(ctx context.Context, id string) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		UPDATE billing_events SET status = ?, attempts = attempts + 1, last_error = NULL, processed_at = ?
		WHERE id = ?
	`, models.EventProcessed, now, id)
	return err
}

func (r *BillingEventRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE billing_events SET status = ?, attempts = attempts + 1, last_error = ?
		WHERE id = ?
	`, models.EventFailed, lastError, id)
	return err
}

// ListRetryable returns failed events, and pending events created before
// staleBefore, that have been attempted fewer than maxAttempts times.
func (r *BillingEventRepository) ListRetryable(ctx context.Context, staleBefore int64, maxAttempts, limit int) ([]*models.BillingEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+billingEventColumns+` FROM billing_events
		WHERE attempts < ? AND (status = ? OR (status = ? AND created_at < ?))
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`, maxAttempts, models.EventFailed, models.EventPending, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.BillingEvent
	for rows.Next() {
		e, err := scanBillingEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
