package repositories

import (
	"context"
	"database/sql"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type LoginLogRepository struct {
	db database.DBTX
}

func NewLoginLogRepository(db database.DBTX) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

func (r *LoginLogRepository) Create(ctx context.Context, l *models.LoginLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_logs (id, user_id, ip_address, user_agent, os, browser, device, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.IPAddress, l.UserAgent, l.OS, l.Browser, l.Device, l.CreatedAt)
	return err
}

func (r *LoginLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.LoginLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, ip_address, user_agent, os, browser, device, created_at
		FROM login_logs WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.LoginLog{}
	for rows.Next() {
		l := &models.LoginLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.IPAddress, &l.UserAgent, &l.OS, &l.Browser, &l.Device, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type PasswordResetRepository struct {
	db database.DBTX
}

func NewPasswordResetRepository(db database.DBTX) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) WithTx(tx *sql.Tx) *PasswordResetRepository {
	return &PasswordResetRepository{db: tx}
}

func (r *PasswordResetRepository) Create(ctx context.Context, t *models.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

// GetUsable returns the unused, unexpired token with the given hash.
func (r *PasswordResetRepository) GetUsable(ctx context.Context, tokenHash string, now int64) (*models.PasswordResetToken, error) {
	t := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
	`, tokenHash, now).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// MarkUsed reports false when the token was consumed concurrently.
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id string, now int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PasswordResetRepository) DeleteStale(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE used_at IS NOT NULL OR expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
