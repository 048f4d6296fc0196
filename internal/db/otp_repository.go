package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sms-ingress-server/internal/models"
)

// OTPRepository persists issued verification codes, keyed by (to, from)
type OTPRepository interface {
	// GetLatest returns the newest record for the pair, or nil if none exists
	GetLatest(ctx context.Context, to, from string) (*models.OTP, error)
	// CreateIfNoneActive inserts otp unless the pair already has a valid,
	// unexpired record at now. It reports whether the row was inserted.
	CreateIfNoneActive(ctx context.Context, otp *models.OTP, now time.Time) (bool, error)
	// Invalidate flips is_valid to false only if it is still true.
	// It reports whether this call performed the transition.
	Invalidate(ctx context.Context, id string) (bool, error)
}

type otpRepository struct {
	database *Database
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(database *Database) OTPRepository {
	return &otpRepository{database: database}
}

func (r *otpRepository) GetLatest(ctx context.Context, to, from string) (*models.OTP, error) {
	if to == "" || from == "" {
		return nil, fmt.Errorf("recipient and sender are required")
	}

	// Among records created in the same millisecond the valid one wins
	query := r.database.Rebind(`
		SELECT id, recipient, sender, secret_hash, is_valid, created_at, expires_at
		FROM otps
		WHERE recipient = ? AND sender = ?
		ORDER BY created_at DESC, is_valid DESC
		LIMIT 1
	`)

	otp := &models.OTP{}
	err := r.database.db.QueryRowContext(ctx, query, to, from).Scan(
		&otp.ID,
		&otp.To,
		&otp.From,
		&otp.SecretHash,
		&otp.IsValid,
		&otp.CreatedAt,
		&otp.ExpiresAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest otp: %w", err)
	}

	return otp, nil
}

func (r *otpRepository) CreateIfNoneActive(ctx context.Context, otp *models.OTP, now time.Time) (bool, error) {
	if otp == nil {
		return false, fmt.Errorf("otp cannot be nil")
	}
	if otp.ID == "" || otp.To == "" || otp.From == "" || otp.SecretHash == "" {
		return false, fmt.Errorf("otp id, recipient, sender and hash are required")
	}

	query := r.database.Rebind(`
		INSERT INTO otps (id, recipient, sender, secret_hash, is_valid, created_at, expires_at)
		SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT),
			CAST(? AS BOOLEAN), CAST(? AS BIGINT), CAST(? AS BIGINT)
		WHERE NOT EXISTS (
			SELECT 1 FROM otps
			WHERE recipient = ? AND sender = ? AND is_valid = ? AND expires_at > ?
		)
	`)
	args := []any{
		otp.ID, otp.To, otp.From, otp.SecretHash, otp.IsValid, otp.CreatedAt, otp.ExpiresAt,
		otp.To, otp.From, true, now.UnixMilli(),
	}

	var inserted bool
	err := r.withKeyLock(ctx, otp.To+":"+otp.From, func(exec execer) error {
		res, err := exec.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create otp: %w", err)
	}

	return inserted, nil
}

func (r *otpRepository) Invalidate(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("otp ID cannot be empty")
	}

	query := r.database.Rebind(`UPDATE otps SET is_valid = ? WHERE id = ? AND is_valid = ?`)
	res, err := r.database.db.ExecContext(ctx, query, false, id, true)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate otp: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to invalidate otp: %w", err)
	}

	return n == 1, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withKeyLock runs fn serialised per key. On Postgres the conditional insert
// is not atomic across READ COMMITTED transactions, so it runs under a
// transaction-scoped advisory lock. SQLite serialises writers itself.
func (r *otpRepository) withKeyLock(ctx context.Context, key string, fn func(execer) error) error {
	if r.database.driver != DriverPostgres {
		return fn(r.database.db)
	}

	tx, err := r.database.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
