package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/db"
	"github.com/vibe-gaming/account-recovery/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type verificationTokenRepository struct {
	db *sqlx.DB
}

func newVerificationTokenRepository(db *sqlx.DB) *verificationTokenRepository {
	return &verificationTokenRepository{
		db: db,
	}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	const op = "repository.verificationToken.Create"

	const deleteQuery = `
	DELETE FROM verification_token WHERE email = ? AND purpose = ?
	`
	const insertQuery = `
	INSERT INTO verification_token (id, email, purpose, token_hash, expires_at, attempts)
	VALUES (uuid_to_bin(?), ?, ?, ?, ?, 0)
	`

	if !token.Purpose.Valid() {
		return fmt.Errorf("%s: invalid purpose %q", op, token.Purpose)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("%s: generate id failed: %w", op, err)
	}

	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteQuery, token.Email, string(token.Purpose)); err != nil {
			return fmt.Errorf("%s: delete previous token failed: %w", op, err)
		}

		res, err := tx.ExecContext(ctx, insertQuery, id, token.Email, string(token.Purpose), token.TokenHash, token.ExpiresAt)
		if err != nil {
			if db.IsDuplicateEntry(err) {
				return domain.ErrDuplicateEntry
			}
			return fmt.Errorf("%s: insert token failed: %w", op, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: get rows affected failed: %w", op, err)
		}

		if rows != 1 {
			return fmt.Errorf("%s: expected 1 row affected, got %d", op, rows)
		}

		return nil
	})
	if err != nil {
		return err
	}

	token.ID = id
	token.Attempts = 0

	return nil
}

func (r *verificationTokenRepository) FindActive(ctx context.Context, email string, purpose domain.TokenPurpose) (*domain.VerificationToken, error) {
	const op = "repository.verificationToken.FindActive"

	const query = `
	SELECT id, email, purpose, token_hash, expires_at, attempts, created_at
	FROM verification_token
	WHERE email = ? AND purpose = ?
	LIMIT 1
	`

	var token domain.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, email, string(purpose)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select token failed: %w", op, err)
	}

	return &token, nil
}

// IncrementAttempts locks the row so concurrent verifications observe increments in order.
func (r *verificationTokenRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	const op = "repository.verificationToken.IncrementAttempts"

	const selectQuery = `
	SELECT attempts FROM verification_token WHERE id = uuid_to_bin(?) FOR UPDATE
	`
	const updateQuery = `
	UPDATE verification_token SET attempts = attempts + 1 WHERE id = uuid_to_bin(?)
	`

	var attempts int
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &attempts, selectQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("%s: lock token failed: %w", op, err)
		}

		res, err := tx.ExecContext(ctx, updateQuery, id)
		if err != nil {
			return fmt.Errorf("%s: update attempts failed: %w", op, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: get rows affected failed: %w", op, err)
		}

		if rows != 1 {
			return domain.ErrNoRowsAffected
		}

		attempts++

		return nil
	})
	if err != nil {
		return 0, err
	}

	return attempts, nil
}

func (r *verificationTokenRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	const op = "repository.verificationToken.DeleteByID"

	const query = `
	DELETE FROM verification_token WHERE id = uuid_to_bin(?)
	`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: delete token failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *verificationTokenRepository) DeleteAllFor(ctx context.Context, email string, purpose domain.TokenPurpose) error {
	const op = "repository.verificationToken.DeleteAllFor"

	const query = `
	DELETE FROM verification_token WHERE email = ? AND purpose = ?
	`

	if _, err := r.db.ExecContext(ctx, query, email, string(purpose)); err != nil {
		return fmt.Errorf("%s: delete tokens failed: %w", op, err)
	}

	return nil
}

func (r *verificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "repository.verificationToken.DeleteExpired"

	const query = `
	DELETE FROM verification_token WHERE expires_at <= ?
	`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: delete expired tokens failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	return rows, nil
}
