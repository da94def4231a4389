package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Users              Users
	VerificationTokens VerificationTokens
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:              newUserRepository(db),
		VerificationTokens: newVerificationTokenRepository(db),
	}
}

type Users interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// VerificationTokens is the token store. Every method is atomic at the storage layer.
type VerificationTokens interface {
	// Create assigns an ID and inserts the token, replacing any token with the same email and purpose.
	Create(ctx context.Context, token *domain.VerificationToken) error
	// FindActive returns the token for the pair, expired or not, or domain.ErrNotFound.
	FindActive(ctx context.Context, email string, purpose domain.TokenPurpose) (*domain.VerificationToken, error)
	// IncrementAttempts adds one attempt and returns the serialized post-increment count.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// DeleteByID returns domain.ErrNotFound when nothing was deleted.
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAllFor(ctx context.Context, email string, purpose domain.TokenPurpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx failed: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx failed: %w", err)
	}

	return nil
}
