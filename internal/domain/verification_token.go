package domain

import (
	"time"

	"github.com/google/uuid"
)

type TokenPurpose string

const (
	// PurposeReset marks an emailed code awaiting verification.
	PurposeReset TokenPurpose = "RESET"
	// PurposeResetVerified marks the authorization handed out after a correct code.
	PurposeResetVerified TokenPurpose = "RESET_VERIFIED"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeReset || p == PurposeResetVerified
}

// VerificationToken stores only the digest of its secret. At most one exists per (Email, Purpose).
type VerificationToken struct {
	ID        uuid.UUID    `db:"id"`
	Email     string       `db:"email"`
	Purpose   TokenPurpose `db:"purpose"`
	TokenHash string       `db:"token_hash"`
	ExpiresAt time.Time    `db:"expires_at"`
	Attempts  int          `db:"attempts"`
	CreatedAt time.Time    `db:"created_at"`
}

func (t *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
