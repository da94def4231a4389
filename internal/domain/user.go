package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is read-only here: it only decides whether a reset code is issued.
type User struct {
	ID        uuid.UUID  `db:"id"`
	Email     string     `db:"email"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// NormalizeEmail lower-cases and trims an address. Every lookup and rate-limit key uses this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
