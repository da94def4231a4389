package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/domain"
	"github.com/vibe-gaming/account-recovery/internal/repository"
)

type tokenCleaner struct {
	tokens repository.VerificationTokens
	now    func() time.Time
}

func newTokenCleaner(tokens repository.VerificationTokens, now func() time.Time) *tokenCleaner {
	if now == nil {
		now = time.Now
	}

	return &tokenCleaner{
		tokens: tokens,
		now:    now,
	}
}

// DeleteExpiredTokens removes every token, of any purpose, whose expiry has passed.
func (c *tokenCleaner) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := c.tokens.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens failed: %w", err)
	}

	return deleted, nil
}

// DiscardPendingReset removes the RESET code of email so an undelivered code cannot be used.
func (c *tokenCleaner) DiscardPendingReset(ctx context.Context, email string) error {
	if err := c.tokens.DeleteAllFor(ctx, email, domain.PurposeReset); err != nil {
		return fmt.Errorf("discard pending reset failed: %w", err)
	}

	return nil
}
