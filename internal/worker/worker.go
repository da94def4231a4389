package worker

import (
	"context"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/repository"
	emailProvider "github.com/vibe-gaming/account-recovery/pkg/email"
)

type Workers struct {
	EmailSender  EmailSender
	TokenCleaner TokenCleaner
}

type Deps struct {
	Repos         *repository.Repositories
	EmailProvider emailProvider.Sender
	Config        *config.Config
	Now           func() time.Time
}

type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, email string, code string) error
}

type TokenCleaner interface {
	DeleteExpiredTokens(ctx context.Context) (int64, error)
	DiscardPendingReset(ctx context.Context, email string) error
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		EmailSender:  newEmailSender(deps.EmailProvider, deps.Config.Email, deps.Config.Reset.CodeTTL),
		TokenCleaner: newTokenCleaner(deps.Repos.VerificationTokens, deps.Now),
	}
}
