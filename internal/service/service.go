package service

import (
	"context"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/domain"
	"github.com/vibe-gaming/account-recovery/internal/repository"
	"github.com/vibe-gaming/account-recovery/pkg/hash"
	"github.com/vibe-gaming/account-recovery/pkg/limiter"
	"github.com/vibe-gaming/account-recovery/pkg/otp"
)

type Services struct {
	PasswordReset PasswordReset
}

type Deps struct {
	Config       *config.Config
	Hasher       hash.TokenHasher
	OtpGenerator otp.Generator
	Limiter      limiter.WindowLimiter
	Notifier     Notifier
	Repos        *repository.Repositories
	Now          func() time.Time
}

func NewServices(deps Deps) *Services {
	return &Services{
		PasswordReset: newPasswordResetService(
			deps.Repos.Users,
			deps.Repos.VerificationTokens,
			deps.Hasher,
			deps.OtpGenerator,
			deps.Limiter,
			deps.Notifier,
			deps.Config.Reset,
			deps.Now,
		),
	}
}

// Notifier delivers a freshly issued code to its owner.
type Notifier interface {
	Send(ctx context.Context, email string, code string, purpose domain.TokenPurpose) error
}

type PasswordReset interface {
	Start(ctx context.Context, email string) (*StartResetResult, error)
	Verify(ctx context.Context, email string, code string) (*VerifyResetResult, error)
}
