package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/domain"
	"github.com/vibe-gaming/account-recovery/internal/repository"
	"github.com/vibe-gaming/account-recovery/pkg/hash"
	"github.com/vibe-gaming/account-recovery/pkg/limiter"
	"github.com/vibe-gaming/account-recovery/pkg/logger"
	"github.com/vibe-gaming/account-recovery/pkg/otp"

	"go.uber.org/zap"
)

const (
	startLimitPrefix  = "start:"
	verifyLimitPrefix = "verify:"
)

type passwordResetService struct {
	userRepository  repository.Users
	tokenRepository repository.VerificationTokens
	hasher          hash.TokenHasher
	otpGenerator    otp.Generator
	limiter         limiter.WindowLimiter
	notifier        Notifier
	config          config.ResetConfig
	now             func() time.Time
}

func newPasswordResetService(userRepository repository.Users,
	tokenRepository repository.VerificationTokens,
	hasher hash.TokenHasher,
	otpGenerator otp.Generator,
	limiter limiter.WindowLimiter,
	notifier Notifier,
	config config.ResetConfig,
	now func() time.Time,
) *passwordResetService {
	if now == nil {
		now = time.Now
	}

	return &passwordResetService{
		userRepository:  userRepository,
		tokenRepository: tokenRepository,
		hasher:          hasher,
		otpGenerator:    otpGenerator,
		limiter:         limiter,
		notifier:        notifier,
		config:          config,
		now:             now,
	}
}

type StartResetResult struct {
	Email     string
	ExpiresIn time.Duration
}

type VerifyResetResult struct {
	Email      string
	ResetToken string
	ExpiresIn  time.Duration
}

// Start issues a reset code when the account exists. Unknown and deleted accounts get
// the same result as existing ones.
func (s *passwordResetService) Start(ctx context.Context, rawEmail string) (*StartResetResult, error) {
	email := domain.NormalizeEmail(rawEmail)

	if err := s.checkLimit(ctx, startLimitPrefix+email, s.config.StartLimit, s.config.StartWindow); err != nil {
		return nil, err
	}

	result := &StartResetResult{
		Email:     email,
		ExpiresIn: s.config.CodeTTL,
	}

	user, err := s.userRepository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("password reset requested for unknown email", zap.String("email", email))
			return result, nil
		}
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}

	if user.IsDeleted() {
		logger.Debug("password reset requested for deleted user", zap.String("email", email))
		return result, nil
	}

	code, err := s.otpGenerator.RandomCode(s.config.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate reset code failed: %w", err)
	}

	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("hash reset code failed: %w", err)
	}

	if err := s.tokenRepository.DeleteAllFor(ctx, email, domain.PurposeReset); err != nil {
		return nil, fmt.Errorf("delete previous reset tokens failed: %w", err)
	}

	token := &domain.VerificationToken{
		Email:     email,
		Purpose:   domain.PurposeReset,
		TokenHash: codeHash,
		ExpiresAt: s.now().Add(s.config.CodeTTL),
	}
	if err := s.tokenRepository.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("create reset token failed: %w", err)
	}

	if err := s.notifier.Send(ctx, email, code, domain.PurposeReset); err != nil {
		if delErr := s.tokenRepository.DeleteByID(ctx, token.ID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
			logger.Error("rollback undelivered reset token failed",
				zap.String("email", email), zap.String("token_id", token.ID.String()), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	logger.Info("password reset code issued", zap.String("email", email))

	return result, nil
}

// Verify consumes one attempt against the pending code. A match swaps the RESET token
// for a RESET_VERIFIED one whose plaintext secret is returned only here.
func (s *passwordResetService) Verify(ctx context.Context, rawEmail string, code string) (*VerifyResetResult, error) {
	email := domain.NormalizeEmail(rawEmail)

	if err := s.checkLimit(ctx, verifyLimitPrefix+email, s.config.VerifyLimit, s.config.VerifyWindow); err != nil {
		return nil, err
	}

	token, err := s.tokenRepository.FindActive(ctx, email, domain.PurposeReset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNoPendingReset
		}
		return nil, fmt.Errorf("find reset token failed: %w", err)
	}

	if token.IsExpired(s.now()) {
		if err := s.deleteToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrResetCodeExpired
	}

	attempts, err := s.tokenRepository.IncrementAttempts(ctx, token.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNoPendingReset
		}
		return nil, fmt.Errorf("increment reset attempts failed: %w", err)
	}

	if attempts >= s.config.MaxAttempts {
		if err := s.deleteToken(ctx, token); err != nil {
			return nil, err
		}
		logger.Warn("password reset attempts exhausted", zap.String("email", email))
		return nil, ErrTooManyAttempts
	}

	match, err := s.hasher.Equal(code, token.TokenHash)
	if err != nil {
		return nil, fmt.Errorf("compare reset code failed: %w", err)
	}
	if !match {
		return nil, ErrInvalidResetCode
	}

	if err := s.tokenRepository.DeleteByID(ctx, token.ID); err != nil {
		// another request consumed the same code first
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNoPendingReset
		}
		return nil, fmt.Errorf("delete reset token failed: %w", err)
	}

	secret, err := s.otpGenerator.RandomSecret(s.config.SecretSize)
	if err != nil {
		return nil, fmt.Errorf("generate reset secret failed: %w", err)
	}

	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash reset secret failed: %w", err)
	}

	verified := &domain.VerificationToken{
		Email:     email,
		Purpose:   domain.PurposeResetVerified,
		TokenHash: secretHash,
		ExpiresAt: s.now().Add(s.config.VerifiedTTL),
	}
	if err := s.tokenRepository.Create(ctx, verified); err != nil {
		return nil, fmt.Errorf("create verified reset token failed: %w", err)
	}

	logger.Info("password reset code verified", zap.String("email", email))

	return &VerifyResetResult{
		Email:      email,
		ResetToken: secret,
		ExpiresIn:  s.config.VerifiedTTL,
	}, nil
}

func (s *passwordResetService) checkLimit(ctx context.Context, key string, max int, window time.Duration) error {
	res, err := s.limiter.Check(ctx, key, max, window)
	if err != nil {
		return fmt.Errorf("check rate limit failed: %w", err)
	}

	if !res.Allowed {
		logger.Warn("password reset rate limit exceeded", zap.String("key", key))
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}

	return nil
}

func (s *passwordResetService) deleteToken(ctx context.Context, token *domain.VerificationToken) error {
	if err := s.tokenRepository.DeleteByID(ctx, token.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete reset token failed: %w", err)
	}

	return nil
}
