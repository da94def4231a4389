package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/domain"
	"github.com/vibe-gaming/account-recovery/internal/queue/client"
	"github.com/vibe-gaming/account-recovery/internal/queue/task"
	"github.com/vibe-gaming/account-recovery/internal/worker"
	"github.com/vibe-gaming/account-recovery/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedPurpose = errors.New("unsupported token purpose")
	ErrNoQueueClient      = errors.New("queue client is not configured")
)

// New picks the sender matching the email configuration and warns when delivery is off.
func New(cfg *config.Config, workers *worker.Workers, now func() time.Time) (*Sender, error) {
	if !cfg.Email.Enabled {
		logger.Warn("EMAIL_ENABLED is false: reset codes are stored but never sent, set EMAIL_ENABLED=true outside local development",
			zap.String("env", cfg.Env))
		return newSender(disabledDelivery{}, cfg.Reset.CodeTTL, now), nil
	}

	switch cfg.Email.Delivery {
	case config.DeliverySync:
		return newSender(syncDelivery{emailSender: workers.EmailSender}, cfg.Reset.CodeTTL, now), nil
	case config.DeliveryQueue:
		return newSender(queueDelivery{}, cfg.Reset.CodeTTL, now), nil
	default:
		return nil, fmt.Errorf("unknown email delivery mode %q", cfg.Email.Delivery)
	}
}

type delivery interface {
	deliver(ctx context.Context, email string, code string, deadline time.Time) error
}

// Sender delivers reset codes to the account owner.
type Sender struct {
	delivery delivery
	codeTTL  time.Duration
	now      func() time.Time
}

func newSender(d delivery, codeTTL time.Duration, now func() time.Time) *Sender {
	if now == nil {
		now = time.Now
	}

	return &Sender{
		delivery: d,
		codeTTL:  codeTTL,
		now:      now,
	}
}

func (s *Sender) Send(ctx context.Context, email string, code string, purpose domain.TokenPurpose) error {
	if purpose != domain.PurposeReset {
		return fmt.Errorf("%w: %s", ErrUnsupportedPurpose, purpose)
	}

	return s.delivery.deliver(ctx, email, code, s.now().Add(s.codeTTL))
}

type syncDelivery struct {
	emailSender worker.EmailSender
}

func (d syncDelivery) deliver(ctx context.Context, email string, code string, _ time.Time) error {
	if err := d.emailSender.SendPasswordResetEmail(ctx, email, code); err != nil {
		return fmt.Errorf("send password reset email failed: %w", err)
	}

	return nil
}

type queueDelivery struct{}

func (queueDelivery) deliver(ctx context.Context, email string, code string, deadline time.Time) error {
	enqueuer := client.GetClient(ctx)
	if enqueuer == nil {
		return ErrNoQueueClient
	}

	t, err := task.NewSendEmailTask(email, code, deadline)
	if err != nil {
		return fmt.Errorf("create send email task failed: %w", err)
	}

	info, err := enqueuer.EnqueueContext(ctx, t)
	if err != nil {
		return fmt.Errorf("enqueue send email task failed: %w", err)
	}

	logger.Debug("password reset email enqueued", zap.String("email", email), zap.String("task_id", info.ID))

	return nil
}

type disabledDelivery struct{}

func (disabledDelivery) deliver(_ context.Context, email string, _ string, _ time.Time) error {
	logger.Warn("email delivery disabled, reset code not sent", zap.String("email", email))

	return nil
}
