package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vibe-gaming/account-recovery/internal/queue/task"
	"github.com/vibe-gaming/account-recovery/internal/worker"
	"github.com/vibe-gaming/account-recovery/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type sendEmailProcessor struct {
	workers *worker.Workers
}

func NewSendEmailProcessor(workers *worker.Workers) *sendEmailProcessor {
	return &sendEmailProcessor{
		workers: workers,
	}
}

func (p *sendEmailProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var data task.SendEmail
	err := json.Unmarshal(t.Payload(), &data)
	if err != nil {
		// a malformed payload will never succeed
		return fmt.Errorf("process send email task json unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	if err = p.workers.EmailSender.SendPasswordResetEmail(ctx, data.Email, data.Code); err != nil {
		// delivery is attempted once; the code it carried must not stay usable
		if discardErr := p.workers.TokenCleaner.DiscardPendingReset(ctx, data.Email); discardErr != nil {
			logger.Error("discard undelivered reset code failed", zap.String("email", data.Email), zap.Error(discardErr))
		}
		return fmt.Errorf("send password reset email failed: %w: %w", err, asynq.SkipRetry)
	}

	return nil
}
