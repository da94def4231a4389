package processor

import (
	"context"
	"fmt"

	"github.com/vibe-gaming/account-recovery/internal/worker"
	"github.com/vibe-gaming/account-recovery/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type cleanupTokensProcessor struct {
	workers *worker.Workers
}

func NewCleanupTokensProcessor(workers *worker.Workers) *cleanupTokensProcessor {
	return &cleanupTokensProcessor{
		workers: workers,
	}
}

func (p *cleanupTokensProcessor) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	deleted, err := p.workers.TokenCleaner.DeleteExpiredTokens(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired tokens failed: %w", err)
	}

	if deleted > 0 {
		logger.Info("expired verification tokens removed", zap.Int64("count", deleted))
	}

	return nil
}
