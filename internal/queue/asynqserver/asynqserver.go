package asynqserver

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/vibe-gaming/account-recovery/internal/cache"
	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/queue/processor"
	"github.com/vibe-gaming/account-recovery/internal/queue/task"
	"github.com/vibe-gaming/account-recovery/internal/worker"
	"github.com/vibe-gaming/account-recovery/pkg/logger"
)

func New(cfg config.Cache, workers *worker.Workers) (*asynq.Server, *asynq.ServeMux) {
	mux, queues := getQueues(workers)
	srv := asynq.NewServer(
		RedisOptions(cfg),
		asynq.Config{
			Concurrency: 10,
			LogLevel:    asynq.ErrorLevel,
			Logger:      logger.Logger().Sugar(),
			Queues:      queues,
		},
	)

	return srv, mux
}

// NewScheduler registers the periodic expired-token cleanup under cronSpec.
func NewScheduler(cfg config.Cache, cronSpec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOptions(cfg), &asynq.SchedulerOpts{
		Logger:   logger.Logger().Sugar(),
		LogLevel: asynq.ErrorLevel,
	})

	if _, err := scheduler.Register(cronSpec, task.NewCleanupTokensTask()); err != nil {
		return nil, fmt.Errorf("register cleanup task failed: %w", err)
	}

	return scheduler, nil
}

func RedisOptions(cfg config.Cache) asynq.RedisConnOpt {
	var opts asynq.RedisConnOpt
	if cfg.Type == cache.RedisTypeCluster {
		opts = asynq.RedisClusterClientOpt{
			Addrs:    cfg.RedisCluster.Addresses,
			Password: cfg.RedisCluster.Password,
		}
	} else {
		opts = asynq.RedisClientOpt{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			PoolSize: cfg.Redis.PoolSize,
		}
	}
	return opts
}

func getQueues(workers *worker.Workers) (*asynq.ServeMux, map[string]int) {
	mux := asynq.NewServeMux()
	mux.Handle(task.SendEmailTaskName, processor.NewSendEmailProcessor(workers))
	mux.Handle(task.CleanupTokensTaskName, processor.NewCleanupTokensProcessor(workers))
	queues := map[string]int{
		task.SendEmailQueueName:     3,
		task.CleanupTokensQueueName: 1,
	}
	return mux, queues
}
