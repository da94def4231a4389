package task

import (
	"github.com/hibiken/asynq"
)

const (
	CleanupTokensTaskName  = "cleanupExpiredTokensTask"
	CleanupTokensQueueName = "maintenanceQueue"
)

func NewCleanupTokensTask() *asynq.Task {
	return asynq.NewTask(
		CleanupTokensTaskName,
		nil,
		asynq.MaxRetry(0),
		asynq.Queue(CleanupTokensQueueName),
	)
}
