package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	SendEmailTaskName  = "sendPasswordResetEmailTask"
	SendEmailQueueName = "sendEmailQueue"
)

type SendEmail struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// NewSendEmailTask schedules a single delivery attempt of a reset code. The task deadline
// matches the code lifetime so a code is never mailed after it stopped being usable.
func NewSendEmailTask(email string, code string, deadline time.Time) (*asynq.Task, error) {
	data := SendEmail{
		Email: email,
		Code:  code,
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		SendEmailTaskName,
		payload,
		asynq.MaxRetry(0),
		asynq.Queue(SendEmailQueueName),
		asynq.Deadline(deadline),
	), nil
}
