package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	emailProvider "github.com/vibe-gaming/account-recovery/pkg/email"
)

const passwordResetSubject = "Password reset code"

type emailSender struct {
	sender  emailProvider.Sender
	config  config.EmailConfig
	codeTTL time.Duration
}

func newEmailSender(
	sender emailProvider.Sender,
	config config.EmailConfig,
	codeTTL time.Duration,
) *emailSender {
	return &emailSender{
		sender:  sender,
		config:  config,
		codeTTL: codeTTL,
	}
}

type passwordResetEmailInput struct {
	Code             string
	ExpiresInMinutes int
}

func (s *emailSender) SendPasswordResetEmail(ctx context.Context, email string, code string) error {
	templateInput := passwordResetEmailInput{
		Code:             code,
		ExpiresInMinutes: int(s.codeTTL / time.Minute),
	}
	sendInput := emailProvider.SendEmailInput{Subject: passwordResetSubject, To: email}

	if err := sendInput.GenerateBodyFromHTML(s.config.TemplatesDir, s.config.Templates.PasswordReset, templateInput); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}
