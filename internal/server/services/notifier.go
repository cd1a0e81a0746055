package services

import (
	"context"

	"github.com/teamterraforge/tgmsauth/internal/logging"
)

// ResetTokenSender delivers a password reset token to the account owner.
type ResetTokenSender interface {
	SendResetToken(ctx context.Context, email, token string) error
}

// LogSender records that a reset token was dispatched without delivering it
// anywhere. The token itself is never logged.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("module", "reset-sender")}
}

func (s *LogSender) SendResetToken(ctx context.Context, email, token string) error {
	s.log.Info(ctx, "password reset token dispatched", "email", email, "token_length", len(token))
	return nil
}
