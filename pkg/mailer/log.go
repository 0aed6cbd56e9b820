package mailer

import (
	"context"

	"go.uber.org/zap"

	"typowatch/pkg/logger"
)

// Log writes messages to the logger instead of delivering them. It is meant
// for development setups without an SMTP relay.
type Log struct{}

// Send implements Mailer.
func (Log) Send(ctx context.Context, msg Message) error {
	logger.Info(ctx, "email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))

	return nil
}
