package email

import (
	"context"

	"reviewflow/internal/logger"
)

// NoopProvider only logs; used when email.provider is "none".
type NoopProvider struct{}

func (NoopProvider) Send(ctx context.Context, email *Email) error {
	logger.CtxDebug(ctx, "Email delivery disabled, dropping message", "to", email.To, "subject", email.Subject)
	return nil
}

func (NoopProvider) Validate() error { return nil }
func (NoopProvider) Close() error    { return nil }
