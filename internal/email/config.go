package email

import (
	"fmt"
	"time"
)

// Config содержит настройки отправки писем
type Config struct {
	Provider       string // smtp, sendgrid, none
	SMTPHost       string
	SMTPPort       int
	Username       string
	Password       string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	UseTLS         bool
	Timeout        time.Duration
}

// NewProvider выбирает провайдера по конфигурации
func NewProvider(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "", "none":
		return NoopProvider{}, nil
	case "smtp":
		p = NewSMTPProvider(cfg)
	case "sendgrid":
		p = NewSendGridProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
