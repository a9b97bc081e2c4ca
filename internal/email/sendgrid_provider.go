package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridProvider struct {
	config Config
	client *sendgrid.Client
}

func NewSendGridProvider(config Config) *SendGridProvider {
	return &SendGridProvider{
		config: config,
		client: sendgrid.NewSendClient(config.SendGridAPIKey),
	}
}

func (p *SendGridProvider) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(p.config.FromName, p.config.FromEmail))
	message.Subject = email.Subject

	personalization := mail.NewPersonalization()
	for _, to := range email.To {
		personalization.AddTos(mail.NewEmail("", to))
	}
	for _, cc := range email.Cc {
		personalization.AddCCs(mail.NewEmail("", cc))
	}
	message.AddPersonalizations(personalization)

	if email.Body != "" {
		message.AddContent(mail.NewContent("text/plain", email.Body))
	}
	if email.HTMLBody != "" {
		message.AddContent(mail.NewContent("text/html", email.HTMLBody))
	}

	resp, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (p *SendGridProvider) Validate() error {
	if p.config.SendGridAPIKey == "" {
		return fmt.Errorf("sendgrid api key is required")
	}
	if p.config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

func (p *SendGridProvider) Close() error {
	return nil
}
