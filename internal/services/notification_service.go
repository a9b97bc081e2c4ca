package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewflow/internal/email"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"

	"gorm.io/gorm"
)

const platformDisplayName = "ReviewFlow"

// NotificationService e-mails inbox owners about new feedback.
// It is also a FeedbackObserver so the fan-out can drive it.
type NotificationService interface {
	FeedbackObserver
	// SendDigest mails one summary per inbox with low-rated feedback since the given time.
	SendDigest(ctx context.Context, since time.Time, maxRating int) (int, error)
}

type notificationService struct {
	db                *gorm.DB
	provider          email.Provider
	templates         email.TemplateRenderer
	feedbackRepo      repositories.FeedbackRepository
	clientRepo        repositories.ClientRepository
	sellerRepo        repositories.SellerRepository
	platformRecipient string
	dashboardURL      string
}

func NewNotificationService(
	db *gorm.DB,
	provider email.Provider,
	templates email.TemplateRenderer,
	feedbackRepo repositories.FeedbackRepository,
	clientRepo repositories.ClientRepository,
	sellerRepo repositories.SellerRepository,
	platformRecipient string,
	publicBase string,
) NotificationService {
	return &notificationService{
		db:                db,
		provider:          provider,
		templates:         templates,
		feedbackRepo:      feedbackRepo,
		clientRepo:        clientRepo,
		sellerRepo:        sellerRepo,
		platformRecipient: platformRecipient,
		dashboardURL:      strings.TrimRight(publicBase, "/") + "/dashboard",
	}
}

// recipient - кому писать и как назвать компанию
type recipient struct {
	email   string
	company string
}

func (s *notificationService) FeedbackCreated(ctx context.Context, f dto.FeedbackResponse) error {
	rcpt, err := s.recipientFor(ctx, f.TenantKind, f.TenantKey, f.SellerID)
	if err != nil || rcpt.email == "" {
		return err
	}

	html, err := s.templates.Render(email.TemplateFeedbackReceived, email.TemplateData{
		"CompanyName":  rcpt.company,
		"Rating":       f.Rating,
		"Comment":      f.Comment,
		"AuthorName":   f.AuthorName,
		"AuthorEmail":  f.AuthorEmail,
		"DashboardURL": s.dashboardURL,
	})
	if err != nil {
		return err
	}

	return s.provider.Send(ctx, &email.Email{
		To:       []string{rcpt.email},
		Subject:  fmt.Sprintf("New %d-star feedback for %s", f.Rating, rcpt.company),
		HTMLBody: html,
	})
}

// FeedbackDeleted is not mailed.
func (s *notificationService) FeedbackDeleted(context.Context, dto.FeedbackResponse) error {
	return nil
}

func (s *notificationService) SendDigest(ctx context.Context, since time.Time, maxRating int) (int, error) {
	rows, err := s.feedbackRepo.CountSince(s.db.WithContext(ctx), since, maxRating)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, row := range rows {
		rcpt, err := s.recipientFor(ctx, row.TenantKind, row.TenantKey, row.SellerID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rcpt.email == "" {
			continue
		}

		html, err := s.templates.Render(email.TemplateDailyDigest, email.TemplateData{
			"CompanyName":  rcpt.company,
			"Count":        row.Count,
			"Average":      row.Average,
			"DashboardURL": s.dashboardURL,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.provider.Send(ctx, &email.Email{
			To:       []string{rcpt.email},
			Subject:  fmt.Sprintf("%s: %d new low-rated responses", rcpt.company, row.Count),
			HTMLBody: html,
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// recipientFor: client mail, else its seller; seller mail; platform goes to the first admin.
func (s *notificationService) recipientFor(ctx context.Context, kind models.TenantKind, key, sellerID string) (recipient, error) {
	db := s.db.WithContext(ctx)
	switch kind {
	case models.TenantKindClient:
		client, err := s.clientRepo.FindClientBySlug(db, key)
		if err != nil {
			return recipient{}, err
		}
		if addr := models.EmailValue(client.Email); addr != "" {
			return recipient{email: addr, company: client.CompanyName}, nil
		}
		seller, err := s.sellerRepo.FindSellerByID(db, client.SellerID)
		if err != nil {
			return recipient{}, err
		}
		return recipient{email: models.EmailValue(seller.Email), company: client.CompanyName}, nil
	case models.TenantKindSeller:
		seller, err := s.sellerRepo.FindSellerByID(db, sellerID)
		if err != nil {
			return recipient{}, err
		}
		return recipient{email: models.EmailValue(seller.Email), company: seller.CompanyName}, nil
	default:
		return recipient{email: s.platformRecipient, company: platformDisplayName}, nil
	}
}
