package services

import (
	"context"
	"errors"
	"strings"

	"reviewflow/internal/auth"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/gorm"
)

// normalizeEmail lower-cases; "" means no login.
func normalizeEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return &email
}

// ensureEmailFree checks admins, sellers and clients at once.
func ensureEmailFree(db *gorm.DB, lookup repositories.LookupRepository, email *string, exceptID string) error {
	if email == nil {
		return nil
	}
	taken, err := lookup.EmailInUse(db, *email, exceptID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if taken {
		return apperrors.ErrEmailAlreadyExists
	}
	return nil
}

// pickSlug validates an explicit slug or derives a free one from name.
// An explicit slug that is taken is a conflict, a derived one gets a numeric suffix.
func pickSlug(db *gorm.DB, lookup repositories.LookupRepository, explicit, name string, fallback func() string, exceptID string) (string, error) {
	if explicit != "" {
		taken, err := lookup.SlugInUse(db, explicit, exceptID)
		if err != nil {
			return "", apperrors.InternalError(err)
		}
		if taken {
			return "", apperrors.ErrSlugTaken
		}
		return explicit, nil
	}

	base := DeriveSlug(name)
	if base == "" {
		base = fallback()
	}
	slug, err := uniqueSlug(db, lookup, base, exceptID)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	return slug, nil
}

func hashIfSet(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if err := auth.ValidatePassword(password); err != nil {
		return "", apperrors.ErrWeakPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	return hash, nil
}

// writeError maps a lost uniqueness race to 409.
func writeError(err error) error {
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return apperrors.ErrConflict(err, "tenant", "Slug or email already in use")
	}
	return apperrors.InternalError(err)
}

func beginTx(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	return tx, nil
}

// forgetFeedback cleans up after a cascade delete has committed:
// stored photos go away and sinks see one deletion per record.
func forgetFeedback(ctx context.Context, attachments AttachmentService, observer FeedbackObserver, items []models.Feedback) {
	for i := range items {
		attachments.Remove(ctx, items[i].Images...)
		if observer != nil {
			_ = observer.FeedbackDeleted(ctx, dto.NewFeedbackResponse(&items[i]))
		}
	}
}
