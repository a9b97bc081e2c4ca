package dto

import (
	"time"

	"reviewflow/internal/models"
)

// ======================
// Request DTOs
// ======================

// SubmitFeedbackRequest - тело публичной формы отзыва.
// Rating is checked by the service so that 0 yields "Please select a rating".
type SubmitFeedbackRequest struct {
	Rating        int      `json:"rating"`
	Comment       string   `json:"comment" validate:"max=5000"`
	Images        []string `json:"images" validate:"max=10,dive,required"` // data URLs
	IdentityToken string   `json:"identityToken,omitempty" validate:"omitempty,max=4096"`
}

type FeedbackSearchQuery struct {
	Query string `form:"q" validate:"required,min=1,max=200"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// Identity - проверенный автор отзыва (из popup входа)
type Identity struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// ======================
// Response DTOs
// ======================

// FeedbackOutcome tells the form what to do next.
// Steps lists the redirect sequence in order: confirm, copy, delay, navigate.
type FeedbackOutcome struct {
	Stored          bool     `json:"stored"`
	FeedbackID      string   `json:"feedbackId,omitempty"`
	Redirect        bool     `json:"redirect"`
	RedirectURL     string   `json:"redirectUrl,omitempty"`
	RedirectDelayMs int      `json:"redirectDelayMs,omitempty"`
	ClipboardText   string   `json:"clipboardText,omitempty"`
	Steps           []string `json:"steps,omitempty"`
	Message         string   `json:"message"`
	StoreError      string   `json:"storeError,omitempty"`
}

type FeedbackResponse struct {
	ID             string            `json:"id"`
	Rating         int               `json:"rating"`
	Comment        string            `json:"comment"`
	Images         []string          `json:"images"`
	AuthorEmail    string            `json:"authorEmail,omitempty"`
	AuthorName     string            `json:"authorName,omitempty"`
	AuthorUID      string            `json:"authorUid,omitempty"`
	AuthorPhotoURL string            `json:"authorPhotoUrl,omitempty"`
	TargetURL      string            `json:"targetUrl,omitempty"`
	TenantKind     models.TenantKind `json:"tenantKind"`
	TenantKey      string            `json:"tenantKey"`
	ClientSlug     string            `json:"clientSlug,omitempty"`
	SellerID       string            `json:"sellerId,omitempty"`
	CreatedAt      time.Time         `json:"date"`
}

type FeedbackListResponse struct {
	Feedback   []FeedbackResponse `json:"feedback"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

func NewFeedbackResponse(f *models.Feedback) FeedbackResponse {
	images := []string(f.Images)
	if images == nil {
		images = []string{}
	}
	return FeedbackResponse{
		ID:             f.ID,
		Rating:         f.Rating,
		Comment:        f.Comment,
		Images:         images,
		AuthorEmail:    f.AuthorEmail,
		AuthorName:     f.AuthorName,
		AuthorUID:      f.AuthorUID,
		AuthorPhotoURL: f.AuthorPhotoURL,
		TargetURL:      f.TargetURL,
		TenantKind:     f.TenantKind,
		TenantKey:      f.TenantKey,
		ClientSlug:     f.ClientSlug,
		SellerID:       f.SellerID,
		CreatedAt:      f.CreatedAt,
	}
}

func NewFeedbackResponses(items []models.Feedback) []FeedbackResponse {
	out := make([]FeedbackResponse, 0, len(items))
	for i := range items {
		out = append(out, NewFeedbackResponse(&items[i]))
	}
	return out
}
