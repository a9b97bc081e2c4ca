package dto

import (
	"time"

	"reviewflow/internal/models"
)

// ======================
// Sellers
// ======================

type CreateSellerRequest struct {
	Name              string `json:"name" validate:"required,max=200"`
	CompanyName       string `json:"companyName" validate:"required,max=200"`
	Email             string `json:"email" validate:"required,email,max=320"`
	Password          string `json:"password" validate:"required,min=8,max=72"`
	Mobile            string `json:"mobile" validate:"omitempty,max=32"`
	Address           string `json:"address" validate:"omitempty,max=500"`
	URL               string `json:"url" validate:"omitempty,http_url,max=2048"`
	Slug              string `json:"slug" validate:"omitempty,slug"`
	QRColor           string `json:"qrColor" validate:"omitempty,hexcolor"`
	StoreThreshold    *int   `json:"storeThreshold" validate:"omitnil,store-threshold"`
	RedirectThreshold *int   `json:"redirectThreshold" validate:"omitnil,redirect-threshold"`
}

// UpdateSellerRequest - nil поля не меняются
type UpdateSellerRequest struct {
	Name              *string `json:"name" validate:"omitnil,min=1,max=200"`
	CompanyName       *string `json:"companyName" validate:"omitnil,min=1,max=200"`
	Email             *string `json:"email" validate:"omitnil,email-or-empty,max=320"`
	Password          *string `json:"password" validate:"omitnil,min=8,max=72"`
	Mobile            *string `json:"mobile" validate:"omitnil,max=32"`
	Address           *string `json:"address" validate:"omitnil,max=500"`
	URL               *string `json:"url" validate:"omitnil,http-url-or-empty,max=2048"`
	Slug              *string `json:"slug" validate:"omitnil,slug,min=1"`
	QRColor           *string `json:"qrColor" validate:"omitnil,hexcolor"`
	QRLogo            *string `json:"qrLogo" validate:"omitnil,max=8000000"` // data URL or http URL, "" clears
	StoreThreshold    *int    `json:"storeThreshold" validate:"omitnil,store-threshold"`
	RedirectThreshold *int    `json:"redirectThreshold" validate:"omitnil,redirect-threshold"`
	ResetThresholds   bool    `json:"resetThresholds"`
}

type SellerResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	CompanyName       string    `json:"companyName"`
	Slug              string    `json:"slug"`
	Email             string    `json:"email,omitempty"`
	Mobile            string    `json:"mobile,omitempty"`
	Address           string    `json:"address,omitempty"`
	URL               string    `json:"url,omitempty"`
	QRColor           string    `json:"qrColor,omitempty"`
	QRLogo            string    `json:"qrLogo,omitempty"`
	StoreThreshold    *int      `json:"storeThreshold,omitempty"`
	RedirectThreshold *int      `json:"redirectThreshold,omitempty"`
	ReviewLink        string    `json:"reviewLink"`
	ClientCount       int       `json:"clientCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func NewSellerResponse(s *models.Seller, reviewLink string) *SellerResponse {
	return &SellerResponse{
		ID:                s.ID,
		Name:              s.Name,
		CompanyName:       s.CompanyName,
		Slug:              s.Slug,
		Email:             models.EmailValue(s.Email),
		Mobile:            s.Mobile,
		Address:           s.Address,
		URL:               s.URL,
		QRColor:           s.QRColor,
		QRLogo:            s.QRLogo,
		StoreThreshold:    s.StoreThreshold,
		RedirectThreshold: s.RedirectThreshold,
		ReviewLink:        reviewLink,
		ClientCount:       len(s.Clients),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// ======================
// Clients
// ======================

type CreateClientRequest struct {
	Name              string   `json:"name" validate:"required,max=200"`
	CompanyName       string   `json:"companyName" validate:"required,max=200"`
	ReviewURL         string   `json:"reviewUrl" validate:"omitempty,http_url,max=2048"`
	Email             string   `json:"email" validate:"omitempty,email,max=320"`
	Password          string   `json:"password" validate:"omitempty,min=8,max=72"` // required when email is set
	Mobile            string   `json:"mobile" validate:"omitempty,max=32"`
	Address           string   `json:"address" validate:"omitempty,max=500"`
	SuggestedReviews  []string `json:"suggestedReviews" validate:"max=20,dive,min=1,max=1000"`
	Slug              string   `json:"slug" validate:"omitempty,slug"`
	QRColor           string   `json:"qrColor" validate:"omitempty,hexcolor"`
	QRLogo            string   `json:"qrLogo" validate:"omitempty,max=8000000"`
	StoreThreshold    *int     `json:"storeThreshold" validate:"omitnil,store-threshold"`
	RedirectThreshold *int     `json:"redirectThreshold" validate:"omitnil,redirect-threshold"`
}

type UpdateClientRequest struct {
	Name              *string   `json:"name" validate:"omitnil,min=1,max=200"`
	CompanyName       *string   `json:"companyName" validate:"omitnil,min=1,max=200"`
	ReviewURL         *string   `json:"reviewUrl" validate:"omitnil,http-url-or-empty,max=2048"`
	Email             *string   `json:"email" validate:"omitnil,email-or-empty,max=320"`
	Password          *string   `json:"password" validate:"omitnil,min=8,max=72"`
	Mobile            *string   `json:"mobile" validate:"omitnil,max=32"`
	Address           *string   `json:"address" validate:"omitnil,max=500"`
	SuggestedReviews  *[]string `json:"suggestedReviews" validate:"omitnil,max=20,dive,min=1,max=1000"`
	Slug              *string   `json:"slug" validate:"omitnil,slug,min=1"`
	QRColor           *string   `json:"qrColor" validate:"omitnil,hexcolor"`
	QRLogo            *string   `json:"qrLogo" validate:"omitnil,max=8000000"`
	StoreThreshold    *int      `json:"storeThreshold" validate:"omitnil,store-threshold"`
	RedirectThreshold *int      `json:"redirectThreshold" validate:"omitnil,redirect-threshold"`
	ResetThresholds   bool      `json:"resetThresholds"`
}

type ClientResponse struct {
	ID                string    `json:"id"`
	SellerID          string    `json:"sellerId"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	CompanyName       string    `json:"companyName"`
	ReviewURL         string    `json:"reviewUrl,omitempty"`
	Email             string    `json:"email,omitempty"`
	Mobile            string    `json:"mobile,omitempty"`
	Address           string    `json:"address,omitempty"`
	SuggestedReviews  []string  `json:"suggestedReviews"`
	QRColor           string    `json:"qrColor,omitempty"`
	QRLogo            string    `json:"qrLogo,omitempty"`
	StoreThreshold    *int      `json:"storeThreshold,omitempty"`
	RedirectThreshold *int      `json:"redirectThreshold,omitempty"`
	ReviewLink        string    `json:"reviewLink"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func NewClientResponse(c *models.Client, reviewLink string) *ClientResponse {
	suggested := []string(c.SuggestedReviews)
	if suggested == nil {
		suggested = []string{}
	}
	return &ClientResponse{
		ID:                c.ID,
		SellerID:          c.SellerID,
		Slug:              c.Slug,
		Name:              c.Name,
		CompanyName:       c.CompanyName,
		ReviewURL:         c.ReviewURL,
		Email:             models.EmailValue(c.Email),
		Mobile:            c.Mobile,
		Address:           c.Address,
		SuggestedReviews:  suggested,
		QRColor:           c.QRColor,
		QRLogo:            c.QRLogo,
		StoreThreshold:    c.StoreThreshold,
		RedirectThreshold: c.RedirectThreshold,
		ReviewLink:        reviewLink,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// ======================
// Public form
// ======================

type RoutingPolicyResponse struct {
	StoreThreshold    int `json:"storeThreshold"`
	RedirectThreshold int `json:"redirectThreshold"`
	RedirectDelayMs   int `json:"redirectDelayMs"`
}

// PublicProfileResponse - то, что видит респондент на /review/:slug
type PublicProfileResponse struct {
	Slug             string                `json:"slug"`
	Kind             models.TenantKind     `json:"kind"`
	Name             string                `json:"name"`
	CompanyName      string                `json:"companyName"`
	SuggestedReviews []string              `json:"suggestedReviews"`
	QRColor          string                `json:"qrColor"`
	QRLogo           string                `json:"qrLogo,omitempty"`
	HasReviewURL     bool                  `json:"hasReviewUrl"`
	Policy           RoutingPolicyResponse `json:"policy"`
}

// QRDescriptor is everything a renderer needs to draw the tenant's QR code.
type QRDescriptor struct {
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	FgColor string `json:"fgColor"`
	Logo    string `json:"logo,omitempty"`
}

type SmartURLResponse struct {
	URL string `json:"url"`
}
