package models

import "gorm.io/datatypes"

// Seller - владелец аккаунта, создается администратором
type Seller struct {
	BaseModel
	Name         string  `gorm:"size:200;not null"`
	CompanyName  string  `gorm:"size:200;not null"`
	Slug         string  `gorm:"size:128;not null;uniqueIndex"`
	Email        *string `gorm:"size:320;uniqueIndex"`
	PasswordHash string  `gorm:"size:255"`
	Mobile       string  `gorm:"size:32"`
	Address      string  `gorm:"size:500"`
	URL          string  `gorm:"size:2048"` // external review URL
	QRColor      string  `gorm:"size:32"`
	QRLogo       string  `gorm:"size:2048"`

	StoreThreshold    *int
	RedirectThreshold *int

	Clients []Client `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
}

// Client - суб-клиент продавца со своим QR-кодом и входящими отзывами
type Client struct {
	BaseModel
	SellerID         string  `gorm:"size:36;not null;index"`
	Slug             string  `gorm:"size:128;not null;uniqueIndex"`
	Name             string  `gorm:"size:200;not null"`
	CompanyName      string  `gorm:"size:200;not null"`
	ReviewURL        string  `gorm:"size:2048"`
	Email            *string `gorm:"size:320;uniqueIndex"`
	PasswordHash     string  `gorm:"size:255"`
	Mobile           string  `gorm:"size:32"`
	Address          string  `gorm:"size:500"`
	SuggestedReviews datatypes.JSONSlice[string]
	QRColor          string `gorm:"size:32"`
	QRLogo           string `gorm:"size:2048"`

	StoreThreshold    *int
	RedirectThreshold *int
}

// Admin - администратор платформы, создается из конфигурации при старте
type Admin struct {
	BaseModel
	Email        string `gorm:"size:320;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
}

// TenantKey is the seller id; seller-direct feedback is keyed by it.
func (s *Seller) TenantKey() string {
	return s.ID
}

func (c *Client) TenantKey() string {
	return c.Slug
}

// EmailValue returns the email or "".
func EmailValue(email *string) string {
	if email == nil {
		return ""
	}
	return *email
}
