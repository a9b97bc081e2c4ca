package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Feedback is written once on submission and never updated.
type Feedback struct {
	ID      string                      `gorm:"primaryKey;size:36"`
	Rating  int                         `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment string                      `gorm:"type:text"`
	Images  datatypes.JSONSlice[string] // stored attachment URLs

	AuthorEmail    string `gorm:"size:320"`
	AuthorName     string `gorm:"size:200"`
	AuthorUID      string `gorm:"size:128"`
	AuthorPhotoURL string `gorm:"size:2048"`

	TargetURL  string     `gorm:"size:2048"`
	TenantKind TenantKind `gorm:"size:16;not null;index"`
	TenantKey  string     `gorm:"size:128;not null;index"`
	ClientSlug string     `gorm:"size:128;not null;default:'';index"`
	SellerID   string     `gorm:"size:36;not null;default:'';index"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// BelongsToSeller reports whether a seller dashboard may manage the record:
// seller-direct feedback and feedback left for the seller's clients.
func (f *Feedback) BelongsToSeller(sellerID string) bool {
	return f.SellerID == sellerID && f.TenantKind != TenantKindPlatform
}
