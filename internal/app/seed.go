package app

import (
	"errors"
	"fmt"
	"strings"

	"reviewflow/internal/auth"
	"reviewflow/internal/config"
	"reviewflow/internal/logger"
	"reviewflow/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.FirstAdminEmail))
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var existing models.Admin
	result := tx.Where("email = ?", adminEmail).First(&existing)
	if result.Error == nil {
		logger.Info("Admin already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin: %w", result.Error)
	}

	logger.Warn("No admin found with specified email. Creating first admin...", "email", adminEmail)

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := tx.Create(&models.Admin{Email: adminEmail, PasswordHash: hash}).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	logger.Info("Successfully created first admin", "email", adminEmail)
	return tx.Commit().Error
}

type demoClient struct {
	slug, company, reviewURL string
	suggested                []string
}

var demoClients = []demoClient{
	{
		slug:      "test-client",
		company:   "Test Client LLC",
		reviewURL: "https://www.google.com/search?q=google+reviews",
		suggested: []string{
			"Great service! The team was very professional and helped me with everything I needed.",
			"Highly recommend! Quick response time and excellent results.",
			"Fantastic experience. Will definitely use their services again.",
		},
	},
	{
		slug:      "acme-corp",
		company:   "Acme Corporation",
		reviewURL: "https://www.google.com/maps",
		suggested: []string{
			"Top notch quality products. exceeded my expectations!",
			"Customer support is amazing. Solved my issue in minutes.",
			"Reliable and trustworthy. A pleasure to do business with.",
		},
	},
}

// seedDemoTenants creates a demo seller owning the two sample review pages.
// Existing slugs are left untouched.
func seedDemoTenants(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var seller models.Seller
		err := tx.Where("slug = ?", "demo-seller").First(&seller).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seller = models.Seller{Name: "Demo Seller", CompanyName: "Demo Seller", Slug: "demo-seller"}
			if err := tx.Create(&seller).Error; err != nil {
				return fmt.Errorf("create demo seller: %w", err)
			}
		case err != nil:
			return err
		}

		for _, dc := range demoClients {
			var count int64
			if err := tx.Model(&models.Client{}).Where("slug = ?", dc.slug).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			client := models.Client{
				SellerID:         seller.ID,
				Slug:             dc.slug,
				Name:             dc.company,
				CompanyName:      dc.company,
				ReviewURL:        dc.reviewURL,
				SuggestedReviews: datatypes.JSONSlice[string](dc.suggested),
			}
			if err := tx.Create(&client).Error; err != nil {
				return fmt.Errorf("create demo client %s: %w", dc.slug, err)
			}
			logger.Info("Demo client created", "slug", dc.slug)
		}
		return nil
	})
}
