// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"reviewflow/database"
	"reviewflow/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB открывает чистую in-memory sqlite с примененной схемой.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:", false)
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(db, "sqlite"), "migrate sqlite")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedSeller creates a seller with the given slug.
func SeedSeller(t *testing.T, db *gorm.DB, slug string) *models.Seller {
	t.Helper()
	seller := &models.Seller{Name: "Seller " + slug, CompanyName: "Company " + slug, Slug: slug}
	require.NoError(t, db.Create(seller).Error)
	return seller
}

// SeedClient creates a client of seller with the given slug.
func SeedClient(t *testing.T, db *gorm.DB, sellerID, slug string) *models.Client {
	t.Helper()
	client := &models.Client{SellerID: sellerID, Slug: slug, Name: "Client " + slug, CompanyName: "Company " + slug}
	require.NoError(t, db.Create(client).Error)
	return client
}
