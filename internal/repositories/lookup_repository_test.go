package repositories

import (
	"testing"

	"reviewflow/internal/models"
	"reviewflow/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRepository_FindOneBy(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLookupRepository()
	seller := testutil.SeedSeller(t, db, "seller-one")
	testutil.SeedClient(t, db, seller.ID, "acme-corp")

	var client models.Client
	require.NoError(t, repo.FindOneBy(db, "clients", "slug", "acme-corp", &client))
	assert.Equal(t, seller.ID, client.SellerID)

	// поиск по slug чувствителен к регистру
	assert.ErrorIs(t, repo.FindOneBy(db, "clients", "slug", "Acme-Corp", &client), ErrRecordNotFound)

	assert.ErrorIs(t, repo.FindOneBy(db, "clients", "password_hash", "x", &client), ErrFieldNotQueryable)
	assert.ErrorIs(t, repo.FindOneBy(db, "feedback", "id", "x", &client), ErrUnknownCollection)
}

func TestLookupRepository_SlugInUseSpansClientsAndSellers(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLookupRepository()
	seller := testutil.SeedSeller(t, db, "seller-one")
	client := testutil.SeedClient(t, db, seller.ID, "acme-corp")

	taken, err := repo.SlugInUse(db, "seller-one", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.SlugInUse(db, "acme-corp", client.ID)
	require.NoError(t, err)
	assert.False(t, taken, "the record itself does not block its own slug")

	taken, err = repo.SlugInUse(db, "free-slug", "")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestLookupRepository_FindActorByEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLookupRepository()

	email := "owner@example.com"
	seller := &models.Seller{Name: "S", CompanyName: "S Co", Slug: "s-co", Email: &email}
	require.NoError(t, db.Create(seller).Error)

	actor, err := repo.FindActorByEmail(db, "  Owner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, models.ActorRoleSeller, actor.Role)
	assert.Equal(t, seller.ID, actor.Seller.ID)

	taken, err := repo.EmailInUse(db, "OWNER@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = repo.FindActorByEmail(db, "nobody@example.com")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClientRepository_DuplicateSlug(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewClientRepository()
	seller := testutil.SeedSeller(t, db, "seller-one")
	testutil.SeedClient(t, db, seller.ID, "acme-corp")

	err := repo.CreateClient(db, &models.Client{SellerID: seller.ID, Slug: "acme-corp", Name: "x", CompanyName: "x"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestClientRepository_QRColorRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewClientRepository()
	seller := testutil.SeedSeller(t, db, "seller-one")
	client := testutil.SeedClient(t, db, seller.ID, "acme-corp")

	client.QRColor = "#ff0000"
	require.NoError(t, repo.UpdateClient(db, client))

	reloaded, err := repo.FindClientBySlug(db, "acme-corp")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", reloaded.QRColor)
}
