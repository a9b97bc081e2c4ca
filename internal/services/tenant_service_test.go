package services

import (
	"path/filepath"
	"testing"
	"time"

	"reviewflow/internal/models"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
	"reviewflow/internal/testutil"
	"reviewflow/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSlug(t *testing.T) {
	assert.Equal(t, "acme-corporation", DeriveSlug("Acme Corporation"))
	assert.Equal(t, "test-client-llc", DeriveSlug("  Test Client, LLC! "))
	assert.Equal(t, "cafe-creme", DeriveSlug("Café Crème"))
	assert.Equal(t, "", DeriveSlug("!!!"))
	assert.Equal(t, "client-1700000000000", fallbackClientSlug(time.UnixMilli(1700000000000)))
}

func TestClientService_SlugRules(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "acme-corporation")

	// derived slug collides with the seller's and gets a suffix
	c1, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "A", CompanyName: "Acme Corporation"})
	require.NoError(t, err)
	assert.Equal(t, "acme-corporation-2", c1.Slug)

	c2, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "B", CompanyName: "Acme Corporation"})
	require.NoError(t, err)
	assert.Equal(t, "acme-corporation-3", c2.Slug)

	// an explicit duplicate is a conflict
	_, err = f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "C", CompanyName: "C", Slug: "acme-corporation-2"})
	assert.ErrorIs(t, err, apperrors.ErrSlugTaken)

	// nothing usable in the name
	c3, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "D", CompanyName: "???"})
	require.NoError(t, err)
	assert.Regexp(t, `^client-\d+$`, c3.Slug)
}

func TestClientService_EmailUniqueAcrossActors(t *testing.T) {
	f := newFixture(t)
	seller, err := f.sellers.CreateSeller(f.ctx, f.db, &dto.CreateSellerRequest{
		Name: "Sam", CompanyName: "Sam Co", Email: "Sam@Example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", seller.Email)

	_, err = f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name: "X", CompanyName: "X", Email: "sam@example.COM", Password: "password123",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name: "Y", CompanyName: "Y", Email: "y@example.com",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestClientService_QRColorRoundTrip(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")

	created, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "Q", CompanyName: "Q Co"})
	require.NoError(t, err)

	qr, err := f.clients.GetQR(f.db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultQRColor, qr.FgColor)
	assert.Equal(t, "https://reviews.example.com/review/q-co", qr.URL)

	_, err = f.clients.UpdateProfile(f.ctx, f.db, created.ID, &dto.UpdateClientRequest{QRColor: strPtr("#ff0000")})
	require.NoError(t, err)

	reloaded, err := f.clients.GetProfile(f.db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", reloaded.QRColor)

	qr, err = f.clients.GetQR(f.db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", qr.FgColor)
}

func TestClientService_SlugChangeMovesInbox(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "old-slug")

	_, err := f.feedback.Submit(f.ctx, f.db, "old-slug", &dto.SubmitFeedbackRequest{Rating: 1, Comment: "x"}, "")
	require.NoError(t, err)

	_, err = f.clients.UpdateClient(f.ctx, f.db, seller.ID, client.ID, &dto.UpdateClientRequest{Slug: strPtr("new-slug")})
	require.NoError(t, err)

	// старый slug больше не резолвится, кэш сброшен
	_, err = f.resolver.Resolve(f.ctx, f.db, "old-slug")
	assert.ErrorIs(t, err, apperrors.ErrReviewPageNotFound)

	list, err := f.feedback.List(f.db, clientActor(client), 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Feedback, 1)
	assert.Equal(t, "new-slug", list.Feedback[0].TenantKey)
}

func TestClientService_SlugChangeReindexesSearch(t *testing.T) {
	f := newFixture(t)
	idx := f.withIndex()
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")

	out, err := f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 1, Comment: "cold coffee"}, "")
	require.NoError(t, err)
	f.fanOut.Wait()

	_, err = f.clients.UpdateClient(f.ctx, f.db, seller.ID, client.ID, &dto.UpdateClientRequest{Slug: strPtr("c2")})
	require.NoError(t, err)

	doc, ok := idx.Doc(out.FeedbackID)
	require.True(t, ok)
	assert.Equal(t, "c2", doc.ClientSlug)
	assert.Equal(t, "c2", doc.TenantKey)

	hits, err := f.feedback.Search(f.ctx, f.db, clientActor(client), &dto.FeedbackSearchQuery{Query: "coffee"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, out.FeedbackID, hits[0].ID)
}

func TestClientService_DeleteForgetsFeedback(t *testing.T) {
	f := newFixture(t)
	idx := f.withIndex()
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")

	photo := submitWithPhoto(t, f, "c1")
	require.Equal(t, 1, idx.Len())

	require.NoError(t, f.clients.DeleteClient(f.ctx, f.db, seller.ID, client.ID))
	f.fanOut.Wait()

	assert.NoFileExists(t, photo)
	assert.Zero(t, idx.Len())
}

// submitWithPhoto stores a 1-star review with one image and returns the file path.
func submitWithPhoto(t *testing.T, f *fixture, slug string) string {
	t.Helper()
	out, err := f.feedback.Submit(f.ctx, f.db, slug, &dto.SubmitFeedbackRequest{Rating: 1, Comment: "see photo", Images: []string{pngDataURL(t)}}, "")
	require.NoError(t, err)
	f.fanOut.Wait()

	var stored models.Feedback
	require.NoError(t, f.db.First(&stored, "id = ?", out.FeedbackID).Error)
	require.Len(t, stored.Images, 1)
	key, ok := f.store.KeyFromURL(stored.Images[0])
	require.True(t, ok)
	path := filepath.Join(f.store.BasePath(), filepath.FromSlash(key))
	require.FileExists(t, path)
	return path
}

func TestClientService_OtherSellerGets404(t *testing.T) {
	f := newFixture(t)
	owner := testutil.SeedSeller(t, f.db, "owner")
	intruder := testutil.SeedSeller(t, f.db, "intruder")
	client := testutil.SeedClient(t, f.db, owner.ID, "c1")

	_, err := f.clients.GetClient(f.db, intruder.ID, client.ID)
	assert.ErrorIs(t, err, apperrors.ErrClientNotFound)

	err = f.clients.DeleteClient(f.ctx, f.db, intruder.ID, client.ID)
	assert.ErrorIs(t, err, apperrors.ErrClientNotFound)

	require.NoError(t, f.clients.DeleteClient(f.ctx, f.db, owner.ID, client.ID))
}

func TestSellerService_ThresholdOverrides(t *testing.T) {
	f := newFixture(t)
	seller, err := f.sellers.CreateSeller(f.ctx, f.db, &dto.CreateSellerRequest{
		Name: "T", CompanyName: "Thresh Co", Email: "t@example.com", Password: "password123",
		StoreThreshold: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "thresh-co", seller.Slug)

	tenant, err := f.resolver.Resolve(f.ctx, f.db, "thresh-co")
	require.NoError(t, err)
	p := f.resolver.Policy(tenant)
	assert.Equal(t, 2, p.StoreThreshold)
	assert.Equal(t, DefaultRedirectThreshold, p.RedirectThreshold)

	updated, err := f.sellers.UpdateSeller(f.ctx, f.db, seller.ID, &dto.UpdateSellerRequest{ResetThresholds: true})
	require.NoError(t, err)
	assert.Nil(t, updated.StoreThreshold)

	tenant, err = f.resolver.Resolve(f.ctx, f.db, "thresh-co")
	require.NoError(t, err)
	assert.Equal(t, DefaultStoreThreshold, f.resolver.Policy(tenant).StoreThreshold)
}

func TestSellerService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	idx := f.withIndex()
	seller := testutil.SeedSeller(t, f.db, "s1")
	testutil.SeedClient(t, f.db, seller.ID, "c1")

	photo := submitWithPhoto(t, f, "c1")
	_, err := f.feedback.SubmitLegacy(f.ctx, f.db, &dto.SubmitFeedbackRequest{Rating: 1}, "")
	require.NoError(t, err)
	f.fanOut.Wait()
	require.Equal(t, 2, idx.Len())

	require.NoError(t, f.sellers.DeleteSeller(f.ctx, f.db, seller.ID))
	f.fanOut.Wait()
	assert.NoFileExists(t, photo)
	assert.Equal(t, 1, idx.Len(), "platform document stays indexed")

	var clients, feedback int64
	f.db.Model(&models.Client{}).Count(&clients)
	f.db.Model(&models.Feedback{}).Count(&feedback)
	assert.Zero(t, clients)
	assert.EqualValues(t, 1, feedback, "platform feedback survives")

	_, err = f.resolver.Resolve(f.ctx, f.db, "c1")
	assert.ErrorIs(t, err, apperrors.ErrReviewPageNotFound)
}

func TestSellerService_ProfileDerivesMissingSlug(t *testing.T) {
	f := newFixture(t)
	seller := &models.Seller{Name: "N", CompanyName: "Nameless Shop", Slug: ""}
	require.NoError(t, f.db.Create(seller).Error)

	profile, err := f.sellers.GetProfile(f.ctx, f.db, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "nameless-shop", profile.Slug)

	var reloaded models.Seller
	require.NoError(t, f.db.First(&reloaded, "id = ?", seller.ID).Error)
	assert.Equal(t, "nameless-shop", reloaded.Slug)
}

func TestTenantResolver_OverridesApplyToConfiguredDefaults(t *testing.T) {
	f := newFixture(t)
	platform := Policy{StoreThreshold: StoreNever, RedirectThreshold: 5, RedirectDelay: 500 * time.Millisecond}
	f.resolver = NewTenantResolver(f.repos.client, f.repos.seller, f.cache, time.Minute, platform, "https://reviews.example.com")
	f.rebuild(nil, search.NoopIndexer{})
	assert.Equal(t, platform, f.resolver.Defaults())

	seller := testutil.SeedSeller(t, f.db, "s1")
	_, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name: "A", CompanyName: "A", Slug: "only-redirect", RedirectThreshold: intPtr(3),
	})
	require.NoError(t, err)

	tenant, err := f.resolver.Resolve(f.ctx, f.db, "only-redirect")
	require.NoError(t, err)
	p := f.resolver.Policy(tenant)
	assert.Equal(t, StoreNever, p.StoreThreshold)
	assert.Equal(t, 3, p.RedirectThreshold)
	assert.Equal(t, 500*time.Millisecond, p.RedirectDelay)

	_, err = f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name: "B", CompanyName: "B", RedirectThreshold: intPtr(9),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidThresholds)
}
