package services

import (
	"context"
	"net/http"
	"testing"

	"reviewflow/internal/events"
	"reviewflow/internal/mocks"
	"reviewflow/internal/models"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
	"reviewflow/internal/testutil"
	"reviewflow/pkg/apperrors"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackService_TestClientScenario(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "seller-s")

	created, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name:        "Test Client",
		CompanyName: "Test Client LLC",
		Slug:        "test-client",
	})
	require.NoError(t, err)
	assert.Equal(t, "test-client", created.Slug)

	// rating 2: stored, thank-you, no redirect
	out, err := f.feedback.Submit(f.ctx, f.db, "test-client", &dto.SubmitFeedbackRequest{Rating: 2, Comment: "slow response"}, "")
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.False(t, out.Redirect)
	assert.Equal(t, MessageThankYou, out.Message)
	require.NotEmpty(t, out.FeedbackID)

	var stored models.Feedback
	require.NoError(t, f.db.First(&stored, "id = ?", out.FeedbackID).Error)
	assert.Equal(t, 2, stored.Rating)
	assert.Equal(t, "slow response", stored.Comment)
	assert.Equal(t, "test-client", stored.TenantKey)
	assert.Equal(t, "test-client", stored.ClientSlug)
	assert.Equal(t, seller.ID, stored.SellerID)

	// with a review URL, rating 5 redirects
	_, err = f.clients.UpdateClient(f.ctx, f.db, seller.ID, created.ID, &dto.UpdateClientRequest{ReviewURL: strPtr("https://g.page/abc")})
	require.NoError(t, err)

	out, err = f.feedback.Submit(f.ctx, f.db, "test-client", &dto.SubmitFeedbackRequest{Rating: 5, Comment: "lovely"}, "")
	require.NoError(t, err)
	assert.True(t, out.Redirect)
	assert.False(t, out.Stored)
	assert.Equal(t, "https://g.page/abc", out.RedirectURL)
	assert.Equal(t, "lovely", out.ClipboardText)
	assert.Equal(t, 2000, out.RedirectDelayMs)
	assert.Equal(t, []string{"confirm", "copy", "delay", "navigate"}, out.Steps)
	assert.Equal(t, MessageRedirecting, out.Message)
}

func TestFeedbackService_IdentityOnlyGuardsStoredFeedback(t *testing.T) {
	f := newFixture(t)
	f.rebuild(NewGoogleIdentityVerifier(newTokenInfoServer(t).URL, "web-client"), search.NoopIndexer{})
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")
	_, err := f.clients.UpdateClient(f.ctx, f.db, seller.ID, client.ID, &dto.UpdateClientRequest{ReviewURL: strPtr("https://g.page/abc")})
	require.NoError(t, err)

	// expired popup token: the respondent still reaches the review page
	out, err := f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 5, IdentityToken: "expired-popup-token"}, "")
	require.NoError(t, err)
	assert.True(t, out.Redirect)
	assert.Equal(t, "https://g.page/abc", out.RedirectURL)

	// store and redirect overlap: kept without author fields
	_, err = f.clients.UpdateClient(f.ctx, f.db, seller.ID, client.ID, &dto.UpdateClientRequest{StoreThreshold: intPtr(5)})
	require.NoError(t, err)
	out, err = f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 5, Comment: "great", IdentityToken: "expired-popup-token"}, "")
	require.NoError(t, err)
	assert.True(t, out.Redirect)
	require.True(t, out.Stored)

	var stored models.Feedback
	require.NoError(t, f.db.First(&stored, "id = ?", out.FeedbackID).Error)
	assert.Equal(t, "great", stored.Comment)
	assert.Empty(t, stored.AuthorUID)

	// nothing to fall back on: the token error is the answer
	_, err = f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 2, IdentityToken: "expired-popup-token"}, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)

	out, err = f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 2, Comment: "slow", IdentityToken: "good"}, "")
	require.NoError(t, err)
	var signed models.Feedback
	require.NoError(t, f.db.First(&signed, "id = ?", out.FeedbackID).Error)
	assert.Equal(t, "uid-1", signed.AuthorUID)
	assert.Equal(t, "Jane", signed.AuthorName)
}

func TestFeedbackService_LowRatingsAreStored(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")

	for _, rating := range []int{1, 2, 3} {
		out, err := f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: rating, Comment: "meh"}, "https://g.page/x")
		require.NoError(t, err)
		assert.True(t, out.Stored)
		assert.False(t, out.Redirect)
	}

	list, err := f.feedback.List(f.db, clientActor(client), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.Equal(t, 3, list.Feedback[0].Rating, "newest first")
}

func TestFeedbackService_TargetFallsBackToQuery(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	testutil.SeedClient(t, f.db, seller.ID, "no-url")

	out, err := f.feedback.Submit(f.ctx, f.db, "no-url", &dto.SubmitFeedbackRequest{Rating: 4}, "https://maps.example/review")
	require.NoError(t, err)
	assert.True(t, out.Redirect)
	assert.Equal(t, "https://maps.example/review", out.RedirectURL)

	// no target at all: high rating is kept instead of lost
	out, err = f.feedback.Submit(f.ctx, f.db, "no-url", &dto.SubmitFeedbackRequest{Rating: 5, Comment: "great"}, "")
	require.NoError(t, err)
	assert.False(t, out.Redirect)
	assert.True(t, out.Stored)
}

func TestFeedbackService_SlugIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	testutil.SeedClient(t, f.db, seller.ID, "acme-corp")

	_, err := f.feedback.Submit(f.ctx, f.db, "acme-corp", &dto.SubmitFeedbackRequest{Rating: 1}, "")
	require.NoError(t, err)

	_, err = f.feedback.Submit(f.ctx, f.db, "Acme-Corp", &dto.SubmitFeedbackRequest{Rating: 1}, "")
	assert.ErrorIs(t, err, apperrors.ErrReviewPageNotFound)
}

func TestFeedbackService_RatingRequired(t *testing.T) {
	f := newFixture(t)

	_, err := f.feedback.Submit(f.ctx, f.db, "anything", &dto.SubmitFeedbackRequest{Rating: 0}, "")
	assert.ErrorIs(t, err, apperrors.ErrRatingRequired)
	assert.Equal(t, "Please select a rating", apperrors.ErrRatingRequired.Message)

	_, err = f.feedback.Submit(f.ctx, f.db, "anything", &dto.SubmitFeedbackRequest{Rating: 6}, "")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)
}

func TestFeedbackService_StoreFailure(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")
	client.ReviewURL = "https://g.page/c1"
	client.StoreThreshold = intPtr(5)
	require.NoError(t, f.db.Save(client).Error)

	require.NoError(t, f.db.Migrator().DropTable(&models.Feedback{}))

	// redirect still happens, the failure is reported alongside
	out, err := f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 5}, "")
	require.NoError(t, err)
	assert.True(t, out.Redirect)
	assert.False(t, out.Stored)
	assert.NotEmpty(t, out.StoreError)

	// nothing to fall back on
	_, err = f.feedback.SubmitLegacy(f.ctx, f.db, &dto.SubmitFeedbackRequest{Rating: 2}, "")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeStoreWriteFailed, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPCode)
}

func TestFeedbackService_LegacyGoesToPlatformInbox(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")

	out, err := f.feedback.SubmitLegacy(f.ctx, f.db, &dto.SubmitFeedbackRequest{Rating: 2, Comment: "cold food"}, "https://g.page/legacy")
	require.NoError(t, err)
	assert.True(t, out.Stored)

	out, err = f.feedback.SubmitLegacy(f.ctx, f.db, &dto.SubmitFeedbackRequest{Rating: 5}, "https://g.page/legacy")
	require.NoError(t, err)
	assert.Equal(t, "https://g.page/legacy", out.RedirectURL)

	adminList, err := f.feedback.List(f.db, adminActor(), 1, 20)
	require.NoError(t, err)
	require.Len(t, adminList.Feedback, 1)
	assert.Equal(t, models.TenantKindPlatform, adminList.Feedback[0].TenantKind)

	sellerList, err := f.feedback.List(f.db, sellerActor(seller), 1, 20)
	require.NoError(t, err)
	assert.Empty(t, sellerList.Feedback)
}

func TestFeedbackService_DeleteOwnership(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")
	other := testutil.SeedSeller(t, f.db, "s2")
	client := testutil.SeedClient(t, f.db, seller.ID, "c1")

	out, err := f.feedback.Submit(f.ctx, f.db, "c1", &dto.SubmitFeedbackRequest{Rating: 1, Comment: "bad"}, "")
	require.NoError(t, err)

	// чужой продавец не видит запись
	err = f.feedback.Delete(f.ctx, f.db, sellerActor(other), out.FeedbackID)
	assert.ErrorIs(t, err, apperrors.ErrFeedbackNotFound)

	// the owning seller may delete its client's feedback
	require.NoError(t, f.feedback.Delete(f.ctx, f.db, sellerActor(seller), out.FeedbackID))

	list, err := f.feedback.List(f.db, clientActor(client), 1, 20)
	require.NoError(t, err)
	for _, item := range list.Feedback {
		assert.NotEqual(t, out.FeedbackID, item.ID)
	}

	err = f.feedback.Delete(f.ctx, f.db, clientActor(client), out.FeedbackID)
	assert.ErrorIs(t, err, apperrors.ErrFeedbackNotFound)
}

func TestFeedbackService_SearchAndStats(t *testing.T) {
	f := newFixture(t)
	seller := testutil.SeedSeller(t, f.db, "s1")

	for _, c := range []string{"Slow delivery", "rude staff", "slow checkout"} {
		_, err := f.feedback.Submit(f.ctx, f.db, "s1", &dto.SubmitFeedbackRequest{Rating: 2, Comment: c}, "")
		require.NoError(t, err)
	}

	hits, err := f.feedback.Search(f.ctx, f.db, sellerActor(seller), &dto.FeedbackSearchQuery{Query: "slow"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	stats, err := f.feedback.Stats(f.db, sellerActor(seller))
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalFeedback)
	assert.InDelta(t, 2.0, stats.AverageRating, 0.001)
}

func TestFeedbackService_PublishesEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := mocks.NewMockPublisher(ctrl)
	f := newFixture(t, NewEventSink(publisher))
	seller := testutil.SeedSeller(t, f.db, "s1")

	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			assert.Equal(t, events.TypeFeedbackCreated, e.Type)
			assert.Equal(t, seller.ID, e.Feedback.TenantKey)
			return nil
		})
	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			assert.Equal(t, events.TypeFeedbackDeleted, e.Type)
			return nil
		})

	out, err := f.feedback.Submit(f.ctx, f.db, "s1", &dto.SubmitFeedbackRequest{Rating: 1}, "")
	require.NoError(t, err)
	f.fanOut.Wait()

	require.NoError(t, f.feedback.Delete(f.ctx, f.db, sellerActor(seller), out.FeedbackID))
	f.fanOut.Wait()
}
