package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"reviewflow/internal/email"
	"reviewflow/internal/mocks"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"
	"reviewflow/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_MailsInboxOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := testutil.NewTestDB(t)
	seller := testutil.SeedSeller(t, db, "s1")
	sellerEmail := "owner@example.com"
	seller.Email = &sellerEmail
	require.NoError(t, db.Save(seller).Error)
	testutil.SeedClient(t, db, seller.ID, "c1")

	provider := mocks.NewMockProvider(ctrl)
	svc := NewNotificationService(db, provider, email.NewTemplateManager(),
		repositories.NewFeedbackRepository(), repositories.NewClientRepository(), repositories.NewSellerRepository(),
		"admin@example.com", "https://reviews.example.com")

	// client without e-mail: its seller is notified
	provider.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *email.Email) error {
		assert.Equal(t, []string{"owner@example.com"}, m.To)
		assert.Contains(t, m.Subject, "2-star")
		assert.Contains(t, m.HTMLBody, "too noisy")
		assert.Contains(t, m.HTMLBody, "https://reviews.example.com/dashboard")
		return nil
	})
	err := svc.FeedbackCreated(context.Background(), dto.FeedbackResponse{
		Rating: 2, Comment: "too noisy", TenantKind: models.TenantKindClient, TenantKey: "c1", SellerID: seller.ID,
	})
	require.NoError(t, err)

	provider.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *email.Email) error {
		assert.Equal(t, []string{"admin@example.com"}, m.To)
		return nil
	})
	require.NoError(t, svc.FeedbackCreated(context.Background(), dto.FeedbackResponse{
		Rating: 1, TenantKind: models.TenantKindPlatform, TenantKey: models.PlatformTenantKey,
	}))
}

func TestNotificationService_SendDigest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := testutil.NewTestDB(t)
	seller := testutil.SeedSeller(t, db, "s1")
	sellerEmail := "owner@example.com"
	seller.Email = &sellerEmail
	require.NoError(t, db.Save(seller).Error)

	repo := repositories.NewFeedbackRepository()
	for _, rating := range []int{1, 2, 5} {
		require.NoError(t, repo.Create(db, &models.Feedback{
			Rating: rating, TenantKind: models.TenantKindSeller, TenantKey: seller.ID, SellerID: seller.ID,
		}))
	}

	provider := mocks.NewMockProvider(ctrl)
	svc := NewNotificationService(db, provider, email.NewTemplateManager(),
		repo, repositories.NewClientRepository(), repositories.NewSellerRepository(), "", "https://reviews.example.com")

	provider.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *email.Email) error {
		assert.True(t, strings.HasPrefix(m.Subject, "Company s1: 2 new"))
		assert.Contains(t, m.HTMLBody, "1.5")
		return nil
	})

	sent, err := svc.SendDigest(context.Background(), time.Now().Add(-24*time.Hour), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
