package services

import (
	"testing"

	"reviewflow/internal/auth"
	"reviewflow/internal/models"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAdmin(t *testing.T, f *fixture, email, password string) *models.Admin {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	admin := &models.Admin{Email: email, PasswordHash: hash}
	require.NoError(t, f.db.Create(admin).Error)
	return admin
}

func TestAuthService_LoginAcrossRoles(t *testing.T) {
	f := newFixture(t)
	seedAdmin(t, f, "root@example.com", "adminpass1")
	seller, err := f.sellers.CreateSeller(f.ctx, f.db, &dto.CreateSellerRequest{
		Name: "S", CompanyName: "Shop", Email: "shop@example.com", Password: "sellerpass1",
	})
	require.NoError(t, err)
	client, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{
		Name: "C", CompanyName: "Cafe", Email: "cafe@example.com", Password: "clientpass1",
	})
	require.NoError(t, err)

	tests := []struct {
		email, password string
		role            models.ActorRole
		tenant          string
	}{
		{"root@example.com", "adminpass1", models.ActorRoleAdmin, ""},
		{"SHOP@example.com", "sellerpass1", models.ActorRoleSeller, seller.ID},
		{"cafe@example.com", "clientpass1", models.ActorRoleClient, client.Slug},
	}
	for _, tt := range tests {
		session, err := f.auth.Login(f.ctx, f.db, &dto.LoginRequest{Email: tt.email, Password: tt.password})
		require.NoError(t, err, tt.email)
		assert.Equal(t, tt.role, session.Actor.Role)
		assert.Equal(t, tt.tenant, session.Actor.Tenant)

		actor, err := f.auth.Authenticate(f.ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, tt.role, actor.Role)
	}
}

func TestAuthService_CredentialMismatchIsGeneric(t *testing.T) {
	f := newFixture(t)
	seedAdmin(t, f, "root@example.com", "adminpass1")

	_, errWrong := f.auth.Login(f.ctx, f.db, &dto.LoginRequest{Email: "root@example.com", Password: "nope-nope"})
	_, errUnknown := f.auth.Login(f.ctx, f.db, &dto.LoginRequest{Email: "ghost@example.com", Password: "nope-nope"})

	assert.ErrorIs(t, errWrong, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	seedAdmin(t, f, "root@example.com", "adminpass1")

	session, err := f.auth.Login(f.ctx, f.db, &dto.LoginRequest{Email: "root@example.com", Password: "adminpass1"})
	require.NoError(t, err)
	actor, err := f.auth.Authenticate(f.ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(f.ctx, actor))

	_, err = f.auth.Authenticate(f.ctx, session.Token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestAuthService_Impersonation(t *testing.T) {
	f := newFixture(t)
	admin := seedAdmin(t, f, "root@example.com", "adminpass1")
	seller, err := f.sellers.CreateSeller(f.ctx, f.db, &dto.CreateSellerRequest{
		Name: "S", CompanyName: "Shop", Email: "shop@example.com", Password: "sellerpass1",
	})
	require.NoError(t, err)
	client, err := f.clients.CreateClient(f.ctx, f.db, seller.ID, &dto.CreateClientRequest{Name: "C", CompanyName: "Cafe"})
	require.NoError(t, err)

	adminActor := auth.Actor{ID: admin.ID, Role: models.ActorRoleAdmin}
	asSeller, err := f.auth.ImpersonateSeller(f.ctx, f.db, adminActor, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, asSeller.Actor.ImpersonatorID)

	sellerSession, err := f.auth.Authenticate(f.ctx, asSeller.Token)
	require.NoError(t, err)
	assert.True(t, sellerSession.Impersonated())

	// admin -> seller -> client keeps the original admin
	asClient, err := f.auth.ImpersonateClient(f.ctx, f.db, sellerSession, client.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, asClient.Actor.ImpersonatorID)
	assert.Equal(t, client.Slug, asClient.Actor.Tenant)

	// sellers cannot impersonate sellers
	_, err = f.auth.ImpersonateSeller(f.ctx, f.db, sellerSession, seller.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	err = f.auth.ChangePassword(f.ctx, f.db, sellerSession, &dto.ChangePasswordRequest{CurrentPassword: "sellerpass1", NewPassword: "newpass123"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	admin := seedAdmin(t, f, "root@example.com", "adminpass1")
	actor := auth.Actor{ID: admin.ID, Role: models.ActorRoleAdmin}

	err := f.auth.ChangePassword(f.ctx, f.db, actor, &dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, f.auth.ChangePassword(f.ctx, f.db, actor, &dto.ChangePasswordRequest{CurrentPassword: "adminpass1", NewPassword: "newpass123"}))

	_, err = f.auth.Login(f.ctx, f.db, &dto.LoginRequest{Email: "root@example.com", Password: "newpass123"})
	assert.NoError(t, err)

	me, err := f.auth.Me(f.db, actor)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", me.Email)
}
