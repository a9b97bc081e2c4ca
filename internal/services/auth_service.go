package services

import (
	"context"
	"errors"
	"sync"

	"reviewflow/internal/auth"
	"reviewflow/internal/cache"
	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/gorm"
)

// dummyHash keeps the unknown-email path as slow as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("unknown-account-placeholder")
	return hash
})

type AuthService interface {
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context, actor auth.Actor) error
	// Authenticate parses a bearer token and rejects revoked sessions.
	Authenticate(ctx context.Context, token string) (auth.Actor, error)
	Me(db *gorm.DB, actor auth.Actor) (*dto.ActorResponse, error)
	ChangePassword(ctx context.Context, db *gorm.DB, actor auth.Actor, req *dto.ChangePasswordRequest) error

	// Login-as
	ImpersonateSeller(ctx context.Context, db *gorm.DB, admin auth.Actor, sellerID string) (*dto.SessionResponse, error)
	ImpersonateClient(ctx context.Context, db *gorm.DB, seller auth.Actor, clientID string) (*dto.SessionResponse, error)
}

type AuthServiceImpl struct {
	lookupRepo  repositories.LookupRepository
	adminRepo   repositories.AdminRepository
	sellerRepo  repositories.SellerRepository
	clientRepo  repositories.ClientRepository
	tokens      *auth.TokenManager
	revocations *cache.RevocationList
}

func NewAuthService(
	lookupRepo repositories.LookupRepository,
	adminRepo repositories.AdminRepository,
	sellerRepo repositories.SellerRepository,
	clientRepo repositories.ClientRepository,
	tokens *auth.TokenManager,
	revocations *cache.RevocationList,
) AuthService {
	return &AuthServiceImpl{
		lookupRepo:  lookupRepo,
		adminRepo:   adminRepo,
		sellerRepo:  sellerRepo,
		clientRepo:  clientRepo,
		tokens:      tokens,
		revocations: revocations,
	}
}

// Login checks admins, then sellers, then clients. Every mismatch is the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.SessionResponse, error) {
	found, err := s.lookupRepo.FindActorByEmail(db.WithContext(ctx), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			auth.CheckPasswordHash(req.Password, dummyHash())
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	id, hash, tenant, profile := describe(found)
	if !auth.CheckPasswordHash(req.Password, hash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.issue(id, found.Role, tenant, "", profile)
	if err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "User logged in", "actor_id", id, "role", found.Role)
	return session, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, actor auth.Actor) error {
	if actor.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, actor.TokenID, actor.ExpiresAt); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (auth.Actor, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return auth.Actor{}, apperrors.ErrInvalidToken
	}
	actor := auth.ActorFromClaims(claims)
	if !actor.Role.Valid() || actor.ID == "" {
		return auth.Actor{}, apperrors.ErrInvalidToken
	}

	revoked, err := s.revocations.IsRevoked(ctx, actor.TokenID)
	if err != nil {
		return auth.Actor{}, apperrors.InternalError(err)
	}
	if revoked {
		return auth.Actor{}, apperrors.ErrInvalidToken
	}
	return actor, nil
}

func (s *AuthServiceImpl) Me(db *gorm.DB, actor auth.Actor) (*dto.ActorResponse, error) {
	found, err := s.load(db, actor)
	if err != nil {
		return nil, err
	}
	_, _, tenant, profile := describe(found)
	profile.Tenant = tenant
	profile.ImpersonatorID = actor.ImpersonatorID
	return &profile, nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, db *gorm.DB, actor auth.Actor, req *dto.ChangePasswordRequest) error {
	if actor.Impersonated() {
		return apperrors.NewForbiddenError("Password cannot be changed while acting as another account")
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	db = db.WithContext(ctx)
	found, err := s.load(db, actor)
	if err != nil {
		return err
	}
	_, hash, _, _ := describe(found)
	if !auth.CheckPasswordHash(req.CurrentPassword, hash) {
		return apperrors.ErrInvalidCredentials
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	switch found.Role {
	case models.ActorRoleAdmin:
		found.Admin.PasswordHash = newHash
		err = s.adminRepo.UpdateAdmin(db, found.Admin)
	case models.ActorRoleSeller:
		found.Seller.PasswordHash = newHash
		err = s.sellerRepo.UpdateSeller(db, found.Seller)
	case models.ActorRoleClient:
		found.Client.PasswordHash = newHash
		err = s.clientRepo.UpdateClient(db, found.Client)
	}
	if err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) ImpersonateSeller(ctx context.Context, db *gorm.DB, admin auth.Actor, sellerID string) (*dto.SessionResponse, error) {
	if !auth.CanPerformAction(admin, auth.PermImpersonateSeller) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	seller, err := s.sellerRepo.FindSellerByID(db.WithContext(ctx), sellerID)
	if err != nil {
		return nil, sellerLookupError(err)
	}
	found := &repositories.Actor{Role: models.ActorRoleSeller, Seller: seller}
	id, _, tenant, profile := describe(found)

	logger.CtxInfo(ctx, "Impersonation started", "impersonator_id", admin.ID, "target_id", id, "role", found.Role)
	return s.issue(id, found.Role, tenant, admin.ID, profile)
}

func (s *AuthServiceImpl) ImpersonateClient(ctx context.Context, db *gorm.DB, seller auth.Actor, clientID string) (*dto.SessionResponse, error) {
	if !auth.CanPerformAction(seller, auth.PermImpersonateClient) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	client, err := s.clientRepo.FindClientByID(db.WithContext(ctx), clientID)
	if err != nil || client.SellerID != seller.ID {
		if err != nil && !errors.Is(err, repositories.ErrClientNotFound) {
			return nil, apperrors.InternalError(err)
		}
		return nil, apperrors.ErrClientNotFound
	}
	found := &repositories.Actor{Role: models.ActorRoleClient, Client: client}
	id, _, tenant, profile := describe(found)

	// цепочка: при входе админа под продавцом сохраняем исходного админа
	impersonator := seller.ID
	if seller.Impersonated() {
		impersonator = seller.ImpersonatorID
	}
	logger.CtxInfo(ctx, "Impersonation started", "impersonator_id", impersonator, "target_id", id, "role", found.Role)
	return s.issue(id, found.Role, tenant, impersonator, profile)
}

func (s *AuthServiceImpl) issue(id string, role models.ActorRole, tenant, impersonator string, profile dto.ActorResponse) (*dto.SessionResponse, error) {
	token, claims, err := s.tokens.GenerateToken(id, role, tenant, impersonator)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	profile.Tenant = tenant
	profile.ImpersonatorID = impersonator
	return &dto.SessionResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Actor:     profile,
	}, nil
}

func (s *AuthServiceImpl) load(db *gorm.DB, actor auth.Actor) (*repositories.Actor, error) {
	switch actor.Role {
	case models.ActorRoleAdmin:
		admin, err := s.adminRepo.FindAdminByID(db, actor.ID)
		if err != nil {
			return nil, s.missingActor(err)
		}
		return &repositories.Actor{Role: actor.Role, Admin: admin}, nil
	case models.ActorRoleSeller:
		seller, err := s.sellerRepo.FindSellerByID(db, actor.ID)
		if err != nil {
			return nil, s.missingActor(err)
		}
		return &repositories.Actor{Role: actor.Role, Seller: seller}, nil
	case models.ActorRoleClient:
		client, err := s.clientRepo.FindClientByID(db, actor.ID)
		if err != nil {
			return nil, s.missingActor(err)
		}
		return &repositories.Actor{Role: actor.Role, Client: client}, nil
	default:
		return nil, apperrors.ErrInvalidToken
	}
}

// missingActor: the account was deleted after the token was issued.
func (s *AuthServiceImpl) missingActor(err error) error {
	if errors.Is(err, repositories.ErrAdminNotFound) ||
		errors.Is(err, repositories.ErrSellerNotFound) ||
		errors.Is(err, repositories.ErrClientNotFound) {
		return apperrors.ErrInvalidToken
	}
	return apperrors.InternalError(err)
}

// describe returns id, password hash, tenant key and the public profile of an actor.
func describe(a *repositories.Actor) (string, string, string, dto.ActorResponse) {
	switch a.Role {
	case models.ActorRoleAdmin:
		return a.Admin.ID, a.Admin.PasswordHash, "", dto.ActorResponse{
			ID: a.Admin.ID, Role: a.Role, Email: a.Admin.Email, Name: "Administrator",
		}
	case models.ActorRoleSeller:
		return a.Seller.ID, a.Seller.PasswordHash, a.Seller.TenantKey(), dto.ActorResponse{
			ID: a.Seller.ID, Role: a.Role, Email: models.EmailValue(a.Seller.Email), Name: a.Seller.Name,
		}
	default:
		return a.Client.ID, a.Client.PasswordHash, a.Client.TenantKey(), dto.ActorResponse{
			ID: a.Client.ID, Role: a.Role, Email: models.EmailValue(a.Client.Email), Name: a.Client.Name,
		}
	}
}
