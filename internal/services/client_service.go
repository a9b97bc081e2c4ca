package services

import (
	"context"
	"errors"
	"time"

	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ClientService interface {
	// Seller dashboard
	CreateClient(ctx context.Context, db *gorm.DB, sellerID string, req *dto.CreateClientRequest) (*dto.ClientResponse, error)
	ListClients(db *gorm.DB, sellerID string) ([]*dto.ClientResponse, error)
	GetClient(db *gorm.DB, sellerID, clientID string) (*dto.ClientResponse, error)
	UpdateClient(ctx context.Context, db *gorm.DB, sellerID, clientID string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error)
	DeleteClient(ctx context.Context, db *gorm.DB, sellerID, clientID string) error

	// Client dashboard
	GetProfile(db *gorm.DB, clientID string) (*dto.ClientResponse, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, clientID string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error)
	GetQR(db *gorm.DB, clientID string) (*dto.QRDescriptor, error)
}

type clientService struct {
	clientRepo   repositories.ClientRepository
	sellerRepo   repositories.SellerRepository
	feedbackRepo repositories.FeedbackRepository
	lookupRepo   repositories.LookupRepository
	resolver     TenantResolver
	attachments  AttachmentService
	indexer      search.Indexer
	observer     FeedbackObserver
	now          func() time.Time
}

func NewClientService(
	clientRepo repositories.ClientRepository,
	sellerRepo repositories.SellerRepository,
	feedbackRepo repositories.FeedbackRepository,
	lookupRepo repositories.LookupRepository,
	resolver TenantResolver,
	attachments AttachmentService,
	indexer search.Indexer,
	observer FeedbackObserver,
) ClientService {
	if indexer == nil {
		indexer = search.NoopIndexer{}
	}
	return &clientService{
		clientRepo:   clientRepo,
		sellerRepo:   sellerRepo,
		feedbackRepo: feedbackRepo,
		lookupRepo:   lookupRepo,
		resolver:     resolver,
		attachments:  attachments,
		indexer:      indexer,
		observer:     observer,
		now:          time.Now,
	}
}

func (s *clientService) CreateClient(ctx context.Context, db *gorm.DB, sellerID string, req *dto.CreateClientRequest) (*dto.ClientResponse, error) {
	email := normalizeEmail(req.Email)
	if email != nil && req.Password == "" {
		return nil, apperrors.ValidationError(map[string]string{"password": "Password is required when email is set"})
	}
	policy := s.resolver.Defaults().WithOverrides(req.StoreThreshold, req.RedirectThreshold)
	if !policy.Valid() {
		return nil, apperrors.ErrInvalidThresholds
	}

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.sellerRepo.FindSellerByID(tx, sellerID); err != nil {
		return nil, sellerLookupError(err)
	}
	if err := ensureEmailFree(tx, s.lookupRepo, email, ""); err != nil {
		return nil, err
	}
	slug, err := pickSlug(tx, s.lookupRepo, req.Slug, req.CompanyName, func() string { return fallbackClientSlug(s.now()) }, "")
	if err != nil {
		return nil, err
	}
	hash, err := hashIfSet(req.Password)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		SellerID:          sellerID,
		Slug:              slug,
		Name:              req.Name,
		CompanyName:       req.CompanyName,
		ReviewURL:         req.ReviewURL,
		Email:             email,
		PasswordHash:      hash,
		Mobile:            req.Mobile,
		Address:           req.Address,
		SuggestedReviews:  datatypes.JSONSlice[string](req.SuggestedReviews),
		QRColor:           req.QRColor,
		StoreThreshold:    req.StoreThreshold,
		RedirectThreshold: req.RedirectThreshold,
	}
	if client.SuggestedReviews == nil {
		client.SuggestedReviews = datatypes.JSONSlice[string]{}
	}

	if err := s.clientRepo.CreateClient(tx, client); err != nil {
		return nil, writeError(err)
	}

	if req.QRLogo != "" {
		logo, err := s.attachments.SaveLogo(ctx, client.ID, req.QRLogo)
		if err != nil {
			return nil, err
		}
		client.QRLogo = logo
		if err := s.clientRepo.UpdateClient(tx, client); err != nil {
			s.attachments.Remove(ctx, logo)
			return nil, writeError(err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		s.attachments.Remove(ctx, client.QRLogo)
		return nil, apperrors.InternalError(err)
	}

	// на случай если раньше был запрос на этот slug
	s.resolver.Invalidate(ctx, client.Slug)
	return s.response(client), nil
}

func (s *clientService) ListClients(db *gorm.DB, sellerID string) ([]*dto.ClientResponse, error) {
	clients, err := s.clientRepo.FindClientsBySeller(db, sellerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	out := make([]*dto.ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, s.response(&clients[i]))
	}
	return out, nil
}

func (s *clientService) GetClient(db *gorm.DB, sellerID, clientID string) (*dto.ClientResponse, error) {
	client, err := s.ownedClient(db, sellerID, clientID)
	if err != nil {
		return nil, err
	}
	return s.response(client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, db *gorm.DB, sellerID, clientID string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	if _, err := s.ownedClient(db, sellerID, clientID); err != nil {
		return nil, err
	}
	return s.update(ctx, db, clientID, req)
}

func (s *clientService) DeleteClient(ctx context.Context, db *gorm.DB, sellerID, clientID string) error {
	client, err := s.ownedClient(db, sellerID, clientID)
	if err != nil {
		return err
	}

	tx, err := beginTx(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	dropped, err := s.feedbackRepo.FindByClientSlug(tx, client.Slug)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.feedbackRepo.DeleteByClientSlug(tx, client.Slug); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.clientRepo.DeleteClient(tx, client.ID); err != nil {
		if errors.Is(err, repositories.ErrClientNotFound) {
			return apperrors.ErrClientNotFound
		}
		return apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	s.resolver.Invalidate(ctx, client.Slug)
	s.attachments.Remove(ctx, client.QRLogo)
	forgetFeedback(ctx, s.attachments, s.observer, dropped)
	return nil
}

func (s *clientService) GetProfile(db *gorm.DB, clientID string) (*dto.ClientResponse, error) {
	client, err := s.findClient(db, clientID)
	if err != nil {
		return nil, err
	}
	return s.response(client), nil
}

func (s *clientService) UpdateProfile(ctx context.Context, db *gorm.DB, clientID string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	return s.update(ctx, db, clientID, req)
}

func (s *clientService) GetQR(db *gorm.DB, clientID string) (*dto.QRDescriptor, error) {
	client, err := s.findClient(db, clientID)
	if err != nil {
		return nil, err
	}
	return s.resolver.QRDescriptor(client.Slug, client.QRColor, client.QRLogo), nil
}

// update applies non-nil fields. Last write wins.
func (s *clientService) update(ctx context.Context, db *gorm.DB, clientID string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	client, err := s.findClient(tx, clientID)
	if err != nil {
		return nil, err
	}
	oldSlug, oldLogo := client.Slug, client.QRLogo

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.ReviewURL != nil {
		client.ReviewURL = *req.ReviewURL
	}
	if req.Mobile != nil {
		client.Mobile = *req.Mobile
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.SuggestedReviews != nil {
		client.SuggestedReviews = datatypes.JSONSlice[string](*req.SuggestedReviews)
	}
	if req.QRColor != nil {
		client.QRColor = *req.QRColor
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := ensureEmailFree(tx, s.lookupRepo, email, client.ID); err != nil {
			return nil, err
		}
		if email != nil && client.PasswordHash == "" && (req.Password == nil || *req.Password == "") {
			return nil, apperrors.ValidationError(map[string]string{"password": "Password is required when email is set"})
		}
		client.Email = email
	}
	if req.Password != nil {
		hash, err := hashIfSet(*req.Password)
		if err != nil {
			return nil, err
		}
		client.PasswordHash = hash
	}

	if req.Slug != nil && *req.Slug != client.Slug {
		slug, err := pickSlug(tx, s.lookupRepo, *req.Slug, "", nil, client.ID)
		if err != nil {
			return nil, err
		}
		if err := s.feedbackRepo.RenameClientSlug(tx, client.Slug, slug); err != nil {
			return nil, apperrors.InternalError(err)
		}
		client.Slug = slug
	}

	if req.ResetThresholds {
		client.StoreThreshold, client.RedirectThreshold = nil, nil
	}
	if req.StoreThreshold != nil {
		client.StoreThreshold = req.StoreThreshold
	}
	if req.RedirectThreshold != nil {
		client.RedirectThreshold = req.RedirectThreshold
	}
	if !s.resolver.Defaults().WithOverrides(client.StoreThreshold, client.RedirectThreshold).Valid() {
		return nil, apperrors.ErrInvalidThresholds
	}

	if req.QRLogo != nil {
		logo, err := s.attachments.SaveLogo(ctx, client.ID, *req.QRLogo)
		if err != nil {
			return nil, err
		}
		client.QRLogo = logo
	}

	if err := s.clientRepo.UpdateClient(tx, client); err != nil {
		s.dropNewLogo(ctx, oldLogo, client.QRLogo)
		return nil, writeError(err)
	}
	if err := tx.Commit().Error; err != nil {
		s.dropNewLogo(ctx, oldLogo, client.QRLogo)
		return nil, apperrors.InternalError(err)
	}

	s.resolver.Invalidate(ctx, oldSlug, client.Slug)
	if oldLogo != client.QRLogo {
		s.attachments.Remove(ctx, oldLogo)
	}
	if oldSlug != client.Slug {
		s.reindexInbox(ctx, db, client.Slug)
	}
	return s.response(client), nil
}

// reindexInbox rewrites index documents after the inbox moved to a new slug.
// Failures are logged: SQL already holds the truth.
func (s *clientService) reindexInbox(ctx context.Context, db *gorm.DB, slug string) {
	if !s.indexer.Enabled() {
		return
	}
	items, err := s.feedbackRepo.FindByClientSlug(db.WithContext(ctx), slug)
	if err != nil {
		logger.CtxWithError(ctx, "Load moved feedback for reindex failed", err)
		return
	}
	for i := range items {
		if err := s.indexer.Index(ctx, dto.NewFeedbackResponse(&items[i])); err != nil {
			logger.CtxWithError(ctx, "Reindex moved feedback failed", err, "feedback_id", items[i].ID)
		}
	}
}

func (s *clientService) dropNewLogo(ctx context.Context, oldLogo, newLogo string) {
	if newLogo != oldLogo {
		s.attachments.Remove(ctx, newLogo)
	}
}

func (s *clientService) findClient(db *gorm.DB, clientID string) (*models.Client, error) {
	client, err := s.clientRepo.FindClientByID(db, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrClientNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return client, nil
}

// ownedClient hides other sellers' clients behind 404.
func (s *clientService) ownedClient(db *gorm.DB, sellerID, clientID string) (*models.Client, error) {
	client, err := s.findClient(db, clientID)
	if err != nil {
		return nil, err
	}
	if client.SellerID != sellerID {
		return nil, apperrors.ErrClientNotFound
	}
	return client, nil
}

func (s *clientService) response(c *models.Client) *dto.ClientResponse {
	return dto.NewClientResponse(c, s.resolver.ReviewLink(c.Slug))
}

func sellerLookupError(err error) error {
	if errors.Is(err, repositories.ErrSellerNotFound) {
		return apperrors.ErrSellerNotFound
	}
	return apperrors.InternalError(err)
}
