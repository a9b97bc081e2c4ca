package services

import (
	"context"

	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/gorm"
)

type SellerService interface {
	// Admin operations
	CreateSeller(ctx context.Context, db *gorm.DB, req *dto.CreateSellerRequest) (*dto.SellerResponse, error)
	ListSellers(db *gorm.DB) ([]*dto.SellerResponse, error)
	GetSeller(db *gorm.DB, sellerID string) (*dto.SellerResponse, error)
	UpdateSeller(ctx context.Context, db *gorm.DB, sellerID string, req *dto.UpdateSellerRequest) (*dto.SellerResponse, error)
	DeleteSeller(ctx context.Context, db *gorm.DB, sellerID string) error

	// Seller dashboard
	GetProfile(ctx context.Context, db *gorm.DB, sellerID string) (*dto.SellerResponse, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, sellerID string, req *dto.UpdateSellerRequest) (*dto.SellerResponse, error)
	GetQR(ctx context.Context, db *gorm.DB, sellerID string) (*dto.QRDescriptor, error)
}

type sellerService struct {
	sellerRepo   repositories.SellerRepository
	clientRepo   repositories.ClientRepository
	feedbackRepo repositories.FeedbackRepository
	lookupRepo   repositories.LookupRepository
	resolver     TenantResolver
	attachments  AttachmentService
	observer     FeedbackObserver
}

func NewSellerService(
	sellerRepo repositories.SellerRepository,
	clientRepo repositories.ClientRepository,
	feedbackRepo repositories.FeedbackRepository,
	lookupRepo repositories.LookupRepository,
	resolver TenantResolver,
	attachments AttachmentService,
	observer FeedbackObserver,
) SellerService {
	return &sellerService{
		sellerRepo:   sellerRepo,
		clientRepo:   clientRepo,
		feedbackRepo: feedbackRepo,
		lookupRepo:   lookupRepo,
		resolver:     resolver,
		attachments:  attachments,
		observer:     observer,
	}
}

// ---------------- Admin operations ----------------

func (s *sellerService) CreateSeller(ctx context.Context, db *gorm.DB, req *dto.CreateSellerRequest) (*dto.SellerResponse, error) {
	if !s.resolver.Defaults().WithOverrides(req.StoreThreshold, req.RedirectThreshold).Valid() {
		return nil, apperrors.ErrInvalidThresholds
	}

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	email := normalizeEmail(req.Email)
	if err := ensureEmailFree(tx, s.lookupRepo, email, ""); err != nil {
		return nil, err
	}
	slug, err := pickSlug(tx, s.lookupRepo, req.Slug, req.CompanyName, func() string { return "seller" }, "")
	if err != nil {
		return nil, err
	}
	hash, err := hashIfSet(req.Password)
	if err != nil {
		return nil, err
	}

	seller := &models.Seller{
		Name:              req.Name,
		CompanyName:       req.CompanyName,
		Slug:              slug,
		Email:             email,
		PasswordHash:      hash,
		Mobile:            req.Mobile,
		Address:           req.Address,
		URL:               req.URL,
		QRColor:           req.QRColor,
		StoreThreshold:    req.StoreThreshold,
		RedirectThreshold: req.RedirectThreshold,
	}
	if err := s.sellerRepo.CreateSeller(tx, seller); err != nil {
		return nil, writeError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.resolver.Invalidate(ctx, seller.Slug)
	return s.response(seller), nil
}

func (s *sellerService) ListSellers(db *gorm.DB) ([]*dto.SellerResponse, error) {
	sellers, err := s.sellerRepo.FindAllSellers(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	out := make([]*dto.SellerResponse, 0, len(sellers))
	for i := range sellers {
		out = append(out, s.response(&sellers[i]))
	}
	return out, nil
}

func (s *sellerService) GetSeller(db *gorm.DB, sellerID string) (*dto.SellerResponse, error) {
	seller, err := s.loadWithClients(db, sellerID)
	if err != nil {
		return nil, err
	}
	return s.response(seller), nil
}

func (s *sellerService) UpdateSeller(ctx context.Context, db *gorm.DB, sellerID string, req *dto.UpdateSellerRequest) (*dto.SellerResponse, error) {
	return s.update(ctx, db, sellerID, req)
}

// DeleteSeller removes the seller with all clients and feedback. Platform feedback stays.
func (s *sellerService) DeleteSeller(ctx context.Context, db *gorm.DB, sellerID string) error {
	tx, err := beginTx(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seller, err := s.sellerRepo.FindSellerByID(tx, sellerID)
	if err != nil {
		return sellerLookupError(err)
	}
	clients, err := s.clientRepo.FindClientsBySeller(tx, sellerID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	dropped, err := s.feedbackRepo.FindBySeller(tx, sellerID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.feedbackRepo.DeleteBySeller(tx, sellerID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.clientRepo.DeleteClientsBySeller(tx, sellerID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.sellerRepo.DeleteSeller(tx, sellerID); err != nil {
		return sellerLookupError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}

	slugs := []string{seller.Slug}
	logos := []string{seller.QRLogo}
	for _, c := range clients {
		slugs = append(slugs, c.Slug)
		logos = append(logos, c.QRLogo)
	}
	s.resolver.Invalidate(ctx, slugs...)
	s.attachments.Remove(ctx, logos...)
	forgetFeedback(ctx, s.attachments, s.observer, dropped)
	return nil
}

// ---------------- Seller dashboard ----------------

// GetProfile derives and saves a slug for sellers created without one.
func (s *sellerService) GetProfile(ctx context.Context, db *gorm.DB, sellerID string) (*dto.SellerResponse, error) {
	seller, err := s.ensureSlug(ctx, db, sellerID)
	if err != nil {
		return nil, err
	}
	clients, err := s.clientRepo.FindClientsBySeller(db, sellerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	seller.Clients = clients
	return s.response(seller), nil
}

func (s *sellerService) UpdateProfile(ctx context.Context, db *gorm.DB, sellerID string, req *dto.UpdateSellerRequest) (*dto.SellerResponse, error) {
	return s.update(ctx, db, sellerID, req)
}

func (s *sellerService) GetQR(ctx context.Context, db *gorm.DB, sellerID string) (*dto.QRDescriptor, error) {
	seller, err := s.ensureSlug(ctx, db, sellerID)
	if err != nil {
		return nil, err
	}
	return s.resolver.QRDescriptor(seller.Slug, seller.QRColor, seller.QRLogo), nil
}

func (s *sellerService) ensureSlug(ctx context.Context, db *gorm.DB, sellerID string) (*models.Seller, error) {
	seller, err := s.sellerRepo.FindSellerByID(db, sellerID)
	if err != nil {
		return nil, sellerLookupError(err)
	}
	if seller.Slug != "" {
		return seller, nil
	}

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	slug, err := pickSlug(tx, s.lookupRepo, "", seller.CompanyName, func() string { return "seller" }, seller.ID)
	if err != nil {
		return nil, err
	}
	seller.Slug = slug
	if err := s.sellerRepo.UpdateSeller(tx, seller); err != nil {
		return nil, writeError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	return seller, nil
}

func (s *sellerService) update(ctx context.Context, db *gorm.DB, sellerID string, req *dto.UpdateSellerRequest) (*dto.SellerResponse, error) {
	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seller, err := s.sellerRepo.FindSellerByID(tx, sellerID)
	if err != nil {
		return nil, sellerLookupError(err)
	}
	oldSlug, oldLogo := seller.Slug, seller.QRLogo

	if req.Name != nil {
		seller.Name = *req.Name
	}
	if req.CompanyName != nil {
		seller.CompanyName = *req.CompanyName
	}
	if req.Mobile != nil {
		seller.Mobile = *req.Mobile
	}
	if req.Address != nil {
		seller.Address = *req.Address
	}
	if req.URL != nil {
		seller.URL = *req.URL
	}
	if req.QRColor != nil {
		seller.QRColor = *req.QRColor
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email == nil {
			// продавец без email не сможет войти
			return nil, apperrors.ValidationError(map[string]string{"email": "Seller email cannot be removed"})
		}
		if err := ensureEmailFree(tx, s.lookupRepo, email, seller.ID); err != nil {
			return nil, err
		}
		seller.Email = email
	}
	if req.Password != nil {
		hash, err := hashIfSet(*req.Password)
		if err != nil {
			return nil, err
		}
		seller.PasswordHash = hash
	}

	// seller feedback is keyed by id, a new slug moves nothing
	if req.Slug != nil && *req.Slug != seller.Slug {
		slug, err := pickSlug(tx, s.lookupRepo, *req.Slug, "", nil, seller.ID)
		if err != nil {
			return nil, err
		}
		seller.Slug = slug
	} else if seller.Slug == "" {
		slug, err := pickSlug(tx, s.lookupRepo, "", seller.CompanyName, func() string { return "seller" }, seller.ID)
		if err != nil {
			return nil, err
		}
		seller.Slug = slug
	}

	if req.ResetThresholds {
		seller.StoreThreshold, seller.RedirectThreshold = nil, nil
	}
	if req.StoreThreshold != nil {
		seller.StoreThreshold = req.StoreThreshold
	}
	if req.RedirectThreshold != nil {
		seller.RedirectThreshold = req.RedirectThreshold
	}
	if !s.resolver.Defaults().WithOverrides(seller.StoreThreshold, seller.RedirectThreshold).Valid() {
		return nil, apperrors.ErrInvalidThresholds
	}

	if req.QRLogo != nil {
		logo, err := s.attachments.SaveLogo(ctx, seller.ID, *req.QRLogo)
		if err != nil {
			return nil, err
		}
		seller.QRLogo = logo
	}

	if err := s.sellerRepo.UpdateSeller(tx, seller); err != nil {
		if seller.QRLogo != oldLogo {
			s.attachments.Remove(ctx, seller.QRLogo)
		}
		return nil, writeError(err)
	}
	if err := tx.Commit().Error; err != nil {
		if seller.QRLogo != oldLogo {
			s.attachments.Remove(ctx, seller.QRLogo)
		}
		return nil, apperrors.InternalError(err)
	}

	s.resolver.Invalidate(ctx, oldSlug, seller.Slug)
	if oldLogo != seller.QRLogo {
		s.attachments.Remove(ctx, oldLogo)
	}

	clients, err := s.clientRepo.FindClientsBySeller(db, seller.ID)
	if err == nil {
		seller.Clients = clients
	}
	return s.response(seller), nil
}

func (s *sellerService) loadWithClients(db *gorm.DB, sellerID string) (*models.Seller, error) {
	seller, err := s.sellerRepo.FindSellerByID(db, sellerID)
	if err != nil {
		return nil, sellerLookupError(err)
	}
	clients, err := s.clientRepo.FindClientsBySeller(db, sellerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	seller.Clients = clients
	return seller, nil
}

func (s *sellerService) response(seller *models.Seller) *dto.SellerResponse {
	return dto.NewSellerResponse(seller, s.resolver.ReviewLink(seller.Slug))
}
