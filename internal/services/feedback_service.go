package services

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"reviewflow/internal/auth"
	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/internal/monitoring"
	"reviewflow/internal/repositories"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/gorm"
)

const defaultSearchLimit = 20

type FeedbackService interface {
	// Public form
	Submit(ctx context.Context, db *gorm.DB, slug string, req *dto.SubmitFeedbackRequest, queryTarget string) (*dto.FeedbackOutcome, error)
	SubmitLegacy(ctx context.Context, db *gorm.DB, req *dto.SubmitFeedbackRequest, target string) (*dto.FeedbackOutcome, error)

	// Dashboards: the inbox always comes from the actor
	List(db *gorm.DB, actor auth.Actor, page, pageSize int) (*dto.FeedbackListResponse, error)
	Stats(db *gorm.DB, actor auth.Actor) (*repositories.RatingStats, error)
	Search(ctx context.Context, db *gorm.DB, actor auth.Actor, query *dto.FeedbackSearchQuery) ([]dto.FeedbackResponse, error)
	Delete(ctx context.Context, db *gorm.DB, actor auth.Actor, feedbackID string) error
	// InboxTopic names the live channel the actor may subscribe to.
	InboxTopic(db *gorm.DB, actor auth.Actor) (string, error)
}

type feedbackService struct {
	feedbackRepo repositories.FeedbackRepository
	clientRepo   repositories.ClientRepository
	resolver     TenantResolver
	attachments  AttachmentService
	identity     IdentityVerifier
	indexer      search.Indexer
	observer     FeedbackObserver
	defaults     Policy
}

func NewFeedbackService(
	feedbackRepo repositories.FeedbackRepository,
	clientRepo repositories.ClientRepository,
	resolver TenantResolver,
	attachments AttachmentService,
	identity IdentityVerifier,
	indexer search.Indexer,
	observer FeedbackObserver,
	defaults Policy,
) FeedbackService {
	if indexer == nil {
		indexer = search.NoopIndexer{}
	}
	return &feedbackService{
		feedbackRepo: feedbackRepo,
		clientRepo:   clientRepo,
		resolver:     resolver,
		attachments:  attachments,
		identity:     identity,
		indexer:      indexer,
		observer:     observer,
		defaults:     defaults,
	}
}

// ---------------- Public form ----------------

func (s *feedbackService) Submit(ctx context.Context, db *gorm.DB, slug string, req *dto.SubmitFeedbackRequest, queryTarget string) (*dto.FeedbackOutcome, error) {
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}

	tenant, err := s.resolver.Resolve(ctx, db, slug)
	if err != nil {
		return nil, err
	}

	record := &models.Feedback{
		TenantKind: tenant.Kind,
		TenantKey:  tenant.Key,
		SellerID:   tenant.SellerID,
	}
	if tenant.Kind == models.TenantKindClient {
		record.ClientSlug = tenant.Slug
	}

	target := ResolveTarget(tenant.ReviewURL, queryTarget)
	return s.route(ctx, db, req, record, s.resolver.Policy(tenant), target)
}

// SubmitLegacy serves the smart-URL form: no tenant, target only from the query.
func (s *feedbackService) SubmitLegacy(ctx context.Context, db *gorm.DB, req *dto.SubmitFeedbackRequest, target string) (*dto.FeedbackOutcome, error) {
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}

	record := &models.Feedback{
		TenantKind: models.TenantKindPlatform,
		TenantKey:  models.PlatformTenantKey,
	}
	return s.route(ctx, db, req, record, s.defaults, ResolveTarget("", target))
}

// route decides, writes if needed and builds the outcome.
// A failed write only fails the request when there is no redirect to fall back on.
func (s *feedbackService) route(ctx context.Context, db *gorm.DB, req *dto.SubmitFeedbackRequest, record *models.Feedback, policy Policy, target string) (*dto.FeedbackOutcome, error) {
	decision := Decide(req.Rating, policy, target)

	identity, err := s.verifyAuthor(ctx, req.IdentityToken, decision)
	if err != nil {
		return nil, err
	}

	var (
		storeErr error
		saved    *dto.FeedbackResponse
	)
	if decision.Store {
		record.Rating = req.Rating
		record.Comment = req.Comment
		record.TargetURL = target
		if identity != nil {
			record.AuthorUID = identity.UID
			record.AuthorEmail = identity.Email
			record.AuthorName = identity.Name
			record.AuthorPhotoURL = identity.PhotoURL
		}
		saved, storeErr = s.write(ctx, db, record, req.Images)
	}

	monitoring.FeedbackRatings.WithLabelValues(strconv.Itoa(req.Rating)).Inc()
	monitoring.FeedbackSubmissions.WithLabelValues(outcomeLabel(decision, storeErr)).Inc()
	logger.RoutingLog(record.TenantKey, req.Rating, decision.Store && storeErr == nil, decision.Redirect, storeErr)

	if storeErr != nil && !decision.Redirect {
		if appErr, ok := apperrors.AsAppError(storeErr); ok && appErr.HTTPCode < 500 {
			return nil, appErr
		}
		return nil, apperrors.ErrStoreWrite(storeErr)
	}

	if saved != nil {
		_ = s.observer.FeedbackCreated(ctx, *saved)
	}

	var feedbackID string
	if saved != nil {
		feedbackID = saved.ID
	}
	return NewOutcome(decision, policy, req.Comment, feedbackID, storeErr), nil
}

// verifyAuthor only matters for stored feedback. A bad token never blocks a redirect:
// the record is then kept without author fields.
func (s *feedbackService) verifyAuthor(ctx context.Context, token string, decision Decision) (*dto.Identity, error) {
	if token == "" || s.identity == nil || !decision.Store {
		return nil, nil
	}
	identity, err := s.identity.Verify(ctx, token)
	if err != nil {
		if !decision.Redirect {
			return nil, err
		}
		logger.CtxWithError(ctx, "Identity token rejected, storing anonymously", err)
		return nil, nil
	}
	return identity, nil
}

func (s *feedbackService) write(ctx context.Context, db *gorm.DB, record *models.Feedback, images []string) (*dto.FeedbackResponse, error) {
	urls, err := s.attachments.SaveImages(ctx, record.TenantKey, images)
	if err != nil {
		return nil, err
	}
	record.Images = urls

	if err := s.feedbackRepo.Create(db.WithContext(ctx), record); err != nil {
		s.attachments.Remove(ctx, urls...)
		return nil, err
	}
	resp := dto.NewFeedbackResponse(record)
	return &resp, nil
}

// ---------------- Dashboards ----------------

func (s *feedbackService) List(db *gorm.DB, actor auth.Actor, page, pageSize int) (*dto.FeedbackListResponse, error) {
	filter, err := s.inboxFor(db, actor)
	if err != nil {
		return nil, err
	}

	items, total, err := s.feedbackRepo.List(db, filter, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &dto.FeedbackListResponse{
		Feedback:   dto.NewFeedbackResponses(items),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *feedbackService) Stats(db *gorm.DB, actor auth.Actor) (*repositories.RatingStats, error) {
	filter, err := s.inboxFor(db, actor)
	if err != nil {
		return nil, err
	}
	stats, err := s.feedbackRepo.Stats(db, filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return stats, nil
}

// Search uses the index when one is configured and falls back to SQL when it fails.
func (s *feedbackService) Search(ctx context.Context, db *gorm.DB, actor auth.Actor, query *dto.FeedbackSearchQuery) ([]dto.FeedbackResponse, error) {
	filter, err := s.inboxFor(db, actor)
	if err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.indexer.Enabled() {
		ids, err := s.indexer.Search(ctx, search.Scope{Kind: filter.Kind, Key: filter.Key}, query.Query, limit)
		if err == nil {
			items, err := s.feedbackRepo.FindByIDs(db, filter, ids)
			if err != nil {
				return nil, apperrors.InternalError(err)
			}
			return dto.NewFeedbackResponses(orderByIDs(items, ids)), nil
		}
		logger.CtxWithError(ctx, "Search index query failed, using SQL", err)
	}

	items, err := s.feedbackRepo.Search(db, filter, query.Query, limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewFeedbackResponses(items), nil
}

// Delete answers 404 for records the actor does not own, so ids do not leak.
func (s *feedbackService) Delete(ctx context.Context, db *gorm.DB, actor auth.Actor, feedbackID string) error {
	feedback, err := s.feedbackRepo.FindByID(db, feedbackID)
	if err != nil {
		if errors.Is(err, repositories.ErrFeedbackNotFound) {
			return apperrors.ErrFeedbackNotFound
		}
		return apperrors.InternalError(err)
	}

	owns, err := s.owns(db, actor, feedback)
	if err != nil {
		return err
	}
	if !owns {
		return apperrors.ErrFeedbackNotFound
	}

	if err := s.feedbackRepo.Delete(db, feedback.ID); err != nil {
		if errors.Is(err, repositories.ErrFeedbackNotFound) {
			return apperrors.ErrFeedbackNotFound
		}
		return apperrors.InternalError(err)
	}

	s.attachments.Remove(ctx, feedback.Images...)
	_ = s.observer.FeedbackDeleted(ctx, dto.NewFeedbackResponse(feedback))
	return nil
}

func (s *feedbackService) owns(db *gorm.DB, actor auth.Actor, f *models.Feedback) (bool, error) {
	switch actor.Role {
	case models.ActorRoleAdmin:
		return true, nil
	case models.ActorRoleSeller:
		return f.BelongsToSeller(actor.ID), nil
	case models.ActorRoleClient:
		client, err := s.currentClient(db, actor)
		if err != nil {
			return false, err
		}
		return f.TenantKind == models.TenantKindClient && f.ClientSlug == client.Slug, nil
	default:
		return false, nil
	}
}

func (s *feedbackService) InboxTopic(db *gorm.DB, actor auth.Actor) (string, error) {
	filter, err := s.inboxFor(db, actor)
	if err != nil {
		return "", err
	}
	return models.InboxTopic(filter.Kind, filter.Key), nil
}

// inboxFor: admin sees the platform inbox, a seller its direct feedback, a client its slug.
func (s *feedbackService) inboxFor(db *gorm.DB, actor auth.Actor) (repositories.InboxFilter, error) {
	switch actor.Role {
	case models.ActorRoleAdmin:
		return repositories.InboxFilter{Kind: models.TenantKindPlatform, Key: models.PlatformTenantKey}, nil
	case models.ActorRoleSeller:
		return repositories.InboxFilter{Kind: models.TenantKindSeller, Key: actor.ID}, nil
	case models.ActorRoleClient:
		// slug берем из базы: он мог поменяться после входа
		client, err := s.currentClient(db, actor)
		if err != nil {
			return repositories.InboxFilter{}, err
		}
		return repositories.InboxFilter{Kind: models.TenantKindClient, Key: client.Slug}, nil
	default:
		return repositories.InboxFilter{}, apperrors.ErrInsufficientPermissions
	}
}

func (s *feedbackService) currentClient(db *gorm.DB, actor auth.Actor) (*models.Client, error) {
	client, err := s.clientRepo.FindClientByID(db, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrClientNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return client, nil
}

func checkRating(rating int) error {
	if rating == 0 {
		return apperrors.ErrRatingRequired
	}
	if rating < 1 || rating > 5 {
		return apperrors.ValidationError(map[string]string{"rating": "must be between 1 and 5"})
	}
	return nil
}

func outcomeLabel(d Decision, storeErr error) string {
	switch {
	case storeErr != nil && !d.Redirect:
		return "failed"
	case d.Store && storeErr == nil && d.Redirect:
		return "stored_redirected"
	case d.Redirect:
		return "redirected"
	case d.Store:
		return "stored"
	default:
		return "dropped"
	}
}

func orderByIDs(items []models.Feedback, ids []string) []models.Feedback {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		return pos[items[i].ID] < pos[items[j].ID]
	})
	return items
}
