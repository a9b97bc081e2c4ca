package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"reviewflow/internal/cache"
	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"gorm.io/gorm"
)

const tenantCachePrefix = "tenant:slug:"

// Tenant is a resolved /review/:slug owner, client or seller.
type Tenant struct {
	Kind              models.TenantKind `json:"kind"`
	Key               string            `json:"key"` // client slug or seller id
	Slug              string            `json:"slug"`
	SellerID          string            `json:"sellerId"`
	Name              string            `json:"name"`
	CompanyName       string            `json:"companyName"`
	ReviewURL         string            `json:"reviewUrl"`
	SuggestedReviews  []string          `json:"suggestedReviews"`
	QRColor           string            `json:"qrColor"`
	QRLogo            string            `json:"qrLogo"`
	StoreThreshold    *int              `json:"storeThreshold"`
	RedirectThreshold *int              `json:"redirectThreshold"`
}

func tenantFromClient(c *models.Client) *Tenant {
	return &Tenant{
		Kind:              models.TenantKindClient,
		Key:               c.TenantKey(),
		Slug:              c.Slug,
		SellerID:          c.SellerID,
		Name:              c.Name,
		CompanyName:       c.CompanyName,
		ReviewURL:         c.ReviewURL,
		SuggestedReviews:  []string(c.SuggestedReviews),
		QRColor:           c.QRColor,
		QRLogo:            c.QRLogo,
		StoreThreshold:    c.StoreThreshold,
		RedirectThreshold: c.RedirectThreshold,
	}
}

func tenantFromSeller(s *models.Seller) *Tenant {
	return &Tenant{
		Kind:              models.TenantKindSeller,
		Key:               s.TenantKey(),
		Slug:              s.Slug,
		SellerID:          s.ID,
		Name:              s.Name,
		CompanyName:       s.CompanyName,
		ReviewURL:         s.URL,
		QRColor:           s.QRColor,
		QRLogo:            s.QRLogo,
		StoreThreshold:    s.StoreThreshold,
		RedirectThreshold: s.RedirectThreshold,
	}
}

// TenantResolver maps public slugs to tenants and builds the links printed in QR codes.
type TenantResolver interface {
	Resolve(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error)
	Invalidate(ctx context.Context, slugs ...string)
	Policy(t *Tenant) Policy
	// Defaults is the platform policy overrides are applied to.
	Defaults() Policy
	PublicProfile(t *Tenant) *dto.PublicProfileResponse
	ReviewLink(slug string) string
	QRDescriptor(slug, color, logo string) *dto.QRDescriptor
	SmartURL(target string) (string, error)
}

type tenantResolver struct {
	clientRepo repositories.ClientRepository
	sellerRepo repositories.SellerRepository
	cache      cache.Cache
	cacheTTL   time.Duration
	defaults   Policy
	publicBase string
}

func NewTenantResolver(
	clientRepo repositories.ClientRepository,
	sellerRepo repositories.SellerRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	defaults Policy,
	publicBase string,
) TenantResolver {
	return &tenantResolver{
		clientRepo: clientRepo,
		sellerRepo: sellerRepo,
		cache:      c,
		cacheTTL:   cacheTTL,
		defaults:   defaults,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Resolve looks up clients first, then sellers. The match is exact:
// "acme-corp" and "Acme-Corp" are different slugs.
func (r *tenantResolver) Resolve(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error) {
	if slug == "" {
		return nil, apperrors.ErrReviewPageNotFound
	}
	if t, ok := r.fromCache(ctx, slug); ok {
		return t, nil
	}

	var tenant *Tenant
	client, err := r.clientRepo.FindClientBySlug(db, slug)
	switch {
	case err == nil:
		tenant = tenantFromClient(client)
	case errors.Is(err, repositories.ErrClientNotFound):
		seller, err := r.sellerRepo.FindSellerBySlug(db, slug)
		if errors.Is(err, repositories.ErrSellerNotFound) {
			return nil, apperrors.ErrReviewPageNotFound
		}
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		tenant = tenantFromSeller(seller)
	default:
		return nil, apperrors.InternalError(err)
	}

	r.toCache(ctx, tenant)
	return tenant, nil
}

func (r *tenantResolver) Invalidate(ctx context.Context, slugs ...string) {
	if r.cache == nil || len(slugs) == 0 {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, tenantCachePrefix+s)
		}
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		logger.CtxWithError(ctx, "Failed to invalidate tenant cache", err)
	}
}

func (r *tenantResolver) fromCache(ctx context.Context, slug string) (*Tenant, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, tenantCachePrefix+slug)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.CtxWithError(ctx, "Tenant cache read failed", err)
		}
		return nil, false
	}
	var t Tenant
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (r *tenantResolver) toCache(ctx context.Context, t *Tenant) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, tenantCachePrefix+t.Slug, string(raw), r.cacheTTL); err != nil {
		logger.CtxWithError(ctx, "Tenant cache write failed", err)
	}
}

func (r *tenantResolver) Policy(t *Tenant) Policy {
	return r.defaults.WithOverrides(t.StoreThreshold, t.RedirectThreshold)
}

func (r *tenantResolver) Defaults() Policy {
	return r.defaults
}

func (r *tenantResolver) PublicProfile(t *Tenant) *dto.PublicProfileResponse {
	suggested := t.SuggestedReviews
	if suggested == nil {
		suggested = []string{}
	}
	return &dto.PublicProfileResponse{
		Slug:             t.Slug,
		Kind:             t.Kind,
		Name:             t.Name,
		CompanyName:      t.CompanyName,
		SuggestedReviews: suggested,
		QRColor:          qrColorOrDefault(t.QRColor),
		QRLogo:           t.QRLogo,
		HasReviewURL:     t.ReviewURL != "",
		Policy:           r.Policy(t).Response(),
	}
}

func (r *tenantResolver) ReviewLink(slug string) string {
	if slug == "" {
		return ""
	}
	return r.publicBase + "/review/" + url.PathEscape(slug)
}

// QRDescriptor never rewrites the stored colour; an unset one renders black.
func (r *tenantResolver) QRDescriptor(slug, color, logo string) *dto.QRDescriptor {
	return &dto.QRDescriptor{
		Slug:    slug,
		URL:     r.ReviewLink(slug),
		FgColor: qrColorOrDefault(color),
		Logo:    logo,
	}
}

// SmartURL builds the legacy form link that carries its redirect target in the query.
func (r *tenantResolver) SmartURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if !isHTTPURL(target) {
		return "", apperrors.ValidationError(map[string]string{"target": "must be a valid http(s) URL"})
	}
	return r.publicBase + "/feedback?target=" + url.QueryEscape(target), nil
}

func qrColorOrDefault(color string) string {
	if color == "" {
		return models.DefaultQRColor
	}
	return color
}
