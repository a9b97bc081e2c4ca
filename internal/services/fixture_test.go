package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"reviewflow/internal/auth"
	"reviewflow/internal/cache"
	"reviewflow/internal/imageprocessor"
	"reviewflow/internal/models"
	"reviewflow/internal/repositories"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
	"reviewflow/internal/storage"
	"reviewflow/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	ctx         context.Context
	cache       cache.Cache
	tokens      *auth.TokenManager
	resolver    TenantResolver
	attachments AttachmentService
	store       *storage.LocalStorage
	fanOut      *FeedbackFanOut
	repos       fixtureRepos
	feedback    FeedbackService
	clients     ClientService
	sellers     SellerService
	auth        AuthService
}

// newFixture wires the services against in-memory sqlite and local storage.
// Extra observers (mocks) are attached to the fan-out.
func newFixture(t *testing.T, observers ...FeedbackObserver) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	c := cache.NewMemoryCache()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), BaseURL: "/uploads"})
	require.NoError(t, err)

	feedbackRepo := repositories.NewFeedbackRepository()
	clientRepo := repositories.NewClientRepository()
	sellerRepo := repositories.NewSellerRepository()
	adminRepo := repositories.NewAdminRepository()
	lookupRepo := repositories.NewLookupRepository()

	resolver := NewTenantResolver(clientRepo, sellerRepo, c, time.Minute, DefaultPolicy(), "https://reviews.example.com")
	attachments := NewAttachmentService(store, imageprocessor.NewProcessor(85), UploadLimits{MaxSize: 1 << 20, MaxImages: 3})

	fanOut := NewFeedbackFanOut(time.Second)
	for i, o := range observers {
		fanOut.Add("test-"+string(rune('a'+i)), o)
	}

	tokens := auth.NewTokenManager("test-secret", time.Hour)

	f := &fixture{
		db:          db,
		ctx:         context.Background(),
		cache:       c,
		tokens:      tokens,
		resolver:    resolver,
		attachments: attachments,
		store:       store,
		fanOut:      fanOut,
		repos: fixtureRepos{
			feedback: feedbackRepo,
			client:   clientRepo,
			seller:   sellerRepo,
			lookup:   lookupRepo,
		},
		auth: NewAuthService(lookupRepo, adminRepo, sellerRepo, clientRepo, tokens, cache.NewRevocationList(c)),
	}
	f.rebuild(nil, search.NoopIndexer{})
	t.Cleanup(fanOut.Wait)
	return f
}

type fixtureRepos struct {
	feedback repositories.FeedbackRepository
	client   repositories.ClientRepository
	seller   repositories.SellerRepository
	lookup   repositories.LookupRepository
}

// rebuild swaps the identity verifier and the search index of the tenant and feedback services.
func (f *fixture) rebuild(identity IdentityVerifier, indexer search.Indexer) {
	r := f.repos
	f.feedback = NewFeedbackService(r.feedback, r.client, f.resolver, f.attachments, identity, indexer, f.fanOut, DefaultPolicy())
	f.clients = NewClientService(r.client, r.seller, r.feedback, r.lookup, f.resolver, f.attachments, indexer, f.fanOut)
	f.sellers = NewSellerService(r.seller, r.client, r.feedback, r.lookup, f.resolver, f.attachments, f.fanOut)
}

// withIndex attaches an in-memory index as a search sink.
func (f *fixture) withIndex() *memoryIndex {
	idx := newMemoryIndex()
	f.fanOut.Add("search", NewSearchSink(idx))
	f.rebuild(nil, idx)
	return idx
}

// memoryIndex matches comments by substring and scopes like the Elasticsearch query.
type memoryIndex struct {
	mu   sync.Mutex
	docs map[string]dto.FeedbackResponse
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{docs: make(map[string]dto.FeedbackResponse)}
}

func (m *memoryIndex) Index(_ context.Context, f dto.FeedbackResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[f.ID] = f
	return nil
}

func (m *memoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memoryIndex) Search(_ context.Context, scope search.Scope, query string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, doc := range m.docs {
		if !inScope(doc, scope) || !strings.Contains(strings.ToLower(doc.Comment), strings.ToLower(query)) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (m *memoryIndex) Enabled() bool { return true }

func (m *memoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *memoryIndex) Doc(id string) (dto.FeedbackResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

func inScope(doc dto.FeedbackResponse, scope search.Scope) bool {
	switch scope.Kind {
	case models.TenantKindClient:
		return doc.ClientSlug == scope.Key
	case models.TenantKindSeller:
		return doc.SellerID == scope.Key && doc.ClientSlug == ""
	case models.TenantKindPlatform:
		return doc.TenantKind == models.TenantKindPlatform
	default:
		return false
	}
}

func sellerActor(s *models.Seller) auth.Actor {
	return auth.Actor{ID: s.ID, Role: models.ActorRoleSeller, Tenant: s.ID}
}

func clientActor(c *models.Client) auth.Actor {
	return auth.Actor{ID: c.ID, Role: models.ActorRoleClient, Tenant: c.Slug}
}

func adminActor() auth.Actor {
	return auth.Actor{ID: "admin-1", Role: models.ActorRoleAdmin}
}

func strPtr(s string) *string { return &s }

// pngDataURL is a small valid image for attachment uploads.
func pngDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
