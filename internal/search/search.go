// Package search keeps a full-text index of feedback comments.
package search

import (
	"context"

	"reviewflow/internal/models"
	"reviewflow/internal/services/dto"
)

// Scope restricts a query to one inbox.
type Scope struct {
	Kind models.TenantKind
	Key  string
}

type Indexer interface {
	Index(ctx context.Context, feedback dto.FeedbackResponse) error
	Delete(ctx context.Context, id string) error
	// Search returns matching feedback ids, best match first.
	Search(ctx context.Context, scope Scope, query string, limit int) ([]string, error)
	Enabled() bool
}

type Config struct {
	Addresses []string
	Index     string
}

func NewIndexer(ctx context.Context, cfg Config) (Indexer, error) {
	if len(cfg.Addresses) == 0 {
		return NoopIndexer{}, nil
	}
	return NewElasticIndexer(ctx, cfg)
}

// NoopIndexer leaves search to SQL.
type NoopIndexer struct{}

func (NoopIndexer) Index(context.Context, dto.FeedbackResponse) error { return nil }
func (NoopIndexer) Delete(context.Context, string) error              { return nil }
func (NoopIndexer) Search(context.Context, Scope, string, int) ([]string, error) {
	return nil, nil
}
func (NoopIndexer) Enabled() bool { return false }
