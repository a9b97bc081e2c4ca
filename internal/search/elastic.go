package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"reviewflow/internal/models"
	"reviewflow/internal/services/dto"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "rating":      {"type": "integer"},
      "comment":     {"type": "text"},
      "tenant_kind": {"type": "keyword"},
      "tenant_key":  {"type": "keyword"},
      "client_slug": {"type": "keyword"},
      "seller_id":   {"type": "keyword"},
      "created_at":  {"type": "date"}
    }
  }
}`

type document struct {
	ID         string `json:"id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	TenantKind string `json:"tenant_kind"`
	TenantKey  string `json:"tenant_key"`
	ClientSlug string `json:"client_slug"`
	SellerID   string `json:"seller_id"`
	CreatedAt  string `json:"created_at"`
}

type elasticIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndexer(ctx context.Context, cfg Config) (Indexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch ping error: %s", res.Status())
	}

	idx := &elasticIndexer{client: es, index: cfg.Index}
	if err := idx.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *elasticIndexer) Enabled() bool { return true }

func (e *elasticIndexer) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusBadRequest { // 400 = already exists (race)
		return fmt.Errorf("Elasticsearch error: %s", res.String())
	}
	return nil
}

func (e *elasticIndexer) Index(ctx context.Context, f dto.FeedbackResponse) error {
	body, err := json.Marshal(document{
		ID:         f.ID,
		Rating:     f.Rating,
		Comment:    f.Comment,
		TenantKind: string(f.TenantKind),
		TenantKey:  f.TenantKey,
		ClientSlug: f.ClientSlug,
		SellerID:   f.SellerID,
		CreatedAt:  f.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: f.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("Elasticsearch error: %s", res.String())
	}
	return nil
}

func (e *elasticIndexer) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: e.index, DocumentID: id}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("Elasticsearch error: %s", res.String())
	}
	return nil
}

func (e *elasticIndexer) Search(ctx context.Context, scope Scope, query string, limit int) ([]string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(scope, query, limit)); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildQuery mirrors the SQL inbox filters.
func buildQuery(scope Scope, query string, limit int) map[string]any {
	var filters []map[string]any
	term := func(field, value string) map[string]any {
		return map[string]any{"term": map[string]any{field: value}}
	}

	switch scope.Kind {
	case models.TenantKindClient:
		filters = append(filters, term("client_slug", scope.Key))
	case models.TenantKindSeller:
		filters = append(filters, term("seller_id", scope.Key), term("client_slug", ""))
	case models.TenantKindPlatform:
		filters = append(filters, term("tenant_kind", string(models.TenantKindPlatform)))
	default:
		filters = append(filters, term("id", ""))
	}

	return map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []map[string]any{{"match": map[string]any{"comment": query}}},
				"filter": filters,
			},
		},
	}
}
