package search

import (
	"context"
	"encoding/json"
	"testing"

	"reviewflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_SellerScopeExcludesClients(t *testing.T) {
	q := buildQuery(Scope{Kind: models.TenantKindSeller, Key: "seller-1"}, "slow", 20)

	raw, err := json.Marshal(q)
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, `"seller_id":"seller-1"`)
	assert.Contains(t, body, `"client_slug":""`)
	assert.Contains(t, body, `"comment":"slow"`)
	assert.Contains(t, body, `"size":20`)
}

func TestNoopIndexer(t *testing.T) {
	idx, err := NewIndexer(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, idx.Enabled())
}
