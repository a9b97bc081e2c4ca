package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"reviewflow/internal/models"
	"reviewflow/internal/services/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage_KeyedByInbox(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	event := Event{
		Type: TypeFeedbackCreated,
		Feedback: dto.FeedbackResponse{
			ID:         "fb-1",
			Rating:     2,
			Comment:    "slow response",
			TenantKind: models.TenantKindClient,
			TenantKey:  "test-client",
			ClientSlug: "test-client",
			SellerID:   "seller-1",
		},
		OccurredAt: at,
	}

	msg, err := encodeMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "client:test-client", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, TypeFeedbackCreated, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "feedback.created", body["type"])
	assert.Equal(t, "2026-10-15T09:00:00Z", body["occurredAt"])
	feedback, ok := body["feedback"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fb-1", feedback["id"])
	assert.Equal(t, "slow response", feedback["comment"])
}

func TestEncodeMessage_SellerAndPlatformKeys(t *testing.T) {
	cases := map[string]struct {
		kind models.TenantKind
		key  string
		want string
	}{
		"seller":   {models.TenantKindSeller, "seller-1", "seller:seller-1"},
		"platform": {models.TenantKindPlatform, models.PlatformTenantKey, "platform"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := encodeMessage(Event{
				Type:     TypeFeedbackDeleted,
				Feedback: dto.FeedbackResponse{ID: "fb", TenantKind: tc.kind, TenantKey: tc.key},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(msg.Key))
			assert.Equal(t, TypeFeedbackDeleted, string(msg.Headers[0].Value))
		})
	}
}

func TestNewPublisher_NoBrokersIsNoop(t *testing.T) {
	p, err := NewPublisher(Config{Topic: "feedback_events"})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeFeedbackCreated}))
	assert.NoError(t, p.Close())
}
