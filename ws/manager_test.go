package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reviewflow/internal/auth"
	"reviewflow/internal/events"
	"reviewflow/internal/middleware"
	"reviewflow/internal/models"
	"reviewflow/internal/services/dto"
	"reviewflow/internal/testutil"
	"reviewflow/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubAuth struct{ actors map[string]auth.Actor }

func (s stubAuth) Authenticate(_ context.Context, token string) (auth.Actor, error) {
	actor, ok := s.actors[token]
	if !ok {
		return auth.Actor{}, apperrors.ErrInvalidToken
	}
	return actor, nil
}

type stubTopics struct{}

func (stubTopics) InboxTopic(_ *gorm.DB, actor auth.Actor) (string, error) {
	switch actor.Role {
	case models.ActorRoleClient:
		return models.InboxTopic(models.TenantKindClient, actor.Tenant), nil
	case models.ActorRoleSeller:
		return models.InboxTopic(models.TenantKindSeller, actor.ID), nil
	}
	return "", errors.New("unexpected role")
}

func newTestServer(t *testing.T) (*WebSocketManager, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := NewWebSocketManager()
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	handler := NewWebSocketHandler(manager, stubAuth{actors: map[string]auth.Actor{
		"client-token": {ID: "c-1", Role: models.ActorRoleClient, Tenant: "test-client"},
		"seller-token": {ID: "s-1", Role: models.ActorRoleSeller, Tenant: "s-1"},
	}}, stubTopics{})

	router := gin.New()
	router.Use(middleware.DBMiddleware(testutil.NewTestDB(t)))
	router.GET("/ws/feedback", handler.ServeWS)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return manager, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feedback?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_DeliversOnlyOwnInbox(t *testing.T) {
	manager, srv := newTestServer(t)
	clientConn := dial(t, srv, "client-token")

	topic := models.InboxTopic(models.TenantKindClient, "test-client")
	require.Eventually(t, func() bool { return manager.SubscriberCount(topic) == 1 }, time.Second, 10*time.Millisecond)

	// чужой инбокс не должен прийти
	manager.BroadcastFeedback(events.TypeFeedbackCreated, dto.FeedbackResponse{
		ID: "other", Rating: 1, TenantKind: models.TenantKindClient, TenantKey: "acme-corp",
	})
	manager.BroadcastFeedback(events.TypeFeedbackCreated, dto.FeedbackResponse{
		ID: "mine", Rating: 2, TenantKind: models.TenantKindClient, TenantKey: "test-client",
	})

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, clientConn.ReadJSON(&msg))
	assert.Equal(t, events.TypeFeedbackCreated, msg.Type)
	assert.Equal(t, "mine", msg.Feedback.ID)
}

func TestWebSocket_UnsubscribesOnClose(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "seller-token")

	topic := models.InboxTopic(models.TenantKindSeller, "s-1")
	require.Eventually(t, func() bool { return manager.SubscriberCount(topic) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return manager.SubscriberCount(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RejectsMissingOrBadToken(t *testing.T) {
	_, srv := newTestServer(t)

	for _, query := range []string{"", "?token=nope"} {
		resp, err := http.Get(srv.URL + "/ws/feedback" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, query)
	}
}
