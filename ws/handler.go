package ws

import (
	"context"
	"net/http"
	"strings"

	"reviewflow/internal/auth"
	"reviewflow/internal/logger"
	"reviewflow/pkg/apperrors"
	"reviewflow/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	// токен проверяется до апгрейда, origin не ограничиваем
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Actor, error)
}

// TopicResolver maps a session to the inbox it may watch.
type TopicResolver interface {
	InboxTopic(db *gorm.DB, actor auth.Actor) (string, error)
}

type WebSocketHandler struct {
	Manager       *WebSocketManager
	authenticator Authenticator
	topics        TopicResolver
}

func NewWebSocketHandler(manager *WebSocketManager, authenticator Authenticator, topics TopicResolver) *WebSocketHandler {
	return &WebSocketHandler{
		Manager:       manager,
		authenticator: authenticator,
		topics:        topics,
	}
}

// ServeWS: browsers cannot set headers on a websocket, so the JWT comes in ?token=.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("token query parameter is required"))
		return
	}

	actor, err := h.authenticator.Authenticate(ctx, token)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	db := c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
	topic, err := h.topics.InboxTopic(db.WithContext(ctx), actor)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWithError(ctx, "WebSocket upgrade error", err)
		return
	}

	client := newClient(h.Manager, conn, topic, actor.ID)
	if !h.Manager.subscribe(client) {
		conn.Close()
		return
	}
	logger.CtxInfo(ctx, "Live inbox connected", "topic", topic, "actor_id", actor.ID)

	go client.writePump()
	go client.readPump()
}
