package middleware

import (
	"context"
	"strings"

	"reviewflow/internal/auth"
	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// Authenticator проверяет bearer-токен и отзыв сессии
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Actor, error)
}

// AuthMiddleware - middleware проверки JWT
func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			c.Abort()
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		actor, err := authenticator.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			apperrors.HandleError(c, err)
			c.Abort()
			return
		}

		auth.SetActor(c, actor)
		ctx := logger.WithActor(c.Request.Context(), actor.ID, string(actor.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRoles - пропускает только перечисленные роли
func RequireRoles(roles ...models.ActorRole) gin.HandlerFunc {
	roleSet := make(map[models.ActorRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		actor, ok := auth.CurrentActor(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
			c.Abort()
			return
		}
		if !roleSet[actor.Role] {
			logger.CtxWarn(c.Request.Context(), "Access denied: insufficient role", "role", actor.Role, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.CurrentActor(c)
		if !ok || !auth.CanPerformAction(actor, permission) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}
