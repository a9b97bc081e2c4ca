package auth

import (
	"time"

	"reviewflow/internal/models"
	"reviewflow/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// Actor - аутентифицированный пользователь текущего запроса
type Actor struct {
	ID             string
	Role           models.ActorRole
	Tenant         string
	TokenID        string
	ExpiresAt      time.Time
	ImpersonatorID string
}

func ActorFromClaims(claims *Claims) Actor {
	actor := Actor{
		ID:             claims.Subject,
		Role:           claims.Role,
		Tenant:         claims.Tenant,
		TokenID:        claims.ID,
		ImpersonatorID: claims.Imp,
	}
	if claims.ExpiresAt != nil {
		actor.ExpiresAt = claims.ExpiresAt.Time
	}
	return actor
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.ActorRoleAdmin
}

func (a Actor) Impersonated() bool {
	return a.ImpersonatorID != ""
}

// SetActor is called once by the auth middleware.
func SetActor(c *gin.Context, actor Actor) {
	c.Set(string(contextkeys.ActorContextKey), actor)
}

// CurrentActor is the only way handlers read the session.
func CurrentActor(c *gin.Context) (Actor, bool) {
	val, ok := c.Get(string(contextkeys.ActorContextKey))
	if !ok {
		return Actor{}, false
	}
	actor, ok := val.(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, false
	}
	return actor, true
}
