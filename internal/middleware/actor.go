package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// actorContextKey is the gin context key the resolved actor is stored under
const actorContextKey = "actor"

// Actor resolves the acting user for the revision trail. The gateway in front
// of the service authenticates requests and forwards the identity headers; an
// empty actor is allowed and handled downstream.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader("X-User-Name"))
		if actor == "" {
			actor = strings.TrimSpace(c.GetHeader("X-User-ID"))
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// ActorFromContext returns the actor resolved by the Actor middleware, empty
// when unauthenticated
func ActorFromContext(c *gin.Context) string {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(string); ok {
			return actor
		}
	}
	return ""
}
