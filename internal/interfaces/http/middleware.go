package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

const actorKey = "actor"

// AuthMiddleware resolves the bearer token and stores the actor on the context.
// Requests without a valid token are rejected with 401.
func AuthMiddleware(resolver port.IdentityResolver, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Info("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid bearer token",
			})
			return
		}

		c.Set(actorKey, *actor)
		c.Next()
	}
}

// actorFrom returns the actor set by AuthMiddleware
func actorFrom(c *gin.Context) (entity.ActorIdentity, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.ActorIdentity{}, false
	}
	actor, ok := v.(entity.ActorIdentity)
	return actor, ok
}

// CORSMiddleware adds permissive CORS headers for the portal front end
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
