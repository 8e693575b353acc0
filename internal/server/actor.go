package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/commcredit/internal/observability/context"
)

const (
	HeaderActorType = "X-Actor-Type"
	HeaderActorID   = "X-Actor-ID"

	contextActorKey = "actor"
)

// ActorRequired reads the caller identity set by the gateway.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorType := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorType)))
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorType == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := actorType
		if actorID != "" {
			actor = actorType + ":" + actorID
		}
		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actorType, actorID))
		c.Next()
	}
}

func actorFromContext(c *gin.Context) string {
	return c.GetString(contextActorKey)
}
