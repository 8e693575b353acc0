package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		actor := actorFromContext(c)
		if actor == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, strings.TrimSpace(c.Param("tenantId")), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
