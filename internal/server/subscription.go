package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertSubscription(c *gin.Context) {
	var req subscriptiondomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = c.Param("tenantId")

	resp, err := s.subscriptionSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
