package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/observability/logger"
	"go.uber.org/zap"
)

const HeaderIdempotencyKey = "Idempotency-Key"

func (s *Server) GetCreditSummary(c *gin.Context) {
	resp, err := s.creditSvc.Summary(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAvailableCredits(c *gin.Context) {
	tenantID, channel := c.Param("tenantId"), c.Param("channel")
	credits, err := s.creditSvc.Available(c.Request.Context(), tenantID, channel)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id": tenantID,
		"channel":   normalizeChannel(channel),
		"credits":   credits,
	}})
}

func (s *Server) CanUseChannel(c *gin.Context) {
	amount := int64(1)
	if raw := strings.TrimSpace(c.Query("amount")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
			return
		}
		amount = parsed
	}

	ctx := c.Request.Context()
	tenantID, channel := c.Param("tenantId"), c.Param("channel")
	canUse, err := s.creditSvc.CanUseChannel(ctx, tenantID, channel, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	credits, err := s.creditSvc.Available(ctx, tenantID, channel)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id": tenantID,
		"channel":   normalizeChannel(channel),
		"can_use":   canUse,
		"credits":   credits,
	}})
}

func (s *Server) GetCurrentUsage(c *gin.Context) {
	tenantID, channel := c.Param("tenantId"), c.Param("channel")
	used, err := s.creditSvc.GetCurrentUsage(c.Request.Context(), tenantID, channel)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id": tenantID,
		"channel":   normalizeChannel(channel),
		"used":      used,
	}})
}

func (s *Server) GetBalance(c *gin.Context) {
	resp, err := s.creditSvc.GetBalance(c.Request.Context(), c.Param("tenantId"), c.Param("channel"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeductCredits(c *gin.Context) {
	var req creditdomain.DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = c.Param("tenantId")
	req.Channel = c.Param("channel")

	resp, err := s.creditSvc.DeductCredits(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddCredits(c *gin.Context) {
	var req creditdomain.AddCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = c.Param("tenantId")
	req.Channel = c.Param("channel")
	req.AddedBy = actorFromContext(c)

	ctx := c.Request.Context()
	idemKey := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	var claimToken string
	if idemKey != "" && s.topUpIdem.Enabled() {
		token, ok, err := s.topUpIdem.Claim(ctx, req.TenantID, idemKey)
		if err != nil {
			logger.FromContext(ctx).Warn("top-up idempotency claim failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			AbortWithError(c, ErrConflict)
			return
		}
		claimToken = token
	}

	resp, err := s.creditSvc.AddCredits(ctx, req)
	if err != nil {
		if claimToken != "" {
			if relErr := s.topUpIdem.Release(ctx, req.TenantID, idemKey, claimToken); relErr != nil {
				logger.FromContext(ctx).Warn("top-up idempotency release failed", zap.Error(relErr))
			}
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTopUps(c *gin.Context) {
	var req creditdomain.ListTopUpsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = c.Param("tenantId")

	resp, err := s.creditSvc.ListTopUps(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func normalizeChannel(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
