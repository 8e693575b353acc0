package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/commcredit/internal/authorization"
	"github.com/smallbiznis/commcredit/internal/cache"
	"github.com/smallbiznis/commcredit/internal/config"
	"github.com/smallbiznis/commcredit/internal/credit"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/observability"
	obsmiddleware "github.com/smallbiznis/commcredit/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/commcredit/internal/observability/metrics"
	obstracing "github.com/smallbiznis/commcredit/internal/observability/tracing"
	"github.com/smallbiznis/commcredit/internal/ratelimit"
	"github.com/smallbiznis/commcredit/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cache.Module,
	subscription.Module,
	credit.Module,
	authorization.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	creditSvc       creditdomain.Service
	subscriptionSvc subscriptiondomain.Service
	authzSvc        authorization.Service
	deductLimiter   *ratelimit.DeductLimiter
	topUpIdem       *ratelimit.TopUpIdempotency
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	CreditSvc       creditdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	AuthzSvc        authorization.Service       `optional:"true"`
	DeductLimiter   *ratelimit.DeductLimiter    `optional:"true"`
	TopUpIdem       *ratelimit.TopUpIdempotency `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics         `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		creditSvc:       p.CreditSvc,
		subscriptionSvc: p.SubscriptionSvc,
		authzSvc:        p.AuthzSvc,
		deductLimiter:   p.DeductLimiter,
		topUpIdem:       p.TopUpIdem,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api/tenants/:tenantId")
	api.Use(s.ActorRequired())

	read := s.authorize(authorization.ObjectCredit, authorization.ActionRead)

	// -------- Credits --------
	api.GET("/credits", read, s.GetCreditSummary)
	api.GET("/credits/topups", read, s.ListTopUps)
	api.GET("/credits/:channel", read, s.GetAvailableCredits)
	api.GET("/credits/:channel/can-use", read, s.CanUseChannel)
	api.GET("/credits/:channel/usage", read, s.GetCurrentUsage)
	api.GET("/credits/:channel/balance", read, s.GetBalance)
	api.POST("/credits/:channel/deduct", s.authorize(authorization.ObjectCredit, authorization.ActionDeduct), s.DeductRateLimit(), s.DeductCredits)
	api.POST("/credits/:channel/topup", s.authorize(authorization.ObjectCredit, authorization.ActionTopUp), s.AddCredits)

	// -------- Subscription --------
	api.GET("/subscription", read, s.GetSubscription)
	api.PUT("/subscription", s.authorize(authorization.ObjectSubscription, authorization.ActionWrite), s.UpsertSubscription)
}
