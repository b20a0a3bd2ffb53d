package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/storefront/internal/auth/session"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/config"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
	"github.com/smallbiznis/storefront/internal/purchasecache"
	"github.com/smallbiznis/storefront/internal/ratelimit"
	"github.com/smallbiznis/storefront/internal/stripeprice"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

// NewEngine builds the gin engine with the request middleware chain.
func NewEngine(logCfg obslogger.MiddlewareConfig, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	logCfg.ErrorClassifier = classifyErrorForLog
	r.Use(obslogger.GinMiddleware(logCfg))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	commerce  commercedomain.Service
	viewers   viewerdomain.Service
	sessions  *session.Manager
	purchases *purchasecache.Repository
	prices    *stripeprice.Handler
	limiter   *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	Commerce  commercedomain.Service
	Viewers   viewerdomain.Service
	Sessions  *session.Manager
	Purchases *purchasecache.Repository `optional:"true"`
	Prices    *stripeprice.Handler
	Limiter   *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("http.server"),
		commerce:  p.Commerce,
		viewers:   p.Viewers,
		sessions:  p.Sessions,
		purchases: p.Purchases,
		prices:    p.Prices,
		limiter:   p.Limiter,
	}

	s.registerCommerceRoutes()
	s.registerViewerRoutes()
	s.registerPurchaseRoutes()
	s.prices.Register(s.engine.Group("", s.limiter.Middleware(ratelimit.ScopeStripePrices)))

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCommerceRoutes() {
	machines := s.engine.Group("/api/commerce/machines")

	machines.POST("", s.limiter.Middleware(ratelimit.ScopeCommerceMachines), s.CreateCommerceMachine)
	machines.GET("/:id", s.GetCommerceMachine)
	machines.POST("/:id/events", s.SendCommerceEvent)
	machines.DELETE("/:id", s.DeleteCommerceMachine)
}

func (s *Server) registerViewerRoutes() {
	viewer := s.engine.Group("/api/viewer")

	viewer.POST("", s.StartViewer)
	viewer.GET("", s.GetViewer)
	viewer.POST("/events", s.SendViewerEvent)
}

func (s *Server) registerPurchaseRoutes() {
	s.engine.GET("/api/purchases/latest", s.LatestPurchase)
}

// RunHTTP serves the engine for the lifetime of the fx app. A listener
// failure shuts the app down.
func RunHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, s *Server, log *zap.Logger) {
	log = log.Named("http.server")
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
