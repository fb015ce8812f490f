// Package server exposes the commission pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	importerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/domain"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/observability/logger"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/statement"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	importerSvc importerdomain.Service
	ledgerSvc   ledgerdomain.Service
	orderSvc    orderdomain.Service
	customerSvc customerdomain.Service
	rateSvc     ratedomain.Service
	summarySvc  summarydomain.Service
	auditSvc    *auditservice.Service

	statementRenderer statement.Renderer
	importLimiter     *importThrottle
}

type ServerParam struct {
	fx.In

	Cfg config.Config
	DB  *gorm.DB
	Log *zap.Logger

	ImporterSvc importerdomain.Service
	LedgerSvc   ledgerdomain.Service
	OrderSvc    orderdomain.Service
	CustomerSvc customerdomain.Service
	RateSvc     ratedomain.Service
	SummarySvc  summarydomain.Service
	AuditSvc    *auditservice.Service

	StatementRenderer statement.Renderer
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("server"),
		importerSvc:   p.ImporterSvc,
		ledgerSvc:     p.LedgerSvc,
		orderSvc:      p.OrderSvc,
		customerSvc:   p.CustomerSvc,
		rateSvc:       p.RateSvc,
		summarySvc:    p.SummarySvc,
		auditSvc:          p.AuditSvc,
		statementRenderer: p.StatementRenderer,
		importLimiter:     newImportThrottle(p.Cfg.ImportRateLimit, p.Cfg.ImportRateWindow),
	}
}

// NewEngine builds the gin engine with logging middleware attached.
func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    log,
		SkipPaths: []string{"/healthz"},
	}))
	return engine
}

// RegisterRoutes mounts every API route on the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)

	api := engine.Group("/api/v1")
	{
		api.POST("/imports/line-items", s.ImportLineItems)

		api.POST("/commissions/calculate", s.CalculateCommissions)
		api.GET("/commissions", s.ListCommissions)
		api.GET("/commissions/:soNumber", s.GetCommission)
		api.PUT("/commissions/:soNumber/rate", s.SetCommissionRate)
		api.PUT("/commissions/:soNumber/exclusion", s.SetCommissionExclusion)
		api.POST("/commissions/:soNumber/move", s.MoveCommissionMonth)

		api.POST("/summaries/recalculate", s.RecalculateSummary)
		api.GET("/summaries", s.ListSummaries)
		api.GET("/summaries/statement", s.RenderStatement)

		api.GET("/orders", s.ListOrders)
		api.GET("/orders/:soNumber", s.GetOrder)
		api.PUT("/orders/:soNumber/customer", s.CorrectOrderCustomer)

		api.POST("/line-items/dedup", s.DedupLineItems)
		api.POST("/line-items/backfill-totals", s.BackfillLineItemTotals)

		api.GET("/rates", s.ListRateRules)
		api.PUT("/rates", s.UpsertRateRule)

		api.GET("/customers", s.ListCustomers)
		api.GET("/customers/:id", s.GetCustomer)
		api.POST("/customers/:id/aliases", s.AddCustomerAlias)
		api.PUT("/customers/:id/archive", s.ArchiveCustomer)

		api.GET("/audit-logs", s.ListAuditLogs)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP binds the HTTP server to the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, server *Server, log *zap.Logger) {
	server.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine, NewServer, statement.NewRenderer),
	fx.Invoke(RunHTTP),
)
