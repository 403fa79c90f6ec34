package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/audit"
	auditdomain "github.com/fieldserve/tradebill/internal/audit/domain"
	"github.com/fieldserve/tradebill/internal/clock"
	"github.com/fieldserve/tradebill/internal/config"
	"github.com/fieldserve/tradebill/internal/customer"
	customerdomain "github.com/fieldserve/tradebill/internal/customer/domain"
	"github.com/fieldserve/tradebill/internal/document"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/events"
	"github.com/fieldserve/tradebill/internal/organization"
	organizationdomain "github.com/fieldserve/tradebill/internal/organization/domain"
	"github.com/fieldserve/tradebill/internal/payment"
	paymentdomain "github.com/fieldserve/tradebill/internal/payment/domain"
	"github.com/fieldserve/tradebill/internal/publicquote"
	publicquotedomain "github.com/fieldserve/tradebill/internal/publicquote/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	clock.Module,
	fx.Provide(registerGin),
	fx.Provide(newHTTPMetrics),
	audit.Module,
	events.Module,
	customer.Module,
	organization.Module,
	document.Module,
	payment.Module,
	publicquote.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(metrics *httpMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(metrics *httpMetrics) *gin.Engine {
	return NewEngine(metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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

type Server struct {
	engine             *gin.Engine
	cfg                config.Config
	db                 *gorm.DB
	genID              *snowflake.Node
	documentSvc        documentdomain.Service
	paymentSvc         paymentdomain.Service
	publicQuoteSvc     publicquotedomain.Service
	customerRepo       customerdomain.Repository
	organizationRepo   organizationdomain.Repository
	auditSvc           auditdomain.Service
	publicQuoteLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	DB               *gorm.DB
	GenID            *snowflake.Node
	DocumentSvc      documentdomain.Service
	PaymentSvc       paymentdomain.Service
	PublicQuoteSvc   publicquotedomain.Service
	CustomerRepo     customerdomain.Repository
	OrganizationRepo organizationdomain.Repository
	AuditSvc         auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:             p.Gin,
		cfg:                p.Cfg,
		db:                 p.DB,
		genID:              p.GenID,
		documentSvc:        p.DocumentSvc,
		paymentSvc:         p.PaymentSvc,
		publicQuoteSvc:     p.PublicQuoteSvc,
		customerRepo:       p.CustomerRepo,
		organizationRepo:   p.OrganizationRepo,
		auditSvc:           p.AuditSvc,
		publicQuoteLimiter: newRateLimiter(30, time.Minute),
	}

	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.OrgContext())

	// -------- Documents --------
	api.GET("/documents", s.ListDocuments)
	api.GET("/documents/:id", s.GetDocumentByID)

	// -------- Quotes --------
	api.POST("/quotes", s.CreateQuote)
	api.GET("/quotes", s.ListQuotes)
	api.GET("/quotes/:id", s.GetDocumentByID)
	api.POST("/quotes/:id/send", s.SendDocument)
	api.POST("/quotes/:id/accept", s.AcceptQuote)
	api.POST("/quotes/:id/reject", s.RejectQuote)
	api.POST("/quotes/:id/deposit-paid", s.MarkDepositPaid)

	// -------- Invoices --------
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetDocumentByID)
	api.POST("/invoices/:id/send", s.SendDocument)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.POST("/invoices/:id/payments", s.RecordPayment)
	api.GET("/invoices/:id/payments", s.ListPayments)

	// -------- Line items / variations --------
	api.POST("/documents/:id/items", s.AddLineItem)
	api.PATCH("/documents/:id/items/:item_id", s.UpdateLineItem)
	api.DELETE("/documents/:id/items/:item_id", s.RemoveLineItem)
	api.POST("/documents/:id/variation", s.ApplyVariation)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/orgs/:org_id/quotes/:quote_token", s.GetPublicQuote)
	public.POST("/orgs/:org_id/quotes/:quote_token/accept", s.AcceptPublicQuote)
	public.POST("/orgs/:org_id/quotes/:quote_token/reject", s.RejectPublicQuote)
}
