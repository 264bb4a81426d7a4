package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/campusprint/printq-api/internal/handler"
	"github.com/campusprint/printq-api/internal/middleware"
	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/internal/repository"
	"github.com/campusprint/printq-api/internal/service"
	"github.com/campusprint/printq-api/pkg/cache"
	"github.com/campusprint/printq-api/pkg/config"
	"github.com/campusprint/printq-api/pkg/database"
	"github.com/campusprint/printq-api/pkg/export"
	"github.com/campusprint/printq-api/pkg/logger"
	corsmiddleware "github.com/campusprint/printq-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusprint/printq-api/pkg/middleware/requestid"
	"github.com/campusprint/printq-api/pkg/pdf"
	"github.com/campusprint/printq-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	blobs, err := storage.NewLocalBlobStore(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob storage", "error", err)
	}

	pricing, err := service.NewPricingTable(cfg.Pricing)
	if err != nil {
		logr.Sugar().Fatalw("invalid pricing configuration", "error", err)
	}

	engine := pdf.NewEngine()

	documentRepo := repository.NewDocumentRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	mergeCache := repository.NewMergeCacheRepository(redisClient, logr, cfg.Merge.ArtifactTTL)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)
	ledgerSvc := service.NewLedgerService(ledgerRepo, logr)
	uploadSvc := service.NewUploadService(documentRepo, memberRepo, blobs, engine, pricing, ledgerSvc, cfg.Uploads, logr)
	mergeSvc := service.NewMergeService(documentRepo, blobs, engine, mergeCache, cfg.Merge.FetchWorkers, logr)
	refundSvc, err := service.NewRefundService(refundRepo, ledgerSvc, cfg.Refunds, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid refund configuration", "error", err)
	}

	documentHandler := handler.NewDocumentHandler(uploadSvc, metricsSvc)
	mergeHandler := handler.NewMergeHandler(mergeSvc, metricsSvc, export.NewCSVExporter(), export.NewPDFExporter())
	walletHandler := handler.NewWalletHandler(ledgerSvc, metricsSvc)
	refundHandler := handler.NewRefundHandler(refundSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	memberOnly := middleware.RequireRoles(models.RoleMember, models.RoleOperator)
	operatorOnly := middleware.RequireRoles(models.RoleOperator)

	documents := api.Group("/documents", memberOnly)
	{
		documents.POST("", documentHandler.Upload)
		documents.GET("", documentHandler.List)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	wallet := api.Group("/wallet", memberOnly)
	{
		wallet.GET("/balance", walletHandler.Balance)
		wallet.GET("/transactions", walletHandler.History)
	}

	refunds := api.Group("/refunds")
	{
		refunds.POST("", memberOnly, refundHandler.Create)
		refunds.GET("", memberOnly, refundHandler.Mine)
		refunds.GET("/pending", operatorOnly, refundHandler.Pending)
		refunds.POST("/:id/approve", operatorOnly, refundHandler.Approve)
		refunds.POST("/:id/reject", operatorOnly, refundHandler.Reject)
	}

	containers := api.Group("/containers", operatorOnly)
	{
		containers.POST("/merge", mergeHandler.Merge)
		containers.GET("/artifact", mergeHandler.Download)
		containers.DELETE("/artifact", mergeHandler.ClearCache)
		containers.GET("/failures", mergeHandler.Failures)
		containers.GET("/failures/export", mergeHandler.FailureReport)
		containers.POST("/processed", mergeHandler.MarkProcessed)
		containers.GET("/copy-count", mergeHandler.CopyCount)
	}

	operations := api.Group("/transactions", operatorOnly)
	{
		operations.GET("/recent", walletHandler.RecentAll)
		operations.GET("/totals", walletHandler.Totals)
	}

	api.POST("/members/:memberId/topup", operatorOnly, walletHandler.TopUp)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
