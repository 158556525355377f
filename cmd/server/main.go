package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/policy"
	"github.com/mamadbah2/herdlog/internal/repository/memory"
	"github.com/mamadbah2/herdlog/internal/repository/mongodb"
	"github.com/mamadbah2/herdlog/internal/repository/sheets"
	"github.com/mamadbah2/herdlog/internal/scheduler"
	"github.com/mamadbah2/herdlog/internal/server/handlers"
	"github.com/mamadbah2/herdlog/internal/server/router"
	approvalsvc "github.com/mamadbah2/herdlog/internal/service/approval"
	ingestionsvc "github.com/mamadbah2/herdlog/internal/service/ingestion"
	"github.com/mamadbah2/herdlog/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/herdlog/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/herdlog/internal/service/whatsapp"
	"github.com/mamadbah2/herdlog/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/herdlog/pkg/clients/whatsapp"
	"github.com/mamadbah2/herdlog/pkg/logger"
)

// dataStore is everything the services read and write; both storage drivers implement it.
type dataStore interface {
	ingestionsvc.Store
	ledger.Store
	approvalsvc.Store
	reportingsvc.Store
	handlers.MembershipLookup
	whatsappsvc.Directory
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore := openStore(cfg, baseLogger)
	defer closeStore()

	rules := policy.NewDisabled()
	if cfg.Approval.PolicyFile != "" {
		rules, err = policy.LoadFile(cfg.Approval.PolicyFile)
		if err != nil {
			baseLogger.Fatal("failed to load approval policy", zap.Error(err))
		}
		baseLogger.Info("approval policy loaded", zap.String("path", cfg.Approval.PolicyFile))
	}

	var mirror ledger.Mirror
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror = sheetsRepo
		baseLogger.Info("google sheets ledger mirror enabled")
	}

	reportLoc, _ := time.LoadLocation(cfg.Reporting.Timezone)

	writer := ledger.NewWriter(store, mirror, baseLogger.Named("svc.ledger"))
	gate := approvalsvc.NewGate(rules, store, baseLogger.Named("svc.approval"))
	approvals := approvalsvc.NewService(store, writer, baseLogger.Named("svc.approval"))

	aiClient := anthropic.NewClient(anthropic.Options{
		APIKey: cfg.AI.AnthropicKey,
		Model:  cfg.AI.Model,
	}, baseLogger.Named("client.anthropic"))

	ingestion := ingestionsvc.NewService(ingestionsvc.Dependencies{
		Extractor: aiClient,
		Store:     store,
		Ledger:    writer,
		Gate:      gate,
	}, ingestionsvc.Options{
		Timeout:                cfg.Ingestion.Timeout,
		DefaultMaxBackdateDays: cfg.Ingestion.DefaultMaxBackdateDays,
		Location:               reportLoc,
	}, baseLogger.Named("svc.ingestion"))

	routes := router.Handlers{
		Activities: handlers.NewActivityHandler(ingestion, baseLogger.Named("handlers.activities")),
		Approvals:  handlers.NewApprovalHandler(approvals, baseLogger.Named("handlers.approvals")),
		Members:    store,
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		sessions := whatsappsvc.NewSessionManager(whatsappsvc.DefaultSessionTTL)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, ingestion, store, sessions, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		notifier = messagingSvc
		baseLogger.Info("whatsapp channel enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, webhook disabled")
	}

	engine := router.New(routes, baseLogger.Named("router"))

	reportingSvc := reportingsvc.NewService(store, baseLogger.Named("svc.reporting"))
	sched, err := scheduler.NewScheduler(*cfg, approvals, reportingSvc, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Ingestion.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, log *zap.Logger) (dataStore, func()) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
	if err != nil {
		log.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to create mongodb indexes", zap.Error(err))
	}

	return mongoRepo, func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			log.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
}
