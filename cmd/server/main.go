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

	"poultrytrade/backend/internal/api"
	"poultrytrade/backend/internal/archive"
	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/config"
	"poultrytrade/backend/internal/database"
	"poultrytrade/backend/internal/notify"
	"poultrytrade/backend/internal/store/postgres"
	"poultrytrade/backend/internal/trip"
	"poultrytrade/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env", "backend/.env")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.AppTimezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	pool, err := database.NewPool(startCtx, cfg.DatabaseURL, logger.Named(baseLogger, "database"))
	if err != nil {
		baseLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.EnsureSchema(startCtx, pool, cfg.SchemaPath); err != nil {
		baseLogger.Fatal("failed to apply schema", zap.Error(err))
	}

	var sinks []trip.SettlementSink
	if cfg.MongoURI != "" {
		arc, err := archive.NewMongoArchive(startCtx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			baseLogger.Fatal("failed to init settlement archive", zap.Error(err))
		}
		defer func() {
			if err := arc.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		sinks = append(sinks, arc)
		baseLogger.Info("settlement archive enabled", zap.String("db", cfg.MongoDBName))
	}
	if cfg.SettlementWebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.SettlementWebhookURL, cfg.WebhookTimeout))
		baseLogger.Info("settlement webhook enabled")
	}

	store := postgres.New(pool)
	svc := trip.NewService(store, logger.Named(baseLogger, "svc.trip"), sinks...).
		WithPublishTimeout(3*cfg.WebhookTimeout + 5*time.Second)
	srv := api.NewServer(svc, store, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL), api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Location:       location,
		LoginAttempts:  cfg.LoginAttempts,
		LoginWindow:    cfg.LoginWindow,
		Logger:         logger.Named(baseLogger, "http"),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	svc.Wait()
}
