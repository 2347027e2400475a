package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"karyasiddhi-ai/bootstrap"
	"karyasiddhi-ai/config"
	"karyasiddhi-ai/handlers"
	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := bootstrap.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	gens := bootstrap.NewGenerators(cfg.Models, logger)
	infra := bootstrap.Connect(ctx, cfg, logger)
	defer infra.Close()

	if cfg.MQTT.Enabled() {
		telemetry := services.NewTelemetryScorer(cfg.MQTT, gens.Anomalies, infra.Publisher, logger)
		if err := telemetry.Start(ctx); err != nil {
			logger.Warn("mqtt unavailable, telemetry scoring disabled", zap.Error(err))
		} else {
			defer telemetry.Stop()
		}
	}

	router := handlers.NewRouter(handlers.Deps{
		Predictions: gens.Predictions,
		Anomalies:   gens.Anomalies,
		Insights:    gens.Insights,
		Trainer:     gens.Trainer(infra, logger),
		Runs:        infra.Runs,
		Cache:       infra.Cache,
		Auth:        infra.Auth,
		CORS:        cfg.CORS,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr), zap.Bool("auth", infra.Auth != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
