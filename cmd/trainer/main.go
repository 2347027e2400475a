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
	"karyasiddhi-ai/models"
	"karyasiddhi-ai/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type trainer interface {
	Train(ctx context.Context) (models.TrainingRun, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// ISSUE_ADMIN_TOKEN=<user id> prints a token for POST /train-models and exits.
	if userID := os.Getenv("ISSUE_ADMIN_TOKEN"); userID != "" {
		token, err := issueAdminToken(cfg.JWT, userID)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger, err := bootstrap.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	gens := bootstrap.NewGenerators(cfg.Models, logger)
	infra := bootstrap.Connect(ctx, cfg, logger)
	defer infra.Close()

	if cfg.Scheduler.MetricsAddr != "" {
		go serveHTTP(cfg.Scheduler.MetricsAddr, logger)
	}

	interval := time.Duration(cfg.Scheduler.TrainIntervalSec) * time.Second
	logger.Info("trainer running",
		zap.Duration("interval", interval), zap.String("model_path", cfg.Models.Path))

	failed := runLoop(ctx, gens.Trainer(infra, logger), interval, logger)
	if interval <= 0 && failed > 0 {
		infra.Close()
		logger.Sync()
		os.Exit(1)
	}
}

// runLoop runs one cycle immediately and then one per interval until ctx is
// done. A non-positive interval means a single cycle. It returns the number
// of failed cycles.
func runLoop(ctx context.Context, t trainer, interval time.Duration, logger *zap.Logger) int {
	failed := 0
	if !runCycle(ctx, t, logger) {
		failed++
	}
	if interval <= 0 {
		return failed
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !runCycle(ctx, t, logger) {
				failed++
			}
		case <-ctx.Done():
			logger.Info("trainer shutting down")
			return failed
		}
	}
}

func runCycle(ctx context.Context, t trainer, logger *zap.Logger) bool {
	run, err := t.Train(ctx)
	if err != nil {
		logger.Error("training cycle failed", zap.String("run_id", run.ID), zap.Error(err))
		return false
	}
	logger.Info("training cycle completed",
		zap.String("run_id", run.ID), zap.Int64("duration_ms", run.DurationMS), zap.String("artifacts", run.Artifacts))
	return true
}

func issueAdminToken(cfg config.JWTConfig, userID string) (string, error) {
	if !cfg.Enabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	return services.NewAuthService(cfg).GenerateToken(userID, services.RoleAdmin)
}

func serveHTTP(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
