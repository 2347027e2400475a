// Package bootstrap assembles the generators and optional infrastructure
// shared by the api and trainer binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"karyasiddhi-ai/config"
	"karyasiddhi-ai/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const redisAttempts = 3

// NewLogger builds a production logger for "json" and a development one for
// "console".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type Generators struct {
	Predictions *services.PredictionGenerator
	Anomalies   *services.AnomalyGenerator
	Insights    *services.InsightGenerator
}

func NewGenerators(cfg config.ModelsConfig, logger *zap.Logger) Generators {
	opts := services.Options{ModelPath: cfg.Path, Seed: cfg.Seed, Logger: logger}
	g := Generators{
		Predictions: services.NewPredictionGenerator(opts),
		Anomalies:   services.NewAnomalyGenerator(opts),
		Insights:    services.NewInsightGenerator(opts),
	}

	logger.Info("models ready",
		zap.String("prediction", string(g.Predictions.LoadState().Status)),
		zap.String("anomaly", string(g.Anomalies.LoadState().Status)))
	return g
}

// Trainer chains the prediction and anomaly routines.
func (g Generators) Trainer(infra *Infra, logger *zap.Logger) *services.Trainer {
	return services.NewTrainer(infra.Runs, infra.Publisher, logger, g.Predictions, g.Anomalies)
}

// Infra holds the optional backends. Every field is usable when its backend
// is disabled or unreachable.
type Infra struct {
	Cache     *services.CacheService
	Publisher services.Publisher
	Runs      services.TrainingRunStore
	Auth      *services.AuthService

	closers []func() error
}

// Connect never fails. Backends that are not configured are skipped and
// backends that cannot be reached are logged and skipped.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Infra {
	infra := &Infra{Cache: &services.CacheService{}, Runs: services.NopRunStore{}}
	var publishers services.MultiPublisher

	if cfg.Redis.Enabled() {
		cache, err := services.NewCacheService(ctx, cfg.Redis, redisAttempts, logger)
		if err != nil {
			logger.Warn("redis unavailable, events will not be streamed", zap.Error(err))
		} else {
			logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr()))
			infra.Cache = cache
			infra.closers = append(infra.closers, cache.Close)
			publishers = append(publishers, cache)
		}
	}

	if cfg.Kafka.Enabled() {
		kafka := services.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		infra.closers = append(infra.closers, kafka.Close)
		publishers = append(publishers, kafka)
		logger.Info("kafka publisher configured",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	infra.Publisher = publishers

	if cfg.Database.Enabled() {
		store, closeDB, err := openRunStore(ctx, cfg.Database)
		if err != nil {
			logger.Warn("database unavailable, training runs will not be recorded", zap.Error(err))
		} else {
			logger.Info("database connected", zap.String("host", cfg.Database.Host))
			infra.Runs = store
			infra.closers = append(infra.closers, closeDB)
		}
	}

	if cfg.JWT.Enabled() {
		infra.Auth = services.NewAuthService(cfg.JWT)
	}

	return infra
}

func openRunStore(ctx context.Context, cfg config.DatabaseConfig) (*services.GormRunStore, func() error, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := services.NewGormRunStore(db)
	if err := store.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("migrate training runs: %w", err)
	}
	return store, sqlDB.Close, nil
}

// Close releases backends in reverse order of connection.
func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		_ = i.closers[n]()
	}
}
