package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Models    ModelsConfig    `yaml:"models"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type ModelsConfig struct {
	Path string `yaml:"path"`
	// Seed drives synthetic training data and insight confidences.
	// Zero means seed from the clock.
	Seed int64 `yaml:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

func (j JWTConfig) Enabled() bool { return j.Secret != "" }

type MQTTConfig struct {
	URL   string `yaml:"url"`
	Topic string `yaml:"topic"`
}

func (m MQTTConfig) Enabled() bool { return m.URL != "" }

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type SchedulerConfig struct {
	TrainIntervalSec int `yaml:"train_interval_sec"`
	// MetricsAddr is where the trainer exposes /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000},
		Models: ModelsConfig{Path: "./models"},
		Log:    LogConfig{Level: "info", Format: "json"},
		CORS:   CORSConfig{AllowedOrigins: "*"},
		Redis:  RedisConfig{Port: 6379},
		Database: DatabaseConfig{
			Port:    5432,
			User:    "karyasiddhi",
			Name:    "karyasiddhi",
			SSLMode: "disable",
		},
		JWT:   JWTConfig{ExpiryHours: 24},
		MQTT:  MQTTConfig{Topic: "karyasiddhi/telemetry/+"},
		Kafka: KafkaConfig{Topic: "karyasiddhi-events"},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE (default config.yaml) and environment overrides, in
// that order.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	path := getEnv("CONFIG_FILE", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.Server.Port, err = getIntEnv("PORT", cfg.Server.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	cfg.Models.Path = getEnv("MODEL_PATH", cfg.Models.Path)
	seed, err := getIntEnv("RANDOM_SEED", int(cfg.Models.Seed))
	if err != nil {
		return fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}
	cfg.Models.Seed = int64(seed)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)

	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	if cfg.Redis.Port, err = getIntEnv("REDIS_PORT", cfg.Redis.Port); err != nil {
		return fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if cfg.Redis.DB, err = getIntEnv("REDIS_DB", cfg.Redis.DB); err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	if cfg.Database.Port, err = getIntEnv("DB_PORT", cfg.Database.Port); err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	if cfg.JWT.ExpiryHours, err = getIntEnv("JWT_EXPIRY_HOURS", cfg.JWT.ExpiryHours); err != nil {
		return fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	cfg.MQTT.URL = getEnv("MQTT_URL", cfg.MQTT.URL)
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	if cfg.Scheduler.TrainIntervalSec, err = getIntEnv("TRAIN_INTERVAL_SEC", cfg.Scheduler.TrainIntervalSec); err != nil {
		return fmt.Errorf("invalid TRAIN_INTERVAL_SEC: %w", err)
	}
	cfg.Scheduler.MetricsAddr = getEnv("METRICS_ADDR", cfg.Scheduler.MetricsAddr)

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
