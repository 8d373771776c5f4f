package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type Postgres struct {
	User     string
	Password string
	DBName   string
	Host     string
	Port     string
	SSLMode  string
}

type Config struct {
	Port     string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	SQLitePath string
	Postgres   Postgres

	MQTTBrokerURL   string
	MQTTTopicPrefix string

	AlertDigestSpec string
}

// Load reads configuration from the environment with sane development
// defaults. When POSTGRES_HOST is unset the service runs on a local sqlite
// file.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "agrisense-dev-secret")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SQLITE_PATH", "agrisense.db")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "agrisense")
	v.SetDefault("POSTGRES_HOST", "")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("MQTT_BROKER_URL", "")
	v.SetDefault("MQTT_TOPIC_PREFIX", "agrisense/device/reading/")
	v.SetDefault("ALERT_DIGEST_SPEC", "@every 15m")

	ttl, err := time.ParseDuration(v.GetString("TOKEN_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour
	}

	cfg := Config{
		Port:       v.GetString("PORT"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		JWTSecret:  v.GetString("JWT_SECRET"),
		TokenTTL:   ttl,
		SQLitePath: v.GetString("SQLITE_PATH"),
		Postgres: Postgres{
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		MQTTBrokerURL:   v.GetString("MQTT_BROKER_URL"),
		MQTTTopicPrefix: v.GetString("MQTT_TOPIC_PREFIX"),
		AlertDigestSpec: v.GetString("ALERT_DIGEST_SPEC"),
	}

	slog.Info("config loaded", "port", cfg.Port, "postgres_host", cfg.Postgres.Host, "mqtt", cfg.MQTTBrokerURL)
	return cfg
}

// UsePostgres reports whether a postgres host was configured.
func (c Config) UsePostgres() bool { return c.Postgres.Host != "" }
