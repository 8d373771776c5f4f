package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"agrisense-backend/internal/analytics"
	"agrisense-backend/internal/classifier"
	"agrisense-backend/internal/config"
	"agrisense-backend/internal/httpapi"
	"agrisense-backend/internal/ingest"
	"agrisense-backend/internal/mqtt"
	"agrisense-backend/internal/realtime"
	"agrisense-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	var db *gorm.DB
	var err error
	if cfg.UsePostgres() {
		db, err = store.OpenPostgres(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.SSLMode)
	} else {
		db, err = store.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	repo, err := store.New(db)
	if err != nil {
		slog.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	hub := realtime.NewHub()

	ing := &ingest.Service{
		Repo:       repo,
		Classifier: classifier.RuleClassifier{},
		Publisher:  hub,
	}
	an := &analytics.Service{Repo: repo}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.TrimSpace(cfg.MQTTBrokerURL) != "" {
		mq, err := mqtt.Connect(cfg.MQTTBrokerURL, "agrisense-backend")
		if err != nil {
			slog.Error("mqtt connect failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()

		bridge := &ingest.Bridge{Svc: ing, TopicPrefix: cfg.MQTTTopicPrefix}
		subTopic := strings.TrimRight(cfg.MQTTTopicPrefix, "/") + "/#"
		if err := mq.Subscribe(subTopic, func(m mqtt.Message) {
			bridge.HandleMessage(ctx, m.Topic(), m.Payload())
		}); err != nil {
			slog.Error("mqtt subscribe failed", "topic", subTopic, "error", err)
			os.Exit(1)
		}
		slog.Info("device ingest subscribed", "topic", subTopic)
	}

	if strings.TrimSpace(cfg.AlertDigestSpec) != "" {
		digest, err := analytics.StartDigest(an, hub, cfg.AlertDigestSpec)
		if err != nil {
			slog.Error("alert digest schedule invalid", "spec", cfg.AlertDigestSpec, "error", err)
			os.Exit(1)
		}
		defer digest.Stop()
		slog.Info("alert digest scheduled", "spec", cfg.AlertDigestSpec)
	}

	mux := http.NewServeMux()
	srv := httpapi.NewServer(repo, ing, an, hub, []byte(cfg.JWTSecret), cfg.TokenTTL)
	srv.Register(mux)

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("agrisense-backend listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	cancel()

	slog.Info("agrisense-backend stopped")
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
