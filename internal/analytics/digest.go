package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"agrisense-backend/internal/realtime"
	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/scope"
)

// Publisher matches the hub's publish surface; the digest only needs to emit.
type Publisher interface {
	Publish(topic, eventType string, data any) error
}

type digestEvent struct {
	Alerts       int       `json:"alerts"`
	HighPriority int       `json:"high_priority"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// StartDigest schedules a recurring admin-scope alert recomputation and
// pushes a summary to live subscribers. The returned cron must be stopped by
// the caller on shutdown.
func StartDigest(svc *Service, pub Publisher, schedule string) (*cron.Cron, error) {
	c := cron.New()
	adminScope := scope.For(scope.Caller{Role: roles.Admin})

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		alerts, err := svc.Alerts(ctx, adminScope)
		if err != nil {
			slog.Error("alert digest failed", "error", err)
			return
		}
		high := 0
		for _, a := range alerts {
			if a.Priority == "high" {
				high++
			}
		}
		ev := digestEvent{Alerts: len(alerts), HighPriority: high, GeneratedAt: time.Now().UTC()}
		if err := pub.Publish(realtime.TopicAlerts, "alert_digest", ev); err != nil {
			slog.Warn("alert digest broadcast dropped", "error", err)
			return
		}
		slog.Debug("alert digest published", "alerts", ev.Alerts, "high_priority", ev.HighPriority)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
