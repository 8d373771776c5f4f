package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/scope"
)

var ErrNotAReadingTopic = errors.New("not a reading topic")

// Bridge funnels device readings arriving over MQTT into the same ingest
// pipeline the HTTP API uses. The broker sits inside the trust perimeter, so
// the owner attribution in the payload is honored; everything else still goes
// through the full validate/classify/persist/broadcast path.
type Bridge struct {
	Svc         *Service
	TopicPrefix string
}

type devicePayload struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Payload
}

func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) {
	deviceID, err := ParseDeviceID(b.TopicPrefix, topic)
	if err != nil {
		if errors.Is(err, ErrNotAReadingTopic) {
			return
		}
		slog.Warn("mqtt ingest topic parse failed", "topic", topic, "error", err)
		return
	}

	if len(payload) == 0 {
		return
	}
	var dp devicePayload
	if err := json.Unmarshal(payload, &dp); err != nil {
		slog.Warn("mqtt ingest invalid json", "topic", topic, "device_id", deviceID)
		return
	}
	if dp.OwnerID == uuid.Nil {
		slog.Warn("mqtt ingest missing owner", "topic", topic, "device_id", deviceID)
		return
	}

	// The topic, not the payload, names the device.
	dp.Payload.DeviceID = deviceID

	caller := scope.Caller{ID: dp.OwnerID, Role: roles.Farmer}
	rec, err := b.Svc.Ingest(ctx, caller, dp.Payload)
	if err != nil {
		slog.Error("mqtt ingest failed", "topic", topic, "device_id", deviceID, "error", err)
		return
	}
	slog.Debug("mqtt reading stored", "device_id", deviceID, "reading_id", rec.ID)
}

func ParseDeviceID(prefix, topic string) (string, error) {
	if prefix == "" {
		prefix = "agrisense/device/reading/"
	}
	if !strings.HasPrefix(topic, prefix) {
		return "", ErrNotAReadingTopic
	}
	id := strings.Trim(strings.TrimPrefix(topic, prefix), "/")
	if id == "" {
		return "", errors.New("empty device id")
	}
	return id, nil
}
