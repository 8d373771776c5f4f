package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("invalid event json: %v", err)
	}
	return ev
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := hub.Publish(TopicReadings, "new_reading", map[string]any{"device_id": "S1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Topic != TopicReadings || ev.Type != "new_reading" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok || data["device_id"] != "S1" {
		t.Fatalf("unexpected payload: %+v", ev.Data)
	}
	if ev.At.IsZero() {
		t.Fatalf("event missing timestamp")
	}
}

func TestSubscribeFiltersTopics(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	sub := `{"action":"subscribe","topics":["` + TopicAlerts + `"]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	// Give the read pump a moment to apply the filter.
	time.Sleep(50 * time.Millisecond)

	if err := hub.Publish(TopicReadings, "new_reading", nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := hub.Publish(TopicAlerts, "alert_digest", nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// The readings event must have been filtered out; the first frame the
	// client sees is the alert.
	ev := readEvent(t, conn)
	if ev.Topic != TopicAlerts || ev.Type != "alert_digest" {
		t.Fatalf("expected the alert event first, got %+v", ev)
	}
}

func TestUnfilteredClientGetsEveryTopic(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := hub.Publish(TopicReadings, "new_reading", nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := hub.Publish(TopicAlerts, "alert_digest", nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	if first.Topic != TopicReadings || second.Topic != TopicAlerts {
		t.Fatalf("expected both topics in order, got %q then %q", first.Topic, second.Topic)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)

	// Publishing into an empty hub is fine.
	if err := hub.Publish(TopicReadings, "new_reading", nil); err != nil {
		t.Fatalf("publish to empty hub failed: %v", err)
	}
}

func TestPublishUnmarshalableData(t *testing.T) {
	hub := NewHub()
	if err := hub.Publish(TopicReadings, "new_reading", func() {}); err == nil {
		t.Fatalf("expected a marshal error")
	}
}
