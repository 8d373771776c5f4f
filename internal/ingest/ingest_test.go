package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/classifier"
	"agrisense-backend/internal/realtime"
	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

func testRepo(t *testing.T) *store.Repo {
	t.Helper()
	dsn := "file:ingest_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return repo
}

type capture struct {
	Topic string
	Type  string
	Data  any
}

type fakePublisher struct {
	events []capture
	err    error
}

func (p *fakePublisher) Publish(topic, eventType string, data any) error {
	p.events = append(p.events, capture{Topic: topic, Type: eventType, Data: data})
	return p.err
}

func f(v float64) *float64 { return &v }

func newService(t *testing.T) (*Service, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := &Service{
		Repo:       testRepo(t),
		Classifier: classifier.RuleClassifier{},
		Publisher:  pub,
	}
	return svc, pub
}

func farmer() scope.Caller {
	return scope.Caller{ID: uuid.New(), Role: roles.Farmer}
}

func TestIngestRequiresDeviceID(t *testing.T) {
	svc, pub := newService(t)

	_, err := svc.Ingest(context.Background(), farmer(), Payload{SucroseLevel: f(15)})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("rejected payload must not be broadcast")
	}
}

func TestIngestStoresClassifiedReading(t *testing.T) {
	svc, pub := newService(t)
	caller := farmer()

	rec, err := svc.Ingest(context.Background(), caller, Payload{
		DeviceID:     "SENSOR-7",
		SucroseLevel: f(19),
		Temperature:  f(35), // -5 penalty
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if rec.OwnerID != caller.ID {
		t.Fatalf("reading must be stamped with the caller id, got %s", rec.OwnerID)
	}
	if rec.MaturityStatus == nil || *rec.MaturityStatus != store.MaturityReady {
		t.Fatalf("expected ready status, got %v", rec.MaturityStatus)
	}
	if rec.MaturityScore == nil || *rec.MaturityScore != 90 {
		t.Fatalf("expected score 90, got %v", rec.MaturityScore)
	}
	if rec.PredictedHarvestDate == nil {
		t.Fatalf("expected a predicted harvest date")
	}

	stored, err := svc.Repo.GetReading(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("stored reading not found: %v", err)
	}
	if *stored.MaturityScore != 90 {
		t.Fatalf("classification not persisted: %+v", stored)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Topic != realtime.TopicReadings || ev.Type != "new_reading" {
		t.Fatalf("unexpected event envelope: %+v", ev)
	}
	re, ok := ev.Data.(ReadingEvent)
	if !ok {
		t.Fatalf("unexpected event payload type %T", ev.Data)
	}
	if re.ID != rec.ID || re.DeviceID != "SENSOR-7" || re.MaturityStatus != store.MaturityReady {
		t.Fatalf("unexpected event: %+v", re)
	}
}

func TestIngestBroadcastFailureIsNonFatal(t *testing.T) {
	svc, pub := newService(t)
	pub.err = errors.New("hub down")

	rec, err := svc.Ingest(context.Background(), farmer(), Payload{DeviceID: "SENSOR-1", SucroseLevel: f(12)})
	if err != nil {
		t.Fatalf("broadcast failure must not fail ingestion: %v", err)
	}
	if _, err := svc.Repo.GetReading(context.Background(), rec.ID); err != nil {
		t.Fatalf("reading must still be stored: %v", err)
	}
}

func TestIngestWithoutPublisher(t *testing.T) {
	svc, _ := newService(t)
	svc.Publisher = nil

	if _, err := svc.Ingest(context.Background(), farmer(), Payload{DeviceID: "SENSOR-1"}); err != nil {
		t.Fatalf("ingest without a publisher failed: %v", err)
	}
}

func TestIngestFieldOwnership(t *testing.T) {
	svc, _ := newService(t)
	caller := farmer()
	stranger := uuid.New()

	mine := &store.Field{OwnerID: caller.ID, Name: "Mine"}
	theirs := &store.Field{OwnerID: stranger, Name: "Theirs"}
	for _, fld := range []*store.Field{mine, theirs} {
		if err := svc.Repo.CreateField(context.Background(), fld); err != nil {
			t.Fatalf("seed field failed: %v", err)
		}
	}

	rec, err := svc.Ingest(context.Background(), caller, Payload{DeviceID: "S1", FieldID: &mine.ID})
	if err != nil {
		t.Fatalf("ingest against own field failed: %v", err)
	}
	if rec.FieldID == nil || *rec.FieldID != mine.ID {
		t.Fatalf("field reference lost: %+v", rec)
	}

	_, err = svc.Ingest(context.Background(), caller, Payload{DeviceID: "S1", FieldID: &theirs.ID})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error for foreign field, got %v", err)
	}

	// Admins are owner-stamped too, so the same rule applies to them.
	admin := scope.Caller{ID: uuid.New(), Role: roles.Admin}
	_, err = svc.Ingest(context.Background(), admin, Payload{DeviceID: "S1", FieldID: &theirs.ID})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error for admin too, got %v", err)
	}

	missing := uuid.New()
	_, err = svc.Ingest(context.Background(), caller, Payload{DeviceID: "S1", FieldID: &missing})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}
}

func TestParseDeviceID(t *testing.T) {
	cases := []struct {
		topic  string
		want   string
		fails  bool
		notOur bool
	}{
		{topic: "agrisense/device/reading/SENSOR-7", want: "SENSOR-7"},
		{topic: "agrisense/device/reading/SENSOR-7/", want: "SENSOR-7"},
		{topic: "agrisense/device/reading/", fails: true},
		{topic: "home/livingroom/temp", fails: true, notOur: true},
	}
	for _, tc := range cases {
		got, err := ParseDeviceID("", tc.topic)
		if tc.fails {
			if err == nil {
				t.Fatalf("topic %q: expected error", tc.topic)
			}
			if tc.notOur != errors.Is(err, ErrNotAReadingTopic) {
				t.Fatalf("topic %q: wrong error %v", tc.topic, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("topic %q: got %q, %v", tc.topic, got, err)
		}
	}
}

func TestBridgeStoresReading(t *testing.T) {
	svc, pub := newService(t)
	b := &Bridge{Svc: svc}
	owner := uuid.New()

	msg := `{"owner_id":"` + owner.String() + `","device_id":"spoofed","sucrose_level":16.2}`
	b.HandleMessage(context.Background(), "agrisense/device/reading/SENSOR-3", []byte(msg))

	sc := scope.For(scope.Caller{ID: owner, Role: roles.Farmer})
	rows, err := svc.Repo.LatestReadings(context.Background(), sc.Rows, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one stored reading, got %d", len(rows))
	}
	rec := rows[0]
	if rec.DeviceID != "SENSOR-3" {
		t.Fatalf("topic must name the device, got %q", rec.DeviceID)
	}
	if rec.OwnerID != owner {
		t.Fatalf("owner attribution lost: %s", rec.OwnerID)
	}
	if rec.MaturityStatus == nil || *rec.MaturityStatus != store.MaturityMaturing {
		t.Fatalf("bridge must classify like the HTTP path, got %v", rec.MaturityStatus)
	}
	if len(pub.events) != 1 {
		t.Fatalf("bridge ingests must broadcast, got %d events", len(pub.events))
	}
}

func TestBridgeDropsBadMessages(t *testing.T) {
	svc, pub := newService(t)
	b := &Bridge{Svc: svc}

	b.HandleMessage(context.Background(), "agrisense/device/reading/S1", nil)
	b.HandleMessage(context.Background(), "agrisense/device/reading/S1", []byte("not json"))
	b.HandleMessage(context.Background(), "agrisense/device/reading/S1", []byte(`{"sucrose_level":12}`)) // missing owner
	b.HandleMessage(context.Background(), "unrelated/topic", []byte(`{"owner_id":"`+uuid.NewString()+`"}`))

	admin := scope.For(scope.Caller{ID: uuid.New(), Role: roles.Admin})
	n, err := svc.Repo.CountReadings(context.Background(), admin.Rows, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no stored readings, got %d", n)
	}
	if len(pub.events) != 0 {
		t.Fatalf("dropped messages must not broadcast")
	}
}
