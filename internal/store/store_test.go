package store

import (
	"path/filepath"
	"testing"
	"time"

	"drowsisense/internal/alert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return s
}

func testEvent(driverID string, at time.Time) alert.Event {
	return alert.Event{
		Kind:        alert.KindDrowsiness,
		Severity:    alert.SeverityHigh,
		Confidence:  0.9,
		Description: "Drowsiness detected!",
		CreatedAt:   at,
		DriverID:    driverID,
	}
}

func TestSaveAndListAlerts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	id, err := s.SaveAlert(testEvent("driver-1", now))
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}
	if id == "" {
		t.Fatal("SaveAlert returned empty ID")
	}

	records, err := s.ListAlerts("driver-1", 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	r := records[0]
	if r.ID != id {
		t.Errorf("ID = %q, want %q", r.ID, id)
	}
	if r.DriverID != "driver-1" {
		t.Errorf("DriverID = %q, want driver-1", r.DriverID)
	}
	if r.Kind != string(alert.KindDrowsiness) {
		t.Errorf("Kind = %q, want %q", r.Kind, alert.KindDrowsiness)
	}
	if r.Severity != string(alert.SeverityHigh) {
		t.Errorf("Severity = %q, want %q", r.Severity, alert.SeverityHigh)
	}
	if r.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", r.Confidence)
	}
	if r.Notified {
		t.Error("new alert must not be marked notified")
	}
}

func TestListAlertsScopedToDriver(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if _, err := s.SaveAlert(testEvent("driver-1", now)); err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}
	if _, err := s.SaveAlert(testEvent("driver-2", now)); err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}

	records, err := s.ListAlerts("driver-1", 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records for driver-1, want 1", len(records))
	}
}

func TestListAlertsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	older, err := s.SaveAlert(testEvent("driver-1", base.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}
	newer, err := s.SaveAlert(testEvent("driver-1", base))
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}

	records, err := s.ListAlerts("driver-1", 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != newer || records[1].ID != older {
		t.Errorf("order = [%s %s], want newest first", records[0].ID, records[1].ID)
	}
}

func TestMarkNotified(t *testing.T) {
	s := newTestStore(t)

	id, err := s.SaveAlert(testEvent("driver-1", time.Now().UTC()))
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}

	if err := s.MarkNotified(id); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}

	records, err := s.ListAlerts("driver-1", 1)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(records) != 1 || !records[0].Notified {
		t.Error("alert not marked notified")
	}
}

func TestCountSince(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	for _, offset := range []time.Duration{-2 * time.Hour, -30 * time.Minute, -time.Minute} {
		if _, err := s.SaveAlert(testEvent("driver-1", base.Add(offset))); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}
	}

	count, err := s.CountSince("driver-1", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
