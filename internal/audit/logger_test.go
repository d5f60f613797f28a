package audit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/config"
	"github.com/nandhanalahari/preva/pkg/models"
)

func newTestLogger(t *testing.T, enabled bool) *Logger {
	t.Helper()
	logger, err := NewLogger(config.AuditConfig{Enabled: enabled, DataPath: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func waitForEvents(t *testing.T, l *Logger, patientID string, want int) []*models.AuditEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		events, err := l.RecentEvents(context.Background(), patientID, 0)
		if err != nil {
			t.Fatalf("recent events: %v", err)
		}
		if len(events) >= want {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d events, want %d", len(events), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecordAndQuery(t *testing.T) {
	logger := newTestLogger(t, true)

	logger.Record("nurse-1", models.RoleNurse, "patient.read", "p1", "ok")
	logger.Record("nurse-1", models.RoleNurse, "visit.create", "p1", "ok")
	logger.Record("user-p2", models.RolePatient, "report.submit", "p2", "ok")

	events := waitForEvents(t, logger, "p1", 2)
	if len(events) != 2 {
		t.Fatalf("got %d events for p1, want 2", len(events))
	}
	for _, e := range events {
		if e.PatientID != "p1" {
			t.Errorf("event for %q leaked into p1 scope", e.PatientID)
		}
		if e.ID == "" || e.Recorded.IsZero() {
			t.Errorf("event missing identity: %+v", e)
		}
	}

	all := waitForEvents(t, logger, "", 3)
	if len(all) != 3 {
		t.Errorf("got %d events overall, want 3", len(all))
	}
	// newest first
	for i := 1; i < len(all); i++ {
		if all[i].Recorded.After(all[i-1].Recorded) {
			t.Error("events not sorted newest first")
		}
	}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	logger := newTestLogger(t, false)

	logger.Record("nurse-1", models.RoleNurse, "patient.read", "p1", "ok")

	events, err := logger.RecentEvents(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("disabled logger stored %d events", len(events))
	}
}

func TestCloseFlushesQueue(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(config.AuditConfig{Enabled: true, DataPath: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	for i := 0; i < 20; i++ {
		logger.Record("nurse-1", models.RoleNurse, "patient.read", "p1", "ok")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewLogger(config.AuditConfig{Enabled: true, DataPath: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	events, err := reopened.RecentEvents(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 20 {
		t.Errorf("got %d events after close, want 20", len(events))
	}
}
