// Package audit keeps an append-only trail of patient-scoped data access in
// an embedded SQLite database. Recording is asynchronous and best-effort: a
// full queue drops the event rather than slow down the request.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/config"
	"github.com/nandhanalahari/preva/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	actor_id TEXT NOT NULL,
	actor_role TEXT NOT NULL,
	action TEXT NOT NULL,
	patient_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	recorded INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_patient ON audit_events(patient_id, recorded);
CREATE INDEX IF NOT EXISTS idx_audit_recorded ON audit_events(recorded);
`

// Logger writes audit events to embedded storage
type Logger struct {
	enabled bool
	db      *sql.DB
	eventCh chan *models.AuditEvent
	stopCh  chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewLogger opens the audit store and starts the background writer. A
// disabled config yields a no-op logger.
func NewLogger(cfg config.AuditConfig, logger zerolog.Logger) (*Logger, error) {
	l := &Logger{
		enabled: cfg.Enabled,
		eventCh: make(chan *models.AuditEvent, 1000),
		stopCh:  make(chan struct{}),
		logger:  logger.With().Str("component", "audit").Logger(),
	}
	if !cfg.Enabled {
		return l, nil
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit data directory: %w", err)
	}
	dbPath := filepath.Join(cfg.DataPath, "audit.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	l.db = db

	l.wg.Add(1)
	go l.processEvents()
	return l, nil
}

func (l *Logger) processEvents() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopCh:
			// drain what is already queued
			for {
				select {
				case event := <-l.eventCh:
					l.write(event)
				default:
					return
				}
			}
		case event := <-l.eventCh:
			l.write(event)
		}
	}
}

func (l *Logger) write(event *models.AuditEvent) {
	_, err := l.db.Exec(
		`INSERT INTO audit_events (id, actor_id, actor_role, action, patient_id, outcome, recorded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.ActorID, event.ActorRole, event.Action,
		event.PatientID, event.Outcome, event.Recorded.UnixNano(),
	)
	if err != nil {
		l.logger.Warn().Err(err).Str("action", event.Action).Msg("failed to persist audit event")
	}
}

// Record queues one audit event. It never blocks and never fails the caller.
func (l *Logger) Record(actorID string, actorRole models.Role, action, patientID, outcome string) {
	if !l.enabled {
		return
	}
	event := &models.AuditEvent{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		ActorRole: actorRole,
		Action:    action,
		PatientID: patientID,
		Outcome:   outcome,
		Recorded:  time.Now().UTC(),
	}
	select {
	case l.eventCh <- event:
	default:
		l.logger.Warn().Str("action", action).Msg("audit queue full, event dropped")
	}
}

// RecentEvents returns the newest events, optionally scoped to one patient
func (l *Logger) RecentEvents(ctx context.Context, patientID string, limit int) ([]*models.AuditEvent, error) {
	if !l.enabled {
		return []*models.AuditEvent{}, nil
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, actor_id, actor_role, action, patient_id, outcome, recorded
		FROM audit_events`
	args := []any{}
	if patientID != "" {
		query += ` WHERE patient_id = ?`
		args = append(args, patientID)
	}
	query += ` ORDER BY recorded DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []*models.AuditEvent{}
	for rows.Next() {
		e := &models.AuditEvent{}
		var recorded int64
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.PatientID, &e.Outcome, &recorded); err != nil {
			return nil, err
		}
		e.Recorded = time.Unix(0, recorded).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close stops the background writer and closes the store
func (l *Logger) Close() error {
	if !l.enabled {
		return nil
	}
	close(l.stopCh)
	l.wg.Wait()
	return l.db.Close()
}
