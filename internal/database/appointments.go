package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

const appointmentColumns = `id, patient_id::text, added_by_user_id::text, start_at, end_at, title`

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	a := &models.Appointment{}
	err := row.Scan(&a.ID, &a.PatientID, &a.AddedByUserID, &a.Start, &a.End, &a.Title)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAppointment inserts a new appointment
func (db *DB) CreateAppointment(ctx context.Context, patientID, nurseID string, start, end time.Time, title string) (*models.Appointment, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO appointments (id, patient_id, added_by_user_id, start_at, end_at, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + appointmentColumns

	a, err := scanAppointment(db.pool.QueryRow(ctx, query, id, patientID, nurseID, start, end, title))
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return a, nil
}

// GetAppointment retrieves one appointment by ID
func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// AppointmentFilter scopes a range listing to one nurse's calendar or to one
// patient. Exactly one of the two fields is set.
type AppointmentFilter struct {
	NurseID   string
	PatientID string
}

// ListAppointmentsInRange returns appointments overlapping [start, end),
// ordered by start time. Overlap means start_at < rangeEnd AND end_at >
// rangeStart, so events straddling the window edges are included.
func (db *DB) ListAppointmentsInRange(ctx context.Context, start, end time.Time, filter AppointmentFilter) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE start_at < $2 AND end_at > $1`
	args := []any{start, end}
	switch {
	case filter.NurseID != "":
		query += ` AND added_by_user_id = $3`
		args = append(args, filter.NurseID)
	case filter.PatientID != "":
		query += ` AND patient_id = $3`
		args = append(args, filter.PatientID)
	}
	query += ` ORDER BY start_at`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// UpdateAppointmentTimes moves an appointment. Start and end are the only
// mutable fields.
func (db *DB) UpdateAppointmentTimes(ctx context.Context, id string, start, end time.Time) error {
	tag, err := db.pool.Exec(ctx, `UPDATE appointments SET start_at = $2, end_at = $3 WHERE id = $1`, id, start, end)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAppointment removes an appointment
func (db *DB) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
