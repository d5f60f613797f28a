package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

const userColumns = `id, COALESCE(email, ''), COALESCE(username, ''), password_hash, role, name,
       phone, address, emergency_contact,
       COALESCE(patient_id::text, ''), COALESCE(added_by_user_id::text, ''), created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	var phone, address, emergency string
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Name,
		&phone, &address, &emergency,
		&u.PatientID, &u.AddedByUserID, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != "" || address != "" || emergency != "" {
		u.ContactInfo = &models.ContactInfo{Phone: phone, Address: address, EmergencyContact: emergency}
	}
	return u, nil
}

// CreateNurseUser creates a nurse credential keyed by email
func (db *DB) CreateNurseUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	email = strings.ToLower(strings.TrimSpace(email))

	query := `
		INSERT INTO users (id, email, password_hash, role, name, created_at)
		VALUES ($1, $2, $3, 'nurse', $4, $5)
		RETURNING ` + userColumns

	user, err := scanUser(db.pool.QueryRow(ctx, query, id, email, passwordHash, strings.TrimSpace(name), now))
	if err != nil {
		if isDuplicateError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create nurse user: %w", err)
	}
	return user, nil
}

// CreatePatientUser creates a patient credential keyed by username and linked
// to exactly one patient record
func (db *DB) CreatePatientUser(ctx context.Context, username, passwordHash, patientID, addedByUserID string) (*models.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	username = strings.ToLower(strings.TrimSpace(username))

	query := `
		INSERT INTO users (id, username, password_hash, role, patient_id, added_by_user_id, created_at)
		VALUES ($1, $2, $3, 'patient', $4, $5, $6)
		RETURNING ` + userColumns

	user, err := scanUser(db.pool.QueryRow(ctx, query, id, username, passwordHash, patientID, addedByUserID, now))
	if err != nil {
		if isDuplicateError(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create patient user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email (nurse login path)
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(db.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username (patient login path)
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(db.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByPatientID retrieves the credential linked to a patient record
func (db *DB) GetUserByPatientID(ctx context.Context, patientID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE patient_id = $1`
	user, err := scanUser(db.pool.QueryRow(ctx, query, patientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient user: %w", err)
	}
	return user, nil
}

// UpdateContactInfo replaces a user's contact details
func (db *DB) UpdateContactInfo(ctx context.Context, userID string, info models.ContactInfo) error {
	query := `UPDATE users SET phone = $2, address = $3, emergency_contact = $4 WHERE id = $1`
	tag, err := db.pool.Exec(ctx, query, userID, info.Phone, info.Address, info.EmergencyContact)
	if err != nil {
		return fmt.Errorf("failed to update contact info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
