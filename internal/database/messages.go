package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

// ErrAlreadyReplied is returned when a nurse reply already exists; replies
// are write-once.
var ErrAlreadyReplied = errors.New("message already has a reply")

// InsertChatMessage appends one message to a patient's chat log
func (db *DB) InsertChatMessage(ctx context.Context, patientID, senderID string, senderRole models.Role, text string) (*models.ChatMessage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	m := &models.ChatMessage{}
	err := db.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, patient_id, sender_id, sender_role, text, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING id, patient_id::text, sender_id::text, sender_role, text, read, created_at`,
		id, patientID, senderID, senderRole, text, now,
	).Scan(&m.ID, &m.PatientID, &m.SenderID, &m.SenderRole, &m.Text, &m.Read, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return m, nil
}

// ListChatMessages returns a patient's chat log in chronological order.
// When after is non-zero only messages created strictly later are returned,
// which lets pollers fetch incrementally instead of re-reading history.
func (db *DB) ListChatMessages(ctx context.Context, patientID string, after time.Time, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT id, patient_id::text, sender_id::text, sender_role, text, read, created_at
		FROM chat_messages WHERE patient_id = $1`
	args := []any{patientID}
	if !after.IsZero() {
		query += ` AND created_at > $2`
		args = append(args, after)
	}
	query += fmt.Sprintf(` ORDER BY created_at LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.PatientID, &m.SenderID, &m.SenderRole, &m.Text, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UnreadChatCounts returns, per patient, how many unread messages were
// authored by the given role. Patients with zero unread messages are absent
// from the result, not present with a zero.
func (db *DB) UnreadChatCounts(ctx context.Context, patientIDs []string, senderRole models.Role) (map[string]int, error) {
	counts := make(map[string]int)
	if len(patientIDs) == 0 {
		return counts, nil
	}
	rows, err := db.pool.Query(ctx, `
		SELECT patient_id::text, COUNT(*)
		FROM chat_messages
		WHERE patient_id = ANY($1) AND sender_role = $2 AND read = false
		GROUP BY patient_id`,
		patientIDs, senderRole,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// MarkChatRead flips all unread messages from the given sender role to read
func (db *DB) MarkChatRead(ctx context.Context, patientID string, senderRole models.Role) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE chat_messages SET read = true
		WHERE patient_id = $1 AND sender_role = $2 AND read = false`,
		patientID, senderRole,
	)
	if err != nil {
		return fmt.Errorf("failed to mark chat read: %w", err)
	}
	return nil
}

const patientMessageColumns = `id, patient_id::text, type, transcript, symptoms, ai_summary,
       nurse_reply, nurse_reply_at, read, created_at`

func scanPatientMessage(row pgx.Row) (*models.PatientMessage, error) {
	m := &models.PatientMessage{}
	var symptoms []byte
	err := row.Scan(
		&m.ID, &m.PatientID, &m.Type, &m.Transcript, &symptoms, &m.AISummary,
		&m.NurseReply, &m.NurseReplyAt, &m.Read, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(symptoms, &m.Symptoms); err != nil {
		return nil, fmt.Errorf("bad symptoms payload for message %s: %w", m.ID, err)
	}
	return m, nil
}

// InsertPatientMessage stores a voice self-report
func (db *DB) InsertPatientMessage(ctx context.Context, msg *models.PatientMessage) (*models.PatientMessage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	symptoms, err := json.Marshal(emptyIfNilStrings(msg.Symptoms))
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO patient_messages (id, patient_id, type, transcript, symptoms, ai_summary, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		RETURNING ` + patientMessageColumns

	stored, err := scanPatientMessage(db.pool.QueryRow(ctx, query,
		id, msg.PatientID, msg.Type, msg.Transcript, symptoms, msg.AISummary, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert patient message: %w", err)
	}
	return stored, nil
}

// ListPatientMessages returns a patient's self-reports, newest first
func (db *DB) ListPatientMessages(ctx context.Context, patientID string, limit int) ([]*models.PatientMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+patientMessageColumns+` FROM patient_messages
		 WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.PatientMessage
	for rows.Next() {
		m, err := scanPatientMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetPatientMessage retrieves one self-report by ID
func (db *DB) GetPatientMessage(ctx context.Context, id string) (*models.PatientMessage, error) {
	m, err := scanPatientMessage(db.pool.QueryRow(ctx,
		`SELECT `+patientMessageColumns+` FROM patient_messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient message: %w", err)
	}
	return m, nil
}

// SetNurseReply attaches the nurse's reply to a self-report. The reply is
// write-once: a second attempt fails with ErrAlreadyReplied.
func (db *DB) SetNurseReply(ctx context.Context, messageID, reply string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE patient_messages SET nurse_reply = $2, nurse_reply_at = $3
		WHERE id = $1 AND nurse_reply = ''`,
		messageID, reply, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set nurse reply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := db.GetPatientMessage(ctx, messageID); err != nil {
			return err
		}
		return ErrAlreadyReplied
	}
	return nil
}

// MarkPatientMessagesRead flips all of a patient's unread self-reports to read
func (db *DB) MarkPatientMessagesRead(ctx context.Context, patientID string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE patient_messages SET read = true WHERE patient_id = $1 AND read = false`,
		patientID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}
