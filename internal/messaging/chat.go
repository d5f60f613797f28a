// Package messaging covers both the nurse-patient chat log and the patient
// voice self-reports with their optional symptom analysis.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/pkg/models"
)

var (
	// ErrEmptyText means the message contained no text after trimming
	ErrEmptyText = errors.New("message text is empty")
)

// Store is the persistence surface the service needs
type Store interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	InsertChatMessage(ctx context.Context, patientID, senderID string, senderRole models.Role, text string) (*models.ChatMessage, error)
	ListChatMessages(ctx context.Context, patientID string, after time.Time, limit int) ([]*models.ChatMessage, error)
	UnreadChatCounts(ctx context.Context, patientIDs []string, senderRole models.Role) (map[string]int, error)
	MarkChatRead(ctx context.Context, patientID string, senderRole models.Role) error
	InsertPatientMessage(ctx context.Context, msg *models.PatientMessage) (*models.PatientMessage, error)
	ListPatientMessages(ctx context.Context, patientID string, limit int) ([]*models.PatientMessage, error)
	GetPatientMessage(ctx context.Context, id string) (*models.PatientMessage, error)
	SetNurseReply(ctx context.Context, messageID, reply string) error
	MarkPatientMessagesRead(ctx context.Context, patientID string) error
}

// Service owns chat and self-report operations
type Service struct {
	store  Store
	ai     ai.Completer
	logger zerolog.Logger
}

// NewService constructs a messaging service
func NewService(store Store, completer ai.Completer, logger zerolog.Logger) *Service {
	return &Service{store: store, ai: completer, logger: logger.With().Str("component", "messaging").Logger()}
}

// resolvePatientID maps an actor onto the chat it may touch. A nurse must own
// the requested patient; a patient always resolves to their own record, the
// requested ID is ignored.
func (s *Service) resolvePatientID(ctx context.Context, actor auth.Actor, requested string) (string, error) {
	if actor.IsNurse() {
		patient, err := s.store.GetPatient(ctx, requested)
		if err != nil {
			return "", err
		}
		if err := auth.CanManagePatient(actor, patient); err != nil {
			return "", err
		}
		return requested, nil
	}
	if err := auth.RequirePatient(actor); err != nil {
		return "", err
	}
	return actor.PatientID, nil
}

// SendChat appends a message to a patient's chat log
func (s *Service) SendChat(ctx context.Context, actor auth.Actor, patientID, text string) (*models.ChatMessage, error) {
	pid, err := s.resolvePatientID(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	return s.store.InsertChatMessage(ctx, pid, actor.UserID, actor.Role, trimmed)
}

// ListChat returns a patient's chat log in chronological order. A non-zero
// after timestamp restricts the result to newer messages for polling.
func (s *Service) ListChat(ctx context.Context, actor auth.Actor, patientID string, after time.Time) ([]*models.ChatMessage, error) {
	pid, err := s.resolvePatientID(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	return s.store.ListChatMessages(ctx, pid, after, 200)
}

// UnreadCounts returns per-patient counts of unread patient-sent messages for
// the nurse's dashboard. Patients with no unread messages are omitted.
func (s *Service) UnreadCounts(ctx context.Context, actor auth.Actor, patientIDs []string) (map[string]int, error) {
	if err := auth.RequireNurse(actor); err != nil {
		return nil, err
	}
	if len(patientIDs) == 0 {
		return map[string]int{}, nil
	}
	return s.store.UnreadChatCounts(ctx, patientIDs, models.RolePatient)
}

// MarkChatRead marks the other side's messages in a chat as read
func (s *Service) MarkChatRead(ctx context.Context, actor auth.Actor, patientID string) error {
	pid, err := s.resolvePatientID(ctx, actor, patientID)
	if err != nil {
		return err
	}
	other := models.RolePatient
	if actor.IsPatient() {
		other = models.RoleNurse
	}
	return s.store.MarkChatRead(ctx, pid, other)
}
