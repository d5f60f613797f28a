package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/pkg/models"
)

const reportAnalysisSystem = "Extract symptoms and summarize the patient's self-reported condition. Use only what the patient says. Do not infer or add anything."

const analysisUnavailable = "(AI analysis unavailable)"

func reportAnalysisPrompt(transcript string) string {
	return fmt.Sprintf(`A patient recorded the following voice message about their condition. Extract the symptoms they mention and provide a brief clinical summary. Use ONLY information stated in the message. Return a single JSON object with exactly two keys: "symptoms" (array of strings) and "summary" (string).

Patient message:
%s`, transcript)
}

// SubmitReport stores a patient voice self-report. In analyzed mode the
// transcript additionally goes through symptom extraction; analysis failure
// degrades the message, it never blocks storage.
func (s *Service) SubmitReport(ctx context.Context, actor auth.Actor, transcript string, msgType models.PatientMessageType) (*models.PatientMessage, error) {
	if err := auth.RequirePatient(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(transcript)
	if text == "" {
		return nil, ErrEmptyText
	}

	msg := &models.PatientMessage{
		PatientID:  actor.PatientID,
		Type:       msgType,
		Transcript: text,
	}
	if msgType == models.MessageAnalyzed {
		symptoms, summary := s.analyzeReport(ctx, text)
		msg.Symptoms = symptoms
		msg.AISummary = summary
	}
	return s.store.InsertPatientMessage(ctx, msg)
}

func (s *Service) analyzeReport(ctx context.Context, transcript string) ([]string, string) {
	raw, err := s.ai.Complete(ctx, ai.Request{
		System:   reportAnalysisSystem,
		Prompt:   reportAnalysisPrompt(transcript),
		JSONOnly: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("self-report analysis failed")
		return []string{}, analysisUnavailable
	}

	var parsed struct {
		Symptoms []string `json:"symptoms"`
		Summary  string   `json:"summary"`
	}
	if err := ai.ParseJSON(raw, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("unparseable self-report analysis")
		return []string{}, analysisUnavailable
	}
	if parsed.Symptoms == nil {
		parsed.Symptoms = []string{}
	}
	return parsed.Symptoms, parsed.Summary
}

// ListReports returns a patient's self-reports, newest first
func (s *Service) ListReports(ctx context.Context, actor auth.Actor, patientID string) ([]*models.PatientMessage, error) {
	pid, err := s.resolvePatientID(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	return s.store.ListPatientMessages(ctx, pid, 50)
}

// Reply records the nurse's write-once reply on a self-report and returns
// the updated message.
func (s *Service) Reply(ctx context.Context, actor auth.Actor, messageID, reply string) (*models.PatientMessage, error) {
	if err := auth.RequireNurse(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(reply)
	if text == "" {
		return nil, ErrEmptyText
	}

	msg, err := s.store.GetPatientMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	patient, err := s.store.GetPatient(ctx, msg.PatientID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		return nil, err
	}
	if err := s.store.SetNurseReply(ctx, messageID, text); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	msg.NurseReply = text
	msg.NurseReplyAt = &now
	return msg, nil
}

// MarkReportsRead marks all of a patient's self-reports as read by the nurse
func (s *Service) MarkReportsRead(ctx context.Context, actor auth.Actor, patientID string) error {
	if err := auth.RequireNurse(actor); err != nil {
		return err
	}
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		return err
	}
	return s.store.MarkPatientMessagesRead(ctx, patientID)
}
