package models

import "time"

// Role identifies the kind of credential behind a session
type Role string

const (
	RoleNurse   Role = "nurse"
	RolePatient Role = "patient"
)

// RiskTrend is the direction of the risk score between consecutive visits
type RiskTrend string

const (
	TrendUp     RiskTrend = "up"
	TrendDown   RiskTrend = "down"
	TrendStable RiskTrend = "stable"
)

// PatientStatus is the care status of a patient record
type PatientStatus string

const (
	StatusActive     PatientStatus = "active"
	StatusDischarged PatientStatus = "discharged"
)

// ContactInfo holds optional contact details for a user
type ContactInfo struct {
	Phone            string `json:"phone,omitempty"`
	Address          string `json:"address,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
}

// User is a login credential. Nurses sign in with an email, patients with a
// username handed out by their nurse. A patient user always references
// exactly one patient record.
type User struct {
	ID            string       `json:"id"`
	Email         string       `json:"email,omitempty"`
	Username      string       `json:"username,omitempty"`
	PasswordHash  string       `json:"-"`
	Role          Role         `json:"role"`
	Name          string       `json:"name,omitempty"`
	ContactInfo   *ContactInfo `json:"contactInfo,omitempty"`
	PatientID     string       `json:"patientId,omitempty"`
	AddedByUserID string       `json:"addedByUserId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Medication is one entry on a patient's medication list
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// BPReading is a single blood pressure measurement
type BPReading struct {
	Date      string `json:"date"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
}

// Patient is the clinical record for one person under home care.
// Risk fields are derived state maintained by the visit ingestion workflow;
// bpHistory is append-only.
type Patient struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Age                   int           `json:"age"`
	Conditions            []string      `json:"conditions"`
	Medications           []Medication  `json:"medications"`
	PriorHospitalizations int           `json:"priorHospitalizations"`
	RiskScore             int           `json:"riskScore"`
	RiskTrend             RiskTrend     `json:"riskTrend"`
	LastVisitDate         string        `json:"lastVisitDate,omitempty"`
	Status                PatientStatus `json:"status"`
	ImageInitials         string        `json:"imageInitials"`
	BPHistory             []BPReading   `json:"bpHistory"`
	LastVoiceSummary      string        `json:"lastVoiceSummary,omitempty"`
	LastVoiceSummaryAt    string        `json:"lastVoiceSummaryAt,omitempty"`
	UserID                string        `json:"userId,omitempty"`
	AddedByUserID         string        `json:"addedByUserId"`
	CreatedAt             time.Time     `json:"createdAt"`
}

// RiskFactorSeverity grades a risk factor found during analysis
type RiskFactorSeverity string

const (
	SeverityCritical RiskFactorSeverity = "critical"
	SeverityHigh     RiskFactorSeverity = "high"
)

// RiskFactor is one finding contributing to a patient's risk score
type RiskFactor struct {
	Factor   string             `json:"factor"`
	Severity RiskFactorSeverity `json:"severity"`
	Detail   string             `json:"detail"`
}

// SOAPNote is the Subjective/Objective/Assessment/Plan documentation for a visit
type SOAPNote struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// Visit is the immutable record of one clinical encounter. Created exactly
// once per successful analysis and never mutated afterwards.
type Visit struct {
	ID              string       `json:"id"`
	PatientID       string       `json:"patientId"`
	NurseID         string       `json:"nurseId"`
	Date            string       `json:"date"`
	ClinicalNote    string       `json:"clinicalNote"`
	RiskScoreBefore int          `json:"riskScoreBefore"`
	RiskScoreAfter  int          `json:"riskScoreAfter"`
	RiskFactors     []RiskFactor `json:"riskFactors"`
	SOAPNote        SOAPNote     `json:"soapNote"`
	VoiceSummary    string       `json:"voiceSummary"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Appointment is a scheduled visit on the calendar. PatientName is a read-side
// enrichment, never stored.
type Appointment struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patientId"`
	PatientName   string    `json:"patientName,omitempty"`
	AddedByUserID string    `json:"addedByUserId"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Title         string    `json:"title"`
}

// ChatMessage is one entry in the nurse-patient chat log for a patient.
// Append-only; read is the only mutable field.
type ChatMessage struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patientId"`
	SenderID   string    `json:"senderId"`
	SenderRole Role      `json:"senderRole"`
	Text       string    `json:"text"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PatientMessageType distinguishes verbatim transcripts from analyzed ones
type PatientMessageType string

const (
	MessageRaw      PatientMessageType = "raw"
	MessageAnalyzed PatientMessageType = "analyzed"
)

// PatientMessage is a voice self-report submitted by a patient. Append-only
// except for the write-once nurse reply and the read flag.
type PatientMessage struct {
	ID           string             `json:"id"`
	PatientID    string             `json:"patientId"`
	Type         PatientMessageType `json:"type"`
	Transcript   string             `json:"transcript"`
	Symptoms     []string           `json:"symptoms,omitempty"`
	AISummary    string             `json:"aiSummary,omitempty"`
	NurseReply   string             `json:"nurseReply,omitempty"`
	NurseReplyAt *time.Time         `json:"nurseReplyAt,omitempty"`
	Read         bool               `json:"read"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// VisitAnalysis is the structured result of running a clinical note through
// the generative model. It is validated and clamped before anything is
// persisted; see the visits package.
type VisitAnalysis struct {
	NewRiskScore int          `json:"newRiskScore"`
	RiskFactors  []RiskFactor `json:"riskFactors"`
	SOAPNote     SOAPNote     `json:"soapNote"`
	VoiceSummary string       `json:"voiceSummary"`
}

// AuditEvent records one access to patient-scoped data
type AuditEvent struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	ActorRole Role      `json:"actorRole"`
	Action    string    `json:"action"`
	PatientID string    `json:"patientId,omitempty"`
	Outcome   string    `json:"outcome"`
	Recorded  time.Time `json:"recorded"`
}
