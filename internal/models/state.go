// Package models defines the versioned session state blobs for intakepipe.
package models

import (
	"encoding/json"
	"time"
)

// StateVersion tags persisted state blobs so shape changes don't silently
// corrupt old sessions mid-flight.
const StateVersion = 1

// SessionMode is the top-level conversation mode.
type SessionMode string

const (
	ModeIntake     SessionMode = "intake"
	ModeHelp       SessionMode = "help"
	ModeOffTopic   SessionMode = "off_topic"
	ModeEscalation SessionMode = "escalation"
)

// IntakePhase is the ordered data-collection step preceding assessment.
type IntakePhase string

const (
	PhaseWelcome    IntakePhase = "welcome"
	PhaseParentInfo IntakePhase = "parent_info"
	PhaseChildInfo  IntakePhase = "child_info"
	PhaseConcerns   IntakePhase = "concerns"
	PhaseInsurance  IntakePhase = "insurance"
	PhaseAssessment IntakePhase = "assessment"
)

// intakePhaseOrder fixes the phase sequence.
var intakePhaseOrder = []IntakePhase{
	PhaseWelcome, PhaseParentInfo, PhaseChildInfo,
	PhaseConcerns, PhaseInsurance, PhaseAssessment,
}

// NextIntakePhase returns the phase after p, or p itself if terminal.
func NextIntakePhase(p IntakePhase) IntakePhase {
	for i, phase := range intakePhaseOrder {
		if phase == p && i+1 < len(intakePhaseOrder) {
			return intakePhaseOrder[i+1]
		}
	}
	return p
}

// HelpContext captures why the session entered help mode.
type HelpContext struct {
	Field    string `json:"field"`
	Question string `json:"question,omitempty"`
}

// OffTopicContext captures the current off-topic detour.
type OffTopicContext struct {
	Topic TopicCategory `json:"topic"`
}

// ConversationState is the per-session mode state machine snapshot. It is
// owned exclusively by the orchestration core for the duration of one
// message-processing call and persisted as an opaque versioned blob.
type ConversationState struct {
	Version         int              `json:"state_version"`
	Mode            SessionMode      `json:"mode"`
	Phase           IntakePhase      `json:"phase"`
	CollectedFields []string         `json:"collected_fields,omitempty"`
	Help            *HelpContext     `json:"help,omitempty"`
	OffTopic        *OffTopicContext `json:"off_topic,omitempty"`
	// OffTopicCount increases monotonically across the session; it is never
	// reset when the detour resolves.
	OffTopicCount       int       `json:"off_topic_count"`
	EscalationTriggered bool      `json:"escalation_triggered"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewConversationState creates the initial state for a session.
func NewConversationState(now time.Time) *ConversationState {
	return &ConversationState{
		Version:   StateVersion,
		Mode:      ModeIntake,
		Phase:     PhaseWelcome,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasCollectedField reports whether the named intake field was recorded.
func (cs *ConversationState) HasCollectedField(name string) bool {
	for _, f := range cs.CollectedFields {
		if f == name {
			return true
		}
	}
	return false
}

// MarkFieldCollected records an intake field once; duplicates are ignored.
func (cs *ConversationState) MarkFieldCollected(name string) {
	if name == "" || cs.HasCollectedField(name) {
		return
	}
	cs.CollectedFields = append(cs.CollectedFields, name)
}

// ToJSON serializes the state for persistence.
func (cs *ConversationState) ToJSON() (string, error) {
	data, err := json.Marshal(cs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes a persisted state blob.
func (cs *ConversationState) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), cs)
}

// AssessmentStatus tracks progress through the screening instruments.
type AssessmentStatus string

const (
	AssessmentNotStarted AssessmentStatus = "not_started"
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentComplete   AssessmentStatus = "complete"
)

// AssessmentResponse is one recorded Likert answer. At most one response
// exists per (instrument, item_number) pair.
type AssessmentResponse struct {
	Instrument Instrument      `json:"instrument"`
	ItemNumber int             `json:"item_number"`
	Value      int             `json:"likert_value"`
	RawText    string          `json:"raw_text"`
	Confidence ParseConfidence `json:"confidence"`
	AnsweredAt time.Time       `json:"answered_at"`
}

// AssessmentScores holds the computed totals after each recorded response.
type AssessmentScores struct {
	PHQATotal          int      `json:"phq_a_total"`
	GAD7Total          int      `json:"gad_7_total"`
	CombinedNormalized int      `json:"combined_normalized"`
	OverallSeverity    Severity `json:"overall_severity,omitempty"`
}

// AssessmentState is the per-session instrument state machine snapshot.
// It advances monotonically phq_a -> gad_7 -> complete and becomes
// immutable once complete.
type AssessmentState struct {
	Version           int                  `json:"state_version"`
	Status            AssessmentStatus     `json:"status"`
	CurrentInstrument Instrument           `json:"current_instrument,omitempty"`
	Responses         []AssessmentResponse `json:"responses,omitempty"`
	Scores            *AssessmentScores    `json:"scores,omitempty"`
	RiskFlags         []RiskType           `json:"risk_flags,omitempty"`
	StartedAt         time.Time            `json:"started_at,omitempty"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
}

// NewAssessmentState creates a lazily-initialized assessment state.
func NewAssessmentState(now time.Time) *AssessmentState {
	return &AssessmentState{
		Version:           StateVersion,
		Status:            AssessmentInProgress,
		CurrentInstrument: InstrumentPHQA,
		StartedAt:         now,
	}
}

// FindResponse returns the recorded response for (instrument, item), if any.
func (as *AssessmentState) FindResponse(instrument Instrument, item int) *AssessmentResponse {
	for i := range as.Responses {
		r := &as.Responses[i]
		if r.Instrument == instrument && r.ItemNumber == item {
			return r
		}
	}
	return nil
}

// CountResponses returns how many items of the instrument are answered.
func (as *AssessmentState) CountResponses(instrument Instrument) int {
	n := 0
	for _, r := range as.Responses {
		if r.Instrument == instrument {
			n++
		}
	}
	return n
}

// ToJSON serializes the state for persistence.
func (as *AssessmentState) ToJSON() (string, error) {
	data, err := json.Marshal(as)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes a persisted state blob.
func (as *AssessmentState) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), as)
}
