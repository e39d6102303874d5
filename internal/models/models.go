// Package models defines the core data structures for intakepipe.
//
// It includes the session, classification, and risk types shared across
// modules, along with validation limits and sentinel errors.
package models

import (
	"errors"
	"time"
)

// Instrument identifies a clinical screening instrument.
type Instrument string

const (
	// InstrumentPHQA is the 9-item adolescent depression screen.
	InstrumentPHQA Instrument = "phq_a"
	// InstrumentGAD7 is the 7-item anxiety screen.
	InstrumentGAD7 Instrument = "gad_7"
)

// Intent represents the classified intent of an inbound parent message.
type Intent string

const (
	IntentAnswer        Intent = "answer"
	IntentQuestion      Intent = "question"
	IntentHelpRequest   Intent = "help_request"
	IntentOffTopic      Intent = "off_topic"
	IntentClarification Intent = "clarification"
)

// TopicCategory classifies what an off-topic detour is about.
type TopicCategory string

const (
	TopicCostConcern     TopicCategory = "cost_concern"
	TopicTimelineConcern TopicCategory = "timeline_concern"
	TopicLocationConcern TopicCategory = "location_concern"
	TopicGeneralQuestion TopicCategory = "general_question"
)

// ParseConfidence grades how certain the response parser is about a Likert match.
type ParseConfidence string

const (
	ParseConfidenceHigh   ParseConfidence = "high"
	ParseConfidenceMedium ParseConfidence = "medium"
)

// Severity is a clinical severity band for an instrument total or risk flag.
type Severity string

const (
	SeverityMinimal          Severity = "minimal"
	SeverityMild             Severity = "mild"
	SeverityModerate         Severity = "moderate"
	SeverityModeratelySevere Severity = "moderately_severe"
	SeveritySevere           Severity = "severe"
)

// severityRank orders severities from least to most severe.
var severityRank = map[Severity]int{
	SeverityMinimal:          0,
	SeverityMild:             1,
	SeverityModerate:         2,
	SeverityModeratelySevere: 3,
	SeveritySevere:           4,
}

// WorseSeverity returns the more severe of the two bands.
func WorseSeverity(a, b Severity) Severity {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}

// RiskType tags a safety-relevant indicator derived from assessment responses.
type RiskType string

const (
	RiskSuicidalIdeation RiskType = "suicidal_ideation"
	RiskSevereDepression RiskType = "severe_depression"
	RiskSevereAnxiety    RiskType = "severe_anxiety"
)

// RiskIndicator is produced fresh on each scoring pass. The caller is
// responsible for acting on it; this core only detects and classifies.
type RiskIndicator struct {
	Type                       RiskType `json:"type"`
	Severity                   Severity `json:"severity"`
	RequiresImmediateAttention bool     `json:"requires_immediate_attention"`
	RequiresClinicalReview     bool     `json:"requires_clinical_review"`
}

// ClassificationResult is the transient output of the intent classifier.
// It is consumed synchronously by the caller and never persisted.
type ClassificationResult struct {
	Intent         Intent  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	MatchedPattern string  `json:"matched_pattern,omitempty"`
	Method         string  `json:"method"`
}

// EscalationResult is the output of the side-channel escalation scan.
type EscalationResult struct {
	Detected       bool     `json:"escalation_detected"`
	MatchedPhrases []string `json:"matched_phrases,omitempty"`
}

// Validation constants for response input.
const (
	// MaxResponseTextLength is the maximum accepted answer length in bytes.
	// Exactly this length is still accepted.
	MaxResponseTextLength = 500
	// MinLikertValue and MaxLikertValue bound the 0-3 response scale.
	MinLikertValue = 0
	MaxLikertValue = 3
)

// Sentinel errors for the engine boundary. These are structured results:
// no state mutation occurs when one is returned.
var (
	ErrEmptyResponseText       = errors.New("response text cannot be empty")
	ErrResponseTextTooLong     = errors.New("response text exceeds maximum length")
	ErrInvalidQuestionID       = errors.New("invalid question id for current instrument")
	ErrLikertOutOfRange        = errors.New("likert value out of range")
	ErrQuestionAlreadyAnswered = errors.New("Question already answered")
	ErrAssessmentNotReady      = errors.New("assessment not ready: intake must be completed and insurance verified first")
	ErrAssessmentComplete      = errors.New("assessment already complete")
	ErrSessionNotFound         = errors.New("session not found")
)

// Session identifies one parent-child intake conversation.
type Session struct {
	ID                 string    `json:"id"`
	ChildAge           int       `json:"child_age"`
	ReadyForAssessment bool      `json:"ready_for_assessment"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks session fields before creation.
func (s *Session) Validate() error {
	if s.ChildAge < 5 || s.ChildAge > 18 {
		return errors.New("child_age must be between 5 and 18")
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK       APIStatus = "ok"
	APIStatusError    APIStatus = "error"
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse is the standard JSON envelope returned by the HTTP layer.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Recorded creates a recorded API response with optional result data.
func Recorded(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusRecorded), Result: result}
}
