// Package audit records action tags for intake sessions.
//
// Audit entries carry non-content metadata only: ids, counts, and booleans.
// Raw message text and parsed clinical values must never be written here;
// callers pass pre-built metadata and the recorder additionally strips any
// key that is not on the allowlist.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Action tags emitted by the orchestration engine.
const (
	ActionSessionCreated              = "SESSION_CREATED"
	ActionMessageClassified           = "MESSAGE_CLASSIFIED"
	ActionHelpRequest                 = "HELP_REQUEST"
	ActionOffTopicDetour              = "OFF_TOPIC_DETOUR"
	ActionEscalationDetected          = "ESCALATION_DETECTED"
	ActionIntakePhaseAdvanced         = "INTAKE_PHASE_ADVANCED"
	ActionAssessmentStarted           = "ASSESSMENT_STARTED"
	ActionAssessmentResponseSubmitted = "ASSESSMENT_RESPONSE_SUBMITTED"
	ActionAssessmentClarification     = "ASSESSMENT_CLARIFICATION"
	ActionAssessmentComplete          = "ASSESSMENT_COMPLETE"
	ActionRiskIndicatorRaised         = "RISK_INDICATOR_RAISED"
)

// allowedMetadataKeys is the closed set of metadata keys a record may carry.
var allowedMetadataKeys = map[string]bool{
	"intent":           true,
	"confidence":       true,
	"method":           true,
	"topic":            true,
	"phase":            true,
	"mode":             true,
	"instrument":       true,
	"item_number":      true,
	"question_id":      true,
	"progress":         true,
	"off_topic_count":  true,
	"risk_flag_count":  true,
	"matched_count":    true,
	"field":            true,
	"error":            true,
	"child_age_band":   true,
	"ready":            true,
}

// Entry is one recorded action.
type Entry struct {
	SessionID  string            `json:"session_id"`
	Action     string            `json:"action"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Recorder accepts audit entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Sink is the minimal persistence hook a recorder writes through.
type Sink interface {
	AddAuditEntry(entry Entry) error
}

// StoreRecorder writes sanitized entries to a persistence sink.
type StoreRecorder struct {
	sink Sink
}

// NewStoreRecorder creates a recorder over the given sink.
func NewStoreRecorder(sink Sink) *StoreRecorder {
	return &StoreRecorder{sink: sink}
}

// Record sanitizes and persists an entry. Unknown metadata keys are dropped
// so content can never leak into the audit trail through a caller mistake.
func (r *StoreRecorder) Record(ctx context.Context, entry Entry) error {
	entry.Metadata = Sanitize(entry.Metadata)
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	if err := r.sink.AddAuditEntry(entry); err != nil {
		slog.Error("audit record failed", "error", err, "action", entry.Action)
		return err
	}
	slog.Debug("audit recorded", "action", entry.Action, "session", entry.SessionID)
	return nil
}

// Sanitize drops any metadata key outside the allowlist.
func Sanitize(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if allowedMetadataKeys[k] {
			cleaned[k] = v
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// NopRecorder discards entries; useful where auditing is not configured.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(ctx context.Context, entry Entry) error { return nil }
