// Package conversation implements the top-level mode state machine for an
// intake session: intake, help, off-topic, and escalation modes, plus
// per-phase field-collection bookkeeping.
package conversation

import (
	"log/slog"
	"strings"
	"time"

	"github.com/carebridge/intakepipe/internal/models"
)

// helpFieldKeywords infers which intake field the parent is asking about
// from keywords in the help request. A small fixed lookup, extensible here
// rather than hardcoded at call sites.
var helpFieldKeywords = []struct {
	keyword string
	field   string
}{
	{"insurance", "insurance_provider"},
	{"member id", "insurance_member_id"},
	{"policy", "insurance_member_id"},
	{"birth", "child_date_of_birth"},
	{"age", "child_age"},
	{"email", "parent_email"},
	{"phone", "parent_phone"},
	{"name", "parent_name"},
	{"concern", "presenting_concerns"},
	{"symptom", "presenting_concerns"},
}

// requiredFieldsByPhase lists what each intake phase collects. Phase advance
// itself is confirmed externally; this table only drives bookkeeping and the
// classifier's pending-fields signal.
var requiredFieldsByPhase = map[models.IntakePhase][]string{
	models.PhaseWelcome:    {},
	models.PhaseParentInfo: {"parent_name", "parent_email", "parent_phone"},
	models.PhaseChildInfo:  {"child_name", "child_age", "child_date_of_birth"},
	models.PhaseConcerns:   {"presenting_concerns"},
	models.PhaseInsurance:  {"insurance_provider", "insurance_member_id"},
	models.PhaseAssessment: {},
}

// Manager drives mode transitions on a ConversationState. It holds no state
// of its own; every method mutates the passed-in snapshot.
type Manager struct{}

// NewManager creates a conversation state machine manager.
func NewManager() *Manager {
	return &Manager{}
}

// ApplyIntent updates the mode based on the classified intent. Escalation is
// handled separately via RecordEscalation since it is a side channel, not an
// intent. Once escalated, the mode stays pinned; help and off-topic contexts
// are still tracked so the responder can address them.
func (m *Manager) ApplyIntent(state *models.ConversationState, result models.ClassificationResult, message, lastQuestion string, now time.Time) {
	switch result.Intent {
	case models.IntentHelpRequest, models.IntentClarification:
		m.enterHelp(state, message, lastQuestion, now)
	case models.IntentOffTopic:
		m.enterOffTopic(state, result.MatchedPattern, now)
	case models.IntentAnswer:
		if state.Mode == models.ModeHelp || state.Mode == models.ModeOffTopic ||
			state.Help != nil || state.OffTopic != nil {
			m.returnToIntake(state, now)
		}
	case models.IntentQuestion:
		// Questions about the process don't change mode; the responder
		// answers them in place.
	}
	state.UpdatedAt = now
}

// enterHelp switches to help mode, capturing the field inferred from the
// message and the question that prompted the confusion. The detour is
// terminal for the current turn: no field capture happens.
func (m *Manager) enterHelp(state *models.ConversationState, message, lastQuestion string, now time.Time) {
	if state.Mode != models.ModeEscalation {
		state.Mode = models.ModeHelp
	}
	state.Help = &models.HelpContext{
		Field:    inferHelpField(message),
		Question: lastQuestion,
	}
	state.OffTopic = nil
	slog.Info("conversation entered help mode", "phase", state.Phase, "field", state.Help.Field)
}

// enterOffTopic switches to off-topic mode and bumps the monotonic counter.
func (m *Manager) enterOffTopic(state *models.ConversationState, matchedPattern string, now time.Time) {
	topic := models.TopicCategory(matchedPattern)
	switch topic {
	case models.TopicCostConcern, models.TopicTimelineConcern, models.TopicLocationConcern:
	default:
		topic = models.TopicGeneralQuestion
	}

	if state.Mode != models.ModeEscalation {
		state.Mode = models.ModeOffTopic
	}
	state.OffTopic = &models.OffTopicContext{Topic: topic}
	state.Help = nil
	state.OffTopicCount++
	slog.Info("conversation entered off-topic mode", "topic", topic, "count", state.OffTopicCount)
}

// returnToIntake resolves a help or off-topic detour back to the previously
// active phase. Field-collection counters are unaffected by the detour.
func (m *Manager) returnToIntake(state *models.ConversationState, now time.Time) {
	if state.Mode != models.ModeEscalation {
		state.Mode = models.ModeIntake
	}
	state.Help = nil
	state.OffTopic = nil
	slog.Info("conversation returned to intake", "phase", state.Phase)
}

// RecordEscalation marks the sticky escalation mode. It returns true only on
// the transition itself so the caller can notify a human exactly once per
// session. Escalation does not block subsequent answer processing.
func (m *Manager) RecordEscalation(state *models.ConversationState, now time.Time) (transitioned bool) {
	if state.EscalationTriggered {
		return false
	}
	state.EscalationTriggered = true
	state.Mode = models.ModeEscalation
	state.UpdatedAt = now
	slog.Info("conversation escalation triggered", "phase", state.Phase)
	return true
}

// ConfirmPhaseComplete advances the intake phase after the caller has
// externally verified that the phase's required fields are collected. The
// core owns only the bookkeeping, not field validation.
func (m *Manager) ConfirmPhaseComplete(state *models.ConversationState, now time.Time) models.IntakePhase {
	next := models.NextIntakePhase(state.Phase)
	if next != state.Phase {
		slog.Info("intake phase advanced", "from", state.Phase, "to", next)
		state.Phase = next
		state.UpdatedAt = now
	}
	return state.Phase
}

// PendingRequiredFields counts the current phase's fields not yet collected.
func (m *Manager) PendingRequiredFields(state *models.ConversationState) int {
	pending := 0
	for _, f := range requiredFieldsByPhase[state.Phase] {
		if !state.HasCollectedField(f) {
			pending++
		}
	}
	return pending
}

// inferHelpField scans the help request for field keywords.
func inferHelpField(message string) string {
	lower := strings.ToLower(message)
	for _, entry := range helpFieldKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.field
		}
	}
	return ""
}
