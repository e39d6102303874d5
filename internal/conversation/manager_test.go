package conversation

import (
	"testing"
	"time"

	"github.com/carebridge/intakepipe/internal/models"
)

func newState() *models.ConversationState {
	return models.NewConversationState(time.Now())
}

func TestApplyIntentHelpRequest(t *testing.T) {
	m := NewManager()
	state := newState()
	question := "What is your insurance provider?"

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentHelpRequest}, "what does insurance provider mean", question, time.Now())

	if state.Mode != models.ModeHelp {
		t.Fatalf("mode = %s, want help", state.Mode)
	}
	if state.Help == nil {
		t.Fatal("help context not set")
	}
	if state.Help.Field != "insurance_provider" {
		t.Errorf("inferred field = %q, want insurance_provider", state.Help.Field)
	}
	if state.Help.Question != question {
		t.Errorf("captured question = %q, want %q", state.Help.Question, question)
	}
}

func TestApplyIntentClarificationEntersHelp(t *testing.T) {
	m := NewManager()
	state := newState()
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentClarification}, "can you repeat that", "How old is your child?", time.Now())
	if state.Mode != models.ModeHelp {
		t.Errorf("mode = %s, want help", state.Mode)
	}
}

func TestApplyIntentOffTopicCountsMonotonically(t *testing.T) {
	m := NewManager()
	state := newState()
	now := time.Now()

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentOffTopic, MatchedPattern: "cost_concern"}, "how much is this", "", now)
	if state.Mode != models.ModeOffTopic {
		t.Fatalf("mode = %s, want off_topic", state.Mode)
	}
	if state.OffTopic == nil || state.OffTopic.Topic != models.TopicCostConcern {
		t.Errorf("off-topic context = %+v, want cost_concern", state.OffTopic)
	}
	if state.OffTopicCount != 1 {
		t.Fatalf("off-topic count = %d, want 1", state.OffTopicCount)
	}

	// Resolving the detour must not reset the counter.
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentAnswer}, "blue cross", "", now)
	if state.Mode != models.ModeIntake {
		t.Fatalf("mode = %s, want intake after answer", state.Mode)
	}
	if state.OffTopic != nil {
		t.Error("off-topic context should clear on return to intake")
	}
	if state.OffTopicCount != 1 {
		t.Errorf("off-topic count = %d after resolution, want 1", state.OffTopicCount)
	}

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentOffTopic, MatchedPattern: "timeline_concern"}, "how long is the wait", "", now)
	if state.OffTopicCount != 2 {
		t.Errorf("off-topic count = %d, want 2", state.OffTopicCount)
	}
}

func TestApplyIntentUnknownTopicDefaultsToGeneral(t *testing.T) {
	m := NewManager()
	state := newState()
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentOffTopic, MatchedPattern: "question_shape"}, "random thing", "", time.Now())
	if state.OffTopic == nil || state.OffTopic.Topic != models.TopicGeneralQuestion {
		t.Errorf("off-topic context = %+v, want general_question", state.OffTopic)
	}
}

func TestApplyIntentQuestionDoesNotChangeMode(t *testing.T) {
	m := NewManager()
	state := newState()
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentQuestion}, "what happens next?", "", time.Now())
	if state.Mode != models.ModeIntake {
		t.Errorf("mode = %s, want intake", state.Mode)
	}
}

func TestApplyIntentAnswerResolvesHelp(t *testing.T) {
	m := NewManager()
	state := newState()
	now := time.Now()

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentHelpRequest}, "I'm confused", "What's the member ID?", now)
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentAnswer}, "ABC123", "What's the member ID?", now)

	if state.Mode != models.ModeIntake {
		t.Errorf("mode = %s, want intake", state.Mode)
	}
	if state.Help != nil {
		t.Error("help context should clear on return to intake")
	}
}

func TestRecordEscalationIsStickyAndTransitionsOnce(t *testing.T) {
	m := NewManager()
	state := newState()
	now := time.Now()

	if !m.RecordEscalation(state, now) {
		t.Fatal("first escalation should report the transition")
	}
	if state.Mode != models.ModeEscalation || !state.EscalationTriggered {
		t.Fatalf("state = mode %s triggered %v, want escalation/true", state.Mode, state.EscalationTriggered)
	}

	if m.RecordEscalation(state, now) {
		t.Error("second escalation should not report a transition")
	}
	if !state.EscalationTriggered {
		t.Error("escalation flag must stay set")
	}
}

func TestEscalationModeSurvivesLaterIntents(t *testing.T) {
	m := NewManager()
	state := newState()
	now := time.Now()
	m.RecordEscalation(state, now)

	// Later detours must not unpin the escalation mode, though their
	// contexts are still captured for the responder.
	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentOffTopic, MatchedPattern: string(models.TopicCostConcern)}, "how much does this cost", "", now)
	if state.Mode != models.ModeEscalation {
		t.Errorf("mode = %s after off-topic, want escalation", state.Mode)
	}
	if state.OffTopic == nil || state.OffTopic.Topic != models.TopicCostConcern {
		t.Errorf("off-topic context not tracked: %+v", state.OffTopic)
	}

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentHelpRequest}, "what does insurance mean", "", now)
	if state.Mode != models.ModeEscalation {
		t.Errorf("mode = %s after help request, want escalation", state.Mode)
	}

	m.ApplyIntent(state, models.ClassificationResult{Intent: models.IntentAnswer}, "blue cross", "", now)
	if state.Mode != models.ModeEscalation || !state.EscalationTriggered {
		t.Errorf("mode = %s triggered %v after answer, want escalation/true", state.Mode, state.EscalationTriggered)
	}
}

func TestConfirmPhaseCompleteAdvancesInOrder(t *testing.T) {
	m := NewManager()
	state := newState()
	now := time.Now()

	want := []models.IntakePhase{
		models.PhaseParentInfo, models.PhaseChildInfo, models.PhaseConcerns,
		models.PhaseInsurance, models.PhaseAssessment,
	}
	for _, phase := range want {
		if got := m.ConfirmPhaseComplete(state, now); got != phase {
			t.Fatalf("advanced to %s, want %s", got, phase)
		}
	}

	// Terminal phase stays put.
	if got := m.ConfirmPhaseComplete(state, now); got != models.PhaseAssessment {
		t.Errorf("terminal advance = %s, want assessment", got)
	}
}

func TestPendingRequiredFields(t *testing.T) {
	m := NewManager()
	state := newState()
	state.Phase = models.PhaseParentInfo

	if got := m.PendingRequiredFields(state); got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}

	state.MarkFieldCollected("parent_name")
	state.MarkFieldCollected("parent_name") // duplicate ignored
	if got := m.PendingRequiredFields(state); got != 2 {
		t.Errorf("pending = %d after one field, want 2", got)
	}

	state.MarkFieldCollected("parent_email")
	state.MarkFieldCollected("parent_phone")
	if got := m.PendingRequiredFields(state); got != 0 {
		t.Errorf("pending = %d with all fields, want 0", got)
	}
}

func TestInferHelpField(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"what do you mean by insurance", "insurance_provider"},
		{"which birth date format", "child_date_of_birth"},
		{"what email should I use", "parent_email"},
		{"I don't get it", ""},
	}
	for _, tt := range tests {
		if got := inferHelpField(tt.message); got != tt.want {
			t.Errorf("inferHelpField(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}
