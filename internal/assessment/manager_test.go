package assessment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/carebridge/intakepipe/internal/models"
	"github.com/carebridge/intakepipe/internal/parser"
	"github.com/carebridge/intakepipe/internal/questionnaire"
)

func newTestManager() *Manager {
	return NewManager(questionnaire.NewRegistry(), parser.New())
}

func TestStartRequiresReady(t *testing.T) {
	m := newTestManager()

	if _, err := m.Start(false, time.Now()); !errors.Is(err, models.ErrAssessmentNotReady) {
		t.Fatalf("Start(not ready) error = %v, want ErrAssessmentNotReady", err)
	}

	state, err := m.Start(true, time.Now())
	if err != nil {
		t.Fatalf("Start(ready) error = %v", err)
	}
	if state.Status != models.AssessmentInProgress {
		t.Errorf("status = %s, want in_progress", state.Status)
	}
	if state.CurrentInstrument != models.InstrumentPHQA {
		t.Errorf("instrument = %s, want phq_a", state.CurrentInstrument)
	}
}

func TestSubmitResponseRecordsAndAdvances(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	result, err := m.SubmitResponse(state, "phq_a_1", "not at all", 14, true, time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse error = %v", err)
	}
	if !result.Recorded {
		t.Fatal("expected recorded result")
	}
	if result.Progress != 6 {
		t.Errorf("progress = %d, want 6 (1 of 16)", result.Progress)
	}
	if result.NextQuestion == nil || result.NextQuestion.ID != "phq_a_2" {
		t.Errorf("next question = %+v, want phq_a_2", result.NextQuestion)
	}
	if result.Response == nil || result.Response.Value != 0 {
		t.Errorf("recorded response = %+v, want value 0", result.Response)
	}
	if result.Response.Confidence != models.ParseConfidenceHigh {
		t.Errorf("confidence = %s, want high", result.Response.Confidence)
	}
}

func TestSubmitResponseDuplicateRejectedWithoutMutation(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	if _, err := m.SubmitResponse(state, "phq_a_1", "several days", 14, true, time.Now()); err != nil {
		t.Fatalf("first submit error = %v", err)
	}
	before := len(state.Responses)
	beforeScore := state.Scores.PHQATotal

	_, err := m.SubmitResponse(state, "phq_a_1", "nearly every day", 14, true, time.Now())
	if !errors.Is(err, models.ErrQuestionAlreadyAnswered) {
		t.Fatalf("duplicate submit error = %v, want ErrQuestionAlreadyAnswered", err)
	}
	if err.Error() != "Question already answered" {
		t.Errorf("duplicate error message = %q, want %q", err.Error(), "Question already answered")
	}
	if len(state.Responses) != before {
		t.Errorf("responses mutated on duplicate: %d -> %d", before, len(state.Responses))
	}
	if state.Scores.PHQATotal != beforeScore {
		t.Errorf("scores mutated on duplicate: %d -> %d", beforeScore, state.Scores.PHQATotal)
	}
}

func TestSubmitResponseClarificationDoesNotAdvance(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	result, err := m.SubmitResponse(state, "phq_a_1", "maybe, it varies", 14, true, time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse error = %v", err)
	}
	if result.Recorded {
		t.Fatal("ambiguous answer must not be recorded")
	}
	if !result.NeedsClarification || result.ClarificationPrompt == "" {
		t.Errorf("expected clarification result, got %+v", result)
	}
	if len(state.Responses) != 0 {
		t.Errorf("state mutated on clarification: %d responses", len(state.Responses))
	}
	if result.Progress != 0 {
		t.Errorf("progress = %d, want 0", result.Progress)
	}
}

func TestSubmitResponseValidation(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	if _, err := m.SubmitResponse(state, "phq_a_1", "  ", 14, true, time.Now()); !errors.Is(err, models.ErrEmptyResponseText) {
		t.Errorf("blank text error = %v, want ErrEmptyResponseText", err)
	}
	if _, err := m.SubmitResponse(state, "phq_a_1", "no", 14, false, time.Now()); !errors.Is(err, models.ErrAssessmentNotReady) {
		t.Errorf("not-ready error = %v, want ErrAssessmentNotReady", err)
	}
	// GAD-7 item while PHQ-A is in progress.
	if _, err := m.SubmitResponse(state, "gad_7_1", "no", 14, true, time.Now()); !errors.Is(err, models.ErrInvalidQuestionID) {
		t.Errorf("wrong-instrument error = %v, want ErrInvalidQuestionID", err)
	}
	if _, err := m.SubmitResponse(state, "phq_a_99", "no", 14, true, time.Now()); !errors.Is(err, models.ErrInvalidQuestionID) {
		t.Errorf("unknown-id error = %v, want ErrInvalidQuestionID", err)
	}
}

func TestInstrumentBridgingAndCompletion(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	// Answer all PHQ-A items with "several days" (value 1).
	for i := 1; i <= questionnaire.PHQAItemCount; i++ {
		result, err := m.SubmitResponse(state, fmt.Sprintf("phq_a_%d", i), "several days", 14, true, time.Now())
		if err != nil {
			t.Fatalf("phq_a_%d submit error = %v", i, err)
		}
		if i == questionnaire.PHQAItemCount {
			if result.NextQuestion == nil || result.NextQuestion.ID != "gad_7_1" {
				t.Fatalf("after phq_a_9, next = %+v, want gad_7_1", result.NextQuestion)
			}
		}
	}
	if state.CurrentInstrument != models.InstrumentGAD7 {
		t.Fatalf("instrument after PHQ-A = %s, want gad_7", state.CurrentInstrument)
	}
	if state.Scores.PHQATotal != 9 {
		t.Errorf("PHQ-A total = %d, want 9", state.Scores.PHQATotal)
	}

	// Progress after 9 of 16 items: round(56.25) = 56.
	if got := m.progress(state); got != 56 {
		t.Errorf("progress = %d, want 56", got)
	}

	var last *SubmitResult
	for i := 1; i <= questionnaire.GAD7ItemCount; i++ {
		result, err := m.SubmitResponse(state, fmt.Sprintf("gad_7_%d", i), "not at all", 14, true, time.Now())
		if err != nil {
			t.Fatalf("gad_7_%d submit error = %v", i, err)
		}
		last = result
	}

	if state.Status != models.AssessmentComplete {
		t.Fatalf("status = %s, want complete", state.Status)
	}
	if state.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if last.NextQuestion != nil {
		t.Errorf("next question after final item = %+v, want nil", last.NextQuestion)
	}
	if last.Progress != 100 {
		t.Errorf("final progress = %d, want 100", last.Progress)
	}
	if last.Scores.GAD7Total != 0 {
		t.Errorf("GAD-7 total = %d, want 0", last.Scores.GAD7Total)
	}

	// Complete assessments are immutable.
	if _, err := m.SubmitResponse(state, "gad_7_7", "never", 14, true, time.Now()); !errors.Is(err, models.ErrAssessmentComplete) {
		t.Errorf("post-completion submit error = %v, want ErrAssessmentComplete", err)
	}
}

func TestItemNineRaisesRiskFlags(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	for i := 1; i <= 8; i++ {
		if _, err := m.SubmitResponse(state, fmt.Sprintf("phq_a_%d", i), "not at all", 14, true, time.Now()); err != nil {
			t.Fatalf("phq_a_%d submit error = %v", i, err)
		}
	}
	result, err := m.SubmitResponse(state, "phq_a_9", "several days", 14, true, time.Now())
	if err != nil {
		t.Fatalf("phq_a_9 submit error = %v", err)
	}

	if len(result.RiskIndicators) != 1 {
		t.Fatalf("risk indicators = %+v, want exactly one", result.RiskIndicators)
	}
	ind := result.RiskIndicators[0]
	if ind.Type != models.RiskSuicidalIdeation || !ind.RequiresImmediateAttention {
		t.Errorf("indicator = %+v, want suicidal_ideation with immediate attention", ind)
	}
	if len(state.RiskFlags) != 1 || state.RiskFlags[0] != models.RiskSuicidalIdeation {
		t.Errorf("state risk flags = %v, want [suicidal_ideation]", state.RiskFlags)
	}
}

func TestCurrentQuestionWalksSequence(t *testing.T) {
	m := newTestManager()
	state, _ := m.Start(true, time.Now())

	q := m.CurrentQuestion(state, 10)
	if q == nil || q.ID != "phq_a_1" {
		t.Fatalf("first question = %+v, want phq_a_1", q)
	}
	// Simplified phrasing for a 10-year-old.
	if q.Text == "" {
		t.Error("question text not resolved")
	}

	if _, err := m.SubmitResponse(state, "phq_a_1", "2", 10, true, time.Now()); err != nil {
		t.Fatalf("submit error = %v", err)
	}
	q = m.CurrentQuestion(state, 10)
	if q == nil || q.ID != "phq_a_2" {
		t.Errorf("second question = %+v, want phq_a_2", q)
	}
}
