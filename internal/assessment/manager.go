// Package assessment implements the instrument state machine that sequences
// the PHQ-A and GAD-7 screens, records parsed responses, and enforces the
// ordering and duplicate rules.
package assessment

import (
	"log/slog"
	"math"
	"time"

	"github.com/carebridge/intakepipe/internal/models"
	"github.com/carebridge/intakepipe/internal/parser"
	"github.com/carebridge/intakepipe/internal/questionnaire"
	"github.com/carebridge/intakepipe/internal/scoring"
)

// clarificationPrompt is returned when the parser cannot confidently map an
// answer; the caller re-asks without advancing state.
const clarificationPrompt = "Just so I record this accurately: over the last two weeks, would you say not at all, several days, more than half the days, or nearly every day?"

// Manager drives the not_started -> phq_a -> gad_7 -> complete progression.
// It mutates the passed-in AssessmentState; callers persist the snapshot.
type Manager struct {
	registry *questionnaire.Registry
	parser   *parser.Parser
}

// NewManager creates an assessment state machine manager.
func NewManager(registry *questionnaire.Registry, p *parser.Parser) *Manager {
	return &Manager{registry: registry, parser: p}
}

// SubmitResult is the structured outcome of one response submission.
type SubmitResult struct {
	Recorded            bool                       `json:"recorded"`
	NeedsClarification  bool                       `json:"needs_clarification,omitempty"`
	ClarificationPrompt string                     `json:"clarification_prompt,omitempty"`
	NextQuestion        *questionnaire.Question    `json:"next_question,omitempty"`
	Progress            int                        `json:"progress"`
	Scores              *models.AssessmentScores   `json:"scores,omitempty"`
	RiskIndicators      []models.RiskIndicator     `json:"risk_indicators,omitempty"`
	Response            *models.AssessmentResponse `json:"response,omitempty"`
}

// Start lazily initializes the assessment once the ready signal is true.
func (m *Manager) Start(ready bool, now time.Time) (*models.AssessmentState, error) {
	if !ready {
		return nil, models.ErrAssessmentNotReady
	}
	slog.Info("assessment started", "instrument", models.InstrumentPHQA)
	return models.NewAssessmentState(now), nil
}

// SubmitResponse validates, parses, records, and scores one answer. On any
// error no state mutation occurs; on an ambiguous parse a clarification
// result is returned, also without mutation.
func (m *Manager) SubmitResponse(state *models.AssessmentState, questionID, text string, age int, ready bool, now time.Time) (*SubmitResult, error) {
	if !ready {
		return nil, models.ErrAssessmentNotReady
	}
	if state.Status == models.AssessmentComplete {
		return nil, models.ErrAssessmentComplete
	}

	if v := m.parser.Validate(text); !v.Valid {
		if len(text) > models.MaxResponseTextLength {
			return nil, models.ErrResponseTextTooLong
		}
		return nil, models.ErrEmptyResponseText
	}

	question, ok := m.registry.Find(questionID, age)
	if !ok || question.Instrument != state.CurrentInstrument {
		return nil, models.ErrInvalidQuestionID
	}

	if state.FindResponse(question.Instrument, question.ItemNumber) != nil {
		return nil, models.ErrQuestionAlreadyAnswered
	}

	parsed := m.parser.Parse(text)
	if parsed.Value == nil {
		slog.Debug("assessment answer needs clarification",
			"question", questionID, "ambiguous", parsed.Ambiguous)
		return &SubmitResult{
			NeedsClarification:  true,
			ClarificationPrompt: clarificationPrompt,
			Progress:            m.progress(state),
		}, nil
	}
	if *parsed.Value < models.MinLikertValue || *parsed.Value > models.MaxLikertValue {
		return nil, models.ErrLikertOutOfRange
	}

	response := models.AssessmentResponse{
		Instrument: question.Instrument,
		ItemNumber: question.ItemNumber,
		Value:      *parsed.Value,
		RawText:    text,
		Confidence: parsed.Confidence,
		AnsweredAt: now,
	}
	state.Responses = append(state.Responses, response)
	state.Status = models.AssessmentInProgress

	m.advanceInstrument(state, now)
	m.recomputeScores(state)

	indicators := scoring.DetectRiskIndicators(state.Responses)
	state.RiskFlags = state.RiskFlags[:0]
	for _, ind := range indicators {
		state.RiskFlags = append(state.RiskFlags, ind.Type)
	}

	result := &SubmitResult{
		Recorded:       true,
		NextQuestion:   m.nextUnanswered(state, age),
		Progress:       m.progress(state),
		Scores:         state.Scores,
		RiskIndicators: indicators,
		Response:       &response,
	}

	slog.Info("assessment response recorded",
		"instrument", question.Instrument, "item", question.ItemNumber,
		"progress", result.Progress, "risk_flags", len(state.RiskFlags))
	return result, nil
}

// CurrentQuestion returns the next item awaiting an answer, or nil when the
// assessment is complete.
func (m *Manager) CurrentQuestion(state *models.AssessmentState, age int) *questionnaire.Question {
	return m.nextUnanswered(state, age)
}

// advanceInstrument moves the pointer forward only: phq_a -> gad_7 once all
// PHQ-A items are answered, then -> complete once all GAD-7 items are too.
func (m *Manager) advanceInstrument(state *models.AssessmentState, now time.Time) {
	phqDone := state.CountResponses(models.InstrumentPHQA) == questionnaire.PHQAItemCount
	gadDone := state.CountResponses(models.InstrumentGAD7) == questionnaire.GAD7ItemCount

	switch {
	case phqDone && gadDone:
		state.CurrentInstrument = models.InstrumentGAD7
		state.Status = models.AssessmentComplete
		completed := now
		state.CompletedAt = &completed
		slog.Info("assessment complete")
	case phqDone && state.CurrentInstrument == models.InstrumentPHQA:
		state.CurrentInstrument = models.InstrumentGAD7
		slog.Info("assessment instrument advanced",
			"from", models.InstrumentPHQA, "to", models.InstrumentGAD7)
	}
}

// recomputeScores refreshes the running totals after each recorded response.
func (m *Manager) recomputeScores(state *models.AssessmentState) {
	scores := &models.AssessmentScores{}
	if phq := scoring.ScoreInstrument(models.InstrumentPHQA, state.Responses); phq != nil {
		scores.PHQATotal = phq.Total
	}
	if gad := scoring.ScoreInstrument(models.InstrumentGAD7, state.Responses); gad != nil {
		scores.GAD7Total = gad.Total
	}
	combined := scoring.ScoreCombined(state.Responses)
	scores.CombinedNormalized = combined.NormalizedScore
	scores.OverallSeverity = combined.OverallSeverity
	state.Scores = scores
}

// nextUnanswered walks the fixed item order and returns the first item with
// no recorded response, bridging PHQ-A -> GAD-7 automatically.
func (m *Manager) nextUnanswered(state *models.AssessmentState, age int) *questionnaire.Question {
	for _, instrument := range []models.Instrument{models.InstrumentPHQA, models.InstrumentGAD7} {
		for _, q := range m.registry.QuestionsFor(instrument, age) {
			if state.FindResponse(q.Instrument, q.ItemNumber) == nil {
				question := q
				return &question
			}
		}
	}
	return nil
}

// progress is completed items over the fixed 16-item total, rounded to the
// nearest integer percent.
func (m *Manager) progress(state *models.AssessmentState) int {
	answered := len(state.Responses)
	return int(math.Round(float64(answered) / float64(questionnaire.TotalItemCount) * 100))
}
