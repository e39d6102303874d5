// Package engine orchestrates one inbound parent message against a
// session's conversation and assessment state.
//
// Each call is one atomic unit of work: classification, parsing, and scoring
// are pure in-memory computations, and the caller guarantees at most one
// message per session is processed concurrently. The engine never generates
// chat prose and never calls external services itself; it returns structured
// signals for the collaborators behind the interfaces defined here.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/carebridge/intakepipe/internal/assessment"
	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/conversation"
	"github.com/carebridge/intakepipe/internal/intent"
	"github.com/carebridge/intakepipe/internal/models"
	"github.com/carebridge/intakepipe/internal/parser"
	"github.com/carebridge/intakepipe/internal/questionnaire"
)

// Responder is the generative-response collaborator: given the updated
// structured signals it produces the chat prose shown to the parent. The
// engine never invokes it; the transport layer does.
type Responder interface {
	Compose(ctx context.Context, signals ResponseSignals) (string, error)
}

// Notifier is the human-notification collaborator, invoked by the transport
// layer exactly once per escalation transition.
type Notifier interface {
	NotifyEscalation(ctx context.Context, sessionID string, matchedPhrases []string) error
}

// ResponseSignals is everything the responder needs to write the next
// assistant message without seeing engine internals.
type ResponseSignals struct {
	Mode                models.SessionMode     `json:"mode"`
	Phase               models.IntakePhase     `json:"phase"`
	Intent              models.Intent          `json:"intent"`
	HelpField           string                 `json:"help_field,omitempty"`
	HelpQuestion        string                 `json:"help_question,omitempty"`
	OffTopicTopic       models.TopicCategory   `json:"off_topic_topic,omitempty"`
	EscalationTriggered bool                   `json:"escalation_triggered"`
	NextQuestionText    string                 `json:"next_question_text,omitempty"`
	ClarificationPrompt string                 `json:"clarification_prompt,omitempty"`
	AssessmentProgress  int                    `json:"assessment_progress,omitempty"`
	RiskIndicators      []models.RiskIndicator `json:"risk_indicators,omitempty"`
}

// Input is the per-message contract the engine is invoked with.
type Input struct {
	SessionID          string
	MessageText        string
	Conversation       *models.ConversationState
	Assessment         *models.AssessmentState
	ReadyForAssessment bool
	ChildAge           int
	// LastAssistantQuestion is the question text the assistant most
	// recently asked, supplied by the transport layer so help detours can
	// capture their originating question.
	LastAssistantQuestion string
}

// Output is the structured result handed back after one processing call.
// The state snapshots are complete replacements for the inputs.
type Output struct {
	Conversation   *models.ConversationState    `json:"conversation_state"`
	Assessment     *models.AssessmentState      `json:"assessment_state,omitempty"`
	Classification models.ClassificationResult  `json:"classification"`
	Escalation     models.EscalationResult      `json:"escalation"`
	// EscalationTransitioned is true only on the call where escalation mode
	// was first entered; the transport layer notifies a human on it.
	EscalationTransitioned bool                     `json:"escalation_transitioned"`
	AssessmentResult       *assessment.SubmitResult `json:"assessment_result,omitempty"`
	Errors                 []string                 `json:"errors,omitempty"`
}

// Engine wires the detectors, classifiers, and state machines together.
type Engine struct {
	classifier   *intent.Classifier
	escalation   *intent.EscalationDetector
	conversation *conversation.Manager
	assessment   *assessment.Manager
	registry     *questionnaire.Registry
	auditor      audit.Recorder
	now          func() time.Time
}

// New creates an engine with the default component set.
func New(auditor audit.Recorder) *Engine {
	registry := questionnaire.NewRegistry()
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Engine{
		classifier:   intent.NewClassifier(),
		escalation:   intent.NewEscalationDetector(),
		conversation: conversation.NewManager(),
		assessment:   assessment.NewManager(registry, parser.New()),
		registry:     registry,
		auditor:      auditor,
		now:          time.Now,
	}
}

// ProcessMessage handles one inbound message. Domain failures (validation,
// precondition, duplicate) surface inside Output; the returned error is
// reserved for internal invariant violations.
func (e *Engine) ProcessMessage(ctx context.Context, in Input) (*Output, error) {
	if in.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	now := e.now()

	conv := in.Conversation
	if conv == nil {
		conv = models.NewConversationState(now)
	}

	out := &Output{
		Conversation: conv,
		Assessment:   in.Assessment,
	}

	// The escalation scan runs first on every message, independent of any
	// intent. Detection is per-message; the transition is once per session.
	out.Escalation = e.escalation.Detect(in.MessageText)
	if out.Escalation.Detected {
		out.EscalationTransitioned = e.conversation.RecordEscalation(conv, now)
		if out.EscalationTransitioned {
			e.record(ctx, in.SessionID, audit.ActionEscalationDetected, map[string]string{
				"phase":         string(conv.Phase),
				"matched_count": strconv.Itoa(len(out.Escalation.MatchedPhrases)),
			})
		}
	}

	// Once the session is in the assessment phase, the assessment state
	// machine owns the message exclusively.
	if conv.Phase == models.PhaseAssessment {
		e.processAssessmentMessage(ctx, in, conv, out, now)
		return out, nil
	}

	classifierCtx := intent.Context{
		LastQuestion:          in.LastAssistantQuestion,
		PendingRequiredFields: e.conversation.PendingRequiredFields(conv),
	}
	out.Classification = e.classifier.Classify(in.MessageText, classifierCtx)
	e.conversation.ApplyIntent(conv, out.Classification, in.MessageText, in.LastAssistantQuestion, now)

	switch out.Classification.Intent {
	case models.IntentHelpRequest, models.IntentClarification:
		field := ""
		if conv.Help != nil {
			field = conv.Help.Field
		}
		e.record(ctx, in.SessionID, audit.ActionHelpRequest, map[string]string{
			"phase": string(conv.Phase),
			"field": field,
		})
	case models.IntentOffTopic:
		e.record(ctx, in.SessionID, audit.ActionOffTopicDetour, map[string]string{
			"topic":           out.Classification.MatchedPattern,
			"off_topic_count": strconv.Itoa(conv.OffTopicCount),
		})
	default:
		e.record(ctx, in.SessionID, audit.ActionMessageClassified, map[string]string{
			"intent":     string(out.Classification.Intent),
			"confidence": fmt.Sprintf("%.2f", out.Classification.Confidence),
			"method":     out.Classification.Method,
		})
	}

	return out, nil
}

// processAssessmentMessage routes the message through the assessment state
// machine: parse, record, score, and advance.
func (e *Engine) processAssessmentMessage(ctx context.Context, in Input, conv *models.ConversationState, out *Output, now time.Time) {
	out.Classification = models.ClassificationResult{
		Intent:     models.IntentAnswer,
		Confidence: 1.0,
		Method:     "assessment",
	}

	state := in.Assessment
	if state == nil {
		created, err := e.assessment.Start(in.ReadyForAssessment, now)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
			return
		}
		state = created
		out.Assessment = state
		e.record(ctx, in.SessionID, audit.ActionAssessmentStarted, map[string]string{
			"instrument": string(state.CurrentInstrument),
		})
	}

	current := e.assessment.CurrentQuestion(state, in.ChildAge)
	if current == nil {
		out.Errors = append(out.Errors, models.ErrAssessmentComplete.Error())
		return
	}

	result, err := e.assessment.SubmitResponse(state, current.ID, in.MessageText, in.ChildAge, in.ReadyForAssessment, now)
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		return
	}
	out.AssessmentResult = result

	switch {
	case result.NeedsClarification:
		e.record(ctx, in.SessionID, audit.ActionAssessmentClarification, map[string]string{
			"question_id": current.ID,
		})
	default:
		e.record(ctx, in.SessionID, audit.ActionAssessmentResponseSubmitted, map[string]string{
			"instrument":  string(current.Instrument),
			"item_number": strconv.Itoa(current.ItemNumber),
			"progress":    strconv.Itoa(result.Progress),
		})
		if len(result.RiskIndicators) > 0 {
			e.record(ctx, in.SessionID, audit.ActionRiskIndicatorRaised, map[string]string{
				"risk_flag_count": strconv.Itoa(len(result.RiskIndicators)),
			})
		}
		if state.Status == models.AssessmentComplete {
			e.record(ctx, in.SessionID, audit.ActionAssessmentComplete, map[string]string{
				"progress": strconv.Itoa(result.Progress),
			})
		}
	}
}

// SubmitAssessment records one answer against an explicit question id,
// starting the assessment lazily when no state exists yet. It is the
// entry point for direct (non-conversational) answer submission.
func (e *Engine) SubmitAssessment(ctx context.Context, sessionID string, state *models.AssessmentState, questionID, text string, age int, ready bool) (*assessment.SubmitResult, *models.AssessmentState, error) {
	now := e.now()
	if state == nil {
		created, err := e.assessment.Start(ready, now)
		if err != nil {
			return nil, nil, err
		}
		state = created
		e.record(ctx, sessionID, audit.ActionAssessmentStarted, map[string]string{
			"instrument": string(state.CurrentInstrument),
		})
	}

	result, err := e.assessment.SubmitResponse(state, questionID, text, age, ready, now)
	if err != nil {
		return nil, state, err
	}

	switch {
	case result.NeedsClarification:
		e.record(ctx, sessionID, audit.ActionAssessmentClarification, map[string]string{
			"question_id": questionID,
		})
	default:
		e.record(ctx, sessionID, audit.ActionAssessmentResponseSubmitted, map[string]string{
			"question_id": questionID,
			"progress":    strconv.Itoa(result.Progress),
		})
		if len(result.RiskIndicators) > 0 {
			e.record(ctx, sessionID, audit.ActionRiskIndicatorRaised, map[string]string{
				"risk_flag_count": strconv.Itoa(len(result.RiskIndicators)),
			})
		}
		if state.Status == models.AssessmentComplete {
			e.record(ctx, sessionID, audit.ActionAssessmentComplete, map[string]string{
				"progress": strconv.Itoa(result.Progress),
			})
		}
	}
	return result, state, nil
}

// ConfirmPhaseComplete advances the intake phase after external field
// validation and records the transition.
func (e *Engine) ConfirmPhaseComplete(ctx context.Context, sessionID string, conv *models.ConversationState) models.IntakePhase {
	phase := e.conversation.ConfirmPhaseComplete(conv, e.now())
	e.record(ctx, sessionID, audit.ActionIntakePhaseAdvanced, map[string]string{
		"phase": string(phase),
	})
	return phase
}

// Signals derives the responder input from a processing output.
func (e *Engine) Signals(out *Output, age int) ResponseSignals {
	signals := ResponseSignals{
		Mode:                out.Conversation.Mode,
		Phase:               out.Conversation.Phase,
		Intent:              out.Classification.Intent,
		EscalationTriggered: out.Conversation.EscalationTriggered,
	}
	if out.Conversation.Help != nil {
		signals.HelpField = out.Conversation.Help.Field
		signals.HelpQuestion = out.Conversation.Help.Question
	}
	if out.Conversation.OffTopic != nil {
		signals.OffTopicTopic = out.Conversation.OffTopic.Topic
	}
	if result := out.AssessmentResult; result != nil {
		signals.AssessmentProgress = result.Progress
		signals.ClarificationPrompt = result.ClarificationPrompt
		signals.RiskIndicators = result.RiskIndicators
		if result.NextQuestion != nil {
			signals.NextQuestionText = result.NextQuestion.Text
		}
	}
	return signals
}

// record forwards a metadata-only audit entry; failures are logged, never
// propagated into message processing.
func (e *Engine) record(ctx context.Context, sessionID, action string, metadata map[string]string) {
	entry := audit.Entry{
		SessionID:  sessionID,
		Action:     action,
		Metadata:   metadata,
		RecordedAt: e.now(),
	}
	if err := e.auditor.Record(ctx, entry); err != nil {
		slog.Warn("audit recording failed", "action", action, "error", err)
	}
}
