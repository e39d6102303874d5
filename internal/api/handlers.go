// Package api provides HTTP handlers for intakepipe endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/intakepipe/internal/assessment"
	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/engine"
	"github.com/carebridge/intakepipe/internal/models"
)

// createSessionRequest is the body for POST /sessions.
type createSessionRequest struct {
	ChildAge int `json:"child_age"`
}

// messageRequest is the body for POST /sessions/{id}/messages.
type messageRequest struct {
	Message string `json:"message"`
	// LastAssistantQuestion is the question the client most recently showed
	// the parent, so help detours can capture their originating question.
	LastAssistantQuestion string `json:"last_assistant_question,omitempty"`
}

// messageResult is the payload returned after one processed message.
type messageResult struct {
	Reply                  string                      `json:"reply,omitempty"`
	Classification         models.ClassificationResult `json:"classification"`
	Escalation             models.EscalationResult     `json:"escalation"`
	EscalationTransitioned bool                        `json:"escalation_transitioned"`
	Conversation           *models.ConversationState   `json:"conversation_state"`
	AssessmentResult       *assessment.SubmitResult    `json:"assessment_result,omitempty"`
	Errors                 []string                    `json:"errors,omitempty"`
}

// assessmentResponseRequest is the body for POST /sessions/{id}/assessment/responses.
type assessmentResponseRequest struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	now := time.Now()
	sess := models.Session{
		ID:        uuid.NewString(),
		ChildAge:  req.ChildAge,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sess.Validate(); err != nil {
		slog.Warn("Server.createSessionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.st.CreateSession(sess); err != nil {
		slog.Error("Server.createSessionHandler: failed to create session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}

	if err := s.auditor.Record(r.Context(), audit.Entry{
		SessionID:  sess.ID,
		Action:     audit.ActionSessionCreated,
		RecordedAt: now,
	}); err != nil {
		slog.Warn("Server.createSessionHandler: audit recording failed", "error", err)
	}

	slog.Info("Server.createSessionHandler: session created", "session", sess.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(sess))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.getSessionHandler invoked", "session", id)

	sess, err := s.st.GetSession(id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.getSessionHandler failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	conv, err := s.st.GetConversationState(id)
	if err != nil {
		slog.Error("Server.getSessionHandler: failed to load conversation state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"session":            sess,
		"conversation_state": conv,
	}))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	slog.Debug("Server.messageHandler invoked", "session", id)

	sess, err := s.st.GetSession(id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.messageHandler: failed to get session", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	conv, err := s.st.GetConversationState(id)
	if err != nil {
		slog.Error("Server.messageHandler: failed to load conversation state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session state"))
		return
	}
	asmt, err := s.st.GetAssessmentState(id)
	if err != nil {
		slog.Error("Server.messageHandler: failed to load assessment state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session state"))
		return
	}

	out, err := s.engine.ProcessMessage(r.Context(), engine.Input{
		SessionID:             id,
		MessageText:           req.Message,
		Conversation:          conv,
		Assessment:            asmt,
		ReadyForAssessment:    sess.ReadyForAssessment,
		ChildAge:              sess.ChildAge,
		LastAssistantQuestion: req.LastAssistantQuestion,
	})
	if err != nil {
		slog.Error("Server.messageHandler: engine processing failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	// Human notification fires exactly once, on the transition into
	// escalation mode. Delivery failures never fail the message.
	if out.EscalationTransitioned && s.notifier != nil {
		if err := s.notifier.NotifyEscalation(r.Context(), id, out.Escalation.MatchedPhrases); err != nil {
			slog.Error("Server.messageHandler: escalation notification failed", "error", err, "session", id)
		}
	}

	if err := s.st.SaveConversationState(id, out.Conversation); err != nil {
		slog.Error("Server.messageHandler: failed to save conversation state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session state"))
		return
	}
	if out.Assessment != nil {
		if err := s.st.SaveAssessmentState(id, out.Assessment); err != nil {
			slog.Error("Server.messageHandler: failed to save assessment state", "error", err, "session", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session state"))
			return
		}
	}

	result := messageResult{
		Classification:         out.Classification,
		Escalation:             out.Escalation,
		EscalationTransitioned: out.EscalationTransitioned,
		Conversation:           out.Conversation,
		AssessmentResult:       out.AssessmentResult,
		Errors:                 out.Errors,
	}
	if s.responder != nil {
		reply, err := s.responder.Compose(r.Context(), s.engine.Signals(out, sess.ChildAge))
		if err != nil {
			slog.Error("Server.messageHandler: response composition failed", "error", err, "session", id)
		} else {
			result.Reply = reply
		}
	}

	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) markReadyHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.markReadyHandler invoked", "session", id)

	err := s.st.SetSessionReady(id, true)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.markReadyHandler failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update session"))
		return
	}

	slog.Info("Server.markReadyHandler: session marked ready for assessment", "session", id)
	writeJSONResponse(w, http.StatusOK, models.Recorded(nil))
}

func (s *Server) confirmPhaseHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.confirmPhaseHandler invoked", "session", id)

	if _, err := s.st.GetSession(id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.confirmPhaseHandler: failed to get session", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	conv, err := s.st.GetConversationState(id)
	if err != nil {
		slog.Error("Server.confirmPhaseHandler: failed to load conversation state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session state"))
		return
	}
	if conv == nil {
		conv = models.NewConversationState(time.Now())
	}

	phase := s.engine.ConfirmPhaseComplete(r.Context(), id, conv)
	if err := s.st.SaveConversationState(id, conv); err != nil {
		slog.Error("Server.confirmPhaseHandler: failed to save conversation state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session state"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"phase": string(phase)}))
}

func (s *Server) assessmentResponseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	slog.Debug("Server.assessmentResponseHandler invoked", "session", id)

	sess, err := s.st.GetSession(id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.assessmentResponseHandler: failed to get session", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	var req assessmentResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.assessmentResponseHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	state, err := s.st.GetAssessmentState(id)
	if err != nil {
		slog.Error("Server.assessmentResponseHandler: failed to load assessment state", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session state"))
		return
	}

	result, state, err := s.engine.SubmitAssessment(r.Context(), id, state, req.QuestionID, req.Text, sess.ChildAge, sess.ReadyForAssessment)
	if err != nil {
		slog.Warn("Server.assessmentResponseHandler: submission rejected", "error", err, "session", id, "question_id", req.QuestionID)
		writeJSONResponse(w, domainErrorStatus(err), models.Error(err.Error()))
		return
	}

	if state != nil {
		if err := s.st.SaveAssessmentState(id, state); err != nil {
			slog.Error("Server.assessmentResponseHandler: failed to save assessment state", "error", err, "session", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session state"))
			return
		}
	}

	if result.Recorded {
		writeJSONResponse(w, http.StatusOK, models.Recorded(result))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) getAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.getAssessmentHandler invoked", "session", id)

	if _, err := s.st.GetSession(id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.getAssessmentHandler: failed to get session", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get session"))
		return
	}

	state, err := s.st.GetAssessmentState(id)
	if err != nil {
		slog.Error("Server.getAssessmentHandler failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get assessment"))
		return
	}
	if state == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Assessment not started"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

func (s *Server) getAuditHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.getAuditHandler invoked", "session", id)

	entries, err := s.st.GetAuditEntries(id)
	if err != nil {
		slog.Error("Server.getAuditHandler failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch audit entries"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// domainErrorStatus maps engine sentinel errors to HTTP status codes.
func domainErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrQuestionAlreadyAnswered),
		errors.Is(err, models.ErrAssessmentNotReady),
		errors.Is(err, models.ErrAssessmentComplete):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyResponseText),
		errors.Is(err, models.ErrResponseTextTooLong),
		errors.Is(err, models.ErrInvalidQuestionID),
		errors.Is(err, models.ErrLikertOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
