package store

import (
	"sync"
	"time"

	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/models"
)

// InMemoryStore keeps all session state in process memory. Used for tests
// and for running without a database configured.
type InMemoryStore struct {
	mu            sync.RWMutex
	sessions      map[string]models.Session
	conversations map[string]string
	assessments   map[string]string
	auditEntries  []audit.Entry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:      make(map[string]models.Session),
		conversations: make(map[string]string),
		assessments:   make(map[string]string),
	}
}

// CreateSession stores a new session record.
func (s *InMemoryStore) CreateSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// GetSession returns the session or models.ErrSessionNotFound.
func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return &sess, nil
}

// SetSessionReady flips the ready-for-assessment flag.
func (s *InMemoryStore) SetSessionReady(id string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.ErrSessionNotFound
	}
	sess.ReadyForAssessment = ready
	sess.UpdatedAt = time.Now()
	s.sessions[id] = sess
	return nil
}

// SaveConversationState persists the state blob for a session.
func (s *InMemoryStore) SaveConversationState(sessionID string, state *models.ConversationState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[sessionID] = blob
	return nil
}

// GetConversationState loads the state blob, or nil when none exists yet.
func (s *InMemoryStore) GetConversationState(sessionID string) (*models.ConversationState, error) {
	s.mu.RLock()
	blob, ok := s.conversations[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var state models.ConversationState
	if err := state.FromJSON(blob); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveAssessmentState persists the assessment blob for a session.
func (s *InMemoryStore) SaveAssessmentState(sessionID string, state *models.AssessmentState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[sessionID] = blob
	return nil
}

// GetAssessmentState loads the assessment blob, or nil when none exists yet.
func (s *InMemoryStore) GetAssessmentState(sessionID string) (*models.AssessmentState, error) {
	s.mu.RLock()
	blob, ok := s.assessments[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var state models.AssessmentState
	if err := state.FromJSON(blob); err != nil {
		return nil, err
	}
	return &state, nil
}

// AddAuditEntry appends an audit record.
func (s *InMemoryStore) AddAuditEntry(entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEntries = append(s.auditEntries, entry)
	return nil
}

// GetAuditEntries returns all entries for a session in insertion order.
func (s *InMemoryStore) GetAuditEntries(sessionID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []audit.Entry
	for _, e := range s.auditEntries {
		if e.SessionID == sessionID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
