// Package store provides storage backends for intakepipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists session state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens (and migrates) the database at the DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied")

	return &PostgresStore{db: db}, nil
}

// CreateSession inserts a new session record.
func (s *PostgresStore) CreateSession(sess models.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, child_age, ready_for_assessment, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.ChildAge, sess.ReadyForAssessment, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", sess.ID, err)
	}
	return nil
}

// GetSession loads one session record.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(
		`SELECT id, child_age, ready_for_assessment, created_at, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.ChildAge, &sess.ReadyForAssessment, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return &sess, nil
}

// SetSessionReady flips the ready-for-assessment flag.
func (s *PostgresStore) SetSessionReady(id string, ready bool) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ready_for_assessment = $1, updated_at = $2 WHERE id = $3`,
		ready, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// SaveConversationState upserts the versioned state blob.
func (s *PostgresStore) SaveConversationState(sessionID string, state *models.ConversationState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize conversation state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO conversation_states (session_id, state_version, state_json, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET state_version = EXCLUDED.state_version, state_json = EXCLUDED.state_json, updated_at = EXCLUDED.updated_at`,
		sessionID, state.Version, blob, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation state for %s: %w", sessionID, err)
	}
	return nil
}

// GetConversationState loads the state blob, or nil when none exists yet.
func (s *PostgresStore) GetConversationState(sessionID string) (*models.ConversationState, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state_json FROM conversation_states WHERE session_id = $1`, sessionID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation state for %s: %w", sessionID, err)
	}
	var state models.ConversationState
	if err := state.FromJSON(blob); err != nil {
		return nil, fmt.Errorf("failed to parse conversation state for %s: %w", sessionID, err)
	}
	return &state, nil
}

// SaveAssessmentState upserts the versioned assessment blob.
func (s *PostgresStore) SaveAssessmentState(sessionID string, state *models.AssessmentState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize assessment state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO assessment_states (session_id, state_version, state_json, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET state_version = EXCLUDED.state_version, state_json = EXCLUDED.state_json, updated_at = EXCLUDED.updated_at`,
		sessionID, state.Version, blob, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment state for %s: %w", sessionID, err)
	}
	return nil
}

// GetAssessmentState loads the assessment blob, or nil when none exists yet.
func (s *PostgresStore) GetAssessmentState(sessionID string) (*models.AssessmentState, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state_json FROM assessment_states WHERE session_id = $1`, sessionID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assessment state for %s: %w", sessionID, err)
	}
	var state models.AssessmentState
	if err := state.FromJSON(blob); err != nil {
		return nil, fmt.Errorf("failed to parse assessment state for %s: %w", sessionID, err)
	}
	return &state, nil
}

// AddAuditEntry appends one audit record.
func (s *PostgresStore) AddAuditEntry(entry audit.Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize audit metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_entries (session_id, action, metadata_json, recorded_at) VALUES ($1, $2, $3, $4)`,
		entry.SessionID, entry.Action, string(metadata), entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// GetAuditEntries returns a session's audit records in insertion order.
func (s *PostgresStore) GetAuditEntries(sessionID string) ([]audit.Entry, error) {
	rows, err := s.db.Query(
		`SELECT session_id, action, metadata_json, recorded_at FROM audit_entries WHERE session_id = $1 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
