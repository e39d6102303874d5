// Package store provides storage backends for intakepipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists session state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the SQLite database at the DSN path.
// The containing directory is created if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied")

	return &SQLiteStore{db: db}, nil
}

// CreateSession inserts a new session record.
func (s *SQLiteStore) CreateSession(sess models.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, child_age, ready_for_assessment, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.ChildAge, sess.ReadyForAssessment, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore CreateSession succeeded", "session", sess.ID)
	return nil
}

// GetSession loads one session record.
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(
		`SELECT id, child_age, ready_for_assessment, created_at, updated_at FROM sessions WHERE id = ?`, id,
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
func (s *SQLiteStore) SetSessionReady(id string, ready bool) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ready_for_assessment = ?, updated_at = ? WHERE id = ?`,
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
func (s *SQLiteStore) SaveConversationState(sessionID string, state *models.ConversationState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize conversation state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO conversation_states (session_id, state_version, state_json, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET state_version = excluded.state_version, state_json = excluded.state_json, updated_at = excluded.updated_at`,
		sessionID, state.Version, blob, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation state for %s: %w", sessionID, err)
	}
	return nil
}

// GetConversationState loads the state blob, or nil when none exists yet.
func (s *SQLiteStore) GetConversationState(sessionID string) (*models.ConversationState, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state_json FROM conversation_states WHERE session_id = ?`, sessionID,
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
func (s *SQLiteStore) SaveAssessmentState(sessionID string, state *models.AssessmentState) error {
	blob, err := state.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize assessment state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO assessment_states (session_id, state_version, state_json, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET state_version = excluded.state_version, state_json = excluded.state_json, updated_at = excluded.updated_at`,
		sessionID, state.Version, blob, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment state for %s: %w", sessionID, err)
	}
	return nil
}

// GetAssessmentState loads the assessment blob, or nil when none exists yet.
func (s *SQLiteStore) GetAssessmentState(sessionID string) (*models.AssessmentState, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state_json FROM assessment_states WHERE session_id = ?`, sessionID,
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
func (s *SQLiteStore) AddAuditEntry(entry audit.Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize audit metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_entries (session_id, action, metadata_json, recorded_at) VALUES (?, ?, ?, ?)`,
		entry.SessionID, entry.Action, string(metadata), entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// GetAuditEntries returns a session's audit records in insertion order.
func (s *SQLiteStore) GetAuditEntries(sessionID string) ([]audit.Entry, error) {
	rows, err := s.db.Query(
		`SELECT session_id, action, metadata_json, recorded_at FROM audit_entries WHERE session_id = ? ORDER BY id`, sessionID,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
