// Package store provides storage backends for intakepipe session state.
//
// Conversation and assessment state are persisted as versioned JSON blobs
// keyed by session id; the core treats the store as get/set with no
// transactional semantics of its own. In-memory, SQLite, and PostgreSQL
// backends are provided.
package store

import (
	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/models"
)

// Store is the persistence contract the API layer depends on.
type Store interface {
	CreateSession(s models.Session) error
	GetSession(id string) (*models.Session, error)
	SetSessionReady(id string, ready bool) error

	SaveConversationState(sessionID string, state *models.ConversationState) error
	GetConversationState(sessionID string) (*models.ConversationState, error)

	SaveAssessmentState(sessionID string, state *models.AssessmentState) error
	GetAssessmentState(sessionID string) (*models.AssessmentState, error)

	AddAuditEntry(entry audit.Entry) error
	GetAuditEntries(sessionID string) ([]audit.Entry, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// connection URL for PostgreSQL.
	DSN string
	// Driver selects the backend: "sqlite3" or "postgres".
	Driver string
	// MaxOpenConns caps the connection pool; zero leaves the driver default.
	MaxOpenConns int
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithDriver sets the database driver name.
func WithDriver(driver string) Option {
	return func(o *Opts) { o.Driver = driver }
}

// WithMaxOpenConns caps the database connection pool size.
func WithMaxOpenConns(n int) Option {
	return func(o *Opts) { o.MaxOpenConns = n }
}
