// Package audit is the append-only record of sync attempts. Entries are
// written for diagnosis only and never read back by clubsync.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/banksodee/clubsync/internal/logger"
)

// Event types.
const (
	EventWebhook = "webhook"
	EventImport  = "import"
)

// Status is the outcome of an audited attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPartial Status = "partial"
	StatusIgnored Status = "ignored"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS webhook_logs (
	id CHAR(36) PRIMARY KEY,
	event_type VARCHAR(50) NOT NULL,
	document_type VARCHAR(100) NOT NULL,
	document_id VARCHAR(255) NOT NULL,
	operation VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	error_message TEXT,
	payload JSON,
	processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_document (document_type, document_id),
	INDEX idx_status (status),
	INDEX idx_processed (processed_at)
) ENGINE=InnoDB;
`

const insertSQL = "INSERT INTO webhook_logs (id, event_type, document_type, document_id, operation, status, error_message, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

// Entry describes one sync attempt.
type Entry struct {
	EventType    string
	DocumentType string
	DocumentID   string
	Operation    string
	Status       Status
	ErrorMessage string
	Payload      interface{}
}

// Recorder accepts audit entries. Implementations must not fail the caller.
type Recorder interface {
	Insert(ctx context.Context, e Entry)
}

// Log writes entries to the webhook_logs table.
type Log struct {
	db     *sql.DB
	logger *logger.Logger
}

var _ Recorder = (*Log)(nil)

// NewLog creates an audit log on db.
func NewLog(db *sql.DB, log *logger.Logger) (*Log, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Log{db: db, logger: log}, nil
}

// InitializeTable creates webhook_logs if it does not exist.
func (l *Log) InitializeTable(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create webhook_logs table: %w", err)
	}
	l.logger.Debug("Audit log table initialized")
	return nil
}

// Insert appends e. Failures are logged and swallowed so that auditing never
// blocks the operation being audited.
func (l *Log) Insert(ctx context.Context, e Entry) {
	payload, err := encodePayload(e.Payload)
	if err != nil {
		l.logger.Warnw("audit payload not serialisable, storing without it",
			"document_type", e.DocumentType, "document_id", e.DocumentID, "error", err)
	}

	errorMessage := sql.NullString{String: e.ErrorMessage, Valid: e.ErrorMessage != ""}

	_, err = l.db.ExecContext(ctx, insertSQL,
		uuid.NewString(), e.EventType, e.DocumentType, e.DocumentID, e.Operation, string(e.Status), errorMessage, payload)
	if err != nil {
		l.logger.Errorw("failed to write audit entry",
			"event_type", e.EventType,
			"document_type", e.DocumentType,
			"document_id", e.DocumentID,
			"status", string(e.Status),
			"error", err,
		)
	}
}

func encodePayload(v interface{}) (sql.NullString, error) {
	switch p := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case []byte:
		if json.Valid(p) {
			return sql.NullString{String: string(p), Valid: true}, nil
		}
		v = string(p)
	case json.RawMessage:
		return sql.NullString{String: string(p), Valid: len(p) > 0}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
