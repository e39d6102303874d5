package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/carebridge/intakepipe/internal/audit"
)

// scanAuditEntry scans one audit row, decoding the metadata JSON column.
func scanAuditEntry(rows *sql.Rows) (audit.Entry, error) {
	var entry audit.Entry
	var metadataJSON sql.NullString
	if err := rows.Scan(&entry.SessionID, &entry.Action, &metadataJSON, &entry.RecordedAt); err != nil {
		return entry, fmt.Errorf("scan audit entry failed: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
			return entry, fmt.Errorf("decode audit metadata failed: %w", err)
		}
	}
	return entry, nil
}
