package db

import (
	"database/sql"
	"fmt"
)

// Millisecond offsets are INTEGER columns; wall-clock times are REAL unix
// seconds. Segment rows are keyed per session so engine-assigned IDs only
// need to be unique within one session.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	locale TEXT NOT NULL,
	device TEXT NOT NULL DEFAULT '',
	audio TEXT NOT NULL DEFAULT '',
	engine TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'recording',
	createdAt REAL NOT NULL,
	endedAt REAL
);

CREATE TABLE IF NOT EXISTS segments (
	id TEXT NOT NULL,
	sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	startMs INTEGER NOT NULL,
	endMs INTEGER NOT NULL,
	confidence REAL,
	revision INTEGER NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (sessionId, id)
);

CREATE INDEX IF NOT EXISTS idx_segments_session_start
	ON segments(sessionId, startMs);
`

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
