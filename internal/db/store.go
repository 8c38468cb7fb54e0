// Package db persists completed sessions to SQLite. The daemon opens the
// database read-write; the TUI and MCP server open it read-only. A reloaded
// session reproduces the exact segment sequence that was saved.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"verbatim/internal/transcript"
)

// ErrSessionNotFound is returned when a session ID has no stored record.
var ErrSessionNotFound = errors.New("session not found")

// Store wraps the verbatim SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".verbatim", "verbatim.sqlite")
}

// Open opens the database read-write with WAL, creating the file and schema
// if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	return openDSN(dsn, true)
}

// OpenReadOnly opens the database in read-only mode with WAL.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", path)
	return openDSN(dsn, false)
}

func openDSN(dsn string, migrate bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if migrate {
		if err := ensureSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession persists a session and its segments in one transaction,
// replacing any prior record with the same session ID.
func (s *Store) SaveSession(session transcript.Session, segments []transcript.Segment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	var endedAt any
	if session.EndedAt != nil {
		endedAt = timeToUnix(*session.EndedAt)
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO sessions (id, locale, device, audio, engine, status, createdAt, endedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Locale, session.Device, session.Audio, session.Engine,
		session.Status, timeToUnix(session.CreatedAt), endedAt); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM segments WHERE sessionId = ?`, session.ID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for _, seg := range segments {
		var confidence any
		if seg.Confidence != nil {
			confidence = *seg.Confidence
		}
		if _, err := tx.Exec(`
			INSERT INTO segments (id, sessionId, text, startMs, endMs, confidence, revision, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, seg.ID, session.ID, seg.Text, seg.Start, seg.End, confidence,
			seg.Revision, string(seg.Status)); err != nil {
			return fmt.Errorf("save segment %s: %w", seg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadSession returns a stored session and its segments ordered by start
// time. It returns ErrSessionNotFound for unknown IDs.
func (s *Store) LoadSession(id string) (transcript.Session, []transcript.Segment, error) {
	row := s.db.QueryRow(`
		SELECT id, locale, device, audio, engine, status, createdAt, endedAt
		FROM sessions
		WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transcript.Session{}, nil, ErrSessionNotFound
		}
		return transcript.Session{}, nil, fmt.Errorf("scan session: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, text, startMs, endMs, confidence, revision, status
		FROM segments
		WHERE sessionId = ?
		ORDER BY startMs ASC, id ASC
	`, id)
	if err != nil {
		return transcript.Session{}, nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []transcript.Segment
	for rows.Next() {
		var seg transcript.Segment
		var confidence sql.NullFloat64
		var status string
		if err := rows.Scan(&seg.ID, &seg.Text, &seg.Start, &seg.End,
			&confidence, &seg.Revision, &status); err != nil {
			return transcript.Session{}, nil, fmt.Errorf("scan segment: %w", err)
		}
		if confidence.Valid {
			c := confidence.Float64
			seg.Confidence = &c
		}
		seg.Status = transcript.SegmentStatus(status)
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return transcript.Session{}, nil, fmt.Errorf("iterate segments: %w", err)
	}

	return session, segments, nil
}

// SessionSummary is one row of a session listing.
type SessionSummary struct {
	Session      transcript.Session
	SegmentCount int
}

// ListSessions returns stored sessions newest-first with segment counts.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.locale, s.device, s.audio, s.engine, s.status, s.createdAt, s.endedAt,
			COUNT(g.id)
		FROM sessions s
		LEFT JOIN segments g ON g.sessionId = s.id
		GROUP BY s.id
		ORDER BY s.createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var createdAt float64
		var endedAt sql.NullFloat64
		if err := rows.Scan(&sum.Session.ID, &sum.Session.Locale, &sum.Session.Device,
			&sum.Session.Audio, &sum.Session.Engine, &sum.Session.Status,
			&createdAt, &endedAt, &sum.SegmentCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.Session.CreatedAt = timeFromUnix(createdAt)
		if endedAt.Valid {
			t := timeFromUnix(endedAt.Float64)
			sum.Session.EndedAt = &t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (transcript.Session, error) {
	var session transcript.Session
	var createdAt float64
	var endedAt sql.NullFloat64

	if err := row.Scan(&session.ID, &session.Locale, &session.Device, &session.Audio,
		&session.Engine, &session.Status, &createdAt, &endedAt); err != nil {
		return transcript.Session{}, err
	}

	session.CreatedAt = timeFromUnix(createdAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		session.EndedAt = &t
	}
	return session, nil
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
