package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/neilberkman/cfchat/internal/core/models"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ListLimit caps GET /chat/sessions, matching the production backend.
const ListLimit = 20

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL DEFAULT 'New Chat',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
`

// DB wraps the SQLite database behind the dev server
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates the database file if needed and initializes the schema
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn, now: time.Now}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(timeLayout)
}

// CreateSession inserts an empty session with the given title
func (db *DB) CreateSession(ctx context.Context, title string) (models.Session, error) {
	ts := db.timestamp()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO chat_sessions (title, created_at, updated_at) VALUES (?, ?, ?)
	`, title, ts, ts)
	if err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Session{}, err
	}
	updated, _ := time.Parse(timeLayout, ts)
	return models.Session{ID: formatID(id), Title: title, UpdatedAt: updated}, nil
}

// ListSessions returns the most recently updated sessions first
func (db *DB) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			s.id,
			s.title,
			(SELECT COUNT(*) FROM chat_messages WHERE session_id = s.id) AS message_count,
			s.updated_at
		FROM chat_sessions s
		ORDER BY s.updated_at DESC, s.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession returns a session with its messages in insertion order.
// found is false when the id does not exist.
func (db *DB) GetSession(ctx context.Context, id int64) (detail models.SessionDetail, found bool, err error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT
			s.id,
			s.title,
			(SELECT COUNT(*) FROM chat_messages WHERE session_id = s.id),
			s.updated_at
		FROM chat_sessions s
		WHERE s.id = ?
	`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return models.SessionDetail{}, false, nil
	}
	if err != nil {
		return models.SessionDetail{}, false, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY id ASC
	`, id)
	if err != nil {
		return models.SessionDetail{}, false, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var role, content, createdAt string
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return models.SessionDetail{}, false, err
		}
		created, _ := time.Parse(timeLayout, createdAt)
		// Stored roles keep the backend's vocabulary ("model"), so keep them raw here
		messages = append(messages, models.Message{Role: models.Role(role), Content: content, CreatedAt: created})
	}
	if err := rows.Err(); err != nil {
		return models.SessionDetail{}, false, err
	}

	return models.SessionDetail{Session: sess, Messages: messages}, true, nil
}

// DeleteSession removes a session and, through the foreign key, its messages
func (db *DB) DeleteSession(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendMessage stores a message and bumps the session's updated_at
func (db *DB) AppendMessage(ctx context.Context, sessionID int64, role, content string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := db.timestamp()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)
	`, sessionID, role, content, ts); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, ts, sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var (
		id        int64
		s         models.Session
		updatedAt string
	)
	if err := row.Scan(&id, &s.Title, &s.MessageCount, &updatedAt); err != nil {
		return models.Session{}, err
	}
	s.ID = formatID(id)
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return s, nil
}

func formatID(id int64) models.SessionID {
	return models.SessionID(strconv.FormatInt(id, 10))
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}
