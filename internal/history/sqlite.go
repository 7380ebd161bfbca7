package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/parleylabs/parley-relay/internal/config"
)

type sqliteStore struct {
	db    *sql.DB
	max   int
	log   *slog.Logger
	clock func() time.Time
}

// OpenSQLite opens a SQLite-backed chat log. The same trim-after-append cap
// applies as for the memory store; rows survive process restarts.
func OpenSQLite(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &sqliteStore{db: db, max: cfg.MaxMessages, log: log, clock: time.Now}
	if s.max <= 0 {
		s.max = 100
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    msg_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_user_created ON messages(user_id, id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *sqliteStore) Append(ctx context.Context, userID, role, content string) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages(msg_id, user_id, role, content, created_at) VALUES(?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return Message{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ? AND id NOT IN (
			SELECT id FROM messages WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`, userID, userID, s.max); err != nil {
		return Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (s *sqliteStore) List(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT msg_id, user_id, role, content, created_at
		 FROM messages WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var created string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			m.CreatedAt = ts
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *sqliteStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, userID)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
