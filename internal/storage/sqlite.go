package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"persona/internal/chat"

	_ "modernc.org/sqlite"
)

// HistoryStore 基于 SQLite (WAL 模式) 的会话历史持久化
// HistoryStore persists conversation history in SQLite with WAL mode
type HistoryStore struct {
	db   *sql.DB
	path string
}

// NewHistoryStore 创建并初始化 SQLite 数据库
// NewHistoryStore creates and initializes the SQLite database
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &HistoryStore{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *HistoryStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		username   TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		username   TEXT NOT NULL REFERENCES conversations(username) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY(username, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_turns_username ON turns(username, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (s *HistoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load 按序返回完整会话；不存在的用户名返回空日志而非错误
// Load returns the full log in order; an unknown username yields an empty
// log, not an error
func (s *HistoryStore) Load(username string) ([]chat.Turn, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is empty")
	}
	rows, err := s.db.Query(`
		SELECT role, content, created_at
		FROM turns WHERE username=? ORDER BY seq`, username)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var turn chat.Turn
		if err := rows.Scan(&turn.Role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Save 在单个事务内重写完整日志：读取方永远看不到写到一半的会话
// Save rewrites the full log in one transaction: readers never observe a
// partially written conversation
func (s *HistoryStore) Save(username string, turns []chat.Turn) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowUTC()
	if _, err := tx.Exec(`
		INSERT INTO conversations (username, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET updated_at=excluded.updated_at`,
		username, now, now); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	// 清除旧日志 / Clear the old log
	if _, err := tx.Exec("DELETE FROM turns WHERE username=?", username); err != nil {
		return fmt.Errorf("delete old turns: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO turns (username, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, turn := range turns {
		createdAt := strings.TrimSpace(turn.Timestamp)
		if createdAt == "" {
			createdAt = now
		}
		if _, err := stmt.Exec(username, i, turn.Role, turn.Content, createdAt); err != nil {
			return fmt.Errorf("insert turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Clear 删除该用户的会话（级联删除所有 turn）
// Clear removes the user's conversation (turns cascade)
func (s *HistoryStore) Clear(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is empty")
	}
	if _, err := s.db.Exec("DELETE FROM conversations WHERE username=?", username); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Has 判断该用户是否已有会话 / Has reports whether the user has a stored conversation
func (s *HistoryStore) Has(username string) (bool, error) {
	row := s.db.QueryRow("SELECT 1 FROM conversations WHERE username=?", strings.TrimSpace(username))
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query conversation: %w", err)
	}
	return true, nil
}
