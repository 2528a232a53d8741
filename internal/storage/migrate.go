package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"persona/internal/chat"
)

// legacyExchange 旧版 JSON 历史中的一次问答
// legacyExchange is a single question/answer pair from the legacy JSON history format.
type legacyExchange struct {
	Timestamp string `json:"timestamp"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// MigrateFromJSON 将旧版 chat_history JSON 文件迁移到 SQLite
// MigrateFromJSON imports legacy chat_history/<username>_history.json files
// into the SQLite store. Users that already have a stored conversation are
// skipped, so re-running the migration is harmless.
func MigrateFromJSON(jsonDir string, store *HistoryStore) (int, error) {
	jsonDir = strings.TrimSpace(jsonDir)
	if jsonDir == "" {
		return 0, nil
	}

	historyDir := filepath.Join(jsonDir, "chat_history")
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read history dir: %w", err)
	}

	migrated := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_history.json") {
			continue
		}

		username := strings.TrimSuffix(e.Name(), "_history.json")
		if username == "" {
			continue
		}

		// 检查是否已迁移 / Check if already migrated
		if exists, hasErr := store.Has(username); hasErr != nil || exists {
			continue
		}

		path := filepath.Join(historyDir, e.Name())
		turns, err := loadLegacyHistory(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip migrate %s: %v\n", path, err)
			continue
		}
		if len(turns) == 0 {
			continue
		}

		if err := store.Save(username, turns); err != nil {
			fmt.Fprintf(os.Stderr, "migrate history %s failed: %v\n", username, err)
			continue
		}
		migrated++
	}
	return migrated, nil
}

func loadLegacyHistory(path string) ([]chat.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var exchanges []legacyExchange
	if err := json.Unmarshal(data, &exchanges); err != nil {
		return nil, err
	}

	turns := make([]chat.Turn, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		ts := normalizeLegacyTimestamp(ex.Timestamp)
		if strings.TrimSpace(ex.Question) != "" {
			turns = append(turns, chat.Turn{Role: chat.RoleUser, Content: ex.Question, Timestamp: ts})
		}
		if strings.TrimSpace(ex.Answer) != "" {
			turns = append(turns, chat.Turn{Role: chat.RoleAssistant, Content: ex.Answer, Timestamp: ts})
		}
	}
	return turns, nil
}

// normalizeLegacyTimestamp 尽量转换为 RFC3339，失败则原样保留
// normalizeLegacyTimestamp converts legacy timestamps to RFC3339 UTC when the
// format is recognized and keeps the raw value otherwise.
func normalizeLegacyTimestamp(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}
