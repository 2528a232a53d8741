package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manager 管理磁盘目录布局
// Manager owns the on-disk directory layout
type Manager struct {
	baseDir  string
	cacheDir string
	stateDir string
}

func NewManager(baseDir string) (*Manager, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("storage base dir is empty")
	}
	m := &Manager{
		baseDir:  baseDir,
		cacheDir: filepath.Join(baseDir, "cache"),
		stateDir: filepath.Join(baseDir, "state"),
	}
	for _, dir := range []string{m.baseDir, m.cacheDir, m.stateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return m, nil
}

func (m *Manager) BaseDir() string  { return m.baseDir }
func (m *Manager) CacheDir() string { return m.cacheDir }
func (m *Manager) StateDir() string { return m.stateDir }

// DBPath 会话历史数据库路径 / Path of the conversation history database
func (m *Manager) DBPath() string {
	return filepath.Join(m.baseDir, "persona.db")
}

// REPLHistoryPath readline 输入历史文件路径 / Path of the readline input history
func (m *Manager) REPLHistoryPath() string {
	return filepath.Join(m.stateDir, "repl_history")
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// sanitizeName 把用户名映射成安全的文件名成分
// sanitizeName maps a username onto a filesystem-safe name component
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
