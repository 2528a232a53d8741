package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"persona/internal/reddit"
)

// CacheEntry 以 (username, kind) 为键的一条缓存
// CacheEntry is one cached listing, keyed by (username, kind)
type CacheEntry struct {
	Username  string                  `json:"username"`
	Kind      string                  `json:"kind"`
	FetchedAt string                  `json:"fetched_at"` // RFC3339 UTC
	Records   []reddit.ActivityRecord `json:"records"`
}

// FetchedTime 解析 FetchedAt；Read 已校验过格式
// FetchedTime parses FetchedAt; Read has already validated the format
func (e CacheEntry) FetchedTime() time.Time {
	t, err := time.Parse(time.RFC3339, e.FetchedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TimedCache 磁盘活动缓存，每个键一个 JSON 文件
// TimedCache is the on-disk activity cache, one JSON file per key
type TimedCache struct {
	dir string
}

func NewTimedCache(dir string) *TimedCache {
	return &TimedCache{dir: dir}
}

func (c *TimedCache) entryPath(username, kind string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.json", sanitizeName(username), kind))
}

// Read 读取缓存条目。缺失、不可读、JSON 损坏或时间戳非法都当作不存在，
// 绝不返回错误。
// Read returns a cache entry. Missing, unreadable, corrupt JSON or a bad
// timestamp all read as absent; Read never fails.
func (c *TimedCache) Read(username, kind string) (CacheEntry, bool) {
	data, err := os.ReadFile(c.entryPath(username, kind))
	if err != nil {
		return CacheEntry{}, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, false
	}
	if _, err := time.Parse(time.RFC3339, entry.FetchedAt); err != nil {
		return CacheEntry{}, false
	}
	return entry, true
}

// Write 原子覆盖条目：先写临时文件再 rename
// Write atomically replaces the entry: temp file then rename
func (c *TimedCache) Write(entry CacheEntry) error {
	path := c.entryPath(entry.Username, entry.Kind)
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", path, err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace cache entry %s: %w", path, err)
	}
	return nil
}

// NewEntry 以当前时间构造条目 / NewEntry stamps an entry with the current time
func NewEntry(username, kind string, records []reddit.ActivityRecord) CacheEntry {
	return CacheEntry{
		Username:  username,
		Kind:      kind,
		FetchedAt: nowUTC(),
		Records:   records,
	}
}

// Fresh 判断条目在 ttl 内是否新鲜；恰好等于 ttl 视为过期
// Fresh reports whether the entry is within ttl; exactly ttl old is stale
func Fresh(entry CacheEntry, ttl time.Duration) bool {
	fetched, err := time.Parse(time.RFC3339, entry.FetchedAt)
	if err != nil {
		return false
	}
	return time.Since(fetched) < ttl
}
