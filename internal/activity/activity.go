package activity

import (
	"context"
	"fmt"
	"os"
	"time"

	"persona/internal/reddit"
	"persona/internal/storage"
)

// Fetcher 拉取用户活动的抽象边界；调用方不依赖具体的 reddit 客户端
// Fetcher is the opaque boundary for retrieving user activity; callers never
// depend on the concrete reddit client.
type Fetcher interface {
	Fetch(ctx context.Context, username string, limit int) ([]reddit.ActivityRecord, error)
}

// Store 将 TimedCache 和 Fetcher 组合成带回退的活动来源
// Store combines the timed cache and the fetcher into one activity source
// with stale fallback.
type Store struct {
	cache   *storage.TimedCache
	fetcher Fetcher
	ttl     time.Duration
}

func NewStore(cache *storage.TimedCache, fetcher Fetcher, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: cache, fetcher: fetcher, ttl: ttl}
}

// Result 一次活动解析的结果 / Result is the outcome of one resolution.
type Result struct {
	Records   []reddit.ActivityRecord
	FromCache bool      // served from disk rather than the network
	Stale     bool      // served from expired cache after a fetch failure
	FetchedAt time.Time // newest cache write time when FromCache, zero otherwise
	FetchErr  error     // the fetch error masked by the stale fallback
}

// Get 解析用户活动，顺序严格为：新鲜缓存 → 拉取并写缓存 → 过期缓存回退 →
// 传播拉取错误。forceRefresh 跳过第一步，但回退仍然生效。
// Get resolves the user's activity. Order is strict: fresh cache, then
// fetch-and-cache, then stale-cache fallback, then propagate the fetch
// error. forceRefresh skips the first step; the fallback still applies.
func (s *Store) Get(ctx context.Context, username string, forceRefresh bool, limit int) (Result, error) {
	posts, havePosts := s.cache.Read(username, reddit.KindPost)
	comments, haveComments := s.cache.Read(username, reddit.KindComment)

	if !forceRefresh && havePosts && haveComments &&
		storage.Fresh(posts, s.ttl) && storage.Fresh(comments, s.ttl) {
		return Result{
			Records:   mergeEntries(posts, comments),
			FromCache: true,
			FetchedAt: newestFetched(posts, comments),
		}, nil
	}

	records, err := s.fetcher.Fetch(ctx, username, limit)
	if err == nil {
		s.writeSplit(username, records)
		return Result{Records: records}, nil
	}

	// 拉取失败：有任何缓存就回退，且绝不重写缓存文件
	// Fetch failed: fall back to whatever is cached, without rewriting it
	if havePosts || haveComments {
		return Result{
			Records:   mergeEntries(posts, comments),
			FromCache: true,
			Stale:     true,
			FetchedAt: newestFetched(posts, comments),
			FetchErr:  err,
		}, nil
	}
	return Result{}, err
}

// newestFetched 返回两个缓存条目中较新的写入时间；缺失条目计为零值
// newestFetched picks the later write time of the two entries; a missing
// entry counts as the zero time.
func newestFetched(posts, comments storage.CacheEntry) time.Time {
	pt, ct := posts.FetchedTime(), comments.FetchedTime()
	if ct.After(pt) {
		return ct
	}
	return pt
}

// writeSplit 按 kind 拆分并写入两个缓存条目；写失败不阻断会话
// writeSplit splits the records by kind and writes both cache entries. A
// failed cache write never blocks the session.
func (s *Store) writeSplit(username string, records []reddit.ActivityRecord) {
	var posts, comments []reddit.ActivityRecord
	for _, r := range records {
		if r.Kind == reddit.KindComment {
			comments = append(comments, r)
		} else {
			posts = append(posts, r)
		}
	}
	for _, entry := range []storage.CacheEntry{
		storage.NewEntry(username, reddit.KindPost, posts),
		storage.NewEntry(username, reddit.KindComment, comments),
	} {
		if err := s.cache.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "cache write %s/%s failed: %v\n", username, entry.Kind, err)
		}
	}
}

// mergeEntries 按帖子在前、评论在后合并缓存记录，保持缓存内的原始顺序
// mergeEntries concatenates cached records, posts first, preserving the
// cached order exactly.
func mergeEntries(posts, comments storage.CacheEntry) []reddit.ActivityRecord {
	merged := make([]reddit.ActivityRecord, 0, len(posts.Records)+len(comments.Records))
	merged = append(merged, posts.Records...)
	merged = append(merged, comments.Records...)
	return merged
}
