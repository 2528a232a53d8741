package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"persona/internal/reddit"
	"persona/internal/storage"
)

// scriptedFetcher 固定返回预设结果的 Fetcher / scriptedFetcher returns canned results.
type scriptedFetcher struct {
	records []reddit.ActivityRecord
	err     error
	calls   int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, username string, limit int) ([]reddit.ActivityRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func sampleRecords() []reddit.ActivityRecord {
	return []reddit.ActivityRecord{
		{Kind: reddit.KindPost, Subreddit: "r/golang", Title: "err handling", Score: 30,
			CreatedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
		{Kind: reddit.KindComment, Subreddit: "r/rust", Body: "nice", Score: 4,
			CreatedAt: time.Date(2024, 2, 2, 11, 0, 0, 0, time.UTC)},
	}
}

func agedEntry(username, kind string, age time.Duration, records []reddit.ActivityRecord) storage.CacheEntry {
	return storage.CacheEntry{
		Username:  username,
		Kind:      kind,
		FetchedAt: time.Now().UTC().Add(-age).Format(time.RFC3339),
		Records:   records,
	}
}

func TestGetFetchesAndCaches(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	fetcher := &scriptedFetcher{records: sampleRecords()}
	store := NewStore(cache, fetcher, 24*time.Hour)

	res, err := store.Get(context.Background(), "gopher", false, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Stale || res.FromCache {
		t.Fatalf("fetched result should come from the network: %+v", res)
	}
	if len(res.Records) != 2 {
		t.Fatalf("record count=%d, want 2", len(res.Records))
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls=%d, want 1", fetcher.calls)
	}

	// 第二次命中新鲜缓存，不再拉取 / Second call hits the fresh cache
	res2, err := store.Get(context.Background(), "gopher", false, 0)
	if err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls=%d after cached read, want 1", fetcher.calls)
	}
	if !res2.FromCache || res2.FetchedAt.IsZero() {
		t.Fatalf("cached result not marked: %+v", res2)
	}
	if len(res2.Records) != 2 || res2.Records[0].Kind != reddit.KindPost {
		t.Fatalf("cached records unexpected: %+v", res2.Records)
	}
}

func TestGetFreshCacheSkipsFetch(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	recs := sampleRecords()
	if err := cache.Write(agedEntry("gopher", reddit.KindPost, time.Hour, recs[:1])); err != nil {
		t.Fatal(err)
	}
	if err := cache.Write(agedEntry("gopher", reddit.KindComment, time.Hour, recs[1:])); err != nil {
		t.Fatal(err)
	}

	fetcher := &scriptedFetcher{err: errors.New("should not be called")}
	store := NewStore(cache, fetcher, 24*time.Hour)

	res, err := store.Get(context.Background(), "gopher", false, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetch calls=%d, want 0 with fresh cache", fetcher.calls)
	}
	if len(res.Records) != 2 || res.Records[0].Kind != reddit.KindPost || res.Records[1].Kind != reddit.KindComment {
		t.Fatalf("merged order unexpected: %+v", res.Records)
	}
}

func TestGetPartialCacheFetches(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	// 只有帖子条目，缺评论条目 / Posts entry only, comments entry missing
	if err := cache.Write(agedEntry("gopher", reddit.KindPost, time.Hour, sampleRecords()[:1])); err != nil {
		t.Fatal(err)
	}

	fetcher := &scriptedFetcher{records: sampleRecords()}
	store := NewStore(cache, fetcher, 24*time.Hour)

	if _, err := store.Get(context.Background(), "gopher", false, 0); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls=%d, want 1 when one entry is missing", fetcher.calls)
	}
}

func TestGetForceRefresh(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	old := sampleRecords()[:1]
	if err := cache.Write(agedEntry("gopher", reddit.KindPost, time.Hour, old)); err != nil {
		t.Fatal(err)
	}
	if err := cache.Write(agedEntry("gopher", reddit.KindComment, time.Hour, nil)); err != nil {
		t.Fatal(err)
	}

	fetcher := &scriptedFetcher{records: sampleRecords()}
	store := NewStore(cache, fetcher, 24*time.Hour)

	res, err := store.Get(context.Background(), "gopher", true, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls=%d, want 1 with forceRefresh", fetcher.calls)
	}
	if len(res.Records) != 2 {
		t.Fatalf("refreshed record count=%d, want 2", len(res.Records))
	}

	// 刷新写回缓存 / The refresh rewrites the cache
	entry, ok := cache.Read("gopher", reddit.KindComment)
	if !ok || len(entry.Records) != 1 {
		t.Fatalf("comment entry not rewritten: ok=%v records=%d", ok, len(entry.Records))
	}
}

func TestGetStaleFallback(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	recs := sampleRecords()
	if err := cache.Write(agedEntry("gopher", reddit.KindPost, 25*time.Hour, recs[:1])); err != nil {
		t.Fatal(err)
	}
	if err := cache.Write(agedEntry("gopher", reddit.KindComment, 25*time.Hour, recs[1:])); err != nil {
		t.Fatal(err)
	}
	before, _ := cache.Read("gopher", reddit.KindPost)

	fetchErr := &reddit.TransportError{Op: "fetch submitted", Err: errors.New("connection refused")}
	fetcher := &scriptedFetcher{err: fetchErr}
	store := NewStore(cache, fetcher, 24*time.Hour)

	res, err := store.Get(context.Background(), "gopher", false, 0)
	if err != nil {
		t.Fatalf("stale fallback should not error: %v", err)
	}
	if !res.Stale || !res.FromCache {
		t.Fatalf("result should be marked stale and cached: %+v", res)
	}
	if !errors.Is(res.FetchErr, fetchErr) {
		t.Fatalf("FetchErr=%v, want the fetch error", res.FetchErr)
	}
	if len(res.Records) != 2 {
		t.Fatalf("stale record count=%d, want 2", len(res.Records))
	}
	if got := time.Since(res.FetchedAt); got < 24*time.Hour {
		t.Fatalf("FetchedAt age=%v, want the aged cache time", got)
	}

	// 缓存文件不得被重写：第二次调用返回完全一致的数据
	// The cache is never rewritten: a second failing call reads back the same
	after, ok := cache.Read("gopher", reddit.KindPost)
	if !ok || after.FetchedAt != before.FetchedAt {
		t.Fatalf("cache rewritten on stale fallback: %q -> %q", before.FetchedAt, after.FetchedAt)
	}
	res2, err := store.Get(context.Background(), "gopher", false, 0)
	if err != nil {
		t.Fatalf("second stale read: %v", err)
	}
	if !res2.Stale || len(res2.Records) != 2 {
		t.Fatalf("second stale read unexpected: %+v", res2)
	}
}

func TestGetForceRefreshStillFallsBack(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	if err := cache.Write(agedEntry("gopher", reddit.KindPost, time.Hour, sampleRecords()[:1])); err != nil {
		t.Fatal(err)
	}
	if err := cache.Write(agedEntry("gopher", reddit.KindComment, time.Hour, nil)); err != nil {
		t.Fatal(err)
	}

	fetcher := &scriptedFetcher{err: errors.New("rate limited")}
	store := NewStore(cache, fetcher, 24*time.Hour)

	res, err := store.Get(context.Background(), "gopher", true, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Stale || res.FetchErr == nil {
		t.Fatalf("forceRefresh failure should fall back to cache: %+v", res)
	}
}

func TestGetErrorWithoutCache(t *testing.T) {
	cache := storage.NewTimedCache(t.TempDir())
	fetchErr := &reddit.NotFoundError{Username: "ghost"}
	store := NewStore(cache, &scriptedFetcher{err: fetchErr}, 24*time.Hour)

	_, err := store.Get(context.Background(), "ghost", false, 0)
	if err == nil {
		t.Fatal("expected the fetch error to propagate")
	}
	var nf *reddit.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error type lost: %v", err)
	}
}
