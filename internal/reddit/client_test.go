package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Options{
		BaseURL:   serverURL,
		UserAgent: "persona-test/0.1",
		TimeoutMS: 5000,
	})
}

func postChild(subreddit, title string, createdUTC int64, score int) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"subreddit":%q,"subreddit_name_prefixed":"r/%s","title":%q,"selftext":"","score":%d,"permalink":"/r/%s/1","created_utc":%d}}`,
		subreddit, subreddit, title, score, subreddit, createdUTC)
}

func commentChild(subreddit, body string, createdUTC int64, score int) string {
	return fmt.Sprintf(`{"kind":"t1","data":{"subreddit":%q,"subreddit_name_prefixed":"r/%s","body":%q,"score":%d,"permalink":"/r/%s/c1","created_utc":%d}}`,
		subreddit, subreddit, body, score, subreddit, createdUTC)
}

func listingJSON(after string, children ...string) string {
	afterJSON := "null"
	if after != "" {
		afterJSON = fmt.Sprintf("%q", after)
	}
	return fmt.Sprintf(`{"kind":"Listing","data":{"after":%s,"children":[%s]}}`,
		afterJSON, strings.Join(children, ","))
}

func TestFetch_Success(t *testing.T) {
	var gotUA atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/submitted"):
			fmt.Fprint(w, listingJSON("", postChild("rust", "borrow checker", 1704067200, 12)))
		case strings.Contains(r.URL.Path, "/comments"):
			fmt.Fprint(w, listingJSON("", commentChild("golang", "use contexts", 1704240000, 3)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	records, err := newTestClient(ts.URL).Fetch(context.Background(), "gopher", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records)=%d, want 2", len(records))
	}
	if records[0].Kind != KindPost || records[0].Subreddit != "r/rust" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Title != "borrow checker" || records[0].Score != 12 {
		t.Fatalf("unexpected post fields: %+v", records[0])
	}
	if records[1].Kind != KindComment || records[1].Body != "use contexts" {
		t.Fatalf("unexpected comment: %+v", records[1])
	}
	wantTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !records[0].CreatedAt.Equal(wantTime) {
		t.Fatalf("CreatedAt=%v, want %v", records[0].CreatedAt, wantTime)
	}
	if ua, _ := gotUA.Load().(string); ua != "persona-test/0.1" {
		t.Fatalf("User-Agent=%q", ua)
	}
}

func TestFetch_Paging(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/comments") {
			fmt.Fprint(w, listingJSON(""))
			return
		}
		n := atomic.AddInt32(&requests, 1)
		after := fmt.Sprintf("page%d", n)
		if n >= 3 {
			after = ""
		}
		fmt.Fprint(w, listingJSON(after,
			postChild("rust", fmt.Sprintf("p%d-a", n), 1704067200, 1),
			postChild("rust", fmt.Sprintf("p%d-b", n), 1704067200, 1),
		))
	}))
	defer ts.Close()

	records, err := newTestClient(ts.URL).Fetch(context.Background(), "gopher", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("len(records)=%d, want 5 (limit truncation)", len(records))
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Fatalf("submitted requests=%d, want 3", got)
	}
}

func TestFetch_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Fetch(context.Background(), "nobody", 5)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Username != "nobody" {
		t.Fatalf("Username=%q", nf.Username)
	}
}

func TestFetch_Suspended(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Fetch(context.Background(), "banned", 5)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for 403, got %v", err)
	}
}

func TestFetch_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Fetch(context.Background(), "gopher", 5)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter=%v, want 7s", rl.RetryAfter)
	}
}

func TestFetch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Fetch(context.Background(), "gopher", 5)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !strings.Contains(te.Error(), "500") {
		t.Fatalf("error should carry status: %v", te)
	}
}

func TestFetch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, listingJSON(""))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL, UserAgent: "t", TimeoutMS: 20})
	_, err := c.Fetch(context.Background(), "gopher", 5)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("timeout should surface as TransportError, got %v", err)
	}
}
