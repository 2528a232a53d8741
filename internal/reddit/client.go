package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"persona/internal/defaults"
)

// Reddit 列表接口单页上限
// Reddit caps listing pages at 100 items
const maxPageSize = 100

// Client 通过公开 JSON 接口抓取用户活动
// Client fetches user activity via the public JSON endpoints
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Options Client 配置 / Client configuration
type Options struct {
	BaseURL   string
	UserAgent string
	TimeoutMS int
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaults.RedditBaseURL
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaults.RedditUserAgent
	}
	httpClient := &http.Client{}
	if opts.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(opts.TimeoutMS) * time.Millisecond
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Fetch 拉取用户的帖子与评论；limit 分别限制两类列表
// Fetch retrieves the user's posts and comments; limit caps each listing
// independently. Posts come first in the returned slice.
func (c *Client) Fetch(ctx context.Context, username string, limit int) ([]ActivityRecord, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is empty")
	}
	if limit <= 0 {
		limit = maxPageSize
	}

	posts, err := c.fetchListing(ctx, username, "submitted", limit)
	if err != nil {
		return nil, err
	}
	comments, err := c.fetchListing(ctx, username, "comments", limit)
	if err != nil {
		return nil, err
	}
	return append(posts, comments...), nil
}

func (c *Client) fetchListing(ctx context.Context, username, listing string, limit int) ([]ActivityRecord, error) {
	var out []ActivityRecord
	after := ""
	for len(out) < limit {
		pageSize := limit - len(out)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		page, nextAfter, err := c.fetchPage(ctx, username, listing, pageSize, after)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if nextAfter == "" || len(page) == 0 {
			break
		}
		after = nextAfter
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, username, listing string, pageSize int, after string) ([]ActivityRecord, string, error) {
	endpoint := fmt.Sprintf("%s/user/%s/%s.json", c.baseURL, url.PathEscape(username), listing)
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	query.Set("raw_json", "1")
	if after != "" {
		query.Set("after", after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	// Reddit 拒绝默认 Go UA / Reddit rejects the default Go user agent
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &TransportError{Op: listing + " request", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		// 403 出现在封禁/隐藏账号上 / 403 shows up for suspended or hidden accounts
		return nil, "", &NotFoundError{Username: username}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2*1024))
		return nil, "", &TransportError{
			Op:  listing,
			Err: fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}
	}

	var envelope listingEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8*1024*1024)).Decode(&envelope); err != nil {
		return nil, "", &TransportError{Op: listing + " decode", Err: err}
	}

	records := make([]ActivityRecord, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		records = append(records, child.Data.toRecord(child.Kind))
	}
	return records, envelope.Data.After, nil
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// --- Listing envelope ---

type listingEnvelope struct {
	Data struct {
		After    string         `json:"after"`
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string      `json:"kind"` // "t1" comment, "t3" link
	Data listingItem `json:"data"`
}

type listingItem struct {
	Subreddit         string  `json:"subreddit"`
	SubredditPrefixed string  `json:"subreddit_name_prefixed"`
	Title             string  `json:"title"`
	SelfText          string  `json:"selftext"`
	Body              string  `json:"body"`
	Score             int     `json:"score"`
	Permalink         string  `json:"permalink"`
	CreatedUTC        float64 `json:"created_utc"`
}

func (it listingItem) toRecord(kind string) ActivityRecord {
	subreddit := strings.TrimSpace(it.SubredditPrefixed)
	if subreddit == "" && strings.TrimSpace(it.Subreddit) != "" {
		subreddit = "r/" + strings.TrimSpace(it.Subreddit)
	}
	rec := ActivityRecord{
		Subreddit: subreddit,
		Score:     it.Score,
		Permalink: it.Permalink,
		CreatedAt: time.Unix(int64(it.CreatedUTC), 0).UTC(),
	}
	if kind == "t1" {
		rec.Kind = KindComment
		rec.Body = it.Body
	} else {
		rec.Kind = KindPost
		rec.Title = it.Title
		rec.Body = it.SelfText
	}
	return rec
}
