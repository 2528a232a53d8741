package stats

import (
	"sort"
	"time"

	"persona/internal/reddit"
)

// SubredditCount 某个 subreddit 的活动计数
// SubredditCount is the activity count for a single subreddit.
type SubredditCount struct {
	Name  string
	Count int
}

// Span 活动覆盖的时间范围 / Span is the time range the records cover.
type Span struct {
	Earliest time.Time
	Latest   time.Time
}

// Summary 从一段活动记录得出的聚合统计。不持久化，每次会话启动时
// 从当前记录重新计算。
// Summary holds the aggregate statistics derived from a record sequence.
// It is never persisted; it is recomputed from whatever records are current.
type Summary struct {
	TotalPosts    int
	TotalComments int
	TopSubreddits []SubredditCount // count desc, ties name asc
	TotalScore    int
	ActivitySpan  *Span // nil when there are no records
}

// Summarize 纯函数：统计帖子/评论数量、subreddit 排名、总分与时间跨度。
// 空输入得到零值统计而非错误。
// Summarize aggregates the records. It is pure and total: empty input yields
// the zero summary, not an error.
func Summarize(records []reddit.ActivityRecord) Summary {
	var s Summary
	counts := make(map[string]int)

	for _, r := range records {
		switch r.Kind {
		case reddit.KindPost:
			s.TotalPosts++
		case reddit.KindComment:
			s.TotalComments++
		}
		if r.Subreddit != "" {
			counts[r.Subreddit]++
		}
		s.TotalScore += r.Score

		if s.ActivitySpan == nil {
			s.ActivitySpan = &Span{Earliest: r.CreatedAt, Latest: r.CreatedAt}
			continue
		}
		if r.CreatedAt.Before(s.ActivitySpan.Earliest) {
			s.ActivitySpan.Earliest = r.CreatedAt
		}
		if r.CreatedAt.After(s.ActivitySpan.Latest) {
			s.ActivitySpan.Latest = r.CreatedAt
		}
	}

	if len(counts) > 0 {
		s.TopSubreddits = make([]SubredditCount, 0, len(counts))
		for name, count := range counts {
			s.TopSubreddits = append(s.TopSubreddits, SubredditCount{Name: name, Count: count})
		}
		sort.Slice(s.TopSubreddits, func(i, j int) bool {
			if s.TopSubreddits[i].Count != s.TopSubreddits[j].Count {
				return s.TopSubreddits[i].Count > s.TopSubreddits[j].Count
			}
			return s.TopSubreddits[i].Name < s.TopSubreddits[j].Name
		})
	}

	return s
}

// Top 返回排名前 n 的 subreddit；n<=0 或超出范围时返回全部。
// Top returns the first n ranked subreddits; n<=0 or out of range returns all.
func (s Summary) Top(n int) []SubredditCount {
	if n <= 0 || n >= len(s.TopSubreddits) {
		return s.TopSubreddits
	}
	return s.TopSubreddits[:n]
}
