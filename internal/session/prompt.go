package session

import (
	"fmt"
	"sort"
	"strings"

	"persona/internal/reddit"
	"persona/internal/stats"
)

// 摘要的裁剪参数。模型上下文有限，只带高分条目和前几个子版块。
// Digest caps. Model context is finite, so only high-scoring items and the
// leading subreddits travel with the prompt.
const (
	digestTopSubreddits = 5
	digestMaxItems      = 25
	digestExcerptRunes  = 500
)

func (c *Controller) personaContext() string {
	return renderPersonaContext(c.username, c.prompt, c.records, c.summary)
}

// renderPersonaContext 组装 system 轮内容：人设前导 + 活动摘要。内容是给
// 模型看的英文提示词，不走 i18n。
// renderPersonaContext assembles the system turn: persona preamble plus the
// activity digest. This text is addressed to the model, so it stays in
// English and never goes through i18n.
func renderPersonaContext(username, preamble string, records []reddit.ActivityRecord, sum stats.Summary) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(preamble))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "User Activity Analysis for u/%s\n\n", username)
	b.WriteString("OVERVIEW:\n")
	fmt.Fprintf(&b, "Total posts: %d\n", sum.TotalPosts)
	fmt.Fprintf(&b, "Total comments: %d\n", sum.TotalComments)
	fmt.Fprintf(&b, "Combined score: %d\n", sum.TotalScore)
	if sum.ActivitySpan != nil {
		fmt.Fprintf(&b, "Active from %s to %s\n",
			sum.ActivitySpan.Earliest.Format("2006-01-02"),
			sum.ActivitySpan.Latest.Format("2006-01-02"))
	}

	if top := sum.Top(digestTopSubreddits); len(top) > 0 {
		b.WriteString("\nTop active subreddits:\n")
		for _, sc := range top {
			fmt.Fprintf(&b, "- %s: %d posts/comments\n", sc.Name, sc.Count)
		}
	}

	writeDigestSection(&b, "TOP POSTS:", topByScore(records, reddit.KindPost, digestMaxItems), true)
	writeDigestSection(&b, "TOP COMMENTS:", topByScore(records, reddit.KindComment, digestMaxItems), false)

	if len(records) == 0 {
		b.WriteString("\nNo public activity was found for this user.\n")
	}
	return b.String()
}

func writeDigestSection(b *strings.Builder, header string, records []reddit.ActivityRecord, withTitle bool) {
	if len(records) == 0 {
		return
	}
	b.WriteString("\n" + header + "\n")
	for _, r := range records {
		fmt.Fprintf(b, "\nDate: %s\n", r.CreatedAt.Format("2006-01-02"))
		if withTitle && r.Title != "" {
			fmt.Fprintf(b, "Title: %s\n", r.Title)
		}
		fmt.Fprintf(b, "Subreddit: %s\n", r.Subreddit)
		fmt.Fprintf(b, "Score: %d\n", r.Score)
		if body := excerpt(r.Body, digestExcerptRunes); body != "" {
			fmt.Fprintf(b, "Content: %s\n", body)
		}
	}
}

// topByScore 过滤出指定类别并按分数降序取前 n 条。排序稳定，同分保持
// 平台原始的新近顺序。
// topByScore filters one kind and keeps the n highest-scoring records. The
// sort is stable, so ties keep the platform's recency order.
func topByScore(records []reddit.ActivityRecord, kind string, n int) []reddit.ActivityRecord {
	var filtered []reddit.ActivityRecord
	for _, r := range records {
		if r.Kind == kind {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered
}

// excerpt 按 rune 截断，避免切坏多字节字符
// excerpt cuts on runes so multi-byte characters survive the truncation.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
