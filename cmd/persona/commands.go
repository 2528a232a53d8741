package main

import (
	"fmt"
	"io"
	"os"

	"persona/internal/chat"
	"persona/internal/i18n"
	"persona/internal/session"
	"persona/internal/stats"
	"persona/internal/tui"
)

// renderOutcome 把控制器的回合结果写到终端，返回会话是否应当结束
// renderOutcome writes a controller outcome to the terminal and reports
// whether the session should end
func renderOutcome(w io.Writer, username string, out session.Outcome, markdown bool) bool {
	switch out.Kind {
	case session.OutcomeExit:
		return true

	case session.OutcomeReply:
		reply := out.Reply
		if markdown {
			reply = tui.RenderMarkdown(reply, 0)
		}
		fmt.Fprintf(w, "\n%s\n\n", reply)

	case session.OutcomeHistory:
		renderHistory(w, username, out.Turns)

	case session.OutcomeRefreshed:
		if out.Warning != "" {
			fmt.Fprintln(os.Stderr, out.Warning)
			return false
		}
		fmt.Fprintln(w, i18n.T("session.refreshed", out.Summary.TotalPosts, out.Summary.TotalComments))
		renderSummary(w, username, out.Summary)
	}
	return false
}

// renderHistory 按时间戳逐条列出对话，system 记录不展示
// renderHistory lists the dialogue with timestamps; system turns are not
// shown
func renderHistory(w io.Writer, username string, turns []chat.Turn) {
	count := countDialogue(turns)
	if count == 0 {
		fmt.Fprintln(w, i18n.T("history.empty"))
		return
	}

	fmt.Fprintln(w, i18n.T("history.header", username, count))
	for _, turn := range turns {
		if turn.Role == chat.RoleSystem {
			continue
		}
		stamp := turn.Timestamp
		if stamp == "" {
			stamp = "-"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", stamp, turn.Role, turn.Content)
	}
}

// renderSummary 启动时和刷新后的活动总览块
// renderSummary is the activity overview block shown at startup and after a
// refresh
func renderSummary(w io.Writer, username string, sum stats.Summary) {
	fmt.Fprintln(w, i18n.T("summary.header", username))

	if sum.TotalPosts == 0 && sum.TotalComments == 0 {
		fmt.Fprintf(w, "  %s\n", i18n.T("summary.empty"))
		return
	}

	fmt.Fprintf(w, "  %s\n", i18n.T("summary.posts", sum.TotalPosts))
	fmt.Fprintf(w, "  %s\n", i18n.T("summary.comments", sum.TotalComments))
	fmt.Fprintf(w, "  %s\n", i18n.T("summary.score", sum.TotalScore))
	if top := sum.Top(5); len(top) > 0 {
		fmt.Fprintf(w, "  %s\n", i18n.T("summary.top"))
		for _, sc := range top {
			fmt.Fprintf(w, "    %s: %d\n", sc.Name, sc.Count)
		}
	}
	if span := sum.ActivitySpan; span != nil {
		fmt.Fprintf(w, "  %s\n", i18n.T("summary.span",
			span.Earliest.Format("2006-01-02"), span.Latest.Format("2006-01-02")))
	}
}

func countDialogue(turns []chat.Turn) int {
	count := 0
	for _, turn := range turns {
		if turn.Role != chat.RoleSystem {
			count++
		}
	}
	return count
}
