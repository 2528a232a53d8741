package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"persona/internal/activity"
	"persona/internal/chat"
	"persona/internal/contextmgr"
	"persona/internal/defaults"
	"persona/internal/i18n"
	"persona/internal/provider"
	"persona/internal/reddit"
	"persona/internal/stats"
	"persona/internal/storage"
)

// Controller 驱动一次针对单个用户的分析会话：启动时解析活动并注入人设
// 上下文，随后逐行处理输入，把成功的问答落盘。
// Controller drives one analysis session for a single user: it resolves
// activity and injects the persona context at startup, then handles input
// line by line and persists successful exchanges.
//
// 控制器不渲染任何输出；它返回结构化 Outcome，由 REPL 或 TUI 决定展示。
// The controller renders nothing; it returns structured Outcomes for the
// REPL or TUI to display.
type Controller struct {
	username string
	activity *activity.Store
	history  *storage.HistoryStore
	backend  provider.Backend

	limit        int
	forceRefresh bool
	maxTurns     int
	tokenBudget  int
	prompt       string
	estimator    *contextmgr.Estimator

	state   State
	log     []chat.Turn
	records []reddit.ActivityRecord
	summary stats.Summary
	result  activity.Result
}

// New 创建控制器并收敛选项默认值
// New creates a controller, clamping option defaults.
func New(opts Options) *Controller {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 12
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = defaults.DefaultSystemPrompt
	}
	return &Controller{
		username:     opts.Username,
		activity:     opts.Activity,
		history:      opts.History,
		backend:      opts.Backend,
		limit:        opts.Limit,
		forceRefresh: opts.ForceRefresh,
		maxTurns:     opts.MaxTurns,
		tokenBudget:  opts.TokenBudget,
		prompt:       opts.SystemPrompt,
		estimator:    opts.Estimator,
		state:        StateIdle,
	}
}

// Start 完成 Idle 态的全部工作：解析活动、汇总统计、加载历史；若日志里
// 还没有 system 轮，则注入人设上下文并立即落盘。成功后进入 AwaitingInput。
// Start does all Idle work: resolve activity, summarize, load history; if
// the log has no system turn yet, inject the persona context and persist
// immediately. On success the session awaits input.
//
// 这里返回的错误都是致命的：用户不存在、无缓存可用、存储打不开。
// Every error returned here is fatal: unknown user, nothing cached, or a
// broken store.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateIdle {
		return fmt.Errorf("session already started (state %s)", c.state)
	}
	if strings.TrimSpace(c.username) == "" {
		return errors.New("username required")
	}

	res, err := c.activity.Get(ctx, c.username, c.forceRefresh, c.limit)
	if err != nil {
		return err
	}
	c.result = res
	c.records = res.Records
	c.summary = stats.Summarize(res.Records)

	turns, err := c.history.Load(c.username)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	c.log = turns

	// 迁移而来的旧日志可能没有 system 轮，同样要补上人设上下文
	// Logs imported from the legacy format may lack a system turn; they get
	// the persona context injected the same way an empty log does.
	if !hasSystemTurn(c.log) {
		c.appendTurn(chat.Turn{Role: chat.RoleSystem, Content: c.personaContext()})
		if err := c.history.Save(c.username, c.log); err != nil {
			return fmt.Errorf("persist history: %w", err)
		}
	}

	c.state = StateAwaitingInput
	return nil
}

// HandleInput 处理一行输入。控制词先于模型判定，且区分大小写精确匹配；
// 其余非空输入走一次模型问答。
// HandleInput processes one input line. Control words are matched exactly
// and case-sensitively before anything reaches the model; any other
// non-blank input runs one model exchange.
func (c *Controller) HandleInput(ctx context.Context, line string) (Outcome, error) {
	if c.state == StateTerminated {
		return Outcome{Kind: OutcomeExit}, nil
	}
	if c.state != StateAwaitingInput {
		return Outcome{}, fmt.Errorf("session not awaiting input (state %s)", c.state)
	}

	switch line {
	case "exit":
		c.state = StateTerminated
		return Outcome{Kind: OutcomeExit}, nil
	case "history":
		return Outcome{Kind: OutcomeHistory, Turns: chat.CloneTurns(c.log)}, nil
	case "refresh":
		return c.refresh(ctx), nil
	}

	if strings.TrimSpace(line) == "" {
		return Outcome{Kind: OutcomeNoop}, nil
	}
	return c.complete(ctx, line)
}

// complete 执行一次模型问答。只有成功时才把用户轮和助手轮一起追加并落盘，
// 失败的交换不留任何痕迹。
// complete runs one model exchange. Only on success are the user and
// assistant turns appended together and persisted; a failed exchange
// leaves no trace.
func (c *Controller) complete(ctx context.Context, line string) (Outcome, error) {
	c.state = StateProcessing
	defer func() {
		if c.state == StateProcessing {
			c.state = StateAwaitingInput
		}
	}()

	window := contextmgr.Window(c.log, c.maxTurns)
	if c.tokenBudget > 0 {
		window = contextmgr.ClampToBudget(window, c.est(), c.tokenBudget)
	}

	reply, err := c.backend.Complete(ctx, window, line)
	if err != nil {
		var authErr *provider.AuthError
		if errors.As(err, &authErr) {
			c.state = StateTerminated
		}
		return Outcome{}, err
	}

	c.appendTurn(chat.Turn{Role: chat.RoleUser, Content: line})
	c.appendTurn(chat.Turn{Role: chat.RoleAssistant, Content: reply})
	if err := c.history.Save(c.username, c.log); err != nil {
		fmt.Fprintf(os.Stderr, "persist history for %s failed: %v\n", c.username, err)
	}
	return Outcome{Kind: OutcomeReply, Reply: reply}, nil
}

// refresh 强制重新拉取活动。拿到新数据时追加一条新的 system 轮；陈旧回退
// 或拉取失败都不改动日志，只带回警告。
// refresh force-refetches activity. Fresh data appends a new system turn;
// a stale fallback or a failed fetch leaves the log untouched and only
// carries a warning back.
func (c *Controller) refresh(ctx context.Context) Outcome {
	res, err := c.activity.Get(ctx, c.username, true, c.limit)
	if err != nil {
		return Outcome{
			Kind:    OutcomeRefreshed,
			Summary: c.summary,
			Warning: i18n.T("error.fetch", err),
		}
	}
	c.result = res
	c.records = res.Records
	c.summary = stats.Summarize(res.Records)

	out := Outcome{Kind: OutcomeRefreshed, Summary: c.summary}
	if res.Stale {
		// 回退读到的还是同一份缓存，重复注入没有意义
		// The fallback re-read the same cache; re-injecting it adds nothing.
		out.Warning = i18n.T("session.refresh_stale", res.FetchErr, res.FetchedAt.Format("2006-01-02 15:04"))
		return out
	}

	c.appendTurn(chat.Turn{Role: chat.RoleSystem, Content: c.personaContext()})
	if err := c.history.Save(c.username, c.log); err != nil {
		fmt.Fprintf(os.Stderr, "persist history for %s failed: %v\n", c.username, err)
	}
	return out
}

// Reset 清空该用户的持久化日志和内存日志。只应在 Start 之前调用。
// Reset clears the persisted and in-memory logs for this user. Call it
// before Start only.
func (c *Controller) Reset() error {
	if err := c.history.Clear(c.username); err != nil {
		return err
	}
	c.log = c.log[:0]
	return nil
}

// State 返回当前状态 / State returns the current state.
func (c *Controller) State() State { return c.state }

// Username 返回会话归属的用户名 / Username returns the session's user.
func (c *Controller) Username() string { return c.username }

// History 返回完整日志的副本 / History returns a copy of the full log.
func (c *Controller) History() []chat.Turn {
	return chat.CloneTurns(c.log)
}

// Summary 返回当前活动统计 / Summary returns the current activity summary.
func (c *Controller) Summary() stats.Summary { return c.summary }

// Result 返回最近一次活动解析的来源信息（缓存命中、陈旧回退）
// Result reports how the latest activity resolution was served (cache hit,
// stale fallback).
func (c *Controller) Result() activity.Result { return c.result }

// ContextUsage 估算整个日志相对预算的占用，供状态栏展示
// ContextUsage estimates log occupancy against the budget for status
// display.
func (c *Controller) ContextUsage() contextmgr.Usage {
	return c.est().Usage(c.log, c.tokenBudget)
}

func (c *Controller) est() *contextmgr.Estimator {
	if c.estimator == nil {
		c.estimator = contextmgr.DefaultEstimator()
	}
	return c.estimator
}

func (c *Controller) appendTurn(turn chat.Turn) {
	if turn.Timestamp == "" {
		turn.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	c.log = append(c.log, turn)
}

func hasSystemTurn(turns []chat.Turn) bool {
	for _, t := range turns {
		if t.Role == chat.RoleSystem {
			return true
		}
	}
	return false
}
