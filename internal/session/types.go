package session

import (
	"persona/internal/activity"
	"persona/internal/chat"
	"persona/internal/contextmgr"
	"persona/internal/provider"
	"persona/internal/stats"
	"persona/internal/storage"
)

// State 会话状态机的状态
// State is the session state machine position.
type State int

const (
	StateIdle State = iota
	StateAwaitingInput
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// OutcomeKind 一次输入处理的结果类别
// OutcomeKind classifies the result of handling one input line.
type OutcomeKind int

const (
	// OutcomeNoop 空白输入，无事发生 / Blank input, nothing happened
	OutcomeNoop OutcomeKind = iota
	// OutcomeReply 模型回复了一次问答 / The model answered an exchange
	OutcomeReply
	// OutcomeHistory 完整对话日志的只读快照 / Read-only snapshot of the log
	OutcomeHistory
	// OutcomeRefreshed 活动数据刷新（可能带警告）/ Activity refreshed, maybe with a warning
	OutcomeRefreshed
	// OutcomeExit 会话终止 / The session terminated
	OutcomeExit
)

// Outcome 是 HandleInput 的结构化结果；渲染由调用方负责。
// Outcome is the structured result of HandleInput; rendering is the
// caller's job.
type Outcome struct {
	Kind    OutcomeKind
	Reply   string        // assistant text for OutcomeReply
	Turns   []chat.Turn   // full log copy for OutcomeHistory
	Summary stats.Summary // updated summary for OutcomeRefreshed
	Warning string        // localized recoverable notice, empty when clean
}

// Options 构造一个会话控制器所需的全部依赖与参数
// Options carries every dependency and knob a session controller needs.
type Options struct {
	Username string
	Activity *activity.Store
	History  *storage.HistoryStore
	Backend  provider.Backend

	// Limit 每类列表的拉取上限，透传给 activity.Store
	// Limit caps each listing fetch, passed through to activity.Store
	Limit int
	// ForceRefresh 启动时绕过缓存 / Bypass the cache at startup
	ForceRefresh bool
	// MaxTurns 上下文窗口的轮数上限 / Context window turn cap
	MaxTurns int
	// TokenBudget 0 表示只统计不裁剪 / 0 means report-only, no clamping
	TokenBudget int
	// SystemPrompt 人设前导；为空时使用内置默认
	// SystemPrompt is the persona preamble; empty selects the built-in default
	SystemPrompt string
	// Estimator 为 nil 时按需取全局实例 / nil lazily picks the global instance
	Estimator *contextmgr.Estimator
}
