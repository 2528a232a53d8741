package contextmgr

import (
	"sync"

	"persona/internal/chat"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator token 计数器，优先 tiktoken，初始化失败回退到启发式
// Estimator counts tokens with tiktoken and falls back to a heuristic when
// the encoder cannot be initialized.
type Estimator struct {
	encoder  *tiktoken.Tiktoken
	fallback bool // 是否使用启发式回退 / Whether using heuristic fallback
	mu       sync.RWMutex
}

var (
	defaultEstimator     *Estimator
	defaultEstimatorOnce sync.Once
)

// DefaultEstimator 返回全局默认的计数器实例
// DefaultEstimator returns the global default estimator instance
func DefaultEstimator() *Estimator {
	defaultEstimatorOnce.Do(func() {
		defaultEstimator = NewEstimator()
	})
	return defaultEstimator
}

// NewEstimator 创建 cl100k_base 计数器，如果 tiktoken 初始化失败则回退
// NewEstimator creates a cl100k_base counter, falling back to the heuristic
// if tiktoken init fails
func NewEstimator() *Estimator {
	e := &Estimator{}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// 离线环境可能没有 BPE 缓存，回退到启发式
		// Offline environments may lack BPE cache, fallback to heuristic
		e.fallback = true
		return e
	}
	e.encoder = enc
	return e
}

// NewHeuristicEstimator 创建纯启发式计数器，不加载 tiktoken 词表
// NewHeuristicEstimator creates a heuristic-only estimator that never loads
// the tiktoken vocabulary. Deterministic and offline-safe.
func NewHeuristicEstimator() *Estimator {
	return &Estimator{fallback: true}
}

// Count 计算窗口的总 token 数
// Count returns the total token count for a turn window
func (e *Estimator) Count(turns []chat.Turn) int {
	total := 0
	for _, turn := range turns {
		total += e.countTurn(turn)
	}
	return total
}

// CountText 计算单个文本的 token 数
// CountText counts tokens for a single text string
func (e *Estimator) CountText(text string) int {
	if text == "" {
		return 0
	}
	if e.fallback {
		return heuristicTokenCount(text)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	tokens := e.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// IsPrecise 返回是否使用精确计数
// IsPrecise returns whether precise counting is available
func (e *Estimator) IsPrecise() bool {
	return !e.fallback
}

func (e *Estimator) countTurn(turn chat.Turn) int {
	// 每条消息约 4 token 结构开销 / ~4 tokens structural overhead per message
	tokens := 4
	tokens += e.CountText(turn.Role)
	tokens += e.CountText(turn.Content)
	return tokens
}

// heuristicTokenCount 启发式估算：约 4 字符一个 token
// heuristicTokenCount estimates roughly 4 characters per token
func heuristicTokenCount(text string) int {
	if text == "" {
		return 0
	}
	estimate := len([]rune(text)) / 4
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

// Usage 上下文占用报告，用于状态栏展示
// Usage is the context occupancy report shown in the status line
type Usage struct {
	Tokens  int
	Budget  int
	Percent float64 // 0 when Budget <= 0
}

// Usage 估算窗口占用；budget<=0 时只报告 token 数
// Usage estimates window occupancy; with budget<=0 only the token count is
// reported
func (e *Estimator) Usage(turns []chat.Turn, budget int) Usage {
	u := Usage{Tokens: e.Count(turns), Budget: budget}
	if budget > 0 {
		u.Percent = float64(u.Tokens) / float64(budget) * 100
	}
	return u
}
