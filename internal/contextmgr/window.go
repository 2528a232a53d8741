package contextmgr

import "persona/internal/chat"

// 未配置时的窗口轮数上限 / Turn cap used when none is configured
const defaultMaxTurns = 12

// Window 返回最近 maxTurns 轮。若完整日志更长且其首轮是被挤出窗口的
// system 轮，则把它前置，窗口因此可能有 maxTurns+1 轮。返回值是副本，
// 调用方改动不会影响日志。
// Window returns the most recent maxTurns turns. When the log is longer and
// its first turn is a system turn displaced from the slice, that turn is
// prepended, so the window may hold maxTurns+1 turns. The result is a copy;
// callers cannot alias the log.
func Window(turns []chat.Turn, maxTurns int) []chat.Turn {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	if len(turns) <= maxTurns {
		return chat.CloneTurns(turns)
	}

	recent := turns[len(turns)-maxTurns:]
	if turns[0].Role == chat.RoleSystem {
		window := make([]chat.Turn, 0, maxTurns+1)
		window = append(window, turns[0])
		window = append(window, recent...)
		return window
	}
	return chat.CloneTurns(recent)
}

// ClampToBudget 预算>0 时从最旧的非前置 system 轮开始丢弃，直到估算不超出
// 预算；预算<=0 不做任何裁剪。
// ClampToBudget drops the oldest non-leading-system turns until the estimate
// fits the budget; budget<=0 leaves the window untouched.
func ClampToBudget(window []chat.Turn, est *Estimator, budget int) []chat.Turn {
	if budget <= 0 || est == nil || len(window) == 0 {
		return window
	}

	out := chat.CloneTurns(window)
	leadingSystem := out[0].Role == chat.RoleSystem
	for est.Count(out) > budget {
		if leadingSystem {
			// 保留 system 轮和至少一轮对话 / Keep the system turn plus one turn
			if len(out) <= 2 {
				break
			}
			out = append(out[:1], out[2:]...)
		} else {
			if len(out) <= 1 {
				break
			}
			out = out[1:]
		}
	}
	return out
}
