package contextmgr

import (
	"testing"

	"persona/internal/chat"
)

func TestEstimator_Heuristic(t *testing.T) {
	// 即使 tiktoken 不可用，启发式也应该可用
	// Heuristic should always work even without tiktoken
	est := NewHeuristicEstimator()

	count := est.CountText("Hello world")
	if count <= 0 {
		t.Fatalf("heuristic CountText should return > 0, got %d", count)
	}
	if est.CountText("ab") != 1 {
		t.Fatalf("short text should floor at 1, got %d", est.CountText("ab"))
	}
}

func TestEstimator_CountTurns(t *testing.T) {
	est := NewHeuristicEstimator()

	turns := []chat.Turn{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi there"},
	}
	count := est.Count(turns)
	if count <= 0 {
		t.Fatalf("Count should return > 0, got %d", count)
	}
	// 每轮至少 4 token 结构开销 / At least 4 tokens of overhead per turn
	if count < len(turns)*4 {
		t.Fatalf("Count=%d, want >= %d", count, len(turns)*4)
	}
}

func TestEstimator_EmptyText(t *testing.T) {
	est := NewHeuristicEstimator()
	if est.CountText("") != 0 {
		t.Fatal("empty text should return 0")
	}
}

func TestEstimator_IsPrecise(t *testing.T) {
	fallbackEst := NewHeuristicEstimator()
	if fallbackEst.IsPrecise() {
		t.Fatal("fallback estimator should not be precise")
	}
}

func TestHeuristicTokenCount(t *testing.T) {
	tests := []struct {
		input string
		minOK bool
	}{
		{"Hello world, this is a test.", true},
		{"你好世界，这是一个测试。", true},
		{"Mixed 混合 text 文本", true},
		{"", false},
	}
	for _, tt := range tests {
		got := heuristicTokenCount(tt.input)
		if tt.minOK && got <= 0 {
			t.Errorf("heuristicTokenCount(%q) = %d, want > 0", tt.input, got)
		}
		if !tt.minOK && got != 0 {
			t.Errorf("heuristicTokenCount(%q) = %d, want 0", tt.input, got)
		}
	}
}

func TestUsage(t *testing.T) {
	est := NewHeuristicEstimator()
	turns := []chat.Turn{{Role: chat.RoleUser, Content: "hello world"}}

	u := est.Usage(turns, 0)
	if u.Tokens <= 0 {
		t.Fatalf("Usage.Tokens=%d, want > 0", u.Tokens)
	}
	if u.Percent != 0 {
		t.Fatalf("Usage.Percent=%f without budget, want 0", u.Percent)
	}

	u = est.Usage(turns, u.Tokens*2)
	if u.Percent != 50 {
		t.Fatalf("Usage.Percent=%f, want 50", u.Percent)
	}
}
