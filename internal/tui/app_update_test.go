package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"persona/internal/activity"
	"persona/internal/chat"
	"persona/internal/contextmgr"
	"persona/internal/provider"
	"persona/internal/reddit"
	"persona/internal/session"
	"persona/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
)

type stubFetcher struct {
	records []reddit.ActivityRecord
}

func (f *stubFetcher) Fetch(ctx context.Context, username string, limit int) ([]reddit.ActivityRecord, error) {
	return f.records, nil
}

type stubBackend struct {
	reply string
	err   error
	calls int
}

func (b *stubBackend) Complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error) {
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	if b.reply == "" {
		return "stub reply", nil
	}
	return b.reply, nil
}

func (b *stubBackend) Name() string  { return "stub" }
func (b *stubBackend) Model() string { return "stub-model" }

func newTestApp(t *testing.T, backend provider.Backend) App {
	t.Helper()

	dir := t.TempDir()
	hist, err := storage.NewHistoryStore(filepath.Join(dir, "persona.db"))
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	records := []reddit.ActivityRecord{
		{Kind: reddit.KindPost, Subreddit: "r/golang", Title: "generics in practice", Score: 42,
			CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Kind: reddit.KindComment, Subreddit: "r/golang", Body: "run the race detector", Score: 7,
			CreatedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	cache := storage.NewTimedCache(filepath.Join(dir, "cache"))
	store := activity.NewStore(cache, &stubFetcher{records: records}, 24*time.Hour)

	ctl := session.New(session.Options{
		Username:  "gopher",
		Activity:  store,
		History:   hist,
		Backend:   backend,
		Estimator: contextmgr.NewHeuristicEstimator(),
	})
	if err := ctl.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}

	app := NewApp(ctl, "stub", "stub-model")
	app.width, app.height = 100, 30
	app.relayout()
	return app
}

func TestAppSubmitAndReply(t *testing.T) {
	app := newTestApp(t, &stubBackend{reply: "**bold opinion**"})

	app.input.SetValue("what do you post about?")
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := m.(App)
	if !updated.busy {
		t.Fatal("expected busy after submit")
	}
	if cmd == nil {
		t.Fatal("expected a dispatch command")
	}
	if updated.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", updated.input.Value())
	}
	last := updated.items[len(updated.items)-1]
	if last.role != chat.RoleUser || last.text != "what do you post about?" {
		t.Fatalf("unexpected last item: %+v", last)
	}

	m, _ = updated.Update(replyMsg{outcome: session.Outcome{Kind: session.OutcomeReply, Reply: "**bold opinion**"}})
	updated = m.(App)
	if updated.busy {
		t.Fatal("expected busy cleared after reply")
	}
	last = updated.items[len(updated.items)-1]
	if last.role != chat.RoleAssistant {
		t.Fatalf("expected assistant item, got %+v", last)
	}
	if !strings.Contains(updated.renderChatContent(80), "bold opinion") {
		t.Fatal("reply missing from chat content")
	}
}

func TestAppSubmitIgnoredWhileBusy(t *testing.T) {
	app := newTestApp(t, &stubBackend{})
	app.busy = true

	app.input.SetValue("queued question")
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := m.(App)
	if updated.input.Value() != "queued question" {
		t.Fatal("input should be untouched while busy")
	}
	for _, it := range updated.items {
		if it.role == chat.RoleUser {
			t.Fatalf("no user item should be appended while busy: %+v", it)
		}
	}
}

func TestAppBlankSubmitIsNoop(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	app.input.SetValue("   ")
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := m.(App)
	if updated.busy {
		t.Fatal("blank input should not dispatch")
	}
}

func TestAppRefreshKey(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	updated := m.(App)
	if !updated.busy || cmd == nil {
		t.Fatal("ctrl+r should dispatch a refresh")
	}
	last := updated.items[len(updated.items)-1]
	if last.role != chat.RoleUser || last.text != "refresh" {
		t.Fatalf("unexpected last item: %+v", last)
	}

	out := session.Outcome{Kind: session.OutcomeRefreshed}
	out.Summary.TotalPosts = 3
	out.Summary.TotalComments = 5
	m, _ = updated.Update(replyMsg{outcome: out})
	updated = m.(App)
	last = updated.items[len(updated.items)-1]
	if last.role != itemNote || !strings.Contains(last.text, "3") || !strings.Contains(last.text, "5") {
		t.Fatalf("expected refresh note with counts, got %+v", last)
	}
}

func TestAppRefreshWarning(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	out := session.Outcome{Kind: session.OutcomeRefreshed, Warning: "connection reset"}
	m, _ := app.Update(replyMsg{outcome: out})
	updated := m.(App)
	last := updated.items[len(updated.items)-1]
	if last.role != itemWarn || last.text != "connection reset" {
		t.Fatalf("expected warning item, got %+v", last)
	}
}

func TestAppHistoryToggle(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyCtrlH})
	updated := m.(App)
	if !updated.showHistory {
		t.Fatal("ctrl+h should open the history overlay")
	}

	m, _ = updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	updated = m.(App)
	if updated.showHistory {
		t.Fatal("esc should close the history overlay")
	}

	// 再按 esc 退出程序 / A second esc quits the program
	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestAppHistoryOutcomeOpensOverlay(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	turns := []chat.Turn{
		{Role: chat.RoleSystem, Content: "persona context"},
		{Role: chat.RoleUser, Content: "hello there", Timestamp: "2024-03-01T10:00:00Z"},
		{Role: chat.RoleAssistant, Content: "hi!", Timestamp: "2024-03-01T10:00:05Z"},
	}
	m, _ := app.Update(replyMsg{outcome: session.Outcome{Kind: session.OutcomeHistory, Turns: turns}})
	updated := m.(App)
	if !updated.showHistory {
		t.Fatal("history outcome should open the overlay")
	}

	content := updated.renderHistoryContent(turns, 80)
	if !strings.Contains(content, "hello there") || !strings.Contains(content, "2024-03-01T10:00:00Z") {
		t.Fatalf("overlay missing dialogue: %q", content)
	}
	if strings.Contains(content, "persona context") {
		t.Fatal("overlay should omit the system turn")
	}
}

func TestAppAuthErrorQuits(t *testing.T) {
	authErr := &provider.AuthError{Backend: "stub", Err: errors.New("bad key")}
	app := newTestApp(t, &stubBackend{err: authErr})

	// 真正驱动控制器进入 Terminated / Actually drive the controller to Terminated
	_, err := app.ctl.HandleInput(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected backend error")
	}

	m, cmd := app.Update(replyMsg{err: err})
	updated := m.(App)
	if updated.fatalErr == nil {
		t.Fatal("expected fatal error recorded")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	last := updated.items[len(updated.items)-1]
	if last.role != itemErr || !strings.Contains(last.text, "stub") {
		t.Fatalf("expected error item naming the backend, got %+v", last)
	}
}

func TestAppTransientErrorStays(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	transErr := &provider.TransportError{Backend: "stub", Err: errors.New("timeout")}
	m, cmd := app.Update(replyMsg{err: transErr})
	updated := m.(App)
	if updated.fatalErr != nil {
		t.Fatal("transport error should not be fatal")
	}
	if cmd != nil {
		t.Fatal("transport error should not quit")
	}
	last := updated.items[len(updated.items)-1]
	if last.role != itemErr {
		t.Fatalf("expected error item, got %+v", last)
	}
}

func TestAppResizeRelayouts(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := m.(App)
	sidebar, main := updated.layoutWidths()
	if sidebar != 30 || main != 89 {
		t.Fatalf("unexpected layout at 120 cols: sidebar=%d main=%d", sidebar, main)
	}
	if updated.chatView.Width != main {
		t.Fatalf("chat viewport width %d, want %d", updated.chatView.Width, main)
	}

	// 窄终端收起侧边栏 / Narrow terminals collapse the sidebar
	m, _ = updated.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	updated = m.(App)
	sidebar, main = updated.layoutWidths()
	if sidebar != 0 || main != 60 {
		t.Fatalf("unexpected layout at 60 cols: sidebar=%d main=%d", sidebar, main)
	}
}

func TestAppSidebarContent(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	out := app.renderSidebar(30, 24)
	for _, want := range []string{"u/gopher", "r/golang"} {
		if !strings.Contains(out, want) {
			t.Fatalf("sidebar missing %q: %q", want, out)
		}
	}
}

func TestAppStatusBar(t *testing.T) {
	app := newTestApp(t, &stubBackend{})

	out := app.renderStatusBar(100)
	for _, want := range []string{"stub", "stub-model", "enter"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status bar missing %q: %q", want, out)
		}
	}
}

func TestAppSeedsResumedTurns(t *testing.T) {
	backend := &stubBackend{}
	app := newTestApp(t, backend)

	// 进行一次交互后重建 App，历史应该被灌入聊天面板
	// After one exchange a rebuilt App should seed the prior dialogue
	if _, err := app.ctl.HandleInput(context.Background(), "first question"); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	fresh := NewApp(app.ctl, "stub", "stub-model")

	var haveUser, haveReply bool
	for _, it := range fresh.items {
		if it.role == chat.RoleUser && it.text == "first question" {
			haveUser = true
		}
		if it.role == chat.RoleAssistant {
			haveReply = true
		}
	}
	if !haveUser || !haveReply {
		t.Fatalf("resumed dialogue missing: %+v", fresh.items)
	}
}

func TestRenderBars(t *testing.T) {
	if got := renderCountBar(5, 10, 8); got != "████░░░░" {
		t.Fatalf("unexpected half bar: %q", got)
	}
	if got := renderCountBar(1, 100, 8); !strings.HasPrefix(got, "█") {
		t.Fatalf("nonzero count should fill at least one cell: %q", got)
	}
	if got := renderCountBar(3, 0, 8); got != "" {
		t.Fatalf("zero max should render nothing: %q", got)
	}

	if got := renderProgressBar(0, 10); strings.Contains(got, "█") {
		t.Fatalf("empty bar should have no fill: %q", got)
	}
	if got := renderProgressBar(100, 10); strings.Contains(got, "░") {
		t.Fatalf("full bar should have no gaps: %q", got)
	}
	if got := renderProgressBar(250, 10); got != strings.Repeat("█", 10) {
		t.Fatalf("overflow should clamp: %q", got)
	}
}
