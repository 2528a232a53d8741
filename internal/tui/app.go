package tui

import (
	"context"
	"fmt"
	"strings"

	"persona/internal/activity"
	"persona/internal/chat"
	"persona/internal/contextmgr"
	"persona/internal/i18n"
	"persona/internal/session"
	"persona/internal/stats"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	titleHeight  = 1
	inputHeight  = 4 // textarea rows + top border
	statusHeight = 1
)

// 非对话条目的角色标记 / Role tags for non-dialogue chat items
const (
	itemNote = "note"
	itemWarn = "warn"
	itemErr  = "error"
)

// chatItem 聊天面板中的一条内容。保留原文而非渲染结果，窗口尺寸
// 变化后按新宽度整体重排。
// chatItem is one entry in the chat panel. It keeps the raw text rather
// than the rendered form so a resize can re-wrap everything at the new
// width.
type chatItem struct {
	role string
	text string
}

// replyMsg 后台完成的一次控制器交互
// replyMsg carries the result of a controller exchange run off the UI loop
type replyMsg struct {
	outcome session.Outcome
	err     error
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	// 组件 / Components
	chatView    viewport.Model
	historyView viewport.Model
	input       textarea.Model
	spin        spinner.Model

	// 会话 / Session
	ctl      *session.Controller
	username string
	backend  string
	model    string

	// 侧边栏快照。View 只读这些字段；controller 只在 Update
	// 且无后台回合时才被访问。
	// Sidebar snapshot. View reads these fields only; the controller is
	// touched from Update alone, and never while an exchange is in flight.
	summary    stats.Summary
	result     activity.Result
	usage      contextmgr.Usage
	transcript []chat.Turn

	// 聊天内容 / Chat content
	items []chatItem

	// 状态 / State
	busy        bool
	showHistory bool
	fatalErr    error

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用。controller 必须已经 Start。
// NewApp creates the TUI application. The controller must be started.
func NewApp(ctl *session.Controller, backendName, modelName string) App {
	ta := textarea.New()
	ta.Placeholder = i18n.T("tui.input.hint")
	ta.CharLimit = 8192
	ta.SetHeight(inputHeight - 1)
	ta.Focus()

	theme := DarkTheme()
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	a := App{
		ctl:      ctl,
		username: ctl.Username(),
		backend:  backendName,
		model:    modelName,
		input:    ta,
		spin:     sp,
		theme:    theme,
		keys:     DefaultKeyMap(),
		locale:   i18n.Global(),
	}
	a.syncFromController()
	a.seedChat()
	return a
}

func (a App) Init() tea.Cmd {
	return textarea.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case replyMsg:
		return a.handleReply(msg)

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		if a.showHistory {
			a.historyView, cmd = a.historyView.Update(msg)
		} else {
			a.chatView, cmd = a.chatView.Update(msg)
		}
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Close):
		if a.showHistory {
			a.showHistory = false
			return a, nil
		}
		return a, tea.Quit

	case key.Matches(msg, a.keys.History):
		a.toggleHistory()
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		if a.busy {
			return a, nil
		}
		return a.dispatch("refresh")

	case key.Matches(msg, a.keys.Submit):
		if a.busy {
			return a, nil
		}
		line := a.input.Value()
		if strings.TrimSpace(line) == "" {
			return a, nil
		}
		a.input.Reset()
		return a.dispatch(line)

	case key.Matches(msg, a.keys.PageUp), key.Matches(msg, a.keys.PageDown):
		var cmd tea.Cmd
		if a.showHistory {
			a.historyView, cmd = a.historyView.Update(msg)
		} else {
			a.chatView, cmd = a.chatView.Update(msg)
		}
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// dispatch 把一行输入交给控制器在后台处理。控制词与普通提问走同一条
// 路径，行为与 REPL 一致。
// dispatch hands one input line to the controller off the UI loop. Control
// words and ordinary questions take the same path, matching the REPL.
func (a App) dispatch(line string) (tea.Model, tea.Cmd) {
	a.busy = true
	a.showHistory = false
	a.appendItem(chatItem{role: chat.RoleUser, text: line})

	ctl := a.ctl
	send := func() tea.Msg {
		out, err := ctl.HandleInput(context.Background(), line)
		return replyMsg{outcome: out, err: err}
	}
	return a, tea.Batch(a.spin.Tick, send)
}

func (a App) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	a.syncFromController()

	if msg.err != nil {
		a.appendItem(chatItem{role: itemErr, text: session.DescribeError(msg.err)})
		if a.ctl.State() == session.StateTerminated {
			a.fatalErr = msg.err
			return a, tea.Quit
		}
		return a, nil
	}

	switch out := msg.outcome; out.Kind {
	case session.OutcomeExit:
		return a, tea.Quit

	case session.OutcomeReply:
		a.appendItem(chatItem{role: chat.RoleAssistant, text: out.Reply})

	case session.OutcomeHistory:
		a.openHistory(out.Turns)

	case session.OutcomeRefreshed:
		if out.Warning != "" {
			a.appendItem(chatItem{role: itemWarn, text: out.Warning})
		} else {
			note := a.locale.T("session.refreshed", out.Summary.TotalPosts, out.Summary.TotalComments)
			a.appendItem(chatItem{role: itemNote, text: note})
		}
	}
	return a, nil
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	sidebarWidth, mainWidth := a.layoutWidths()

	title := a.renderTitle(mainWidth)
	panel := a.renderPanel(mainWidth)
	inputBox := a.renderInput(mainWidth)
	statusBar := a.renderStatusBar(a.width)

	// 左侧主区域 / Left main area
	main := lipgloss.JoinVertical(lipgloss.Left, title, panel, inputBox)

	// 右侧侧边栏 / Right sidebar
	if sidebarWidth > 0 {
		sidebar := a.renderSidebar(sidebarWidth, a.height-statusHeight)
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, sidebar)
	}

	// 底部状态栏 / Bottom status bar
	return lipgloss.JoinVertical(lipgloss.Left, main, statusBar)
}

// --- 内部方法 / Internal methods ---

// 侧边栏占 25% 宽，夹在 [20,40]；窄终端整个收起。
// The sidebar takes 25% of the width clamped to [20,40]; narrow terminals
// collapse it entirely.
func (a App) layoutWidths() (sidebar, main int) {
	sidebar = a.width * 25 / 100
	if sidebar < 20 {
		sidebar = 20
	}
	if sidebar > 40 {
		sidebar = 40
	}
	if a.width < 80 {
		sidebar = 0
	}
	main = a.width - sidebar
	if sidebar > 0 {
		main-- // border column
	}
	return sidebar, main
}

func (a *App) relayout() {
	_, mainWidth := a.layoutWidths()

	panelHeight := a.height - titleHeight - inputHeight - statusHeight
	if panelHeight < 3 {
		panelHeight = 3
	}

	a.chatView = viewport.New(mainWidth, panelHeight)
	a.chatView.SetContent(a.renderChatContent(mainWidth))
	a.chatView.GotoBottom()

	a.historyView = viewport.New(mainWidth, panelHeight)
	if a.showHistory {
		a.historyView.SetContent(a.renderHistoryContent(a.transcript, mainWidth))
	}

	a.input.SetWidth(mainWidth - 2)
}

// 只在没有后台回合进行时调用 / Call only while no exchange is in flight.
func (a *App) syncFromController() {
	a.summary = a.ctl.Summary()
	a.result = a.ctl.Result()
	a.usage = a.ctl.ContextUsage()
	a.transcript = a.ctl.History()
}

// seedChat 把已恢复的对话和开场提示灌入聊天面板
// seedChat feeds resumed turns and the opening hint into the chat panel
func (a *App) seedChat() {
	for _, turn := range a.transcript {
		if turn.Role == chat.RoleSystem {
			continue
		}
		a.items = append(a.items, chatItem{role: turn.Role, text: turn.Content})
	}
	a.items = append(a.items, chatItem{role: itemNote, text: i18n.T("session.hint")})
}

func (a *App) appendItem(it chatItem) {
	a.items = append(a.items, it)
	a.chatView.SetContent(a.renderChatContent(a.chatView.Width))
	a.chatView.GotoBottom()
}

func (a *App) toggleHistory() {
	if a.showHistory {
		a.showHistory = false
		return
	}
	a.openHistory(a.transcript)
}

func (a *App) openHistory(turns []chat.Turn) {
	a.showHistory = true
	a.historyView.SetContent(a.renderHistoryContent(turns, a.historyView.Width))
	a.historyView.GotoTop()
}

// --- 渲染方法 / Render methods ---

func (a App) renderChatContent(width int) string {
	parts := make([]string, 0, len(a.items))
	for _, it := range a.items {
		switch it.role {
		case chat.RoleUser, chat.RoleAssistant:
			turn := chat.Turn{Role: it.role, Content: it.text}
			parts = append(parts, RenderTurn(turn, a.username, width, a.theme))
		case itemWarn:
			parts = append(parts, a.theme.WarnStyle.Render(it.text))
		case itemErr:
			parts = append(parts, a.theme.ErrorStyle.Render(it.text))
		default:
			parts = append(parts, a.theme.MutedStyle.Render(it.text))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (a App) renderHistoryContent(turns []chat.Turn, width int) string {
	visible := 0
	for _, turn := range turns {
		if turn.Role != chat.RoleSystem {
			visible++
		}
	}
	if visible == 0 {
		return a.theme.MutedStyle.Render(a.locale.T("history.empty"))
	}

	var b strings.Builder
	b.WriteString(a.theme.TitleStyle.Render(a.locale.T("history.header", a.username, visible)))
	b.WriteString("\n\n")
	for _, turn := range turns {
		if turn.Role == chat.RoleSystem {
			continue
		}
		stamp := turn.Timestamp
		if stamp == "" {
			stamp = "-"
		}
		b.WriteString(a.theme.MutedStyle.Render(fmt.Sprintf("[%s] %s", stamp, turn.Role)))
		b.WriteString("\n" + turn.Content + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) renderTitle(width int) string {
	label := fmt.Sprintf(" u/%s · %s", a.username, a.locale.T("tui.panel.chat"))
	return a.theme.TitleStyle.Width(width).Render(label)
}

func (a App) renderPanel(width int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(a.chatView.Height)

	if a.showHistory {
		return style.Render(a.historyView.View())
	}
	return style.Render(a.chatView.View())
}

func (a App) renderInput(width int) string {
	return a.theme.InputStyle.Width(width).Render(a.input.View())
}

func (a App) renderSidebar(width, height int) string {
	inner := width - 4
	var parts []string

	parts = append(parts, a.theme.TitleStyle.Render(" u/"+a.username))
	parts = append(parts, "")

	// 活动统计 / Activity statistics
	parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("tui.panel.activity")))
	parts = append(parts, "  "+a.locale.T("summary.posts", a.summary.TotalPosts))
	parts = append(parts, "  "+a.locale.T("summary.comments", a.summary.TotalComments))
	parts = append(parts, "  "+a.locale.T("summary.score", a.summary.TotalScore))
	if span := a.summary.ActivitySpan; span != nil {
		parts = append(parts, "  "+span.Earliest.Format("2006-01-02")+" → "+span.Latest.Format("2006-01-02"))
	}
	parts = append(parts, "")

	// subreddit 排名条 / Subreddit ranking bars
	if top := a.summary.Top(5); len(top) > 0 {
		parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("summary.top")))
		maxCount := top[0].Count
		for _, sc := range top {
			bar := a.theme.BarStyle.Render(renderCountBar(sc.Count, maxCount, 8))
			parts = append(parts, fmt.Sprintf("  %-14s %s %d", clip(sc.Name, 14), bar, sc.Count))
		}
		parts = append(parts, "")
	}

	// 缓存状态 / Cache state
	switch {
	case a.result.Stale:
		parts = append(parts, "  "+a.theme.WarnStyle.Render(a.locale.T("tui.cache.stale")))
	case a.result.FromCache:
		parts = append(parts, "  "+a.theme.SuccessStyle.Render(a.locale.T("tui.cache.fresh")))
	default:
		parts = append(parts, "  "+a.theme.MutedStyle.Render(a.locale.T("tui.cache.live")))
	}
	if a.result.FromCache && !a.result.FetchedAt.IsZero() {
		parts = append(parts, "  "+a.result.FetchedAt.Format("2006-01-02 15:04"))
	}
	parts = append(parts, "")

	// 上下文占用 / Context usage
	parts = append(parts, a.theme.TitleStyle.Render(" "+a.locale.T("tui.context")))
	if a.usage.Budget > 0 {
		parts = append(parts, "  "+renderProgressBar(a.usage.Percent, inner))
		parts = append(parts, fmt.Sprintf("  %d / %d", a.usage.Tokens, a.usage.Budget))
	} else {
		parts = append(parts, fmt.Sprintf("  %d tokens", a.usage.Tokens))
	}

	content := strings.Join(parts, "\n")

	return a.theme.SidebarStyle.
		Width(width).
		Height(height).
		Render(content)
}

func (a App) renderStatusBar(width int) string {
	status := a.locale.T("tui.status.ready")
	if a.busy {
		status = a.spin.View() + " " + a.locale.T("tui.status.busy")
	}

	left := fmt.Sprintf(" %s · %s · %s", status, a.backend, a.model)
	right := strings.Join([]string{
		a.locale.T("tui.keys.send"),
		a.locale.T("tui.keys.refresh"),
		a.locale.T("tui.keys.history"),
		a.locale.T("tui.keys.quit"),
	}, " · ") + "  "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

func renderProgressBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// renderCountBar 按最大值等比填充；非零计数至少占一格。
// renderCountBar fills proportionally to the maximum; a nonzero count gets
// at least one cell.
func renderCountBar(count, max, width int) string {
	if width < 1 || max <= 0 {
		return ""
	}
	filled := count * width / max
	if filled < 1 && count > 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Run 启动 Bubble Tea TUI，阻塞到退出。致命的后端认证错误通过返回值
// 上抛，由调用方决定退出码。
// Run starts the Bubble Tea TUI and blocks until exit. A fatal backend auth
// error is surfaced through the return value so the caller picks the exit
// code.
func Run(ctl *session.Controller, backendName, modelName string) error {
	app := NewApp(ctl, backendName, modelName)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if done, ok := final.(App); ok && done.fatalErr != nil {
		return done.fatalErr
	}
	return nil
}
