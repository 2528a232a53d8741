package tui

import (
	"fmt"
	"strings"

	"persona/internal/chat"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderTurn 渲染单条对话记录：用户一行带标签，助手回复走 markdown。
// system 记录承载活动摘要而非对话，渲染为空。
// RenderTurn renders one conversation turn: user lines get a label prefix,
// assistant replies go through markdown. System turns carry the activity
// digest rather than dialogue and render to nothing.
func RenderTurn(turn chat.Turn, username string, width int, theme Theme) string {
	switch turn.Role {
	case chat.RoleUser:
		return theme.UserStyle.Render("you ›") + " " + turn.Content
	case chat.RoleAssistant:
		label := theme.PersonaStyle.Render(fmt.Sprintf("u/%s ›", username))
		return label + "\n" + RenderMarkdown(turn.Content, width)
	default:
		return ""
	}
}
