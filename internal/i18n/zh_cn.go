package i18n

// ZhCNMessages 简体中文消息目录
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	// Startup
	"startup.config_failed":  "加载配置失败: %v",
	"startup.storage_failed": "打开存储失败: %v",
	"startup.build_failed":   "初始化失败: %v",
	"startup.fetching":       "正在获取 u/%s 的 Reddit 活动...",
	"startup.cached":         "使用 u/%s 的缓存活动 (获取于 %s)",
	"startup.stale":          "获取失败 (%v)，使用 %s 的缓存活动",
	"startup.not_found":      "未找到 Reddit 用户 %q",
	"startup.fetch_failed":   "无法获取 u/%s 的活动: %v",
	"startup.history":        "继续之前的对话 (已有 %d 条)",
	"startup.reset":          "已清空 u/%s 的对话历史",
	"startup.migrated":       "已导入 %d 条旧版对话",
	"startup.config_written": "已写入 .persona/config.json",

	// Activity summary
	"summary.header":   "u/%s 的活动概览",
	"summary.posts":    "帖子: %d",
	"summary.comments": "评论: %d",
	"summary.score":    "总分: %d",
	"summary.top":      "最活跃的版块:",
	"summary.span":     "活跃时间 %s 至 %s",
	"summary.empty":    "未找到公开活动。",

	// Session loop
	"session.hint":          "提问了解此用户，或输入: exit | history | refresh",
	"session.refreshed":     "活动已刷新: %d 帖子, %d 评论",
	"session.refresh_stale": "刷新失败 (%v)，保留 %s 的缓存活动",
	"session.goodbye":       "再见。",

	// History listing
	"history.header": "u/%s 的对话 (%d 条):",
	"history.empty":  "暂无对话。",

	// Errors
	"error.fetch":      "Reddit 获取失败: %v",
	"error.rate_limit": "请求过于频繁，请稍后重试: %v",
	"error.model":      "模型调用失败: %v",
	"error.auth":       "%s 认证失败: 请检查 API key",
	"error.backend":    "未知后端 %q (应为 claude 或 groq)",

	// TUI
	"tui.panel.chat":     "对话",
	"tui.panel.activity": "活动",
	"tui.status.ready":   "就绪",
	"tui.status.busy":    "思考中...",
	"tui.cache.fresh":    "缓存新鲜",
	"tui.cache.stale":    "缓存过期",
	"tui.cache.live":     "实时抓取",
	"tui.context":        "上下文",
	"tui.input.hint":     "输入问题... (回车发送)",
	"tui.keys.send":      "enter 发送",
	"tui.keys.refresh":   "ctrl+r 刷新",
	"tui.keys.history":   "ctrl+h 历史",
	"tui.keys.quit":      "ctrl+c 退出",
}
