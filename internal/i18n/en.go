package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// Startup
	"startup.config_failed":  "Load config failed: %v",
	"startup.storage_failed": "Open storage failed: %v",
	"startup.build_failed":   "Initialize failed: %v",
	"startup.fetching":       "Fetching Reddit activity for u/%s...",
	"startup.cached":         "Using cached activity for u/%s (fetched %s)",
	"startup.stale":          "Fetch failed (%v); using cached activity from %s",
	"startup.not_found":      "Reddit user %q not found",
	"startup.fetch_failed":   "Could not fetch activity for u/%s: %v",
	"startup.history":        "Resuming conversation (%d earlier turns)",
	"startup.reset":          "Conversation history cleared for u/%s",
	"startup.migrated":       "Imported %d legacy conversation(s)",
	"startup.config_written": "Wrote .persona/config.json",

	// Activity summary
	"summary.header":   "Activity summary for u/%s",
	"summary.posts":    "Posts: %d",
	"summary.comments": "Comments: %d",
	"summary.score":    "Combined score: %d",
	"summary.top":      "Top subreddits:",
	"summary.span":     "Active from %s to %s",
	"summary.empty":    "No public activity found.",

	// Session loop
	"session.hint":          "Ask about this user, or type: exit | history | refresh",
	"session.refreshed":     "Activity refreshed: %d posts, %d comments",
	"session.refresh_stale": "Refresh failed (%v); keeping cached activity from %s",
	"session.goodbye":       "Bye.",

	// History listing
	"history.header": "Conversation for u/%s (%d turns):",
	"history.empty":  "No conversation yet.",

	// Errors
	"error.fetch":      "Reddit fetch failed: %v",
	"error.rate_limit": "Rate limited, try again shortly: %v",
	"error.model":      "Model call failed: %v",
	"error.auth":       "Authentication with %s failed: check your API key",
	"error.backend":    "Unknown backend %q (expected claude or groq)",

	// TUI
	"tui.panel.chat":     "Chat",
	"tui.panel.activity": "Activity",
	"tui.status.ready":   "Ready",
	"tui.status.busy":    "Thinking...",
	"tui.cache.fresh":    "cache fresh",
	"tui.cache.stale":    "cache stale",
	"tui.cache.live":     "fetched live",
	"tui.context":        "Context",
	"tui.input.hint":     "Ask a question... (enter to send)",
	"tui.keys.send":      "enter send",
	"tui.keys.refresh":   "ctrl+r refresh",
	"tui.keys.history":   "ctrl+h history",
	"tui.keys.quit":      "ctrl+c quit",
}
