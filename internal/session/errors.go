package session

import (
	"errors"

	"persona/internal/i18n"
	"persona/internal/provider"
	"persona/internal/reddit"
)

// DescribeError 把控制器返回的类型化错误翻译成一条面向用户的本地化
// 消息。REPL 和 TUI 共用，两个前端因而措辞一致。
// DescribeError turns a typed controller error into one localized
// user-facing line. The REPL and the TUI share it, so both fronts speak
// the same words.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return i18n.T("error.auth", authErr.Backend)
	}
	var provRate *provider.RateLimitError
	if errors.As(err, &provRate) {
		return i18n.T("error.rate_limit", provRate.Err)
	}
	var provTrans *provider.TransportError
	if errors.As(err, &provTrans) {
		return i18n.T("error.model", provTrans.Err)
	}

	var notFound *reddit.NotFoundError
	if errors.As(err, &notFound) {
		return i18n.T("startup.not_found", notFound.Username)
	}
	var redditRate *reddit.RateLimitError
	if errors.As(err, &redditRate) {
		return i18n.T("error.rate_limit", err)
	}
	var redditTrans *reddit.TransportError
	if errors.As(err, &redditTrans) {
		return i18n.T("error.fetch", err)
	}

	return err.Error()
}
