package reddit

import (
	"fmt"
	"time"
)

// NotFoundError 用户不存在或不可见（封禁/注销）
// NotFoundError means the user does not exist or is not visible (suspended/deleted)
type NotFoundError struct {
	Username string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reddit user %q not found", e.Username)
}

// RateLimitError Reddit 限流应答
// RateLimitError is Reddit's throttling response
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("reddit rate limited, retry after %s", e.RetryAfter)
	}
	return "reddit rate limited"
}

// TransportError 网络或协议层失败，包含超时
// TransportError is a network or protocol level failure, including timeouts
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reddit %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
