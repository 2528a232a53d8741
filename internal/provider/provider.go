package provider

import (
	"context"
	"errors"
	"time"

	"persona/internal/chat"
)

// Backend 模型后端接口。两个实现只在序列化上不同，调用方绝不依赖具体
// 后端类型，也绝不按名称分支。
// Backend is the model backend interface. Implementations differ only in
// serialization; callers never depend on a concrete backend type and never
// branch on the name.
type Backend interface {
	// Complete 发送上下文窗口加新的用户消息，返回助手回复文本。
	// 用户消息此时还不在窗口里。
	// Complete sends the context window plus the new user message and
	// returns the assistant reply text. The user message is not yet part
	// of the window.
	Complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error)

	// Name 返回后端名称，仅用于展示
	// Name returns the backend name, for display only
	Name() string

	// Model 返回当前模型 / Model returns the active model
	Model() string
}

// completeWithRetry 共享重试循环：二次退避，认证错误与上下文取消不重试
// completeWithRetry is the shared retry loop: quadratic backoff, no retry on
// auth errors or context cancellation.
func completeWithRetry(ctx context.Context, backend string, maxRetries int, call func(context.Context) (string, error)) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", &TransportError{Backend: backend, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		reply, err := call(ctx)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}
	return "", lastErr
}
