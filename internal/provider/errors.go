package provider

import "fmt"

// AuthError 凭证无效或缺失；不可恢复，也不重试
// AuthError means the credentials are missing or rejected. It is fatal and
// never retried.
type AuthError struct {
	Backend string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth failed: %v", e.Backend, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError 后端限流 / RateLimitError means the backend throttled us.
type RateLimitError struct {
	Backend string
	Err     error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Backend, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransportError 网络或服务端故障，包括超时
// TransportError covers network and server failures, timeouts included.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
