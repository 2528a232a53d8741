package main

import "strings"

// 退出码约定：0 正常，1 运行期失败，2 用法错误
// Exit code contract: 0 clean, 1 runtime failure, 2 usage error.
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// normalizeUsername 接受 gopher、u/gopher、/u/gopher 三种写法
// normalizeUsername accepts gopher, u/gopher and /u/gopher alike
func normalizeUsername(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "/u/")
	name = strings.TrimPrefix(name, "u/")
	return strings.TrimSpace(name)
}
