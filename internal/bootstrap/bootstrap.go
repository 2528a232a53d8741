package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"persona/internal/activity"
	"persona/internal/config"
	"persona/internal/defaults"
	"persona/internal/i18n"
	"persona/internal/provider"
	"persona/internal/reddit"
	"persona/internal/session"
	"persona/internal/storage"
)

// BuildResult 与界面无关的构建结果，REPL 和 TUI 都从这里起步
// BuildResult is UI-agnostic; both the REPL and the TUI start from it.
type BuildResult struct {
	Controller *session.Controller
	History    *storage.HistoryStore
	Manager    *storage.Manager
	Backend    provider.Backend
}

// Close 释放 Build 打开的资源 / Close releases what Build opened.
func (r *BuildResult) Close() error {
	return r.History.Close()
}

// Build 按依赖顺序装配：存储目录 → 历史库与缓存 → 旧格式迁移 → Reddit
// 客户端 → 活动仓库 → 模型后端 → 会话控制器。调用方负责 defer result.Close()。
// Build assembles in dependency order: storage dirs, history store and
// cache, legacy migration, Reddit client, activity store, model backend,
// session controller. The caller must defer result.Close().
func Build(cfg config.Config, username string, forceRefresh bool) (*BuildResult, error) {
	manager, err := storage.NewManager(cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	hist, err := storage.NewHistoryStore(manager.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	// 旧 JSON 历史的导入是尽力而为，绝不阻塞启动
	// Importing legacy JSON history is best-effort and never blocks startup.
	if migrated, migErr := storage.MigrateFromJSON(cfg.Storage.BaseDir, hist); migErr != nil {
		fmt.Fprintf(os.Stderr, "migrate legacy history: %v\n", migErr)
	} else if migrated > 0 {
		fmt.Fprintln(os.Stderr, i18n.T("startup.migrated", migrated))
	}

	cache := storage.NewTimedCache(manager.CacheDir())
	client := reddit.NewClient(reddit.Options{
		BaseURL:   cfg.Reddit.BaseURL,
		UserAgent: cfg.Reddit.UserAgent,
		TimeoutMS: cfg.Reddit.TimeoutMS,
	})
	store := activity.NewStore(cache, client, time.Duration(cfg.Storage.CacheTTLHours)*time.Hour)

	backend, err := buildBackend(cfg.Provider)
	if err != nil {
		hist.Close()
		return nil, err
	}

	ctl := session.New(session.Options{
		Username:     username,
		Activity:     store,
		History:      hist,
		Backend:      backend,
		Limit:        cfg.Reddit.Limit,
		ForceRefresh: forceRefresh,
		MaxTurns:     cfg.Session.MaxTurns,
		TokenBudget:  cfg.Session.TokenBudget,
	})

	return &BuildResult{
		Controller: ctl,
		History:    hist,
		Manager:    manager,
		Backend:    backend,
	}, nil
}

// buildBackend 全程序唯一按后端名称分支的地方
// buildBackend is the only place in the program that branches on a backend
// name.
func buildBackend(cfg config.ProviderConfig) (provider.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case defaults.BackendClaude:
		return provider.NewClaude(cfg), nil
	case defaults.BackendGroq:
		return provider.NewGroq(cfg), nil
	default:
		return nil, errors.New(i18n.T("error.backend", cfg.Backend))
	}
}
