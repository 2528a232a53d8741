package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"persona/internal/defaults"
)

type ProviderConfig struct {
	// Backend 选择模型后端: claude 或 groq
	// Backend selects the model backend: claude or groq
	Backend     string  `json:"backend"`
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	TimeoutMS   int     `json:"timeout_ms"`
	MaxRetries  int     `json:"max_retries"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type RedditConfig struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	TimeoutMS int    `json:"timeout_ms"`
	// Limit 每类列表（帖子/评论）各自的最大条数
	// Limit caps each listing (posts / comments) independently
	Limit int `json:"limit"`
}

type StorageConfig struct {
	BaseDir       string `json:"base_dir"`
	CacheTTLHours int    `json:"cache_ttl_hours"`
}

type SessionConfig struct {
	MaxTurns int `json:"max_turns"`
	// TokenBudget 0 表示只统计不裁剪
	// TokenBudget 0 means report-only, no clamping
	TokenBudget int `json:"token_budget"`
}

type UIConfig struct {
	Language string `json:"language"`
	Markdown bool   `json:"markdown"`
}

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Reddit   RedditConfig   `json:"reddit"`
	Storage  StorageConfig  `json:"storage"`
	Session  SessionConfig  `json:"session"`
	UI       UIConfig       `json:"ui"`
}

type fileProviderConfig struct {
	Backend     string   `json:"backend"`
	Model       string   `json:"model"`
	APIKey      string   `json:"api_key"`
	BaseURL     string   `json:"base_url"`
	TimeoutMS   *int     `json:"timeout_ms"`
	MaxRetries  *int     `json:"max_retries"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

type fileRedditConfig struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	TimeoutMS *int   `json:"timeout_ms"`
	Limit     *int   `json:"limit"`
}

type fileStorageConfig struct {
	BaseDir       string `json:"base_dir"`
	CacheTTLHours *int   `json:"cache_ttl_hours"`
}

type fileSessionConfig struct {
	MaxTurns    *int `json:"max_turns"`
	TokenBudget *int `json:"token_budget"`
}

type fileUIConfig struct {
	Language string `json:"language"`
	Markdown *bool  `json:"markdown"`
}

type fileConfig struct {
	Provider *fileProviderConfig `json:"provider"`
	Reddit   *fileRedditConfig   `json:"reddit"`
	Storage  *fileStorageConfig  `json:"storage"`
	Session  *fileSessionConfig  `json:"session"`
	UI       *fileUIConfig       `json:"ui"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Backend:     defaults.BackendClaude,
			TimeoutMS:   DefaultProviderTimeoutMS,
			MaxRetries:  DefaultProviderMaxRetries,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		Reddit: RedditConfig{
			BaseURL:   defaults.RedditBaseURL,
			UserAgent: defaults.RedditUserAgent,
			TimeoutMS: DefaultRedditTimeoutMS,
			Limit:     DefaultRedditLimit,
		},
		Storage: StorageConfig{
			BaseDir:       "~/.persona",
			CacheTTLHours: DefaultCacheTTLHours,
		},
		Session: SessionConfig{
			MaxTurns:    DefaultMaxTurns,
			TokenBudget: DefaultTokenBudget,
		},
		UI: UIConfig{
			Language: "",
			Markdown: true,
		},
	}
}

// Load 按 默认值 → 全局配置 → 项目配置 → 环境变量 的顺序叠加
// Load layers defaults → global config → project config → environment
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("PERSONA_CONFIG_PATH")); resolvedPath == "" && envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".persona", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"persona.config.json",
		".persona/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		p := fc.Provider
		if strings.TrimSpace(p.Backend) != "" {
			cfg.Provider.Backend = p.Backend
		}
		if strings.TrimSpace(p.Model) != "" {
			cfg.Provider.Model = p.Model
		}
		if strings.TrimSpace(p.APIKey) != "" {
			cfg.Provider.APIKey = p.APIKey
		}
		if strings.TrimSpace(p.BaseURL) != "" {
			cfg.Provider.BaseURL = p.BaseURL
		}
		if p.TimeoutMS != nil {
			cfg.Provider.TimeoutMS = *p.TimeoutMS
		}
		if p.MaxRetries != nil {
			cfg.Provider.MaxRetries = *p.MaxRetries
		}
		if p.Temperature != nil {
			cfg.Provider.Temperature = *p.Temperature
		}
		if p.MaxTokens != nil {
			cfg.Provider.MaxTokens = *p.MaxTokens
		}
	}
	if fc.Reddit != nil {
		r := fc.Reddit
		if strings.TrimSpace(r.BaseURL) != "" {
			cfg.Reddit.BaseURL = r.BaseURL
		}
		if strings.TrimSpace(r.UserAgent) != "" {
			cfg.Reddit.UserAgent = r.UserAgent
		}
		if r.TimeoutMS != nil {
			cfg.Reddit.TimeoutMS = *r.TimeoutMS
		}
		if r.Limit != nil {
			cfg.Reddit.Limit = *r.Limit
		}
	}
	if fc.Storage != nil {
		s := fc.Storage
		if strings.TrimSpace(s.BaseDir) != "" {
			cfg.Storage.BaseDir = s.BaseDir
		}
		if s.CacheTTLHours != nil {
			cfg.Storage.CacheTTLHours = *s.CacheTTLHours
		}
	}
	if fc.Session != nil {
		s := fc.Session
		if s.MaxTurns != nil {
			cfg.Session.MaxTurns = *s.MaxTurns
		}
		if s.TokenBudget != nil {
			cfg.Session.TokenBudget = *s.TokenBudget
		}
	}
	if fc.UI != nil {
		u := fc.UI
		if strings.TrimSpace(u.Language) != "" {
			cfg.UI.Language = u.Language
		}
		if u.Markdown != nil {
			cfg.UI.Markdown = *u.Markdown
		}
	}
}

func normalize(cfg *Config) error {
	cfg.Provider.Backend = strings.ToLower(strings.TrimSpace(cfg.Provider.Backend))
	if cfg.Provider.Backend == "" {
		cfg.Provider.Backend = Default().Provider.Backend
	}
	cfg.Provider.Model = strings.TrimSpace(cfg.Provider.Model)
	cfg.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Provider.BaseURL), "/")
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = Default().Provider.TimeoutMS
	}
	if cfg.Provider.MaxRetries <= 0 {
		cfg.Provider.MaxRetries = Default().Provider.MaxRetries
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		cfg.Provider.Temperature = Default().Provider.Temperature
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = Default().Provider.MaxTokens
	}

	cfg.Reddit.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Reddit.BaseURL), "/")
	if cfg.Reddit.BaseURL == "" {
		cfg.Reddit.BaseURL = Default().Reddit.BaseURL
	}
	if strings.TrimSpace(cfg.Reddit.UserAgent) == "" {
		cfg.Reddit.UserAgent = Default().Reddit.UserAgent
	}
	if cfg.Reddit.TimeoutMS <= 0 {
		cfg.Reddit.TimeoutMS = Default().Reddit.TimeoutMS
	}
	if cfg.Reddit.Limit <= 0 {
		cfg.Reddit.Limit = Default().Reddit.Limit
	}

	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	if storageDir == "" {
		storageDir, err = expandPath(Default().Storage.BaseDir)
		if err != nil {
			return err
		}
	}
	cfg.Storage.BaseDir = storageDir
	if cfg.Storage.CacheTTLHours <= 0 {
		cfg.Storage.CacheTTLHours = Default().Storage.CacheTTLHours
	}

	if cfg.Session.MaxTurns <= 0 {
		cfg.Session.MaxTurns = Default().Session.MaxTurns
	}
	if cfg.Session.TokenBudget < 0 {
		cfg.Session.TokenBudget = 0
	}

	cfg.UI.Language = strings.TrimSpace(cfg.UI.Language)
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("PERSONA_BACKEND")); v != "" {
		cfg.Provider.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_STORAGE_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_LANG")); v != "" {
		cfg.UI.Language = v
	}

	// 后端专属的 key 只在未显式配置时兜底
	// Backend-specific keys only fill in when no key was configured
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		switch strings.ToLower(strings.TrimSpace(cfg.Provider.Backend)) {
		case defaults.BackendClaude:
			cfg.Provider.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		case defaults.BackendGroq:
			cfg.Provider.APIKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
		}
	}

	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
