package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"persona/internal/chat"
	"persona/internal/config"
	"persona/internal/defaults"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// ClaudeBackend 通过官方 SDK 调用 Anthropic Messages API
// ClaudeBackend talks to the Anthropic Messages API through the official SDK.
type ClaudeBackend struct {
	client anthropic.Client
	model  string
	cfg    config.ProviderConfig
}

// NewClaude 创建 Claude 后端 / NewClaude creates the Claude backend.
func NewClaude(cfg config.ProviderConfig) *ClaudeBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// 重试由共享循环负责 / Retries belong to the shared loop
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaults.ClaudeModel
	}

	return &ClaudeBackend{
		client: anthropic.NewClient(opts...),
		model:  model,
		cfg:    cfg,
	}
}

func (b *ClaudeBackend) Name() string {
	return defaults.BackendClaude
}

func (b *ClaudeBackend) Model() string {
	return b.model
}

func (b *ClaudeBackend) Complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error) {
	return completeWithRetry(ctx, b.Name(), b.cfg.MaxRetries, func(ctx context.Context) (string, error) {
		return b.complete(ctx, window, userMessage)
	})
}

// complete 序列化规则：system 轮收集进 System 块，user/assistant 轮映射为
// 文本消息，新的用户消息排在最后。回复是所有文本块的拼接。
// complete collects system turns into System blocks, maps user/assistant
// turns onto text messages and appends the new user message last. The reply
// is the concatenation of the response text blocks.
func (b *ClaudeBackend) complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error) {
	var systemBlocks []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(window)+1)

	for _, turn := range window {
		switch turn.Role {
		case chat.RoleSystem:
			if text := strings.TrimSpace(turn.Content); text != "" {
				systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: text})
			}
		case chat.RoleAssistant:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(turn.Content)},
			})
		default:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(turn.Content)},
			})
		}
	}
	messages = append(messages, anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleUser,
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(userMessage)},
	})

	maxTokens := b.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if b.cfg.Temperature > 0 {
		params.Temperature = param.NewOpt(b.cfg.Temperature)
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", b.classify(ctx, err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Text != "" {
			reply.WriteString(block.Text)
		}
	}
	return reply.String(), nil
}

// classify 把 SDK 错误映射为类型化错误。调用方主动取消原样上抛；HTTP
// 客户端超时也带着 DeadlineExceeded，归为传输错误。
// classify maps SDK errors onto the typed set. A caller-initiated cancel
// passes through untouched; an HTTP client timeout also carries
// DeadlineExceeded and classifies as a transport failure.
func (b *ClaudeBackend) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthError{Backend: b.Name(), Err: err}
		case http.StatusTooManyRequests:
			return &RateLimitError{Backend: b.Name(), Err: err}
		}
	}
	return &TransportError{Backend: b.Name(), Err: err}
}
