package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"persona/internal/chat"
	"persona/internal/config"
	"persona/internal/defaults"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBackend 通过 OpenAI 兼容接口调用 Groq
// GroqBackend talks to Groq through its OpenAI-compatible endpoint.
type GroqBackend struct {
	client *openai.Client
	model  string
	cfg    config.ProviderConfig
}

// NewGroq 创建 Groq 后端 / NewGroq creates the Groq backend.
func NewGroq(cfg config.ProviderConfig) *GroqBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaults.GroqBaseURL
	}
	clientCfg.BaseURL = baseURL

	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	clientCfg.HTTPClient = httpClient

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaults.GroqModel
	}

	return &GroqBackend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		cfg:    cfg,
	}
}

func (b *GroqBackend) Name() string {
	return defaults.BackendGroq
}

func (b *GroqBackend) Model() string {
	return b.model
}

func (b *GroqBackend) Complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error) {
	return completeWithRetry(ctx, b.Name(), b.cfg.MaxRetries, func(ctx context.Context) (string, error) {
		return b.complete(ctx, window, userMessage)
	})
}

// complete 轮次 1:1 映射为 ChatCompletionMessage，system 轮直接透传，
// 新的用户消息排在最后。
// complete maps turns 1:1 onto ChatCompletionMessages, system turns pass
// straight through, and the new user message goes last.
func (b *GroqBackend) complete(ctx context.Context, window []chat.Turn, userMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	for _, turn := range window {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	req := openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	}
	if b.cfg.Temperature > 0 {
		req.Temperature = float32(b.cfg.Temperature)
	}
	if b.cfg.MaxTokens > 0 {
		req.MaxTokens = b.cfg.MaxTokens
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", b.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", &TransportError{Backend: b.Name(), Err: fmt.Errorf("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify 把 SDK 错误映射为类型化错误。调用方主动取消原样上抛；HTTP
// 客户端超时也带着 DeadlineExceeded，归为传输错误。
// classify maps SDK errors onto the typed set. A caller-initiated cancel
// passes through untouched; an HTTP client timeout also carries
// DeadlineExceeded and classifies as a transport failure.
func (b *GroqBackend) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Backend: b.Name(), Err: err}
	case http.StatusTooManyRequests:
		return &RateLimitError{Backend: b.Name(), Err: err}
	}
	return &TransportError{Backend: b.Name(), Err: err}
}
