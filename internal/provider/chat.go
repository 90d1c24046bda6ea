package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.siliconflow.cn/v1"
	DefaultModel   = "Qwen/Qwen2.5-7B-Instruct"

	maxErrorBody = 512
)

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Retries int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	client *resty.Client
	model  string
	creds  CredentialSource
	logger *slog.Logger
}

func NewChatClient(cfg Config, creds CredentialSource, logger *slog.Logger) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.AddRetryCondition(retryCondition)

	return &ChatClient{
		client: client,
		model:  cfg.Model,
		creds:  creds,
		logger: logger,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	key, ok, err := c.creds.LoadCredential(ctx)
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	if !ok || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: no credential configured", ErrUnauthorized)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		Post("/chat/completions")
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	c.logger.Debug("provider_request",
		slog.String("model", c.model),
		slog.Int("status", resp.StatusCode()),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
	)

	if err := handleResponse(resp); err != nil {
		return "", err
	}

	content := gjson.GetBytes(resp.Body(), "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return "", fmt.Errorf("%w: response has no message content", ErrRequestFailed)
	}
	return content.String(), nil
}

func handleResponse(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrTimeout, code)
	}
	body := resp.String()
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Status: code, Body: body}
}

// retryCondition retries network errors, throttling, and server errors.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
