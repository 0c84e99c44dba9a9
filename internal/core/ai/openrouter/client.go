package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL      = "https://openrouter.ai/api/v1"
	finishContentFilter = "content_filter"
	maxLoggedBody       = 512
)

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
	cfg    config.OpenRouterConfig
	logger *zap.Logger
}

// chatRequest 表示 API 請求
type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []choice       `json:"choices"`
	Usage   provider.Usage `json:"usage"`
}

type choice struct {
	Message            provider.Message `json:"message"`
	FinishReason       string           `json:"finish_reason"`
	NativeFinishReason string           `json:"native_finish_reason"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message  string      `json:"message"`
		Code     interface{} `json:"code"`
		Metadata struct {
			Reasons []string `json:"reasons"`
		} `json:"metadata"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("HTTP-Referer", "https://recipe-suggester.local").
		SetHeader("X-Title", "Recipe Suggester")

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger.Named("openrouter"),
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if !c.cfg.Enabled || c.cfg.APIKey == "" {
		return nil, provider.ErrNotConfigured
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = c.cfg.Temperature
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	c.logger.Debug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Bool("json_mode", req.JSONMode),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, c.statusError(resp.StatusCode(), resp.Body())
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	first := result.Choices[0]
	if first.FinishReason == finishContentFilter {
		reason := first.NativeFinishReason
		if reason == "" {
			reason = finishContentFilter
		}
		return nil, &provider.SafetyBlockError{Reason: reason}
	}

	content := strings.TrimSpace(first.Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in OpenRouter response")
	}

	c.logger.Debug("Successfully generated response",
		zap.String("model", result.Model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)

	return &provider.Response{
		Content: content,
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}

// statusError 將非 200 回應轉為錯誤；403 審核拒絕視為安全攔截
func (c *Client) statusError(status int, body []byte) error {
	var apiErr apiError
	_ = common.ParseJSONBytes(body, &apiErr)

	if status == http.StatusForbidden {
		reason := strings.Join(apiErr.Error.Metadata.Reasons, ", ")
		if reason == "" {
			reason = apiErr.Error.Message
		}
		return &provider.SafetyBlockError{Reason: reason}
	}

	c.logger.Warn("OpenRouter returned error status",
		zap.Int("status_code", status),
		zap.String("response", common.Truncate(string(body), maxLoggedBody)),
	)
	if apiErr.Error.Message != "" {
		return fmt.Errorf("OpenRouter API error (status %d): %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("OpenRouter API error (status %d)", status)
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.cfg.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.client.GetClient().Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
