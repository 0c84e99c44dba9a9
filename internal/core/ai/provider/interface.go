package provider

import (
	"context"
	"errors"
	"time"
)

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	// JSONMode 要求模型只輸出 JSON 物件
	JSONMode bool `json:"-"`
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model,omitempty"`
	Usage    Usage  `json:"usage"`
	CacheHit bool   `json:"cache_hit,omitempty"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取請求超時時間
	GetTimeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}

// ErrNotConfigured 未設定金鑰或已停用
var ErrNotConfigured = errors.New("generative provider not configured")

// SafetyBlockError 內容安全過濾攔截
type SafetyBlockError struct {
	Reason string
}

func (e *SafetyBlockError) Error() string {
	if e.Reason == "" {
		return "blocked by content safety filter"
	}
	return "blocked by content safety filter: " + e.Reason
}

// AsSafetyBlock 判斷錯誤鏈中是否有安全攔截，並回傳原因
func AsSafetyBlock(err error) (*SafetyBlockError, bool) {
	var sb *SafetyBlockError
	if errors.As(err, &sb) {
		return sb, true
	}
	return nil, false
}
