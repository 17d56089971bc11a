package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ingredient-analyzer/internal/core/ai"
	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	maxLoggedBody  = 512
)

// 上游錯誤
var (
	ErrEmptyChoices = errors.New("no choices in OpenRouter response")
	ErrEmptyContent = errors.New("empty content in OpenRouter response")
)

// StatusError 上游回傳非 200 狀態
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("OpenRouter API returned status %d: %s", e.StatusCode, e.Message)
}

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
	model  string
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.OpenRouterConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "Ingredient Analyzer").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
	}
}

// Model 使用中的模型
func (c *Client) Model() string {
	return c.model
}

// Complete 送出單一使用者訊息（文字與可選的內嵌圖片），回傳第一個選項的內容
func (c *Client) Complete(ctx context.Context, prompt, imageDataURI string, maxTokens int) (string, error) {
	parts := []ai.ContentPart{ai.TextPart(prompt)}
	if imageDataURI != "" {
		parts = append(parts, ai.ImagePart(imageDataURI))
	}
	req := ai.ChatRequest{
		Model:     c.model,
		Messages:  []ai.ChatMessage{{Role: "user", Content: parts}},
		MaxTokens: maxTokens,
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", c.model),
		zap.Int("max_tokens", maxTokens),
		zap.Bool("has_image", imageDataURI != ""),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}

	var result ai.Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w (response: %s)", err, sanitizeBody(resp.Body()))
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	common.LogDebug("OpenRouter response received",
		zap.String("id", result.ID),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return content, nil
}

// errorMessage 取出上游錯誤訊息，無法解析時回傳清理後的原文
func errorMessage(body []byte) string {
	var apiErr ai.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return sanitizeBody(body)
}

var inlineImagePattern = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=_-]+`)

// sanitizeBody 移除內嵌圖片並截斷，避免寫進日誌
func sanitizeBody(body []byte) string {
	s := inlineImagePattern.ReplaceAllString(string(body), "[IMAGE_DATA_REMOVED]")
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "..."
	}
	return s
}
