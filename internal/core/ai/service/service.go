package service

import (
	"context"
	"time"

	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/pkg/common"
)

// Completer 上游對話補全介面
type Completer interface {
	Complete(ctx context.Context, prompt, imageDataURI string, maxTokens int) (string, error)
	Model() string
}

// Service AI 服務，將編譯後的提示詞送往上游並記錄調用
type Service struct {
	completer Completer
}

// NewService 創建 AI 服務
func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

// Classify 實作 analysis.Classifier
func (s *Service) Classify(ctx context.Context, prompt *analysis.Prompt) (string, error) {
	start := time.Now()
	content, err := s.completer.Complete(ctx, prompt.Text, prompt.ImageDataURI, prompt.MaxTokens)
	common.LogAICall(s.completer.Model(), time.Since(start), err, common.RequestIDFrom(ctx))
	if err != nil {
		return "", err
	}
	return content, nil
}

// Model 使用中的模型
func (s *Service) Model() string {
	return s.completer.Model()
}

var _ analysis.Classifier = (*Service)(nil)
