package analysis

import (
	"context"

	"go.uber.org/zap"

	"ingredient-analyzer/internal/pkg/common"
)

// Classifier 外部分類器：送出提示詞，取回原始文字回覆
type Classifier interface {
	Classify(ctx context.Context, prompt *Prompt) (string, error)
}

// ReplyCache 以提示詞鍵保存分類器回覆
type ReplyCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Result 產品分析結果與分類器原文
type Result struct {
	Raw     string
	Product *Product
}

// IngredientResult 單一成分結果與分類器原文
type IngredientResult struct {
	Raw        string
	Ingredient *IngredientReport
}

// Service 分類管線：標準化 → 提示詞 → 分類器 → 驗證 → 組裝
type Service struct {
	classifier Classifier
	decoder    ImageDecoder
	budget     TokenBudget
	cache      ReplyCache
}

// NewService 創建分類服務，cache 可為 nil
func NewService(classifier Classifier, decoder ImageDecoder, budget TokenBudget, cache ReplyCache) *Service {
	return &Service{
		classifier: classifier,
		decoder:    decoder,
		budget:     budget,
		cache:      cache,
	}
}

// AnalyzeText 分析成分清單文字
func (s *Service) AnalyzeText(ctx context.Context, ingredients string) (*Result, error) {
	req, err := NewTextRequest(ingredients)
	if err != nil {
		return nil, err
	}
	return s.analyzeProduct(ctx, req)
}

// AnalyzeImage 分析產品標籤圖片
func (s *Service) AnalyzeImage(ctx context.Context, payload string) (*Result, error) {
	req, err := NewImageRequest(payload, s.decoder)
	if err != nil {
		return nil, err
	}
	return s.analyzeProduct(ctx, req)
}

// DescribeIngredient 查詢單一成分
func (s *Service) DescribeIngredient(ctx context.Context, name string) (*IngredientResult, error) {
	req, err := NewIngredientRequest(name)
	if err != nil {
		return nil, err
	}

	prompt := CompilePrompt(req, s.budget)
	raw, cached, err := s.classify(ctx, prompt)
	if err != nil {
		return nil, err
	}

	report, err := ValidateIngredient(req, raw)
	s.remember(ctx, prompt, raw, cached, err)
	if err != nil {
		return nil, err
	}
	return &IngredientResult{Raw: raw, Ingredient: AssembleIngredient(report)}, nil
}

func (s *Service) analyzeProduct(ctx context.Context, req *ClassificationRequest) (*Result, error) {
	prompt := CompilePrompt(req, s.budget)
	raw, cached, err := s.classify(ctx, prompt)
	if err != nil {
		return nil, err
	}

	product, err := ValidateProduct(req, raw)
	s.remember(ctx, prompt, raw, cached, err)
	if err != nil {
		return nil, err
	}
	return &Result{Raw: raw, Product: Assemble(product)}, nil
}

// classify 呼叫分類器；取消、逾時與任何傳輸錯誤一律視為 UpstreamUnavailable
func (s *Service) classify(ctx context.Context, prompt *Prompt) (raw string, cached bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, upstreamUnavailable(err)
	}

	key := prompt.CacheKey()
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			return raw, true, nil
		}
	}

	raw, err = s.classifier.Classify(ctx, prompt)
	if err != nil {
		common.LogError("Classifier call failed", zap.String("mode", string(prompt.Mode)), zap.Error(err))
		return "", false, upstreamUnavailable(err)
	}
	if err := ctx.Err(); err != nil {
		return "", false, upstreamUnavailable(err)
	}
	return raw, false, nil
}

// remember 只快取可通過驗證或明確拒絕的回覆，格式錯誤的回覆下次仍會重新呼叫分類器
func (s *Service) remember(ctx context.Context, prompt *Prompt, raw string, cached bool, err error) {
	if s.cache == nil || cached {
		return
	}
	if err != nil {
		ce, ok := AsClassificationError(err)
		if !ok || !ce.Semantic() {
			common.LogDebug("Reply not cached", zap.String("mode", string(prompt.Mode)), zap.Error(err))
			return
		}
	}
	s.cache.Set(ctx, prompt.CacheKey(), raw)
}
