package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"

	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Analyzer 分類管線
type Analyzer interface {
	AnalyzeText(ctx context.Context, ingredients string) (*analysis.Result, error)
	AnalyzeImage(ctx context.Context, payload string) (*analysis.Result, error)
	DescribeIngredient(ctx context.Context, name string) (*analysis.IngredientResult, error)
}

// AnalyzeTextRequest 成分清單分析請求
type AnalyzeTextRequest struct {
	Ingredients string `json:"ingredients"`
}

// AnalyzeImageRequest 標籤圖片分析請求
type AnalyzeImageRequest struct {
	Image string `json:"image"` // base64 或 data URI
}

// IngredientDetailsRequest 單一成分查詢請求
type IngredientDetailsRequest struct {
	IngredientName string `json:"ingredientName"`
}

// Response 成功回應：分類器原文與驗證後的結果
type Response struct {
	Success bool        `json:"success"`
	Content string      `json:"content"`
	Data    interface{} `json:"data"`
}

// Handler 成分分析處理程序
type Handler struct {
	analyzer Analyzer
}

// NewHandler 創建成分分析處理程序
func NewHandler(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

// HandleAnalyzeText 分析成分清單文字
func (h *Handler) HandleAnalyzeText(c *gin.Context) {
	c.Set(common.ContextKeyMode, string(analysis.ModeTextList))

	var req AnalyzeTextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := requestContext(c)
	common.LogInfo("開始分析成分清單",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("text_length", len(req.Ingredients)),
	)

	result, err := h.analyzer.AnalyzeText(ctx, req.Ingredients)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Content: result.Raw, Data: result.Product})
}

// HandleAnalyzeImage 分析產品標籤圖片
func (h *Handler) HandleAnalyzeImage(c *gin.Context) {
	c.Set(common.ContextKeyMode, string(analysis.ModeLabelImage))

	var req AnalyzeImageRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := requestContext(c)
	common.LogInfo("開始分析標籤圖片",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("payload_length", len(req.Image)),
	)

	result, err := h.analyzer.AnalyzeImage(ctx, req.Image)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Content: result.Raw, Data: result.Product})
}

// HandleIngredientDetails 查詢單一成分
func (h *Handler) HandleIngredientDetails(c *gin.Context) {
	c.Set(common.ContextKeyMode, string(analysis.ModeSingleIngredient))

	var req IngredientDetailsRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := requestContext(c)
	common.LogInfo("開始查詢成分",
		zap.String("request_id", requestid.Get(c)),
		zap.String("ingredient", req.IngredientName),
	)

	result, err := h.analyzer.DescribeIngredient(ctx, req.IngredientName)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Content: result.Raw, Data: result.Ingredient})
}

// HandlePreflight 跨域預檢
func HandlePreflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// bindJSON 解析請求體；空的請求體視為空欄位，交由管線回報缺少的欄位
func bindJSON(c *gin.Context, v interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := common.DecodeJSON(c.Request.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(c, common.ErrRequestTooLarge, "")
			return false
		}
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestid.Get(c)))
		common.WriteError(c, common.ErrInvalidRequest, err.Error())
		return false
	}
	return true
}

func requestContext(c *gin.Context) context.Context {
	return common.WithRequestID(c.Request.Context(), requestid.Get(c))
}

// writeAnalysisError 將管線錯誤寫成錯誤回應
func writeAnalysisError(c *gin.Context, err error) {
	requestID := requestid.Get(c)
	_ = c.Error(err)
	ce, ok := analysis.AsClassificationError(err)
	if !ok {
		common.LogError("Unexpected analysis error", zap.Error(err), zap.String("request_id", requestID))
		common.WriteError(c, common.ErrInternalError, err.Error())
		return
	}

	c.Set(common.ContextKeyErrorKind, string(ce.Kind))
	resp := common.ErrorResponse{Error: ce.Message, Code: string(ce.Kind)}
	switch ce.Kind {
	case analysis.KindTooBlurry:
		resp.Details = ce.Suggestion
	case analysis.KindMalformedResponse:
		resp.Error = common.ErrInternalError.Message
		resp.Details = ce.Raw
	case analysis.KindUpstreamUnavailable:
		resp.Error = common.ErrInternalError.Message
		resp.Details = ce.Error()
	case analysis.KindInvalidInput:
		if ce.Err != nil {
			resp.Details = ce.Err.Error()
		}
	}

	fields := []zap.Field{
		zap.String("kind", string(ce.Kind)),
		zap.Bool("retryable", ce.Retryable()),
		zap.String("request_id", requestID),
	}
	if ce.Status() >= http.StatusInternalServerError {
		common.LogError("分析失敗", append(fields, zap.Error(err))...)
	} else {
		common.LogInfo("分析未完成", fields...)
	}
	c.AbortWithStatusJSON(ce.Status(), resp)
}
