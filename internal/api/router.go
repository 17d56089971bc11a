package api

import (
	"net/http"

	analysisHandler "ingredient-analyzer/internal/api/handlers/analysis"
	"ingredient-analyzer/internal/api/handlers/health"
	"ingredient-analyzer/internal/api/middleware"
	"ingredient-analyzer/internal/core/ai/cache"
	"ingredient-analyzer/internal/core/ai/openrouter"
	"ingredient-analyzer/internal/core/ai/service"
	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 建立分類管線並設置路由；store 為 nil 時不快取
func SetupRouter(cfg *config.Config, store cache.Store) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	aiService := service.NewService(openrouter.NewClient(&cfg.OpenRouter))
	imageService := image.NewService(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension)
	budget := analysis.TokenBudget{
		Text:       cfg.OpenRouter.MaxTokens.Text,
		Image:      cfg.OpenRouter.MaxTokens.Image,
		Ingredient: cfg.OpenRouter.MaxTokens.Ingredient,
	}

	var replyCache analysis.ReplyCache
	var stats health.StatsProvider
	if store != nil {
		replyCache, stats = store, store
	}
	analyzer := analysis.NewService(aiService, imageService, budget, replyCache)

	common.LogInfo("Analysis service initialized",
		zap.String("model", cfg.OpenRouter.Model),
		zap.Bool("cache_enabled", store != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
	)

	return NewRouter(cfg, analyzer, health.NewHandler(cfg, stats))
}

// NewRouter 以指定的分類管線設置路由
func NewRouter(cfg *config.Config, analyzer analysisHandler.Analyzer, healthHandler *health.Handler) *gin.Engine {
	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(middleware.MethodNotAllowed)
	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound, c.Request.URL.Path)
	})

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID))) // 自動生成請求 ID

	// CORS 設置：允許所有來源，預檢回傳 200
	router.Use(middleware.AllowAllOrigins())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:             []string{"Content-Length", "X-Request-ID"},
		OptionsResponseStatusCode: http.StatusOK,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	h := analysisHandler.NewHandler(analyzer)
	api := router.Group("/api")
	{
		api.POST("/analyze-text", h.HandleAnalyzeText)
		api.POST("/analyze", h.HandleAnalyzeImage)
		api.POST("/ingredient-details", h.HandleIngredientDetails)

		api.OPTIONS("/analyze-text", analysisHandler.HandlePreflight)
		api.OPTIONS("/analyze", analysisHandler.HandlePreflight)
		api.OPTIONS("/ingredient-details", analysisHandler.HandlePreflight)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
	)
	return router
}
