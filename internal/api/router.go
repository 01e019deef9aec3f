package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"plateful/internal/api/handlers/health"
	recipeHandler "plateful/internal/api/handlers/recipe"
	"plateful/internal/api/middleware"
	recipeService "plateful/internal/core/recipe"
	"plateful/internal/infrastructure/config"
	"plateful/internal/pkg/common"
)

// 單一請求的處理上限
const timeoutDuration = 60 * time.Second

// Dependencies 路由所需的服務
type Dependencies struct {
	Recipes  *recipeService.Service
	Timers   *recipeService.TimerService // 未啟用 Redis 時為 nil
	Checkers map[string]health.Checker
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Recipes == nil {
		return nil, errors.New("recipe service is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// requestid 需在 Logger 之前，日誌才取得到請求 ID
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID", recipeHandler.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: len(origins) > 0 && origins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg.DedupWindow))
	router.Use(requestTimeout(timeoutDuration))

	// 健康檢查與指標
	healthHandler := health.NewHandler(cfg.App.Version, deps.Checkers)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerRoutes(router.Group("/api/v1"), recipeHandler.NewHandler(deps.Recipes, deps.Timers))

	common.LogInfo("Router setup completed successfully",
		zap.Bool("timers_enabled", deps.Timers != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

func registerRoutes(api *gin.RouterGroup, h *recipeHandler.Handler) {
	recipes := api.Group("/recipes")
	{
		recipes.POST("", h.HandleCreateRecipe)
		recipes.GET("", h.HandleListRecipes)
		recipes.GET("/:id", h.HandleGetRecipe)
		recipes.PUT("/:id", h.HandleUpdateRecipe)
		recipes.DELETE("/:id", h.HandleDeleteRecipe)
		recipes.GET("/:id/scale", h.HandleScaleRecipe)
		recipes.POST("/:id/rate", h.HandleRateRecipe)
		recipes.POST("/:id/timers", h.HandleAddTimer)
		recipes.GET("/:id/timers", h.HandleListTimers)
	}

	api.GET("/shopping-list/:id", h.HandleShoppingList)
	api.GET("/users/:user_id/recipes", h.HandleListUserRecipes)

	timers := api.Group("/timers")
	{
		timers.POST("", h.HandleStartTimer)
		timers.POST("/:timer_id/start", h.HandleStartTimer)
		timers.GET("/:timer_id", h.HandleGetTimer)
	}
}

// requestTimeout 為請求設定逾時，處理程序未回應時回傳 504
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:    common.ErrCodeGatewayTimeout,
				Message: common.ErrGatewayTimeout.Message,
			})
		}
	}
}
