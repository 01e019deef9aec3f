package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"plateful/internal/api"
	"plateful/internal/api/handlers/health"
	"plateful/internal/core/nutrition"
	recipeService "plateful/internal/core/recipe"
	"plateful/internal/core/service"
	"plateful/internal/infrastructure/config"
	"plateful/internal/infrastructure/database"
	"plateful/internal/infrastructure/repository"
	"plateful/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("nutrition_source", cfg.Nutrition.Source),
		zap.String("on_unresolved", cfg.Nutrition.OnUnresolved),
		zap.Bool("translator_enabled", cfg.Translator.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	checkers := map[string]health.Checker{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var timers *recipeService.TimerService
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		timers = recipeService.NewTimerService(rdb)
		checkers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	recipes, err := buildRecipeService(cfg, db)
	if err != nil {
		common.LogFatal("Failed to initialize recipe service", zap.Error(err))
	}

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Recipes:  recipes,
		Timers:   timers,
		Checkers: checkers,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}

// buildRecipeService 組裝營養計算管線與食譜服務
func buildRecipeService(cfg *config.Config, db *gorm.DB) (*recipeService.Service, error) {
	policy, err := recipeService.ParsePolicy(cfg.Nutrition.OnUnresolved)
	if err != nil {
		return nil, err
	}

	// 未啟用翻譯時 translator 保持 nil，非目標文字的名稱會被略過
	var translator nutrition.Translator
	if cfg.Translator.Enabled {
		translator = service.NewTranslateService(cfg.Translator)
	}
	normalizer := nutrition.NewNormalizer(translator, cfg.Translator.TargetLanguage,
		nutrition.WithMaxAttempts(cfg.Translator.MaxAttempts),
		nutrition.WithBackoff(cfg.Translator.Backoff),
	)

	var source nutrition.NutrientSource
	switch cfg.Nutrition.Source {
	case "static":
		source = nutrition.NewStaticSource(nutrition.DefaultProfiles())
	default:
		source = service.NewBreakerSource("openfoodfacts",
			service.NewOpenFoodFactsSource(cfg.Nutrition), cfg.Nutrition.Breaker)
	}

	resolver := nutrition.NewResolver(normalizer, source, cfg.Nutrition.LookupTimeout)
	aggregator := nutrition.NewAggregator(resolver, cfg.Nutrition.Concurrency)
	ratings := recipeService.NewRatingAggregator(repository.NewRatingRepository(db))

	return recipeService.NewService(repository.NewRecipeRepository(db), aggregator, ratings, policy), nil
}
