package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-suggester/internal/api"
	"recipe-suggester/internal/core/ai/cache"
	"recipe-suggester/internal/core/ai/openrouter"
	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/core/ai/service"
	"recipe-suggester/internal/core/image"
	"recipe-suggester/internal/core/recipe"
	"recipe-suggester/internal/core/search"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/infrastructure/metrics"
	"recipe-suggester/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	logger, err := common.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("dataset_path", cfg.Dataset.Path),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// 生成式回應快取（可選）
	store, err := cache.New(cfg.Cache, logger)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	var generator provider.Provider
	if cfg.OpenRouter.Enabled && cfg.OpenRouter.APIKey != "" {
		generator = openrouter.NewClient(cfg.OpenRouter, logger)
	} else {
		common.LogWarn("Generative service not configured, descriptions will be degraded")
	}
	aiService := service.NewService(cfg.OpenRouter, generator, store, logger)
	defer func() {
		if err := aiService.Close(); err != nil {
			common.LogError("Failed to close AI service", zap.Error(err))
		}
	}()

	collector := metrics.New()
	deps, sources := buildSources(cfg, logger)
	deps.Dataset = recipe.NewMatcher(cfg.Dataset, recipe.ContainmentScorer{}, logger)
	deps.Enricher = recipe.NewEnricher(aiService, cfg.Pipeline.SourceTimeout, logger)
	deps.Metrics = collector
	deps.Logger = logger
	sources["generative"] = generator != nil

	pipeline := recipe.NewPipeline(cfg.Pipeline, deps)

	router := api.SetupRouter(cfg, api.Dependencies{
		Suggester: pipeline,
		Metrics:   collector,
		Sources:   sources,
	})

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
			zap.Any("sources", sources),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
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
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

// buildSources 建立已設定的外部來源；未設定者保持 nil
func buildSources(cfg *config.Config, logger *zap.Logger) (recipe.Deps, map[string]bool) {
	var deps recipe.Deps
	sources := map[string]bool{}

	web := search.NewWebClient(cfg.Search.Web, cfg.Search.UserAgent, logger)
	var imageSearcher image.Searcher
	if web.IsConfigured() {
		deps.Web = web
		imageSearcher = web
	}
	sources["web"] = web.IsConfigured()

	video := search.NewVideoClient(cfg.Search.Video, cfg.Search.UserAgent, logger)
	if video.IsConfigured() {
		deps.Video = video
	}
	sources["video"] = video.IsConfigured()

	encyclopedia := search.NewEncyclopediaClient(cfg.Search.Encyclopedia, cfg.Search.UserAgent, logger)
	if encyclopedia.IsConfigured() {
		deps.Encyclopedia = encyclopedia
	}
	sources["encyclopedia"] = encyclopedia.IsConfigured()

	deps.Images = image.NewResolver(imageSearcher, cfg.Pipeline.SourceTimeout, cfg.Search.UserAgent, logger)
	return deps, sources
}
