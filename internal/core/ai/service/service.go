package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"recipe-suggester/internal/core/ai/cache"
	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service AI 服務：快取、節流後轉交提供者
type Service struct {
	provider provider.Provider
	cache    cache.Store
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewService 創建 AI 服務；store 可為 nil
func NewService(cfg config.OpenRouterConfig, p provider.Provider, store cache.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Service{
		provider: p,
		cache:    store,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.Named("ai"),
	}
}

// Generate 統一對外方法
func (s *Service) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if s.provider == nil {
		return nil, provider.ErrNotConfigured
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil {
			return &provider.Response{Content: val, Model: s.provider.GetModel(), CacheHit: true}, nil
		} else if !errors.Is(err, common.ErrCacheMiss) {
			s.logger.Warn("快取讀取失敗", zap.Error(err))
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generative rate limiter: %w", err)
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	// 只快取成功且可解析的回應
	if s.cache != nil && cacheable(req, resp) {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			s.logger.Warn("快取寫入失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// cacheable JSON 模式下內容須能解析為物件才寫入快取
func cacheable(req *provider.Request, resp *provider.Response) bool {
	if !req.JSONMode {
		return true
	}
	var obj map[string]interface{}
	return common.ParseLooseJSON(resp.Content, &obj) == nil
}

// cacheKey 統一 prompt 格式（合併空白），確保快取 key 一致
func (s *Service) cacheKey(req *provider.Request) string {
	parts := make([]string, 0, len(req.Messages)*2+2)
	parts = append(parts, s.provider.GetModel(), strconv.FormatBool(req.JSONMode))
	for _, m := range req.Messages {
		parts = append(parts, m.Role, strings.Join(strings.Fields(m.Content), " "))
	}
	return cache.Key(parts...)
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}
