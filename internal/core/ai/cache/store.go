package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"recipe-suggester/internal/infrastructure/config"

	"go.uber.org/zap"
)

// Store 生成式回應快取
type Store interface {
	// Get 取得快取，未命中回傳 common.ErrCacheMiss
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New 依設定建立快取；停用時回傳 nil
func New(cfg config.CacheConfig, logger *zap.Logger) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewManager(cfg, logger), nil
	case "redis":
		svc, err := NewService(cfg, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Key 計算快取鍵（SHA-256）
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
