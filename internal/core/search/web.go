package search

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebClient SerpAPI 網頁與圖片搜尋
type WebClient struct {
	client *resty.Client
	cfg    config.WebSearchConfig
	logger *zap.Logger
}

type serpResponse struct {
	OrganicResults []WebResult `json:"organic_results"`
	ImagesResults  []struct {
		Original  string `json:"original"`
		Thumbnail string `json:"thumbnail"`
	} `json:"images_results"`
	Error string `json:"error,omitempty"`
}

// NewWebClient 創建網頁搜尋客戶端
func NewWebClient(cfg config.WebSearchConfig, userAgent string, logger *zap.Logger) *WebClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &WebClient{client: client, cfg: cfg, logger: logger.Named("search.web")}
}

// IsConfigured 是否已設定金鑰
func (c *WebClient) IsConfigured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Search 網頁搜尋，回傳最多 limit 筆
func (c *WebClient) Search(ctx context.Context, query string, limit int) ([]WebResult, error) {
	engine := c.cfg.Engine
	if engine == "" {
		engine = "google"
	}
	resp, err := c.query(ctx, engine, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]WebResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if strings.TrimSpace(r.Title) == "" || r.Link == "" {
			continue
		}
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// SearchImages 圖片搜尋，只回傳絕對網址
func (c *WebClient) SearchImages(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := c.query(ctx, "google_images", query, limit)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, limit)
	for _, img := range resp.ImagesResults {
		if !common.IsAbsoluteURL(img.Original) {
			continue
		}
		urls = append(urls, img.Original)
		if len(urls) == limit {
			break
		}
	}
	if len(urls) == 0 {
		return nil, ErrNotFound
	}
	return urls, nil
}

func (c *WebClient) query(ctx context.Context, engine, query string, limit int) (*serpResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 5
	}

	params := map[string]string{
		"engine":  engine,
		"q":       query,
		"api_key": c.cfg.APIKey,
		"num":     strconv.Itoa(limit),
	}
	if c.cfg.Locale != "" {
		params["gl"] = c.cfg.Locale
	}

	var out serpResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode(), common.Truncate(resp.String(), 200))
	}
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", out.Error)
	}

	c.logger.Debug("search completed",
		zap.String("engine", engine),
		zap.String("query", query),
		zap.Int("organic", len(out.OrganicResults)),
		zap.Int("images", len(out.ImagesResults)),
	)
	return &out, nil
}
