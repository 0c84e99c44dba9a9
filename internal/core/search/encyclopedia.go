package search

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EncyclopediaClient MediaWiki（維基百科）查詢
type EncyclopediaClient struct {
	client *resty.Client
	cfg    config.EncyclopediaConfig
	logger *zap.Logger
}

type mediaWikiResponse struct {
	Query struct {
		Pages []struct {
			PageID    int    `json:"pageid"`
			Index     int    `json:"index"`
			Title     string `json:"title"`
			Extract   string `json:"extract"`
			FullURL   string `json:"fullurl"`
			Missing   bool   `json:"missing"`
			PageProps struct {
				Disambiguation *string `json:"disambiguation"`
			} `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// NewEncyclopediaClient 創建百科客戶端；未指定 base_url 時依語言推導
func NewEncyclopediaClient(cfg config.EncyclopediaConfig, userAgent string, logger *zap.Logger) *EncyclopediaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		lang := cfg.Language
		if lang == "" {
			lang = "en"
		}
		baseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &EncyclopediaClient{client: client, cfg: cfg, logger: logger.Named("search.encyclopedia")}
}

// IsConfigured 是否啟用
func (c *EncyclopediaClient) IsConfigured() bool {
	return c != nil && c.cfg.Enabled
}

// Search 以全文搜尋取得條目摘要（純文字導言）
func (c *EncyclopediaClient) Search(ctx context.Context, query string, limit int) ([]Article, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 1
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":        "query",
			"format":        "json",
			"formatversion": "2",
			"generator":     "search",
			"gsrsearch":     query,
			"gsrlimit":      strconv.Itoa(limit),
			"prop":          "extracts|info|pageprops",
			"exintro":       "1",
			"explaintext":   "1",
			"exlimit":       "max",
			"inprop":        "url",
			"ppprop":        "disambiguation",
			"redirects":     "1",
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("encyclopedia request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("encyclopedia API error (status %d): %s", resp.StatusCode(), common.Truncate(resp.String(), 200))
	}

	var out mediaWikiResponse
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse encyclopedia response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("encyclopedia API error: %s: %s", out.Error.Code, out.Error.Info)
	}

	pages := out.Query.Pages
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	articles := make([]Article, 0, len(pages))
	for _, p := range pages {
		if p.Missing || strings.TrimSpace(p.Title) == "" {
			continue
		}
		articles = append(articles, Article{
			Title:          p.Title,
			Extract:        strings.TrimSpace(p.Extract),
			URL:            p.FullURL,
			Disambiguation: p.PageProps.Disambiguation != nil,
		})
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}

	c.logger.Debug("encyclopedia lookup completed", zap.String("query", query), zap.Int("articles", len(articles)))
	return articles, nil
}
