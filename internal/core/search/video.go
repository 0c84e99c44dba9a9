package search

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// VideoClient YouTube Data API v3 影片搜尋
type VideoClient struct {
	client *resty.Client
	cfg    config.VideoSearchConfig
	logger *zap.Logger
}

type thumbnail struct {
	URL string `json:"url"`
}

type youtubeResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Default thumbnail `json:"default"`
				Medium  thumbnail `json:"medium"`
				High    thumbnail `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewVideoClient 創建影片搜尋客戶端
func NewVideoClient(cfg config.VideoSearchConfig, userAgent string, logger *zap.Logger) *VideoClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &VideoClient{client: client, cfg: cfg, logger: logger.Named("search.video")}
}

// IsConfigured 是否已設定金鑰
func (c *VideoClient) IsConfigured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Search 搜尋影片
func (c *VideoClient) Search(ctx context.Context, query string, limit int) ([]VideoResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 3
	}

	params := map[string]string{
		"part":       "snippet",
		"type":       "video",
		"q":          query,
		"maxResults": strconv.Itoa(limit),
		"key":        c.cfg.APIKey,
	}
	if c.cfg.RegionCode != "" {
		params["regionCode"] = c.cfg.RegionCode
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("video search request failed: %w", err)
	}

	var out youtubeResponse
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil && resp.StatusCode() == http.StatusOK {
		return nil, fmt.Errorf("failed to parse video search response: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := common.Truncate(resp.String(), 200)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("video search API error (status %d): %s", resp.StatusCode(), msg)
	}

	results := make([]VideoResult, 0, len(out.Items))
	for _, item := range out.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.High.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Medium.URL
		}
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		results = append(results, VideoResult{
			VideoID:      item.ID.VideoID,
			Title:        html.UnescapeString(item.Snippet.Title),
			Channel:      html.UnescapeString(item.Snippet.ChannelTitle),
			ThumbnailURL: thumb,
			WatchURL:     watchURLPrefix + item.ID.VideoID,
		})
		if len(results) == limit {
			break
		}
	}

	c.logger.Debug("video search completed", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}
