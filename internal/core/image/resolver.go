// Package image 為推薦結果挑選代表圖片。
package image

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const imageQuerySuffix = " local cuisine"

// Searcher 圖片搜尋
type Searcher interface {
	SearchImages(ctx context.Context, query string, limit int) ([]string, error)
}

// Resolver 圖片解析：來源頁面 meta → 第一張絕對路徑 img → 圖片搜尋
type Resolver struct {
	client   *resty.Client
	searcher Searcher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver 創建圖片解析器；searcher 可為 nil
func NewResolver(searcher Searcher, timeout time.Duration, userAgent string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &Resolver{
		client:   client,
		searcher: searcher,
		timeout:  timeout,
		logger:   logger.Named("image"),
	}
}

// Resolve 回傳圖片網址，找不到時回傳空字串；不回傳錯誤
func (r *Resolver) Resolve(ctx context.Context, name, sourceURL string) string {
	if sourceURL != "" {
		if img := r.fromPage(ctx, sourceURL); img != "" {
			return img
		}
	}
	return r.fromSearch(ctx, name)
}

func (r *Resolver) fromPage(ctx context.Context, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || !common.IsAbsoluteURL(pageURL) {
		return ""
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		r.logger.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	if resp.StatusCode() != http.StatusOK {
		r.logger.Debug("page fetch returned non-200", zap.String("url", pageURL), zap.Int("status", resp.StatusCode()))
		return ""
	}
	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return ""
	}

	doc, err := html.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return ""
	}

	if img := extractMetaImage(doc, base); img != "" {
		return img
	}
	return firstAbsoluteImage(doc)
}

func (r *Resolver) fromSearch(ctx context.Context, name string) string {
	if r.searcher == nil || strings.TrimSpace(name) == "" {
		return ""
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	urls, err := r.searcher.SearchImages(ctx, name+imageQuerySuffix, 1)
	if err != nil {
		r.logger.Debug("image search failed", zap.String("name", name), zap.Error(err))
		return ""
	}
	for _, u := range urls {
		if common.IsAbsoluteURL(u) {
			return u
		}
	}
	return ""
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// extractMetaImage og:image 優先，其次 twitter:image
func extractMetaImage(n *html.Node, base *url.URL) string {
	var ogImage, twitterImage string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = strings.ToLower(attr.Val)
				case "name":
					name = strings.ToLower(attr.Val)
				case "content":
					content = strings.TrimSpace(attr.Val)
				}
			}
			switch {
			case content == "":
			case (property == "og:image" || property == "og:image:url" || property == "og:image:secure_url") && ogImage == "":
				ogImage = content
			case (name == "twitter:image" || property == "twitter:image") && twitterImage == "":
				twitterImage = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)

	for _, candidate := range []string{ogImage, twitterImage} {
		if candidate == "" {
			continue
		}
		if resolved := resolveURL(base, candidate); common.IsAbsoluteURL(resolved) {
			return resolved
		}
	}
	return ""
}

// firstAbsoluteImage 第一個 src 為絕對網址的 <img>
func firstAbsoluteImage(n *html.Node) string {
	var found string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" && common.IsAbsoluteURL(attr.Val) {
					found = strings.TrimSpace(attr.Val)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return found
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
