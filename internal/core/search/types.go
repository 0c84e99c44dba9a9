// Package search 封裝外部搜尋服務：網頁、圖片、影片與百科。
package search

import (
	"errors"
	"strings"
)

var (
	// ErrNotConfigured 未設定金鑰或已停用
	ErrNotConfigured = errors.New("search source not configured")
	// ErrNotFound 查無結果
	ErrNotFound = errors.New("no search results")
)

// WebResult 網頁搜尋結果
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// DishName 從標題取出菜名（去除網站名稱等後綴）
func (r WebResult) DishName() string {
	return ExtractDishName(r.Title)
}

// VideoResult 影片搜尋結果
type VideoResult struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	ThumbnailURL string `json:"thumbnail_url"`
	WatchURL     string `json:"watch_url"`
}

// Article 百科條目
type Article struct {
	Title          string `json:"title"`
	Extract        string `json:"extract"`
	URL            string `json:"url"`
	Disambiguation bool   `json:"disambiguation"`
}

var titleSeparators = []string{" - ", " | ", ": ", " – ", " — "}

// ExtractDishName 依常見分隔符截斷標題
func ExtractDishName(title string) string {
	title = strings.TrimSpace(title)
	cut := len(title)
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(title[:cut])
}
