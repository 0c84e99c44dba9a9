package recipe

import "errors"

// ErrInvalidRequest 食材清單為空或標準化後無可用食材
var ErrInvalidRequest = errors.New("ingredient list is empty after normalization")

// SourceType 候選來源
type SourceType string

const (
	SourceDataset      SourceType = "dataset"
	SourceWeb          SourceType = "web"
	SourceVideo        SourceType = "video"
	SourceEncyclopedia SourceType = "encyclopedia"
	SourceAI           SourceType = "ai"
)

// 引用來源名稱
const (
	CitationDataset      = "Local Recipe Data"
	CitationEncyclopedia = "Wikipedia"
	CitationAI           = "AI Creative Suggestion"
)

// 允許的分類標籤
var tagKeys = []string{"region", "difficulty", "time", "type"}

// SuggestRequest 推薦請求
type SuggestRequest struct {
	Ingredients []string `json:"ingredients"`
	WebSearch   bool     `json:"web_search"`
}

// RawCandidate 尚未補充描述的候選食譜
type RawCandidate struct {
	Name               string
	SourceType         SourceType
	SourceURL          string
	DatasetIngredients []string
	MatchedIngredients []string
	MatchRatio         float64

	Snippet      string // web / encyclopedia
	Channel      string // video
	ThumbnailURL string // video

	// 創意生成的候選已附帶描述與標籤
	Description string
	Tags        map[string]string
}

func (c RawCandidate) preEnriched() bool {
	return c.SourceType == SourceAI && c.Description != ""
}

// Citation 引用資訊
type Citation struct {
	SourceName string     `json:"source_name"`
	SourceURL  string     `json:"source_url,omitempty"`
	IsVideo    bool       `json:"is_video"`
	SourceType SourceType `json:"source_type"`
}

// EnrichedSuggestion 最終輸出的推薦
type EnrichedSuggestion struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Tags               map[string]string `json:"tags"`
	ImageURL           string            `json:"image_url,omitempty"`
	Citation           Citation          `json:"citation"`
	MatchRatio         *float64          `json:"match_ratio,omitempty"`
	MatchedIngredients []string          `json:"matched_ingredients,omitempty"`
}
