package recipe

import (
	"context"
	"errors"
	"net/http"

	recipeService "recipe-suggester/internal/core/recipe"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SuggestRequest 以食材清單請求料理建議
type SuggestRequest struct {
	Ingredients []string `json:"ingredients" binding:"required"`
	WebSearch   bool     `json:"web_search"`
}

// SuggestResponse 料理建議回應
type SuggestResponse struct {
	Suggestions []recipeService.EnrichedSuggestion `json:"suggestions"`
	Count       int                                `json:"count"`
	RequestID   string                             `json:"request_id,omitempty"`
}

// NormalizeRequest 食材標準化請求
type NormalizeRequest struct {
	Ingredients []string `json:"ingredients"`
}

// NormalizeResponse 標準化後的食材
type NormalizeResponse struct {
	Ingredients []string `json:"ingredients"`
}

// Suggester 料理建議管線
type Suggester interface {
	Suggest(ctx context.Context, req recipeService.SuggestRequest) ([]recipeService.EnrichedSuggestion, error)
}

// Handler 食譜處理程序
type Handler struct {
	suggester Suggester
	debug     bool
}

// NewHandler 創建新的食譜處理程序；debug 模式錯誤回應附帶細節
func NewHandler(suggester Suggester, debug bool) *Handler {
	return &Handler{
		suggester: suggester,
		debug:     debug,
	}
}

// HandleSuggest 依食材推薦料理
func (h *Handler) HandleSuggest(c *gin.Context) {
	requestID := requestid.Get(c)

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err, requestID)
		return
	}

	common.LogInfo("開始處理料理建議請求",
		zap.String("request_id", requestID),
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Bool("web_search", req.WebSearch),
	)

	suggestions, err := h.suggester.Suggest(c.Request.Context(), recipeService.SuggestRequest{
		Ingredients: req.Ingredients,
		WebSearch:   req.WebSearch,
	})
	if err != nil {
		if errors.Is(err, recipeService.ErrInvalidRequest) {
			common.LogWarn("食材清單無效",
				zap.String("request_id", requestID),
				zap.Strings("ingredients", req.Ingredients),
			)
			c.JSON(http.StatusBadRequest, common.ErrInvalidRequest.Wrap(err).ToResponse(h.debug, requestID))
			return
		}

		common.LogError("料理建議失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		_ = c.Error(err)
		ce := common.AsCustomError(err)
		c.JSON(ce.Status, ce.ToResponse(h.debug, requestID))
		return
	}

	if suggestions == nil {
		suggestions = []recipeService.EnrichedSuggestion{}
	}

	common.LogInfo("料理建議完成",
		zap.String("request_id", requestID),
		zap.Int("count", len(suggestions)),
	)

	c.JSON(http.StatusOK, SuggestResponse{
		Suggestions: suggestions,
		Count:       len(suggestions),
		RequestID:   requestID,
	})
}

// HandleNormalize 回傳標準化後的食材清單
func (h *Handler) HandleNormalize(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err, requestid.Get(c))
		return
	}

	c.JSON(http.StatusOK, NormalizeResponse{
		Ingredients: recipeService.Normalize(req.Ingredients),
	})
}

func (h *Handler) bindError(c *gin.Context, err error, requestID string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, common.ErrBodyTooLarge.Wrap(err).ToResponse(h.debug, requestID))
		return
	}

	common.LogWarn("請求格式無效",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	c.JSON(http.StatusBadRequest, common.ErrInvalidRequest.Wrap(err).ToResponse(h.debug, requestID))
}
