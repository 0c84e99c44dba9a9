package recipe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"recipe-suggester/internal/infrastructure/config"

	"go.uber.org/zap"
)

// ErrDatasetUnavailable 資料集檔案不存在或無法讀取
var ErrDatasetUnavailable = errors.New("recipe dataset unavailable")

// Matcher 逐列掃描本地 CSV 資料集並計算匹配比例
type Matcher struct {
	path              string
	nameColumn        string
	ingredientsColumn string
	minRatio          float64
	scorer            Scorer
	logger            *zap.Logger
}

// NewMatcher 創建資料集比對器；scorer 為 nil 時使用子字串包含
func NewMatcher(cfg config.DatasetConfig, scorer Scorer, logger *zap.Logger) *Matcher {
	if scorer == nil {
		scorer = ContainmentScorer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	nameCol, ingCol := cfg.NameColumn, cfg.IngredientsColumn
	if nameCol == "" {
		nameCol = "name"
	}
	if ingCol == "" {
		ingCol = "ingredients"
	}
	return &Matcher{
		path:              cfg.Path,
		nameColumn:        strings.ToLower(nameCol),
		ingredientsColumn: strings.ToLower(ingCol),
		minRatio:          cfg.MinMatchRatio,
		scorer:            scorer,
		logger:            logger.Named("dataset"),
	}
}

// Match 回傳比例 >= minRatio 的資料集候選（依檔案順序）
func (m *Matcher) Match(ctx context.Context, userTokens []string) ([]RawCandidate, error) {
	return m.MatchWithRatio(ctx, userTokens, m.minRatio)
}

// MatchWithRatio 使用指定門檻比對
func (m *Matcher) MatchWithRatio(ctx context.Context, userTokens []string, minRatio float64) ([]RawCandidate, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	defer f.Close()

	return m.scan(ctx, f, userTokens, minRatio)
}

func (m *Matcher) scan(ctx context.Context, r io.Reader, userTokens []string, minRatio float64) ([]RawCandidate, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrDatasetUnavailable, err)
	}
	nameIdx, ingIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case m.nameColumn:
			nameIdx = i
		case m.ingredientsColumn:
			ingIdx = i
		}
	}
	if nameIdx < 0 || ingIdx < 0 {
		return nil, fmt.Errorf("%w: missing %q or %q column", ErrDatasetUnavailable, m.nameColumn, m.ingredientsColumn)
	}

	var (
		candidates []RawCandidate
		line       int
		skipped    int
	)
	for {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("資料集掃描中止", zap.Int("rows", line), zap.Error(err))
			return candidates, nil
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return candidates, fmt.Errorf("failed to read dataset: %w", err)
			}
			skipped++
			m.logger.Debug("跳過格式錯誤的資料列", zap.Int("row", line), zap.Error(err))
			continue
		}

		name := strings.TrimSpace(record[nameIdx])
		text := strings.TrimSpace(record[ingIdx])
		if name == "" || text == "" {
			skipped++
			m.logger.Debug("跳過缺少欄位的資料列", zap.Int("row", line))
			continue
		}

		recipeTokens := NormalizeText(text)
		if len(recipeTokens) == 0 {
			continue
		}

		matched, ratio := m.scorer.Score(userTokens, recipeTokens)
		if ratio < minRatio {
			continue
		}
		candidates = append(candidates, RawCandidate{
			Name:               name,
			SourceType:         SourceDataset,
			DatasetIngredients: recipeTokens,
			MatchedIngredients: matched,
			MatchRatio:         clampRatio(ratio),
		})
	}

	if skipped > 0 {
		m.logger.Info("資料集掃描完成（含略過列）", zap.Int("rows", line), zap.Int("skipped", skipped))
	}
	return candidates, nil
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
