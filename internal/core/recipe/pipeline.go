package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/core/search"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 管線階段名稱（同時作為來源指標標籤與 span 名稱）
const (
	StageDataset      = "dataset"
	StageWeb          = "web"
	StageVideo        = "video"
	StageEncyclopedia = "encyclopedia"
	StageCreative     = "creative"
	StageEnrich       = "enrich"

	minArticleRunes = 200

	webQueryFormat   = "món ăn từ %s"
	videoQueryFormat = "cách nấu món ăn từ %s"
)

// 來源調用結果，與 metrics 標籤一致
const (
	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
	outcomeSkipped = "skipped"
)

// DatasetSource 本地資料集
type DatasetSource interface {
	Match(ctx context.Context, userTokens []string) ([]RawCandidate, error)
}

// WebSearcher 網頁搜尋
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.WebResult, error)
}

// VideoSearcher 影片搜尋
type VideoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.VideoResult, error)
}

// EncyclopediaSearcher 百科查詢
type EncyclopediaSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Article, error)
}

// ImageResolver 圖片解析
type ImageResolver interface {
	Resolve(ctx context.Context, name, sourceURL string) string
}

// Recorder 來源調用指標
type Recorder interface {
	SourceCall(source, outcome string, d time.Duration)
	SuggestionsReturned(n int)
}

// Deps 管線依賴；任何來源為 nil 即視為未設定
type Deps struct {
	Dataset      DatasetSource
	Web          WebSearcher
	Video        VideoSearcher
	Encyclopedia EncyclopediaSearcher
	Images       ImageResolver
	Enricher     *Enricher
	Metrics      Recorder
	Tracer       trace.Tracer
	Logger       *zap.Logger
}

// Pipeline 推薦管線：DatasetScan → WebSearch → VideoSearch(並行) → Merge →
// EncyclopediaSupplement → CreativeFallback → Enrich&Image → Rank&Truncate
type Pipeline struct {
	deps Deps
	cfg  config.PipelineConfig
}

// NewPipeline 創建推薦管線
func NewPipeline(cfg config.PipelineConfig, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.Named("pipeline")
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("recipe-suggester/recipe")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Enricher == nil {
		deps.Enricher = NewEnricher(nil, 0, deps.Logger)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Suggest 執行完整推薦流程
func (p *Pipeline) Suggest(ctx context.Context, req SuggestRequest) ([]EnrichedSuggestion, error) {
	tokens := Normalize(req.Ingredients)
	if len(tokens) == 0 {
		return nil, ErrInvalidRequest
	}

	ctx, span := p.deps.Tracer.Start(ctx, "recipe.suggest", trace.WithAttributes(
		attribute.Int("ingredients", len(tokens)),
		attribute.Bool("web_search", req.WebSearch),
	))
	defer span.End()

	// 影片搜尋與資料集/網頁搜尋無依賴，並行執行
	videoCh := make(chan []RawCandidate, 1)
	go func() {
		videoCh <- p.videoSearch(ctx, tokens)
	}()

	dataset := p.datasetScan(ctx, tokens)

	var web []RawCandidate
	if len(dataset) == 0 && req.WebSearch {
		web = p.webSearch(ctx, tokens)
	} else {
		p.deps.Metrics.SourceCall(StageWeb, outcomeSkipped, 0)
	}

	video := <-videoCh

	candidates := merge(dataset, web, video)
	candidates = p.encyclopediaSupplement(ctx, candidates)

	if len(candidates) == 0 {
		candidates = p.creativeFallback(ctx, tokens)
	}

	candidates = Truncate(Dedupe(Rank(candidates)), p.cfg.MaxResults)
	suggestions := p.enrichAll(ctx, candidates, tokens)

	span.SetAttributes(attribute.Int("suggestions", len(suggestions)))
	p.deps.Metrics.SuggestionsReturned(len(suggestions))
	p.deps.Logger.Info("推薦完成",
		zap.Strings("ingredients", tokens),
		zap.Int("dataset", len(dataset)),
		zap.Int("web", len(web)),
		zap.Int("video", len(video)),
		zap.Int("suggestions", len(suggestions)),
	)
	return suggestions, nil
}

// merge 單一合併點：資料集 → 網頁 → 影片，接著排序
func merge(groups ...[]RawCandidate) []RawCandidate {
	var total int
	for _, g := range groups {
		total += len(g)
	}
	out := make([]RawCandidate, 0, total)
	for _, g := range groups {
		out = append(out, g...)
	}
	return Rank(out)
}

func (p *Pipeline) datasetScan(ctx context.Context, tokens []string) []RawCandidate {
	if p.deps.Dataset == nil {
		p.deps.Metrics.SourceCall(StageDataset, outcomeSkipped, 0)
		return nil
	}
	var out []RawCandidate
	p.runStage(ctx, StageDataset, func(ctx context.Context) (int, error) {
		var err error
		out, err = p.deps.Dataset.Match(ctx, tokens)
		return len(out), err
	})
	return out
}

func (p *Pipeline) webSearch(ctx context.Context, tokens []string) []RawCandidate {
	if p.deps.Web == nil {
		p.deps.Metrics.SourceCall(StageWeb, outcomeSkipped, 0)
		return nil
	}
	var out []RawCandidate
	p.runStage(ctx, StageWeb, func(ctx context.Context) (int, error) {
		results, err := p.deps.Web.Search(ctx, fmt.Sprintf(webQueryFormat, strings.Join(tokens, ", ")), p.cfg.WebResults)
		if err != nil {
			return 0, err
		}
		for _, r := range results {
			name := r.DishName()
			if name == "" {
				continue
			}
			out = append(out, RawCandidate{
				Name:       name,
				SourceType: SourceWeb,
				SourceURL:  r.Link,
				Snippet:    r.Snippet,
			})
		}
		return len(out), nil
	})
	return out
}

func (p *Pipeline) videoSearch(ctx context.Context, tokens []string) []RawCandidate {
	if p.deps.Video == nil {
		p.deps.Metrics.SourceCall(StageVideo, outcomeSkipped, 0)
		return nil
	}
	var out []RawCandidate
	p.runStage(ctx, StageVideo, func(ctx context.Context) (int, error) {
		results, err := p.deps.Video.Search(ctx, fmt.Sprintf(videoQueryFormat, strings.Join(tokens, ", ")), p.cfg.VideoResults)
		if err != nil {
			return 0, err
		}
		for _, v := range results {
			if strings.TrimSpace(v.Title) == "" {
				continue
			}
			out = append(out, RawCandidate{
				Name:         v.Title,
				SourceType:   SourceVideo,
				SourceURL:    v.WatchURL,
				Channel:      v.Channel,
				ThumbnailURL: v.ThumbnailURL,
			})
		}
		return len(out), nil
	})
	return out
}

// encyclopediaSupplement 只針對排序第一的候選查百科
func (p *Pipeline) encyclopediaSupplement(ctx context.Context, candidates []RawCandidate) []RawCandidate {
	if p.deps.Encyclopedia == nil || len(candidates) == 0 || len(candidates) >= p.cfg.MaxResults {
		p.deps.Metrics.SourceCall(StageEncyclopedia, outcomeSkipped, 0)
		return candidates
	}
	for _, c := range candidates {
		if c.SourceType == SourceEncyclopedia {
			p.deps.Metrics.SourceCall(StageEncyclopedia, outcomeSkipped, 0)
			return candidates
		}
	}

	top := candidates[0]
	var found *RawCandidate
	p.runStage(ctx, StageEncyclopedia, func(ctx context.Context) (int, error) {
		articles, err := p.deps.Encyclopedia.Search(ctx, top.Name, p.cfg.EncyclopediaResults)
		if err != nil {
			return 0, err
		}
		for _, a := range articles {
			if !plausibleArticle(a) || citesURL(candidates, a.URL) {
				continue
			}
			found = &RawCandidate{
				Name:       top.Name,
				SourceType: SourceEncyclopedia,
				SourceURL:  a.URL,
				Snippet:    common.Truncate(a.Extract, p.cfg.EncyclopediaChars),
			}
			return 1, nil
		}
		return 0, nil
	})
	if found == nil {
		return candidates
	}
	return append(candidates, *found)
}

func plausibleArticle(a search.Article) bool {
	return !a.Disambiguation && utf8.RuneCountInString(a.Extract) >= minArticleRunes
}

func citesURL(candidates []RawCandidate, u string) bool {
	if u == "" {
		return false
	}
	for _, c := range candidates {
		if c.SourceURL == u {
			return true
		}
	}
	return false
}

// creativeFallback 只有在所有來源皆無結果時才執行
func (p *Pipeline) creativeFallback(ctx context.Context, tokens []string) []RawCandidate {
	var out []RawCandidate
	p.runStage(ctx, StageCreative, func(ctx context.Context) (int, error) {
		c, err := p.deps.Enricher.Creative(ctx, tokens)
		if err != nil {
			return 0, err
		}
		out = []RawCandidate{c}
		return 1, nil
	})
	return out
}

// enrichAll 以固定數量的 worker 併發補充描述與圖片，輸出順序與輸入一致
func (p *Pipeline) enrichAll(ctx context.Context, candidates []RawCandidate, tokens []string) []EnrichedSuggestion {
	ctx, span := p.deps.Tracer.Start(ctx, "recipe."+StageEnrich, trace.WithAttributes(attribute.Int("candidates", len(candidates))))
	defer span.End()

	out := make([]EnrichedSuggestion, len(candidates))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			out[i] = p.enrichOne(ctx, c, tokens)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) enrichOne(ctx context.Context, c RawCandidate, tokens []string) EnrichedSuggestion {
	s := EnrichedSuggestion{
		Name:     c.Name,
		Citation: CitationFor(c),
	}

	if c.preEnriched() {
		s.Description, s.Tags = c.Description, c.Tags
	} else {
		s.Description, s.Tags = p.deps.Enricher.Enrich(ctx, c, tokens)
	}
	if s.Tags == nil {
		s.Tags = map[string]string{}
	}

	switch {
	case c.SourceType == SourceVideo:
		s.ImageURL = c.ThumbnailURL
	case p.deps.Images != nil:
		s.ImageURL = p.deps.Images.Resolve(ctx, c.Name, c.SourceURL)
	}

	if c.SourceType == SourceDataset {
		ratio := c.MatchRatio
		s.MatchRatio = &ratio
		s.MatchedIngredients = c.MatchedIngredients
	}
	return s
}

// runStage 為單一外部來源加上逾時、span、日誌與指標；錯誤只記錄不傳播
func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(ctx context.Context) (int, error)) {
	ctx, span := p.deps.Tracer.Start(ctx, "recipe."+stage)
	defer span.End()

	if p.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	n, err := fn(ctx)
	elapsed := time.Since(start)

	outcome := outcomeSuccess
	switch {
	case errors.Is(err, search.ErrNotConfigured), errors.Is(err, provider.ErrNotConfigured):
		outcome, err = outcomeSkipped, nil
	case errors.Is(err, search.ErrNotFound):
		outcome, err = outcomeEmpty, nil
	case err != nil:
		outcome = outcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case n == 0:
		outcome = outcomeEmpty
	}
	span.SetAttributes(attribute.Int("results", n), attribute.String("outcome", outcome))

	p.deps.Metrics.SourceCall(stage, outcome, elapsed)
	common.LogSourceCall(p.deps.Logger, stage, elapsed, n, err)
}

type nopRecorder struct{}

func (nopRecorder) SourceCall(string, string, time.Duration) {}
func (nopRecorder) SuggestionsReturned(int)                  {}
