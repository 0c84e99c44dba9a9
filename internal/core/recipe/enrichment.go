package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// DegradedDescription 生成失敗時的描述
	DegradedDescription = "AI tips unavailable for this recipe"
	safetyBlockedPrefix = "AI tips blocked by content safety filter: "

	responseLanguage = "Vietnamese"
	enrichMaxTokens  = 400
	creativeTokens   = 500
)

// Generator 生成式文字服務
type Generator interface {
	Generate(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// Enricher 為候選食譜生成描述與分類標籤
type Enricher struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

type enrichmentPayload struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        map[string]interface{} `json:"tags"`
}

// NewEnricher 創建補充描述引擎；gen 為 nil 時一律回傳降級描述
func NewEnricher(gen Generator, timeout time.Duration, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{gen: gen, timeout: timeout, logger: logger.Named("enrichment")}
}

// Enrich 每個候選只調用一次生成服務；任何失敗都回傳降級描述與空標籤
func (e *Enricher) Enrich(ctx context.Context, c RawCandidate, userTokens []string) (string, map[string]string) {
	if e.gen == nil {
		return DegradedDescription, map[string]string{}
	}

	payload, err := e.generate(ctx, enrichmentPrompt(c, userTokens), enrichMaxTokens)
	if err != nil {
		if sb, ok := provider.AsSafetyBlock(err); ok {
			e.logger.Warn("描述生成被安全過濾攔截", zap.String("name", c.Name), zap.String("reason", sb.Reason))
			return DegradedDescriptionFor(err), map[string]string{}
		}
		e.logger.Warn("描述生成失敗", zap.String("name", c.Name), zap.Error(err))
		return DegradedDescription, map[string]string{}
	}

	desc := strings.TrimSpace(payload.Description)
	if desc == "" {
		e.logger.Warn("描述生成結果缺少 description", zap.String("name", c.Name))
		return DegradedDescription, map[string]string{}
	}
	return desc, sanitizeTags(payload.Tags)
}

// Creative 無任何來源結果時，根據食材創作一道簡單料理
func (e *Enricher) Creative(ctx context.Context, userTokens []string) (RawCandidate, error) {
	if e.gen == nil {
		return RawCandidate{}, provider.ErrNotConfigured
	}

	payload, err := e.generate(ctx, creativePrompt(userTokens), creativeTokens)
	if err != nil {
		return RawCandidate{}, err
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return RawCandidate{}, fmt.Errorf("creative suggestion missing dish name")
	}
	desc := strings.TrimSpace(payload.Description)
	if desc == "" {
		desc = DegradedDescription
	}
	return RawCandidate{
		Name:        name,
		SourceType:  SourceAI,
		Description: desc,
		Tags:        sanitizeTags(payload.Tags),
	}, nil
}

func (e *Enricher) generate(ctx context.Context, prompt string, maxTokens int) (*enrichmentPayload, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.gen.Generate(ctx, &provider.Request{
		Messages: []provider.Message{
			{Role: "system", Content: "You are a friendly home-cooking assistant. Reply with a single JSON object only."},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, err
	}

	var payload enrichmentPayload
	if err := common.ParseLooseJSON(resp.Content, &payload); err != nil {
		return nil, fmt.Errorf("malformed generative response: %w", err)
	}
	return &payload, nil
}

// DegradedDescriptionFor 依錯誤類型給出降級描述
func DegradedDescriptionFor(err error) string {
	if sb, ok := provider.AsSafetyBlock(err); ok {
		reason := sb.Reason
		if reason == "" {
			reason = "unspecified"
		}
		return safetyBlockedPrefix + reason
	}
	return DegradedDescription
}

// sanitizeTags 只保留允許的鍵與非空的純量值
func sanitizeTags(raw map[string]interface{}) map[string]string {
	tags := make(map[string]string, len(tagKeys))
	for _, key := range tagKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case float64, bool:
			s = fmt.Sprint(val)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			tags[key] = s
		}
	}
	return tags
}

const schemaHint = `{"description": "<2-3 sentences>", "tags": {"region": "...", "difficulty": "easy|medium|hard", "time": "<e.g. 30 minutes>", "type": "<e.g. soup, stir-fry, dessert>"}}`

func enrichmentPrompt(c RawCandidate, userTokens []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dish: %s\n", c.Name)
	fmt.Fprintf(&b, "Ingredients the user has: %s\n", strings.Join(userTokens, ", "))

	switch c.SourceType {
	case SourceDataset:
		fmt.Fprintf(&b, "Recipe ingredients: %s\n", strings.Join(c.DatasetIngredients, ", "))
		b.WriteString("This recipe comes from our local recipe collection. Compare the recipe ingredients with the user's ingredients and briefly mention any items the user is likely missing. Use a practical, encouraging tone.\n")
	case SourceWeb:
		if c.Snippet != "" {
			fmt.Fprintf(&b, "Web snippet: %s\n", c.Snippet)
		}
		b.WriteString("This recipe was found on a cooking website. Summarise what makes it appealing in a helpful, informative tone.\n")
	case SourceVideo:
		if c.Channel != "" {
			fmt.Fprintf(&b, "Video channel: %s\n", c.Channel)
		}
		b.WriteString("This is a cooking video. Describe the dish in a lively tone and invite the user to watch it.\n")
	case SourceEncyclopedia:
		if c.Snippet != "" {
			fmt.Fprintf(&b, "Encyclopedia excerpt: %s\n", c.Snippet)
		}
		b.WriteString("This entry comes from an encyclopedia. Give a short description with a touch of cultural background.\n")
	default:
		b.WriteString("Describe the dish briefly in a friendly tone.\n")
	}

	fmt.Fprintf(&b, "Write the description and tag values in %s. Omit any tag you are unsure about.\n", responseLanguage)
	b.WriteString("Return JSON exactly in this shape: ")
	b.WriteString(schemaHint)
	return b.String()
}

func creativePrompt(userTokens []string) string {
	return fmt.Sprintf(
		"Invent one simple home-style dish that can be cooked mainly with these ingredients: %s.\n"+
			"Write all text in %s. Return JSON exactly in this shape: "+
			`{"name": "<dish name>", "description": "<2-3 sentences on how to cook it>", "tags": {"region": "...", "difficulty": "...", "time": "...", "type": "..."}}`,
		strings.Join(userTokens, ", "), responseLanguage,
	)
}
