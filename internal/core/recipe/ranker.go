package recipe

import (
	"sort"
	"strings"

	"recipe-suggester/internal/pkg/common"
)

// Rank 資料集候選依比例由高至低排前，其餘維持收集順序
func Rank(candidates []RawCandidate) []RawCandidate {
	ranked := make([]RawCandidate, 0, len(candidates))
	others := make([]RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SourceType == SourceDataset {
			ranked = append(ranked, c)
		} else {
			others = append(others, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchRatio > ranked[j].MatchRatio
	})
	return append(ranked, others...)
}

// Dedupe 移除重複來源造成的多餘項目（同名百科、同網址）
func Dedupe(candidates []RawCandidate) []RawCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		key := dedupeKey(c)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}

func dedupeKey(c RawCandidate) string {
	switch c.SourceType {
	case SourceEncyclopedia:
		return string(c.SourceType) + ":" + strings.ToLower(strings.TrimSpace(c.Name))
	case SourceWeb, SourceVideo:
		if c.SourceURL != "" {
			return string(c.SourceType) + ":" + c.SourceURL
		}
	}
	return ""
}

// Truncate 截斷至上限
func Truncate(candidates []RawCandidate, bound int) []RawCandidate {
	if bound >= 0 && len(candidates) > bound {
		return candidates[:bound]
	}
	return candidates
}

// CitationFor 依來源類型產生引用
func CitationFor(c RawCandidate) Citation {
	cite := Citation{SourceURL: c.SourceURL, SourceType: c.SourceType}
	switch c.SourceType {
	case SourceDataset:
		cite.SourceName = CitationDataset
		cite.SourceURL = ""
	case SourceWeb:
		cite.SourceName = common.DomainName(c.SourceURL)
		if cite.SourceName == "" {
			cite.SourceName = "Web"
		}
	case SourceVideo:
		cite.SourceName = c.Channel
		if cite.SourceName == "" {
			cite.SourceName = "YouTube"
		}
		cite.IsVideo = true
	case SourceEncyclopedia:
		cite.SourceName = CitationEncyclopedia
	case SourceAI:
		cite.SourceName = CitationAI
		cite.SourceURL = ""
	}
	return cite
}
