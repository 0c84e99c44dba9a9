package recipe

import "strings"

// Scorer 比對使用者食材與食譜食材，回傳命中的食譜食材與比例
type Scorer interface {
	Score(userTokens, recipeTokens []string) (matched []string, ratio float64)
}

// ContainmentScorer 子字串包含（任一方向）即視為命中
type ContainmentScorer struct{}

// Score 比例 = 命中數 / 食譜食材數；食譜無食材時為 0
func (ContainmentScorer) Score(userTokens, recipeTokens []string) ([]string, float64) {
	if len(recipeTokens) == 0 {
		return nil, 0
	}

	matched := make([]string, 0, len(recipeTokens))
	for _, rt := range recipeTokens {
		for _, ut := range userTokens {
			if strings.Contains(rt, ut) || strings.Contains(ut, rt) {
				matched = append(matched, rt)
				break
			}
		}
	}
	return matched, float64(len(matched)) / float64(len(recipeTokens))
}
