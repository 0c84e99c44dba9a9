package recipe

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// 數量：整數、小數、分數、範圍（1-2、1/2、1,5）以及常見分數符號
const quantityExpr = `(?:\d+(?:[.,]\d+)?(?:\s*/\s*\d+)?(?:\s*(?:-|–|~|to)\s*\d+(?:[.,]\d+)?(?:\s*/\s*\d+)?)?|[½¼¾⅓⅔⅛])`

// 單位詞彙：公制、英制與越南語常用量詞
var unitWords = []string{
	"muỗng canh", "muỗng cà phê", "thìa canh", "thìa cà phê",
	"grams", "gram", "gr", "g", "kg", "mg", "ml", "lít", "lit", "l",
	"tbsp", "tsp", "tablespoons", "tablespoon", "teaspoons", "teaspoon", "cups", "cup", "oz", "lb", "lbs",
	"pinch", "clove", "cloves", "slice", "slices", "piece", "pieces",
	"muỗng", "thìa", "chén", "bát", "tô", "ly", "quả", "trái", "củ", "cái", "con", "miếng", "lát",
	"nhánh", "tép", "gói", "hộp", "lon", "bó", "cây", "nắm", "chút", "kí", "ký", "lạng",
}

var (
	leadingQuantity = regexp.MustCompile(`^\s*` + quantityExpr + `\s*`)
	leadingUnit     = regexp.MustCompile(`^(?:` + strings.Join(unitWords, "|") + `)(?:\s+|$)`)
	separators      = regexp.MustCompile(`[,;/\n\r\t]|\s*[-–—]\s*`)
	spaces          = regexp.MustCompile(`\s+`)

	bracketReplacer = strings.NewReplacer(
		"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ",
		`"`, " ", "'", " ", "“", " ", "”", " ", "‘", " ", "’", " ", "«", " ", "»", " ", "`", " ",
	)
)

// Normalize 將食材清單轉為去重後的標準化詞組（保留首次出現順序）
func Normalize(raw []string) []string {
	seen := make(map[string]struct{})
	tokens := make([]string, 0, len(raw))

	for _, entry := range raw {
		entry = strings.ToLower(norm.NFC.String(strings.ToValidUTF8(entry, "")))
		entry = bracketReplacer.Replace(entry)
		entry = stripQuantity(entry)

		for _, part := range separators.Split(entry, -1) {
			token := cleanToken(part)
			if !keepToken(token) {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// NormalizeText 將整段食材文字（例如資料集欄位）標準化
func NormalizeText(text string) []string {
	return Normalize([]string{text})
}

// stripQuantity 去除開頭數量，有數量時一併去除緊接的單位
func stripQuantity(s string) string {
	loc := leadingQuantity.FindStringIndex(s)
	if loc == nil {
		return strings.TrimSpace(s)
	}
	rest := s[loc[1]:]
	if u := leadingUnit.FindStringIndex(rest); u != nil {
		rest = rest[u[1]:]
	}
	return strings.TrimSpace(rest)
}

func cleanToken(part string) string {
	part = stripQuantity(spaces.ReplaceAllString(part, " "))
	return strings.TrimFunc(part, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

func keepToken(token string) bool {
	if utf8.RuneCountInString(token) <= 2 {
		return false
	}
	return !isNumeric(token)
}

// isNumeric 只含數字與數字間的標點
func isNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == ',' || r == '/' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return hasDigit
}
