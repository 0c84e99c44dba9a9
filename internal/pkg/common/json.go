package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var (
	unquotedKeyPattern   = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號；字串值內容不受影響
func QuoteJSONKeys(raw string) string {
	return outsideStrings(raw, func(seg string) string {
		return unquotedKeyPattern.ReplaceAllString(seg, `$1"$2":`)
	})
}

// outsideStrings 只對雙引號字串以外的片段套用 fn
func outsideStrings(raw string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(raw))

	start, inString, escaped := 0, false, false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case inString && escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"' && inString:
			b.WriteString(raw[start : i+1])
			start, inString = i+1, false
		case ch == '"':
			b.WriteString(fn(raw[start:i]))
			start, inString = i, true
		}
	}
	if inString {
		b.WriteString(raw[start:])
	} else {
		b.WriteString(fn(raw[start:]))
	}
	return b.String()
}

// ExtractJSONObject 去除 markdown/fence：取第一個 { 到最後一個 }
func ExtractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)
	start, end := strings.Index(content, "{"), strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// ParseLooseJSON 解析模型輸出的 JSON：先去除外圍文字，失敗時修補常見格式錯誤再試一次
func ParseLooseJSON(content string, v interface{}) error {
	obj, ok := ExtractJSONObject(content)
	if !ok {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := ParseJSON(obj, v); err == nil {
		return nil
	}
	stripCommas := func(seg string) string {
		return trailingCommaPattern.ReplaceAllString(seg, "$1")
	}
	if err := ParseJSON(outsideStrings(obj, stripCommas), v); err == nil {
		return nil
	}
	repaired := outsideStrings(QuoteJSONKeys(obj), stripCommas)
	if err := ParseJSON(repaired, v); err != nil {
		return fmt.Errorf("failed to parse JSON object: %w", err)
	}
	return nil
}
