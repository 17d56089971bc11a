package common

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return DecodeJSON(strings.NewReader(data), v)
}

// DecodeJSON 使用統一設定解析 JSON：數字保留為 json.Number，且不允許多餘資料
func DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號，字串內容不變
func QuoteJSONKeys(raw string) string {
	return outsideStrings(raw, func(segment string) string {
		return unquotedKeyPattern.ReplaceAllString(segment, `$1"$2":`)
	})
}

var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// StripTrailingCommas 移除物件或陣列結尾多餘的逗號，字串內容不變
func StripTrailingCommas(raw string) string {
	return outsideStrings(raw, func(segment string) string {
		return trailingCommaPattern.ReplaceAllString(segment, "$1")
	})
}

// outsideStrings 只對雙引號字串以外的片段套用 fn
func outsideStrings(raw string, fn func(string) string) string {
	var b strings.Builder
	start := 0
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				b.WriteString(raw[start : i+1])
				start = i + 1
			}
			continue
		}
		if c == '"' {
			b.WriteString(fn(raw[start:i]))
			start = i
			inString = true
		}
	}
	if inString {
		b.WriteString(raw[start:])
	} else {
		b.WriteString(fn(raw[start:]))
	}
	return b.String()
}
