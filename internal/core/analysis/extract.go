package analysis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"ingredient-analyzer/internal/pkg/common"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\\r?\\n?(.*?)```")
	openFencePattern   = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\\r?\\n?(.*)$")
)

// stripFences 取出 markdown 程式碼區塊內容；未閉合的區塊取其後全部
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	for _, m := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(m[1], "{[") {
			return strings.TrimSpace(m[1])
		}
	}
	if m := openFencePattern.FindStringSubmatch(text); m != nil && strings.ContainsAny(m[1], "{[") {
		return strings.TrimSpace(m[1])
	}
	return text
}

// scanValue 從 start 掃描到對應的結尾括號，忽略字串內容
func scanValue(s string, start int) (end int, complete bool) {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], c) {
				return i, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return len(s), false
}

func matches(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

// ExtractJSON 移除程式碼區塊與前後說明文字，回傳第一個頂層 JSON 物件或陣列。
// 找不到完整值時回傳從第一個開括號起的片段，交由 RepairJSON 處理。
func ExtractJSON(raw string) (string, bool) {
	text := stripFences(raw)

	fallback := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end, complete := scanValue(text, i)
		if complete {
			candidate := text[i:end]
			if isStructuredJSON(candidate) {
				return candidate, true
			}
			if fallback == "" && text[i] == '{' {
				fallback = candidate
			}
			// 跳過已掃描的值，只看頂層
			i = end - 1
			continue
		}
		// 未閉合的物件涵蓋其後所有內容
		if text[i] == '{' || !strings.Contains(text[i+1:], "{") {
			if fallback == "" {
				fallback = text[i:]
			}
			break
		}
	}
	return fallback, false
}

// isStructuredJSON 合法 JSON 且為物件，或以物件為元素的陣列
func isStructuredJSON(s string) bool {
	if !json.Valid([]byte(s)) {
		return false
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		return true
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil || len(items) == 0 {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(items[0])), "{")
}

const (
	objExpectKey = iota
	objAwaitColon
	objExpectValue
	objAfterValue
)

type repairFrame struct {
	kind  byte
	state int
}

// RepairJSON 在第一個結構錯誤處截斷，補上未閉合的字串、物件與陣列
func RepairJSON(s string) string {
	var (
		out      []byte
		stack    []repairFrame
		inString bool
		isKey    bool
		escaped  bool
	)

	markValue := func() {
		if n := len(stack); n > 0 && stack[n-1].kind == '{' {
			stack[n-1].state = objAfterValue
		}
	}

scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if isKey {
					stack[len(stack)-1].state = objAwaitColon
				} else {
					markValue()
				}
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			n := len(stack)
			isKey = n > 0 && stack[n-1].kind == '{' && stack[n-1].state == objExpectKey
			out = append(out, c)
		case '{', '[':
			markValue()
			stack = append(stack, repairFrame{kind: c})
			out = append(out, c)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1].kind, c) {
				break scan
			}
			out = trimTrailingComma(out)
			out = completeDanglingKey(out, stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			out = append(out, c)
			markValue()
			if len(stack) == 0 {
				break scan
			}
		case ':':
			if n := len(stack); n > 0 && stack[n-1].kind == '{' {
				stack[n-1].state = objExpectValue
			}
			out = append(out, c)
		case ',':
			if n := len(stack); n > 0 && stack[n-1].kind == '{' {
				stack[n-1].state = objExpectKey
			}
			out = append(out, c)
		default:
			if c > ' ' {
				markValue()
			}
			out = append(out, c)
		}
	}

	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
		if isKey {
			stack[len(stack)-1].state = objAwaitColon
		}
	}

	out = trimPartialLiteral(out)
	for i := len(stack) - 1; i >= 0; i-- {
		out = trimTrailingComma(out)
		out = completeDanglingKey(out, stack[i])
		if stack[i].kind == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return string(out)
}

func trimSpaceBytes(out []byte) []byte {
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '\n' || out[len(out)-1] == '\r' || out[len(out)-1] == '\t') {
		out = out[:len(out)-1]
	}
	return out
}

func trimTrailingComma(out []byte) []byte {
	out = trimSpaceBytes(out)
	for len(out) > 0 && out[len(out)-1] == ',' {
		out = trimSpaceBytes(out[:len(out)-1])
	}
	return out
}

// completeDanglingKey 為缺值的鍵補上 null
func completeDanglingKey(out []byte, f repairFrame) []byte {
	out = trimSpaceBytes(out)
	if len(out) == 0 || f.kind != '{' {
		return out
	}
	switch {
	case out[len(out)-1] == ':':
		out = append(out, "null"...)
	case out[len(out)-1] == '"' && f.state == objAwaitColon:
		out = append(out, ":null"...)
	}
	return out
}

// trimPartialLiteral 去掉被截斷的 true/false/null 或數字
func trimPartialLiteral(out []byte) []byte {
	out = trimSpaceBytes(out)
	start := len(out)
	for start > 0 && isLiteralByte(out[start-1]) {
		start--
	}
	word := string(out[start:])
	switch word {
	case "", "true", "false", "null":
		return out
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil && !strings.HasSuffix(word, ".") {
		return out
	}
	return trimSpaceBytes(out[:start])
}

func isLiteralByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

// ParseReply 解析分類器回覆：直接解析失敗時嘗試一次修復
func ParseReply(raw string) (any, error) {
	segment, _ := ExtractJSON(raw)
	if strings.TrimSpace(segment) == "" {
		return nil, malformedResponse(raw, errNoJSON)
	}

	var value any
	err := common.ParseJSON(segment, &value)
	if err == nil {
		return value, nil
	}

	repaired := RepairJSON(segment)
	if repairErr := common.ParseJSON(repaired, &value); repairErr == nil {
		return value, nil
	}

	relaxed := RepairJSON(common.StripTrailingCommas(common.QuoteJSONKeys(segment)))
	if relaxedErr := common.ParseJSON(relaxed, &value); relaxedErr == nil {
		return value, nil
	}

	return nil, malformedResponse(raw, err)
}
