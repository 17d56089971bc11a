package analysis

import (
	"regexp"
	"strings"

	"github.com/arbovm/levenshtein"
	"go.uber.org/zap"

	"ingredient-analyzer/internal/pkg/common"
)

var tokenSeparators = regexp.MustCompile(`[,;:\n\r\t()\[\]{}/&.*|]|\s+(?i:and|or)\s+`)

// listTokens 以分隔符切開的成分片段，數量為可擷取成分數的上限
func listTokens(text string) []string {
	var tokens []string
	for _, part := range tokenSeparators.Split(text, -1) {
		if t := normalizeName(part); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// grounded 成分名稱是否能對應到原文中的某個片段
func grounded(name string, tokens []string, normalizedText string) bool {
	key := normalizeName(name)
	if key == "" {
		return false
	}
	if strings.Contains(" "+normalizedText+" ", " "+key+" ") {
		return true
	}
	limit := len(key) / 4
	if limit < 1 {
		limit = 1
	}
	for _, token := range tokens {
		if strings.Contains(token, key) || strings.Contains(key, token) {
			return true
		}
		if levenshtein.Distance(key, token) <= limit {
			return true
		}
	}
	return false
}

// groundIngredients 成分數超過原文可推得的上限時，從後往前移除無法對應原文的成分；
// 能對應原文的成分一律保留，即使分隔符不足以推得其數量
func groundIngredients(text string, ingredients []Ingredient) []Ingredient {
	tokens := listTokens(text)
	bound := len(tokens)
	if bound == 0 || len(ingredients) <= bound {
		return ingredients
	}

	normalizedText := normalizeName(text)
	excess := len(ingredients) - bound
	drop := make([]bool, len(ingredients))
	for i := len(ingredients) - 1; i >= 0 && excess > 0; i-- {
		if !grounded(ingredients[i].Name, tokens, normalizedText) {
			drop[i] = true
			excess--
		}
	}

	kept := make([]Ingredient, 0, len(ingredients))
	var dropped []string
	for i, ingredient := range ingredients {
		if drop[i] {
			dropped = append(dropped, ingredient.Name)
			continue
		}
		kept = append(kept, ingredient)
	}
	if len(dropped) == 0 {
		return ingredients
	}

	common.LogWarn("Classifier returned more ingredients than provided",
		zap.Int("bound", bound),
		zap.Int("returned", len(ingredients)),
		zap.Strings("dropped", dropped),
	)
	return kept
}
