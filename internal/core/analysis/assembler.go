package analysis

import "strings"

// Assemble 產生最終結果：複製所有切片、去除重複的過敏原與警告、重算成分數
func Assemble(p *Product) *Product {
	out := *p
	out.UnreadableSections = copyStrings(p.UnreadableSections)
	out.Allergens = dedupeFold(p.Allergens)
	out.Warnings = dedupeFold(p.Warnings)

	out.Ingredients = make([]Ingredient, len(p.Ingredients))
	for i, ingredient := range p.Ingredients {
		out.Ingredients[i] = assembleIngredient(ingredient)
	}
	out.TotalIngredientsFound = len(out.Ingredients)

	if p.WarningMessage != nil {
		msg := *p.WarningMessage
		out.WarningMessage = &msg
	}
	if p.Barcode != nil {
		code := *p.Barcode
		out.Barcode = &code
	}
	if p.HealthierAlternative != nil {
		alt := *p.HealthierAlternative
		out.HealthierAlternative = &alt
	}
	return &out
}

// AssembleIngredient 單一成分查詢的最終結果
func AssembleIngredient(r *IngredientReport) *IngredientReport {
	return &IngredientReport{
		Ingredient: assembleIngredient(r.Ingredient),
		IsEdible:   r.IsEdible,
	}
}

func assembleIngredient(in Ingredient) Ingredient {
	out := in
	out.Concerns = copyStrings(in.Concerns)
	out.Benefits = copyStrings(in.Benefits)
	out.Sources = append([]Source{}, in.Sources...)
	return out
}

func copyStrings(in []string) []string {
	return append([]string{}, in...)
}

// dedupeFold 不分大小寫去重，保留第一次出現的寫法
func dedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
