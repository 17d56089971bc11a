package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidateProduct 解析並驗證產品模式（成分清單、標籤圖片）的回覆。
// 缺漏或無效欄位一律以較保守的值取代；相同輸入永遠得到相同結果。
func ValidateProduct(req *ClassificationRequest, raw string) (*Product, error) {
	value, err := ParseReply(raw)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	switch v := value.(type) {
	case map[string]any:
		obj = v
	case []any:
		// 只回傳成分陣列時視為 ingredients
		obj = map[string]any{"ingredients": v}
	default:
		return nil, malformedResponse(raw, fmt.Errorf("unexpected reply type %T", value))
	}

	if err := sentinelError(obj, raw); err != nil {
		return nil, err
	}

	product := decodeProduct(obj, req)
	if req.Mode() == ModeTextList {
		product.Ingredients = groundIngredients(req.Text(), product.Ingredients)
	}
	if len(product.Ingredients) == 0 {
		return nil, &ClassificationError{Kind: KindNoIngredients, Message: ErrNoIngredients.Message, Raw: raw}
	}
	enforceProduct(product)
	return product, nil
}

// ValidateIngredient 解析並驗證單一成分模式的回覆
func ValidateIngredient(req *ClassificationRequest, raw string) (*IngredientReport, error) {
	value, err := ParseReply(raw)
	if err != nil {
		return nil, err
	}

	obj := ingredientObject(value)
	if obj == nil {
		return nil, malformedResponse(raw, fmt.Errorf("unexpected reply type %T", value))
	}
	if err := sentinelError(obj, raw); err != nil {
		return nil, err
	}

	ingredient, ok := decodeIngredient(obj)
	if !ok {
		named := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			named[k] = v
		}
		named["name"] = req.Text()
		ingredient, _ = decodeIngredient(named)
	}

	edible, known := boolValue(obj["is_edible"])
	if !known {
		edible = ingredient.SafetyLevel != SafetyToxic
	}
	if !edible {
		ingredient.SafetyLevel = SafetyToxic
	}
	if ingredient.SafetyLevel == SafetyToxic {
		edible = false
	}
	normalizeDosage(&ingredient.Dosage, ingredient.SafetyLevel)

	return &IngredientReport{Ingredient: ingredient, IsEdible: edible}, nil
}

// ingredientObject 取出單一成分物件，容忍陣列或 ingredients 包裝
func ingredientObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		if _, hasName := v["name"]; hasName {
			return v
		}
		if _, hasError := v["error"]; hasError {
			return v
		}
		if list, ok := v["ingredients"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				return first
			}
		}
		if nested, ok := v["ingredient"].(map[string]any); ok {
			return nested
		}
		return v
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return first
			}
		}
	}
	return nil
}

// sentinelError 將分類器的錯誤回覆對應到錯誤型別
func sentinelError(obj map[string]any, raw string) error {
	value, present := obj["error"]
	if !present || value == nil || value == false {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(stringValue(value)))
	if code == "" {
		return nil
	}
	switch ErrorKind(code) {
	case KindNoIngredients:
		return &ClassificationError{Kind: KindNoIngredients, Message: ErrNoIngredients.Message, Raw: raw}
	case KindNotAProductLabel:
		return &ClassificationError{Kind: KindNotAProductLabel, Message: ErrNotAProductLabel.Message, Raw: raw}
	case KindTooBlurry:
		return &ClassificationError{
			Kind:       KindTooBlurry,
			Message:    ErrTooBlurry.Message,
			Suggestion: stringValue(obj["suggestion"]),
			Raw:        raw,
		}
	}
	return malformedResponse(raw, fmt.Errorf("unknown error code %q", code))
}

func decodeProduct(obj map[string]any, req *ClassificationRequest) *Product {
	product := &Product{
		ProductName:        stringValue(obj["product_name"]),
		ProductType:        parseProductType(stringValue(obj["product_type"])),
		WarningMessage:     optionalString(obj["warning_message"]),
		UnreadableSections: []string{},
		Allergens:          stringList(obj["allergens"]),
		Warnings:           stringList(obj["warnings"]),
		AmazonSearch:       stringValue(obj["amazon_search"]),
		Ingredients:        []Ingredient{},
	}
	if product.ProductName == "" {
		product.ProductName = DefaultProductName
	}

	if list, ok := obj["ingredients"].([]any); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if ingredient, ok := decodeIngredient(m); ok {
				product.Ingredients = append(product.Ingredients, ingredient)
			}
		}
	}

	edible, known := boolValue(obj["is_edible"])
	if !known {
		edible = !product.ProductType.NeverEdible() && !anyToxic(product.Ingredients)
	}
	product.IsEdible = edible

	if alt, ok := obj["healthier_alternative"].(map[string]any); ok {
		if name := stringValue(alt["name"]); name != "" {
			product.HealthierAlternative = &Alternative{
				Name:        name,
				Type:        stringValue(alt["type"]),
				Description: stringValue(alt["description"]),
			}
		}
	}

	switch req.Mode() {
	case ModeLabelImage:
		product.Barcode = parseBarcode(stringValue(obj["barcode"]))
		product.ExtractionConfidence = parseConfidence(stringValue(obj["extraction_confidence"]))
		product.UnreadableSections = stringList(obj["unreadable_sections"])
		product.RawText = stringValue(obj["raw_text"])
		if product.RawText == "" {
			product.RawText = stringValue(obj["raw_ingredients_text"])
		}
	default:
		product.RawText = req.Text()
	}
	return product
}

// enforceProduct 檢查跨欄位不變量，違反時取保守值
func enforceProduct(p *Product) {
	if p.ProductType.NeverEdible() {
		p.IsEdible = false
	}

	if !p.IsEdible {
		for i := range p.Ingredients {
			p.Ingredients[i].SafetyLevel = SafetyToxic
		}
		if p.WarningMessage == nil {
			msg := DefaultNonEdibleAlert
			p.WarningMessage = &msg
		}
		p.HealthierAlternative = nil
		p.AmazonSearch = ""
	} else if p.WarningMessage != nil && !p.ProductType.IsMedication() {
		p.Warnings = append(p.Warnings, *p.WarningMessage)
		p.WarningMessage = nil
	}

	for i := range p.Ingredients {
		normalizeDosage(&p.Ingredients[i].Dosage, p.Ingredients[i].SafetyLevel)
	}
	p.TotalIngredientsFound = len(p.Ingredients)
}

// decodeIngredient 沒有名稱時回傳 false
func decodeIngredient(m map[string]any) (Ingredient, bool) {
	ingredient := Ingredient{
		Name:        stringValue(m["name"]),
		Description: stringValue(m["description"]),
		Concerns:    stringList(m["concerns"]),
		Benefits:    stringList(m["benefits"]),
		Sources:     FilterSources(decodeSources(m["sources"])),
	}

	level, ok := parseSafetyLevel(stringValue(m["safety_level"]))
	if !ok {
		level = SafetyCaution
	}
	category, categoryOK := parseCategory(stringValue(m["category"]))

	if refLevel, refCategory, found := ReferenceLevel(ingredient.Name); found {
		level = level.Max(refLevel)
		if !categoryOK {
			category, categoryOK = refCategory, true
		}
	}
	if !categoryOK {
		category = CategoryIngredient
	}
	ingredient.SafetyLevel = level
	ingredient.Category = category

	if d, ok := m["dosage"].(map[string]any); ok {
		ingredient.Dosage = Dosage{
			Child:       stringValue(d["child_6_12"]),
			AdultMale:   stringValue(d["adult_male"]),
			AdultFemale: stringValue(d["adult_female"]),
			ToxicDose:   stringValue(d["toxic_dose"]),
		}
	}
	return ingredient, ingredient.Name != ""
}

func decodeSources(v any) []Source {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	sources := make([]Source, 0, len(list))
	for _, item := range list {
		switch s := item.(type) {
		case map[string]any:
			sources = append(sources, Source{Title: stringValue(s["title"]), URL: stringValue(s["url"])})
		case string:
			sources = append(sources, Source{URL: s})
		}
	}
	return sources
}

// normalizeDosage 攝取量只接受數值或固定字串；有毒成分一律不可食用
func normalizeDosage(d *Dosage, level SafetyLevel) {
	d.Child = intakeDose(d.Child, level, true)
	d.AdultMale = intakeDose(d.AdultMale, level, false)
	d.AdultFemale = intakeDose(d.AdultFemale, level, false)
	if !hasDigit(d.ToxicDose) && !noThreshold(d.ToxicDose) {
		d.ToxicDose = ToxicDoseNoThreshold
	}
}

func intakeDose(value string, level SafetyLevel, child bool) string {
	if level == SafetyToxic {
		return DosageToxic
	}
	for _, sentinel := range []string{DosageNotForChildren, DosageToxic, DosageNoLimit} {
		if strings.EqualFold(value, sentinel) {
			return sentinel
		}
	}
	if hasDigit(value) {
		return value
	}
	if child && level == SafetyDanger {
		return DosageNotForChildren
	}
	return DosageNoLimit
}

func noThreshold(value string) bool {
	lower := strings.ToLower(value)
	for _, phrase := range []string{"no established", "not established", "no known toxic"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func anyToxic(ingredients []Ingredient) bool {
	for _, ingredient := range ingredients {
		if ingredient.SafetyLevel == SafetyToxic {
			return true
		}
	}
	return false
}

func parseSafetyLevel(s string) (SafetyLevel, bool) {
	level := SafetyLevel(strings.ToUpper(strings.TrimSpace(s)))
	return level, level.Valid()
}

// categoryAliases 常見的分類寫法差異
var categoryAliases = map[string]Category{
	"vitamin":  CategoryVitamin,
	"mineral":  CategoryVitamin,
	"fat":      CategoryFatOil,
	"oil":      CategoryFatOil,
	"fat oil":  CategoryFatOil,
	"color":    CategoryColoring,
	"colour":   CategoryColoring,
	"colorant": CategoryColoring,
	"dye":      CategoryColoring,
	"flavor":   CategoryFlavoring,
	"flavour":  CategoryFlavoring,
	"acid":     CategoryAcidulant,
}

func parseCategory(s string) (Category, bool) {
	key := normalizeName(s)
	if key == "" {
		return "", false
	}
	for _, c := range Categories {
		if normalizeName(string(c)) == key {
			return c, true
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	if c, ok := categoryAliases[strings.TrimSuffix(key, "s")]; ok {
		return c, true
	}
	for _, c := range Categories {
		if normalizeName(string(c))+"s" == key {
			return c, true
		}
	}
	return "", false
}

func parseProductType(s string) ProductType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for _, t := range ProductTypes {
		if ProductType(key) == t {
			return t
		}
	}
	return ProductUnknown
}

func parseConfidence(s string) Confidence {
	key := Confidence(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Confidences {
		if key == c {
			return c
		}
	}
	return ConfidenceLow
}

// parseBarcode 去除空白與連字號後須為 12 或 13 位數字
func parseBarcode(s string) *string {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	if len(digits) != 12 && len(digits) != 13 {
		return nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return &digits
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func optionalString(v any) *string {
	s := stringValue(v)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// stringList 非空字串清單；單一字串視為一個元素
func stringList(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(list); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolValue(v any) (value bool, ok bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}
