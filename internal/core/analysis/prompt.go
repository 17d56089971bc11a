package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenBudget 各模式的回覆 token 上限
type TokenBudget struct {
	Text       int
	Image      int
	Ingredient int
}

// For 取得模式對應的上限
func (b TokenBudget) For(mode Mode) int {
	switch mode {
	case ModeLabelImage:
		return b.Image
	case ModeSingleIngredient:
		return b.Ingredient
	default:
		return b.Text
	}
}

// Prompt 送往分類器的完整請求內容
type Prompt struct {
	Mode         Mode
	Text         string
	ImageDataURI string
	MaxTokens    int
}

// CacheKey 以模式、提示詞與圖片計算的穩定鍵
func (p *Prompt) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(p.Mode))
	h.Write([]byte{0})
	h.Write([]byte(p.Text))
	h.Write([]byte{0})
	h.Write([]byte(p.ImageDataURI))
	return string(p.Mode) + ":" + hex.EncodeToString(h.Sum(nil))
}

// CompilePrompt 依模式產生提示詞；相同輸入永遠得到相同輸出
func CompilePrompt(req *ClassificationRequest, budget TokenBudget) *Prompt {
	var b strings.Builder

	switch req.Mode() {
	case ModeTextList:
		writeTextIntro(&b, req.Text())
	case ModeSingleIngredient:
		writeIngredientIntro(&b, req.Text())
	case ModeLabelImage:
		writeImageIntro(&b)
	}

	b.WriteString("Return ONLY valid JSON (no markdown, no explanation) in exactly this shape:\n\n")
	if req.Mode() == ModeSingleIngredient {
		writeIngredientSchema(&b, "", true)
	} else {
		writeProductSchema(&b, req.Mode())
	}
	b.WriteString("\n")

	writeSafetyLevels(&b)
	writeSourceRules(&b)
	writeDosageRules(&b)
	writeNonFoodRules(&b, req.Mode())

	switch req.Mode() {
	case ModeTextList:
		writeTextRules(&b)
	case ModeSingleIngredient:
		writeIngredientRules(&b)
	case ModeLabelImage:
		writeImageRules(&b)
	}

	return &Prompt{
		Mode:         req.Mode(),
		Text:         strings.TrimSpace(b.String()),
		ImageDataURI: req.ImageDataURI(),
		MaxTokens:    budget.For(req.Mode()),
	}
}

func writeTextIntro(b *strings.Builder, ingredients string) {
	b.WriteString("You are a precise ingredient safety analyzer. Analyze ONLY the ingredients provided - do not add or guess any ingredients.\n\n")
	b.WriteString("INGREDIENTS TO ANALYZE (verbatim, between the markers):\n<<<INGREDIENTS\n")
	b.WriteString(ingredients)
	b.WriteString("\nINGREDIENTS>>>\n\n")
	b.WriteString("First determine if these are EDIBLE FOOD ingredients or non-food/toxic substances.\n\n")
}

func writeIngredientIntro(b *strings.Builder, name string) {
	fmt.Fprintf(b, "Provide detailed safety information about exactly one ingredient: %q\n\n", name)
	b.WriteString("First determine if this is an EDIBLE food ingredient or a non-food/toxic substance.\n\n")
}

func writeImageIntro(b *strings.Builder) {
	b.WriteString("Analyze the attached product label image. Read the ingredient list exactly as printed.\n\n")
	b.WriteString("CRITICAL SAFETY CHECK:\n")
	b.WriteString("- If this is NOT a food product (cleaning supplies, chemicals, poison, non-food items), set \"is_edible\": false\n")
	b.WriteString("- If this IS a product meant for human consumption, set \"is_edible\": true\n\n")
}

// writeIngredientSchema 三種模式共用的成分結構
func writeIngredientSchema(b *strings.Builder, indent string, withEdible bool) {
	lines := []string{
		"{",
		`  "name": "Ingredient name exactly as given",`,
	}
	if withEdible {
		lines = append(lines, `  "is_edible": true,`)
	}
	lines = append(lines,
		fmt.Sprintf(`  "category": "%s",`, joinValues(Categories)),
		fmt.Sprintf(`  "safety_level": "%s",`, joinValues(SafetyLevels)),
		`  "description": "2-3 sentences: what it is, how it is made, why it is used, key safety information",`,
		`  "concerns": ["specific health concern"],`,
		`  "benefits": ["specific benefit"],`,
		`  "dosage": {`,
		fmt.Sprintf(`    "child_6_12": "Specific mg/kg/day or mg/day, or '%s' or '%s'",`, DosageNotForChildren, DosageToxic),
		fmt.Sprintf(`    "adult_male": "Specific mg/kg/day or mg/day for a 70kg adult male, or '%s'",`, DosageNoLimit),
		fmt.Sprintf(`    "adult_female": "Specific mg/kg/day or mg/day for a 60kg adult female, or '%s'",`, DosageNoLimit),
		`    "toxic_dose": "Specific amount with effects, e.g. '>500mg causes vomiting; LD50: 3000mg/kg in rats'"`,
		`  },`,
		`  "sources": [{"title": "Exact page title", "url": "https://www.fda.gov/specific-page"}]`,
		"}",
	)
	for i, line := range lines {
		if i > 0 {
			b.WriteString(indent)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeProductSchema(b *strings.Builder, mode Mode) {
	b.WriteString("{\n")
	b.WriteString("  \"is_edible\": true,\n")
	if mode == ModeLabelImage {
		b.WriteString("  \"product_name\": \"Brand and product name\",\n")
	} else {
		fmt.Fprintf(b, "  \"product_name\": %q,\n", DefaultProductName)
	}
	fmt.Fprintf(b, "  \"product_type\": \"%s\",\n", joinValues(ProductTypes))
	b.WriteString("  \"warning_message\": null,\n")
	if mode == ModeLabelImage {
		b.WriteString("  \"barcode\": \"12 or 13 digit UPC/EAN if visible, else null\",\n")
		fmt.Fprintf(b, "  \"extraction_confidence\": \"%s\",\n", joinValues(Confidences))
		b.WriteString("  \"unreadable_sections\": [\"description of any part of the label you could not read\"],\n")
		b.WriteString("  \"raw_text\": \"the ingredient list exactly as printed\",\n")
	} else {
		b.WriteString("  \"raw_text\": \"the ingredient list exactly as provided\",\n")
	}
	b.WriteString("  \"ingredients\": [\n    ")
	writeIngredientSchema(b, "    ", false)
	b.WriteString("  ],\n")
	b.WriteString("  \"total_ingredients_found\": 0,\n")
	b.WriteString("  \"allergens\": [\"milk\", \"soy\", \"wheat\"],\n")
	b.WriteString("  \"warnings\": [\"product-level warning\"],\n")
	b.WriteString("  \"amazon_search\": \"search term for this product or its ingredients\",\n")
	b.WriteString("  \"healthier_alternative\": {\"name\": \"Alternative name\", \"type\": \"generic|natural|organic\", \"description\": \"Why it is healthier or cheaper\"}\n")
	b.WriteString("}\n")
}

func writeSafetyLevels(b *strings.Builder) {
	b.WriteString("SAFETY LEVELS:\n")
	b.WriteString("- TOXIC: Non-food chemicals, poisons, substances not meant for human consumption\n")
	fmt.Fprintf(b, "- DANGER: %s\n", strings.Join(referenceLabels(SafetyDanger), ", "))
	fmt.Fprintf(b, "- CAUTION: %s\n", strings.Join(referenceLabels(SafetyCaution), ", "))
	b.WriteString("- SAFE: Water, salt, sugar, flour, natural whole-food ingredients, vitamins, minerals\n")
	b.WriteString("Never rate an ingredient listed under DANGER or CAUTION lower than that level. When unsure, choose the more cautious level.\n\n")
}

func writeSourceRules(b *strings.Builder) {
	b.WriteString("CRITICAL SOURCE RULES:\n")
	b.WriteString("1. ONLY include sources with an EXACT, REAL, VERIFIABLE URL to a specific page (not a homepage)\n")
	b.WriteString("2. If you cannot provide a real working URL, set \"sources\": [] (empty array)\n")
	b.WriteString("3. NEVER guess or fabricate URLs\n")
	fmt.Fprintf(b, "4. Only use these domains: %s\n\n", strings.Join(SourceDomains, ", "))
}

func writeDosageRules(b *strings.Builder) {
	b.WriteString("CRITICAL DOSE RULES:\n")
	b.WriteString("1. ALWAYS give SPECIFIC NUMBERS with units (mg, g, mg/kg, mg/kg/day)\n")
	b.WriteString("2. ALWAYS describe the symptoms that occur at the toxic dose; include LD50 and ADI if known\n")
	b.WriteString("3. NEVER use vague language like \"excessive\", \"too much\", \"a lot\" or \"large quantities\"\n")
	fmt.Fprintf(b, "4. The only allowed non-numeric values are '%s', '%s' and '%s'\n", DosageNotForChildren, DosageToxic, DosageNoLimit)
	fmt.Fprintf(b, "5. If no toxic threshold is known, toxic_dose must be '%s' followed by any animal data available\n\n", ToxicDoseNoThreshold)
}

func writeNonFoodRules(b *strings.Builder, mode Mode) {
	b.WriteString("NON-FOOD SUBSTANCES:\n")
	b.WriteString("If this is NOT food (cleaning product, chemical, poison):\n")
	b.WriteString("- Set \"is_edible\": false and mark every ingredient \"TOXIC\"\n")
	if mode == ModeSingleIngredient {
		b.WriteString("- Clearly state in the description that it is not meant for consumption\n")
	} else {
		b.WriteString("- Set a clear \"warning_message\" such as 'NOT FOOD - these chemicals are TOXIC if consumed'\n")
		b.WriteString("- Set \"healthier_alternative\": null\n")
	}
	fmt.Fprintf(b, "- Child and adult dosage must be '%s'; still give the toxic dose for accidental ingestion awareness\n\n", DosageToxic)

	if mode == ModeSingleIngredient {
		return
	}
	b.WriteString("MEDICATIONS (prescription_drug or otc_medicine):\n")
	b.WriteString("- Set \"is_edible\": true (medicines are meant to be consumed)\n")
	b.WriteString("- For each active ingredient give the therapeutic dose, maximum daily dose and overdose symptoms\n")
	b.WriteString("- \"warning_message\" may carry a medication-specific caution; otherwise keep it null for edible products\n\n")
}

func writeTextRules(b *strings.Builder) {
	b.WriteString("LIST RULES:\n")
	b.WriteString("1. ONLY analyze ingredients that are in the provided list, in the order given\n")
	b.WriteString("2. NEVER add ingredients that were not provided\n")
	b.WriteString("3. If an ingredient is unclear, include it and explain in its description\n")
	b.WriteString("4. \"total_ingredients_found\" must equal the number of entries in \"ingredients\"\n")
	b.WriteString("If the text contains no ingredients at all, return: {\"error\": \"NO_INGREDIENTS_FOUND\"}\n")
}

func writeIngredientRules(b *strings.Builder) {
	b.WriteString("RULES:\n")
	b.WriteString("1. Return exactly ONE ingredient object, never a list\n")
	b.WriteString("2. \"name\" must be the ingredient asked about\n")
	b.WriteString("3. If it is not edible set \"is_edible\": false and \"safety_level\": \"TOXIC\"\n")
}

func writeImageRules(b *strings.Builder) {
	b.WriteString("LABEL EXTRACTION RULES:\n")
	b.WriteString("1. List ingredients in the exact order printed on the label\n")
	b.WriteString("2. NEVER add ingredients that are not visible on the label\n")
	b.WriteString("3. Describe any part you cannot read in \"unreadable_sections\" instead of guessing\n")
	b.WriteString("4. If a barcode is visible, copy its digits into \"barcode\"; otherwise null\n")
	b.WriteString("5. Set \"extraction_confidence\" to how clearly you could read the ingredient list\n")
	b.WriteString("If the image is too blurry to read, return: {\"error\": \"IMAGE_TOO_BLURRY\", \"suggestion\": \"how to retake the photo\"}\n")
	b.WriteString("If no ingredient list is visible, return: {\"error\": \"NO_INGREDIENTS_FOUND\"}\n")
	b.WriteString("If the image is not a product label at all, return: {\"error\": \"NOT_A_PRODUCT_LABEL\"}\n")
}
