package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	imagesvc "ingredient-analyzer/internal/core/image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRequest(t *testing.T, text string) *ClassificationRequest {
	t.Helper()
	req, err := NewTextRequest(text)
	require.NoError(t, err)
	return req
}

func imageRequest(t *testing.T) *ClassificationRequest {
	t.Helper()
	req, err := NewImageRequest(pngPayload(t, 2, 2), imagesvc.NewService(0, 0))
	require.NoError(t, err)
	return req
}

func ingredientRequest(t *testing.T, name string) *ClassificationRequest {
	t.Helper()
	req, err := NewIngredientRequest(name)
	require.NoError(t, err)
	return req
}

const redFortyReply = "```json\n" + `{
  "is_edible": true,
  "product_name": "Unknown Product",
  "product_type": "food",
  "warning_message": null,
  "ingredients": [
    {"name": "water", "category": "Base", "safety_level": "SAFE", "description": "Water.", "concerns": [], "benefits": ["hydration"],
     "dosage": {"child_6_12": "1.5 L/day", "adult_male": "3.7 L/day", "adult_female": "2.7 L/day", "toxic_dose": "More than 6 L within a few hours causes hyponatremia"},
     "sources": [{"title": "Water", "url": "https://www.cdc.gov/healthyweight/healthy_eating/water-and-healthier-drinks.html"}]},
    {"name": "salt", "category": "Sodium", "safety_level": "SAFE", "description": "Sodium chloride.", "concerns": ["blood pressure"], "benefits": [],
     "dosage": {"child_6_12": "1500 mg sodium/day", "adult_male": "2300 mg sodium/day", "adult_female": "2300 mg sodium/day", "toxic_dose": "0.5-1 g/kg can be fatal"},
     "sources": [{"title": "made up", "url": "https://saltfacts.example.com/page"}]},
    {"name": "Red 40", "category": "Coloring", "safety_level": "SAFE", "description": "Azo dye.", "concerns": ["hyperactivity"], "benefits": [],
     "dosage": {"child_6_12": "", "adult_male": "7 mg/kg/day ADI", "adult_female": "7 mg/kg/day ADI", "toxic_dose": "excessive amounts"},
     "sources": []}
  ],
  "allergens": [],
  "warnings": ["Contains artificial color", "contains artificial color"]
}` + "\n```\nLet me know if you have questions."

func TestValidateProductRedForty(t *testing.T) {
	product, err := ValidateProduct(textRequest(t, "water, salt, Red 40"), redFortyReply)
	require.NoError(t, err)

	require.Len(t, product.Ingredients, 3)
	assert.Equal(t, 3, product.TotalIngredientsFound)
	assert.True(t, product.IsEdible)
	assert.Nil(t, product.WarningMessage)
	assert.Equal(t, "water, salt, Red 40", product.RawText)
	assert.Empty(t, product.ExtractionConfidence)

	red := product.Ingredients[2]
	assert.Equal(t, "Red 40", red.Name)
	assert.Equal(t, SafetyDanger, red.SafetyLevel, "never below the reference tier")
	assert.Contains(t, []Category{CategoryColoring, CategoryChemical}, red.Category)
	assert.Equal(t, DosageNotForChildren, red.Dosage.Child)
	assert.Equal(t, ToxicDoseNoThreshold, red.Dosage.ToxicDose, "vague toxic dose is replaced")
	assert.Equal(t, "7 mg/kg/day ADI", red.Dosage.AdultMale)

	assert.Len(t, product.Ingredients[0].Sources, 1)
	assert.Empty(t, product.Ingredients[1].Sources, "non allow-listed source dropped")
	assert.NotNil(t, product.Ingredients[1].Sources)
}

func TestValidateProductErrorSentinels(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{"no ingredients", `{"error": "NO_INGREDIENTS_FOUND"}`, ErrNoIngredients},
		{"not a label", "```json\n{\"error\": \"NOT_A_PRODUCT_LABEL\"}\n```", ErrNotAProductLabel},
		{"lower case code", `{"error": "image_too_blurry", "suggestion": "Hold steady"}`, ErrTooBlurry},
		{"unknown code", `{"error": "RATE_LIMITED"}`, ErrMalformedResponse},
		{"empty ingredients", `{"is_edible": true, "ingredients": []}`, ErrNoIngredients},
		{"unparseable", "The label shows sugar and salt.", ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := ValidateProduct(imageRequest(t), tt.reply)
			require.Error(t, err)
			assert.Nil(t, product)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := ValidateProduct(imageRequest(t), `{"error": "IMAGE_TOO_BLURRY", "suggestion": "Use more light"}`)
	ce, ok := AsClassificationError(err)
	require.True(t, ok)
	assert.Equal(t, "Use more light", ce.Suggestion)
	assert.False(t, ce.Retryable())
	assert.Equal(t, 422, ce.Status())
}

func TestValidateProductIgnoresEmptyErrorField(t *testing.T) {
	for _, field := range []string{`""`, `"  "`, `null`, `false`} {
		reply := `{"error": ` + field + `, "is_edible": true, "ingredients": [{"name": "salt", "safety_level": "SAFE"}]}`
		product, err := ValidateProduct(textRequest(t, "salt"), reply)
		require.NoError(t, err, field)
		assert.Equal(t, 1, product.TotalIngredientsFound, field)
	}
}

func TestValidateProductKeepsSpaceSeparatedIngredients(t *testing.T) {
	reply := `{"is_edible": true, "product_type": "food", "ingredients": [
		{"name": "Water", "safety_level": "SAFE", "category": "Base"},
		{"name": "Sugar", "safety_level": "CAUTION", "category": "Sweetener"},
		{"name": "Red 40", "safety_level": "DANGER", "category": "Coloring"}
	]}`
	product, err := ValidateProduct(textRequest(t, "Water Sugar Red 40"), reply)
	require.NoError(t, err)
	require.Equal(t, 3, product.TotalIngredientsFound)
	assert.Equal(t, "Red 40", product.Ingredients[2].Name)
	assert.Equal(t, SafetyDanger, product.Ingredients[2].SafetyLevel)
}

func TestValidateProductFillsIngredientCount(t *testing.T) {
	reply := `{"is_edible": true, "product_type": "food", "ingredients": [
		{"name": "flour", "safety_level": "SAFE"},
		{"name": "sugar", "safety_level": "SAFE"},
		{"name": "yeast", "safety_level": "SAFE"}
	]}`
	product, err := ValidateProduct(textRequest(t, "flour, sugar, yeast"), reply)
	require.NoError(t, err)
	assert.Equal(t, 3, product.TotalIngredientsFound)
}

func TestValidateProductNonEdibleForcesToxic(t *testing.T) {
	reply := `{
		"is_edible": false,
		"product_type": "food",
		"amazon_search": "bleach",
		"healthier_alternative": {"name": "vinegar", "type": "natural", "description": "cheaper"},
		"ingredients": [
			{"name": "water", "safety_level": "SAFE", "dosage": {"child_6_12": "1 L", "adult_male": "3 L", "adult_female": "2 L", "toxic_dose": "6 L"}},
			{"name": "sodium hypochlorite", "category": "Chemical", "safety_level": "TOXIC"}
		]
	}`
	product, err := ValidateProduct(textRequest(t, "water, sodium hypochlorite"), reply)
	require.NoError(t, err)

	assert.False(t, product.IsEdible)
	require.NotNil(t, product.WarningMessage)
	assert.Equal(t, DefaultNonEdibleAlert, *product.WarningMessage)
	assert.Nil(t, product.HealthierAlternative)
	assert.Empty(t, product.AmazonSearch)
	for _, ingredient := range product.Ingredients {
		assert.Equal(t, SafetyToxic, ingredient.SafetyLevel, ingredient.Name)
		assert.Equal(t, DosageToxic, ingredient.Dosage.Child)
		assert.Equal(t, DosageToxic, ingredient.Dosage.AdultMale)
	}
	assert.Equal(t, "6 L", product.Ingredients[0].Dosage.ToxicDose)
}

func TestValidateProductEdibilityInference(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		edible bool
	}{
		{"cleaning product overrides", `{"is_edible": true, "product_type": "cleaning_product", "ingredients": [{"name": "water"}]}`, false},
		{"missing flag with toxic ingredient", `{"product_type": "unknown", "ingredients": [{"name": "water"}, {"name": "lye", "safety_level": "TOXIC"}]}`, false},
		{"missing flag defaults edible", `{"ingredients": [{"name": "water"}]}`, true},
		{"string flag", `{"is_edible": "false", "ingredients": [{"name": "water"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := ValidateProduct(textRequest(t, "water, lye"), tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.edible, product.IsEdible)
			if !tt.edible {
				assert.NotNil(t, product.WarningMessage)
			}
		})
	}
}

func TestValidateProductWarningMessage(t *testing.T) {
	reply := `{"is_edible": true, "product_type": "food", "warning_message": "High in sugar",
		"warnings": ["Contains soy"], "ingredients": [{"name": "sugar", "safety_level": "SAFE"}]}`
	product, err := ValidateProduct(textRequest(t, "sugar"), reply)
	require.NoError(t, err)
	assert.Nil(t, product.WarningMessage)
	assert.Equal(t, []string{"Contains soy", "High in sugar"}, product.Warnings)

	reply = `{"is_edible": true, "product_type": "otc_medicine", "warning_message": "Do not exceed 4 g per day",
		"ingredients": [{"name": "acetaminophen", "safety_level": "CAUTION"}]}`
	product, err = ValidateProduct(textRequest(t, "acetaminophen"), reply)
	require.NoError(t, err)
	require.NotNil(t, product.WarningMessage)
	assert.Equal(t, "Do not exceed 4 g per day", *product.WarningMessage)
}

func TestValidateProductCoercion(t *testing.T) {
	reply := `[
		{"name": "mystery gum", "category": "Gum Base", "safety_level": "probably fine"},
		{"category": "Sweetener", "safety_level": "SAFE"},
		{"name": "sunflower oil", "category": "oils", "safety_level": "safe"},
		"not an object"
	]`
	product, err := ValidateProduct(textRequest(t, "mystery gum, sunflower oil"), reply)
	require.NoError(t, err)

	require.Len(t, product.Ingredients, 2, "nameless and non-object entries dropped")
	assert.Equal(t, CategoryIngredient, product.Ingredients[0].Category)
	assert.Equal(t, SafetyCaution, product.Ingredients[0].SafetyLevel, "unknown level biases toward caution")
	assert.Equal(t, CategoryFatOil, product.Ingredients[1].Category)
	assert.Equal(t, SafetySafe, product.Ingredients[1].SafetyLevel)
	assert.Equal(t, DefaultProductName, product.ProductName)
	assert.Equal(t, ProductUnknown, product.ProductType)
	assert.NotNil(t, product.Allergens)
	assert.NotNil(t, product.Warnings)
	assert.Equal(t, DosageNoLimit, product.Ingredients[0].Dosage.AdultFemale)
}

func TestValidateProductImageFields(t *testing.T) {
	reply := `{
		"is_edible": true,
		"product_name": "Crunchy Bites",
		"product_type": "Food",
		"barcode": "0 12345-67890 5",
		"extraction_confidence": "very high",
		"unreadable_sections": ["bottom edge"],
		"raw_ingredients_text": "corn, oil, salt",
		"ingredients": [{"name": "corn"}, {"name": "oil"}, {"name": "salt"}]
	}`
	product, err := ValidateProduct(imageRequest(t), reply)
	require.NoError(t, err)

	require.NotNil(t, product.Barcode)
	assert.Equal(t, "012345678905", *product.Barcode)
	assert.Equal(t, ConfidenceLow, product.ExtractionConfidence)
	assert.Equal(t, []string{"bottom edge"}, product.UnreadableSections)
	assert.Equal(t, "corn, oil, salt", product.RawText)
	assert.Equal(t, ProductFood, product.ProductType)

	product, err = ValidateProduct(imageRequest(t), `{"barcode": "12345", "extraction_confidence": "HIGH", "ingredients": [{"name": "corn"}]}`)
	require.NoError(t, err)
	assert.Nil(t, product.Barcode)
	assert.Equal(t, ConfidenceHigh, product.ExtractionConfidence)
}

func TestValidateIngredient(t *testing.T) {
	reply := `{"name": "Titanium Dioxide", "is_edible": true, "category": "Coloring", "safety_level": "CAUTION",
		"dosage": {"child_6_12": "avoid", "adult_male": "", "adult_female": "No established limit", "toxic_dose": "No established toxic threshold in humans"},
		"sources": [{"title": "EFSA", "url": "https://www.efsa.europa.eu/en/news/titanium-dioxide-e171-no-longer-considered-safe"}]}`
	report, err := ValidateIngredient(ingredientRequest(t, "titanium dioxide"), reply)
	require.NoError(t, err)

	assert.True(t, report.IsEdible)
	assert.Equal(t, SafetyDanger, report.SafetyLevel)
	assert.Equal(t, DosageNotForChildren, report.Dosage.Child)
	assert.Equal(t, DosageNoLimit, report.Dosage.AdultMale)
	assert.Equal(t, DosageNoLimit, report.Dosage.AdultFemale)
	assert.Equal(t, "No established toxic threshold in humans", report.Dosage.ToxicDose)
	assert.Len(t, report.Sources, 1)
}

func TestValidateIngredientFailSafe(t *testing.T) {
	report, err := ValidateIngredient(ingredientRequest(t, "bleach"), `[{"is_edible": false, "safety_level": "SAFE"}]`)
	require.NoError(t, err)
	assert.Equal(t, "bleach", report.Name, "missing name falls back to the requested one")
	assert.False(t, report.IsEdible)
	assert.Equal(t, SafetyToxic, report.SafetyLevel)
	assert.Equal(t, DosageToxic, report.Dosage.Child)

	report, err = ValidateIngredient(ingredientRequest(t, "lye"), `{"name": "lye", "safety_level": "TOXIC"}`)
	require.NoError(t, err)
	assert.False(t, report.IsEdible, "toxic ingredient is never edible")

	_, err = ValidateIngredient(ingredientRequest(t, "salt"), "no json here")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestValidateIdempotent(t *testing.T) {
	req := textRequest(t, "water, salt, Red 40")
	first, err := ValidateProduct(req, redFortyReply)
	require.NoError(t, err)
	second, err := ValidateProduct(req, redFortyReply)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateRoundTrip(t *testing.T) {
	text := "oats, honey, Red 40"
	want := &Product{
		IsEdible:           true,
		ProductName:        "Granola",
		ProductType:        ProductFood,
		UnreadableSections: []string{},
		RawText:            text,
		Ingredients: []Ingredient{
			{
				Name: "oats", Category: CategoryBase, SafetyLevel: SafetySafe,
				Description: "Whole grain.", Concerns: []string{"gluten cross-contact"}, Benefits: []string{"fiber"},
				Dosage:  Dosage{Child: "40 g/day", AdultMale: "80 g/day", AdultFemale: "70 g/day", ToxicDose: "No established toxic threshold"},
				Sources: []Source{{Title: "Oats", URL: "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC123/"}},
			},
			{
				Name: "honey", Category: CategorySweetener, SafetyLevel: SafetyCaution,
				Description: "Natural sugar.", Concerns: []string{"infant botulism"}, Benefits: []string{"antioxidants"},
				Dosage:  Dosage{Child: "12 g/day", AdultMale: "36 g/day", AdultFemale: "25 g/day", ToxicDose: "Over 100 g may cause diarrhea"},
				Sources: []Source{},
			},
			{
				Name: "Red 40", Category: CategoryColoring, SafetyLevel: SafetyDanger,
				Description: "Azo dye.", Concerns: []string{"hyperactivity"}, Benefits: []string{},
				Dosage:  Dosage{Child: DosageNotForChildren, AdultMale: "7 mg/kg/day", AdultFemale: "7 mg/kg/day", ToxicDose: "LD50 above 10000 mg/kg in rats"},
				Sources: []Source{{Title: "Color additives", URL: "https://www.fda.gov/food/color-additives"}},
			},
		},
		TotalIngredientsFound: 3,
		Allergens:             []string{"gluten"},
		Warnings:              []string{"Contains artificial color"},
		AmazonSearch:          "granola without artificial color",
		HealthierAlternative:  &Alternative{Name: "Plain oats", Type: "natural", Description: "No dyes"},
	}

	req := textRequest(t, text)
	prompt := CompilePrompt(req, testBudget)
	require.Contains(t, prompt.Text, text)

	reply, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := ValidateProduct(req, string(reply))
	require.NoError(t, err)
	assert.Equal(t, want, Assemble(got))
}
