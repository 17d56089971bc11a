package analysis

import (
	"strings"
	"testing"

	imagesvc "ingredient-analyzer/internal/core/image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBudget = TokenBudget{Text: 3500, Image: 1000, Ingredient: 800}

func TestCompilePromptTextList(t *testing.T) {
	req, err := NewTextRequest("water, salt, Red 40")
	require.NoError(t, err)

	prompt := CompilePrompt(req, testBudget)
	assert.Equal(t, ModeTextList, prompt.Mode)
	assert.Equal(t, 3500, prompt.MaxTokens)
	assert.Empty(t, prompt.ImageDataURI)

	assert.Contains(t, prompt.Text, "<<<INGREDIENTS\nwater, salt, Red 40\nINGREDIENTS>>>")
	assert.Contains(t, prompt.Text, `"total_ingredients_found"`)
	assert.Contains(t, prompt.Text, `"healthier_alternative"`)
	assert.NotContains(t, prompt.Text, `"barcode"`)
	assert.Contains(t, prompt.Text, "NEVER add ingredients")
	assert.Contains(t, prompt.Text, "NO_INGREDIENTS_FOUND")

	for _, domain := range SourceDomains {
		assert.Contains(t, prompt.Text, domain)
	}
	for _, level := range SafetyLevels {
		assert.Contains(t, prompt.Text, string(level))
	}
	for _, label := range referenceLabels(SafetyDanger) {
		assert.Contains(t, prompt.Text, label)
	}
	assert.Contains(t, prompt.Text, string(CategoryVitamin))
	assert.Contains(t, prompt.Text, DosageNotForChildren)
	assert.Contains(t, prompt.Text, ToxicDoseNoThreshold)
	assert.Contains(t, prompt.Text, "MEDICATIONS")
}

func TestCompilePromptSingleIngredient(t *testing.T) {
	req, err := NewIngredientRequest("BHA")
	require.NoError(t, err)

	prompt := CompilePrompt(req, testBudget)
	assert.Equal(t, 800, prompt.MaxTokens)
	assert.Contains(t, prompt.Text, `"BHA"`)
	assert.Contains(t, prompt.Text, "exactly ONE ingredient")
	assert.Contains(t, prompt.Text, `"is_edible": true`)
	assert.NotContains(t, prompt.Text, `"ingredients"`)
	assert.NotContains(t, prompt.Text, "MEDICATIONS")
}

func TestCompilePromptLabelImage(t *testing.T) {
	req, err := NewImageRequest(pngPayload(t, 2, 2), imagesvc.NewService(0, 0))
	require.NoError(t, err)

	prompt := CompilePrompt(req, testBudget)
	assert.Equal(t, 1000, prompt.MaxTokens)
	assert.Equal(t, req.ImageDataURI(), prompt.ImageDataURI)
	assert.NotContains(t, prompt.Text, "base64", "image travels outside the prompt text")
	assert.Contains(t, prompt.Text, `"barcode"`)
	assert.Contains(t, prompt.Text, `"extraction_confidence": "high|medium|low"`)
	assert.Contains(t, prompt.Text, `"unreadable_sections"`)
	assert.Contains(t, prompt.Text, "exact order printed on the label")
	assert.Contains(t, prompt.Text, "IMAGE_TOO_BLURRY")
	assert.Contains(t, prompt.Text, "NOT_A_PRODUCT_LABEL")
}

func TestCompilePromptDeterministic(t *testing.T) {
	a, _ := NewTextRequest("sugar, BHT")
	b, _ := NewTextRequest("sugar, BHT")
	c, _ := NewTextRequest("sugar, BHA")

	pa, pb, pc := CompilePrompt(a, testBudget), CompilePrompt(b, testBudget), CompilePrompt(c, testBudget)
	assert.Equal(t, pa, pb)
	assert.Equal(t, pa.CacheKey(), pb.CacheKey())
	assert.NotEqual(t, pa.CacheKey(), pc.CacheKey())
	assert.True(t, strings.HasPrefix(pa.CacheKey(), string(ModeTextList)+":"))
}
