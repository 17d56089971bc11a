package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafetyLevelOrdering(t *testing.T) {
	assert.True(t, SafetySafe.Rank() < SafetyCaution.Rank())
	assert.True(t, SafetyCaution.Rank() < SafetyDanger.Rank())
	assert.True(t, SafetyDanger.Rank() < SafetyToxic.Rank())

	assert.Equal(t, SafetyDanger, SafetySafe.Max(SafetyDanger))
	assert.Equal(t, SafetyToxic, SafetyToxic.Max(SafetyCaution))
	assert.False(t, SafetyLevel("HARMLESS").Valid())
	assert.Equal(t, SafetyCaution.Rank(), SafetyLevel("HARMLESS").Rank())
}

func TestReferenceLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		level    SafetyLevel
		category Category
		found    bool
	}{
		{"exact", "Red 40", SafetyDanger, CategoryColoring, true},
		{"alias", "FD&C Red No. 40", SafetyDanger, CategoryColoring, true},
		{"e-number", "E250", SafetyDanger, CategoryPreservative, true},
		{"caution", "High Fructose Corn Syrup", SafetyCaution, CategorySweetener, true},
		{"highest tier wins", "palm oil (partially hydrogenated)", SafetyDanger, CategoryFatOil, true},
		{"word boundary", "Red 400", "", "", false},
		{"unknown", "water", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, category, found := ReferenceLevel(tt.input)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestAllowedSourceURL(t *testing.T) {
	allowed := []string{
		"https://www.fda.gov/food/food-additives-petitions/color-additives",
		"https://pubmed.ncbi.nlm.nih.gov/12345678/",
		"http://www.who.int/news-room/fact-sheets/detail/food-additives",
		"https://www.efsa.europa.eu/en/topics/topic/food-colours",
	}
	for _, u := range allowed {
		assert.True(t, AllowedSourceURL(u), u)
	}

	rejected := []string{
		"",
		"https://www.fda.gov/",
		"https://fda.gov",
		"https://example.com/fda.gov/page",
		"https://notfda.gov/page",
		"https://fda.gov.evil.com/page",
		"ftp://www.fda.gov/page",
		"https://user@www.fda.gov/page",
		"not a url",
	}
	for _, u := range rejected {
		assert.False(t, AllowedSourceURL(u), u)
	}
}

func TestFilterSources(t *testing.T) {
	sources := []Source{
		{Title: "FDA colour additives", URL: "https://www.fda.gov/color-additives"},
		{Title: "Blog", URL: "https://healthblog.example/red-40"},
		{Title: "duplicate", URL: "https://www.fda.gov/color-additives"},
		{URL: " https://www.cdc.gov/nceh/features/food-safety "},
	}

	got := FilterSources(sources)
	assert.Equal(t, []Source{
		{Title: "FDA colour additives", URL: "https://www.fda.gov/color-additives"},
		{Title: "www.cdc.gov", URL: "https://www.cdc.gov/nceh/features/food-safety"},
	}, got)

	assert.NotNil(t, FilterSources(nil))
	assert.Empty(t, FilterSources(nil))
}
