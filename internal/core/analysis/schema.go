package analysis

import "strings"

// SafetyLevel 食用風險等級，SAFE < CAUTION < DANGER < TOXIC
type SafetyLevel string

const (
	SafetySafe    SafetyLevel = "SAFE"
	SafetyCaution SafetyLevel = "CAUTION"
	SafetyDanger  SafetyLevel = "DANGER"
	SafetyToxic   SafetyLevel = "TOXIC"
)

// SafetyLevels 依嚴重度排序
var SafetyLevels = []SafetyLevel{SafetySafe, SafetyCaution, SafetyDanger, SafetyToxic}

// Rank 回傳等級序位，未知等級視同 CAUTION
func (l SafetyLevel) Rank() int {
	switch l {
	case SafetySafe:
		return 0
	case SafetyDanger:
		return 2
	case SafetyToxic:
		return 3
	default:
		return 1
	}
}

// Valid 是否為已定義等級
func (l SafetyLevel) Valid() bool {
	for _, level := range SafetyLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Max 取較嚴重的等級
func (l SafetyLevel) Max(other SafetyLevel) SafetyLevel {
	if other.Rank() > l.Rank() {
		return other
	}
	return l
}

// Category 成分分類
type Category string

const (
	CategoryPreservative Category = "Preservative"
	CategorySweetener    Category = "Sweetener"
	CategoryColoring     Category = "Coloring"
	CategoryFlavoring    Category = "Flavoring"
	CategoryEmulsifier   Category = "Emulsifier"
	CategoryThickener    Category = "Thickener"
	CategoryAcidulant    Category = "Acidulant"
	CategoryVitamin      Category = "Vitamin/Mineral"
	CategoryFatOil       Category = "Fat/Oil"
	CategoryBase         Category = "Base"
	CategorySodium       Category = "Sodium"
	CategoryAllergen     Category = "Allergen"
	CategoryChemical     Category = "Chemical"
	CategoryToxic        Category = "Toxic"
	CategoryIngredient   Category = "Ingredient" // fallback
)

// Categories 所有已定義分類（提示詞與驗證共用）
var Categories = []Category{
	CategoryPreservative, CategorySweetener, CategoryColoring, CategoryFlavoring,
	CategoryEmulsifier, CategoryThickener, CategoryAcidulant, CategoryVitamin,
	CategoryFatOil, CategoryBase, CategorySodium, CategoryAllergen,
	CategoryChemical, CategoryToxic, CategoryIngredient,
}

// ProductType 產品類型
type ProductType string

const (
	ProductFood             ProductType = "food"
	ProductBeverage         ProductType = "beverage"
	ProductSupplement       ProductType = "supplement"
	ProductCleaning         ProductType = "cleaning_product"
	ProductChemical         ProductType = "chemical"
	ProductPrescriptionDrug ProductType = "prescription_drug"
	ProductOTCMedicine      ProductType = "otc_medicine"
	ProductCosmetic         ProductType = "cosmetic"
	ProductUnknown          ProductType = "unknown"
)

// ProductTypes 所有已定義產品類型
var ProductTypes = []ProductType{
	ProductFood, ProductBeverage, ProductSupplement, ProductCleaning, ProductChemical,
	ProductPrescriptionDrug, ProductOTCMedicine, ProductCosmetic, ProductUnknown,
}

// IsMedication 是否為藥品
func (t ProductType) IsMedication() bool {
	return t == ProductPrescriptionDrug || t == ProductOTCMedicine
}

// NeverEdible 此類型一律不可食用
func (t ProductType) NeverEdible() bool {
	return t == ProductCleaning || t == ProductChemical
}

// Confidence 圖片擷取信心
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidences 所有已定義信心等級
var Confidences = []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// 劑量固定字串
const (
	DosageNotForChildren  = "NOT FOR CHILDREN"
	DosageToxic           = "TOXIC - NOT FOR CONSUMPTION"
	DosageNoLimit         = "No established limit"
	ToxicDoseNoThreshold  = "No established toxic threshold"
	DefaultProductName    = "Unknown Product"
	DefaultNonEdibleAlert = "NOT FOR HUMAN CONSUMPTION - these ingredients are not food and may be toxic if swallowed"
)

// Dosage 建議攝取量
type Dosage struct {
	Child       string `json:"child_6_12"`
	AdultMale   string `json:"adult_male"`
	AdultFemale string `json:"adult_female"`
	ToxicDose   string `json:"toxic_dose"`
}

// Source 引用來源
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Ingredient 單一成分分析結果
type Ingredient struct {
	Name        string      `json:"name"`
	Category    Category    `json:"category"`
	SafetyLevel SafetyLevel `json:"safety_level"`
	Description string      `json:"description"`
	Concerns    []string    `json:"concerns"`
	Benefits    []string    `json:"benefits"`
	Dosage      Dosage      `json:"dosage"`
	Sources     []Source    `json:"sources"`
}

// IngredientReport 單一成分查詢結果
type IngredientReport struct {
	Ingredient
	IsEdible bool `json:"is_edible"`
}

// Alternative 較健康的替代品
type Alternative struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Product 產品分析結果
type Product struct {
	IsEdible              bool         `json:"is_edible"`
	ProductName           string       `json:"product_name"`
	ProductType           ProductType  `json:"product_type"`
	WarningMessage        *string      `json:"warning_message"`
	Barcode               *string      `json:"barcode"`
	ExtractionConfidence  Confidence   `json:"extraction_confidence,omitempty"`
	UnreadableSections    []string     `json:"unreadable_sections"`
	RawText               string       `json:"raw_text"`
	Ingredients           []Ingredient `json:"ingredients"`
	TotalIngredientsFound int          `json:"total_ingredients_found"`
	Allergens             []string     `json:"allergens"`
	Warnings              []string     `json:"warnings"`
	AmazonSearch          string       `json:"amazon_search"`
	HealthierAlternative  *Alternative `json:"healthier_alternative"`
}

// joinValues 以 | 串接列舉值，供提示詞使用
func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}
