package analysis

import (
	"net/url"
	"strings"
	"unicode"
)

// referenceEntry 已知添加物的校準等級
type referenceEntry struct {
	Label    string
	Level    SafetyLevel
	Category Category
	Terms    []string
}

// referenceList 用於提示詞校準與結果下限檢查
var referenceList = []referenceEntry{
	{"Red 40", SafetyDanger, CategoryColoring, []string{"red 40", "red no 40", "allura red", "e129"}},
	{"Yellow 5", SafetyDanger, CategoryColoring, []string{"yellow 5", "yellow no 5", "tartrazine", "e102"}},
	{"Yellow 6", SafetyDanger, CategoryColoring, []string{"yellow 6", "yellow no 6", "sunset yellow", "e110"}},
	{"Blue 1", SafetyDanger, CategoryColoring, []string{"blue 1", "blue no 1", "brilliant blue", "e133"}},
	{"sodium nitrite", SafetyDanger, CategoryPreservative, []string{"sodium nitrite", "e250"}},
	{"sodium nitrate", SafetyDanger, CategoryPreservative, []string{"sodium nitrate", "e251"}},
	{"BHA", SafetyDanger, CategoryPreservative, []string{"bha", "butylated hydroxyanisole", "e320"}},
	{"BHT", SafetyDanger, CategoryPreservative, []string{"bht", "butylated hydroxytoluene", "e321"}},
	{"aspartame", SafetyDanger, CategorySweetener, []string{"aspartame", "e951"}},
	{"MSG", SafetyDanger, CategoryFlavoring, []string{"msg", "monosodium glutamate", "e621"}},
	{"partially hydrogenated oils", SafetyDanger, CategoryFatOil, []string{"partially hydrogenated", "hydrogenated oil", "hydrogenated oils"}},
	{"brominated vegetable oil", SafetyDanger, CategoryEmulsifier, []string{"brominated vegetable oil", "bvo"}},
	{"TBHQ", SafetyDanger, CategoryPreservative, []string{"tbhq", "tert butylhydroquinone", "tertiary butylhydroquinone", "e319"}},
	{"titanium dioxide", SafetyDanger, CategoryColoring, []string{"titanium dioxide", "e171"}},

	{"high fructose corn syrup", SafetyCaution, CategorySweetener, []string{"high fructose corn syrup", "hfcs"}},
	{"carrageenan", SafetyCaution, CategoryThickener, []string{"carrageenan", "e407"}},
	{"artificial flavors", SafetyCaution, CategoryFlavoring, []string{"artificial flavor", "artificial flavors", "artificial flavour", "artificial flavours", "artificial flavoring"}},
	{"palm oil", SafetyCaution, CategoryFatOil, []string{"palm oil"}},
	{"caramel color", SafetyCaution, CategoryColoring, []string{"caramel color", "caramel colour", "e150a", "e150c", "e150d"}},
	{"potassium sorbate", SafetyCaution, CategoryPreservative, []string{"potassium sorbate", "e202"}},
	{"sodium benzoate", SafetyCaution, CategoryPreservative, []string{"sodium benzoate", "e211"}},
}

// SourceDomains 允許引用的權威網域
var SourceDomains = []string{
	"fda.gov",
	"who.int",
	"nih.gov",
	"ncbi.nlm.nih.gov",
	"pubmed.ncbi.nlm.nih.gov",
	"efsa.europa.eu",
	"cdc.gov",
}

// normalizeName 小寫並以單一空白取代標點，方便比對
func normalizeName(name string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ReferenceLevel 回傳成分名稱在校準清單中的最低等級與建議分類
func ReferenceLevel(name string) (SafetyLevel, Category, bool) {
	padded := " " + normalizeName(name) + " "
	var (
		level    SafetyLevel
		category Category
		found    bool
	)
	for _, entry := range referenceList {
		for _, term := range entry.Terms {
			if !strings.Contains(padded, " "+term+" ") {
				continue
			}
			if !found || entry.Level.Rank() > level.Rank() {
				level, category = entry.Level, entry.Category
			}
			found = true
			break
		}
	}
	return level, category, found
}

// referenceLabels 指定等級的校準清單名稱
func referenceLabels(level SafetyLevel) []string {
	var labels []string
	for _, entry := range referenceList {
		if entry.Level == level {
			labels = append(labels, entry.Label)
		}
	}
	return labels
}

// AllowedSourceURL 檢查來源網址是否為允許網域下的具體頁面
func AllowedSourceURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	if u.User != nil {
		return false
	}
	if strings.Trim(u.Path, "/") == "" {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, domain := range SourceDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// FilterSources 只保留允許網域的來源，永不補造
func FilterSources(sources []Source) []Source {
	filtered := make([]Source, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		link := strings.TrimSpace(src.URL)
		if !AllowedSourceURL(link) || seen[link] {
			continue
		}
		seen[link] = true
		title := strings.TrimSpace(src.Title)
		if title == "" {
			u, _ := url.Parse(link)
			title = u.Hostname()
		}
		filtered = append(filtered, Source{Title: title, URL: link})
	}
	return filtered
}
