package detector

import (
	"strings"

	"github.com/arbovm/levenshtein"
)

// CatalogVersion identifies the label set and indicator ranges below. Bump it
// whenever a label or range changes so stored results can be traced back.
const CatalogVersion = "2024.1"

// Catalog is the closed, ordered set of disease labels the classifier can emit.
var Catalog = []string{
	"Apple_Apple_scab", "Apple_Black_rot", "Apple_Cedar_apple_rust", "Apple_Healthy",
	"Background_without_leaves", "Blueberry_Healthy", "Cherry_Powdery_mildew", "Cherry_Healthy",
	"Corn_Cercospora_leaf_spot", "Corn_Common_rust", "Corn_Northern_Leaf_Blight", "Corn_Healthy",
	"Grape_Black_rot", "Grape_Esca", "Grape_Leaf_blight", "Grape_Healthy",
	"Orange_Haunglongbing", "Peach_Bacterial_spot", "Peach_Healthy",
	"Pepper_Bacterial_spot", "Pepper_Healthy", "Potato_Early_blight", "Potato_Late_blight", "Potato_Healthy",
	"Raspberry_Healthy", "Soybean_Healthy", "Squash_Powdery_mildew",
	"Strawberry_Leaf_scorch", "Strawberry_Healthy", "Tomato_Bacterial_spot", "Tomato_Early_blight",
	"Tomato_Late_blight", "Tomato_Leaf_Mold", "Tomato_Septoria_leaf_spot",
	"Tomato_Spider_mites", "Tomato_Target_Spot", "Tomato_Mosaic_virus", "Tomato_Yellow_Leaf_Curl_Virus", "Tomato_Healthy",
}

// HSV is a color in the 8-bit OpenCV convention: H in [0,180], S and V in [0,255].
type HSV struct {
	H, S, V uint8
}

// IndicatorRange is a named closed interval over HSV space.
type IndicatorRange struct {
	Name  string `json:"name"`
	Lower HSV    `json:"lower"`
	Upper HSV    `json:"upper"`
}

// Contains reports whether c lies inside the range, bounds included.
func (r IndicatorRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// Indicators lists the disease-indicator color ranges in feature-slot order.
var Indicators = []IndicatorRange{
	{Name: "Brown spots", Lower: HSV{10, 100, 20}, Upper: HSV{20, 255, 200}},
	{Name: "Yellow spots", Lower: HSV{20, 100, 100}, Upper: HSV{30, 255, 255}},
	{Name: "Black spots", Lower: HSV{0, 0, 0}, Upper: HSV{180, 255, 30}},
	{Name: "White powder", Lower: HSV{0, 0, 200}, Upper: HSV{180, 30, 255}},
	{Name: "Rotting", Lower: HSV{0, 50, 10}, Upper: HSV{15, 255, 100}},
}

var catalogIndex = func() map[string]string {
	idx := make(map[string]string, len(Catalog))
	for _, label := range Catalog {
		idx[foldLabel(label)] = label
	}
	return idx
}()

// HealthyLabels returns the catalog entries describing a healthy plant, in catalog order.
func HealthyLabels() []string {
	var healthy []string
	for _, label := range Catalog {
		if IsHealthy(label) {
			healthy = append(healthy, label)
		}
	}
	return healthy
}

// IsHealthy reports whether label names a healthy plant.
func IsHealthy(label string) bool {
	return strings.HasSuffix(label, "_Healthy")
}

// InCatalog reports whether label is an exact catalog member.
func InCatalog(label string) bool {
	for _, l := range Catalog {
		if l == label {
			return true
		}
	}
	return false
}

// CanonicalLabel maps free text such as "tomato late blight" onto a catalog
// label. Exact matches win, ignoring case, spaces and underscores; otherwise the
// nearest label by edit distance is accepted if it is within a quarter of the
// label's length.
func CanonicalLabel(input string) (string, bool) {
	folded := foldLabel(input)
	if folded == "" {
		return "", false
	}
	if label, ok := catalogIndex[folded]; ok {
		return label, true
	}

	best, bestDist := "", -1
	for key, label := range catalogIndex {
		d := levenshtein.Distance(folded, key)
		if bestDist < 0 || d < bestDist || (d == bestDist && label < best) {
			best, bestDist = label, d
		}
	}
	if bestDist >= 0 && bestDist*4 <= len(foldLabel(best)) {
		return best, true
	}
	return "", false
}

func foldLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "", " ", "", "-", "").Replace(s)
	return s
}
