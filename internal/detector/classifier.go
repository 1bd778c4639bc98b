package detector

// Rule is one threshold predicate of the heuristic classifier. When Match
// fires, one of Candidates is picked uniformly at random.
type Rule struct {
	Name       string
	Match      func(FeatureVector) bool
	Candidates []string
}

// Rules is evaluated in order; the first matching rule decides the label.
var Rules = []Rule{
	{
		Name: "brown-textured",
		Match: func(f FeatureVector) bool {
			return f[SlotBrown] > 0.15 && f[SlotGradientStd] > 0.2
		},
		Candidates: []string{"Apple_Black_rot", "Apple_Apple_scab"},
	},
	{
		Name:       "yellow",
		Match:      func(f FeatureVector) bool { return f[SlotYellow] > 0.2 },
		Candidates: []string{"Tomato_Early_blight"},
	},
	{
		Name:       "white-powder",
		Match:      func(f FeatureVector) bool { return f[SlotWhite] > 0.1 },
		Candidates: []string{"Cherry_Powdery_mildew"},
	},
	{
		Name:       "black",
		Match:      func(f FeatureVector) bool { return f[SlotBlack] > 0.12 },
		Candidates: []string{"Tomato_Late_blight"},
	},
	{
		Name: "healthy",
		Match: func(f FeatureVector) bool {
			return f.IndicatorMean() < 0.1 && f[SlotMeanHue] > 0.4
		},
		Candidates: HealthyLabels(),
	},
}

// Classify maps a feature vector onto a catalog label. It always returns a
// label: when no rule fires the label is drawn uniformly from the catalog.
// The returned rule name is "random" in that case.
func Classify(f FeatureVector, rng Random) (label, rule string) {
	for _, r := range Rules {
		if r.Match(f) {
			return pick(r.Candidates, rng), r.Name
		}
	}
	return pick(Catalog, rng), "random"
}

// HeuristicConfidence draws a confidence for a classifier result.
func HeuristicConfidence(label string, rng Random) float64 {
	if IsHealthy(label) {
		return uniform(rng, 0.85, 0.97)
	}
	return uniform(rng, 0.70, 0.92)
}

func pick(labels []string, rng Random) string {
	if len(labels) == 1 {
		return labels[0]
	}
	return labels[rng.IntN(len(labels))]
}
