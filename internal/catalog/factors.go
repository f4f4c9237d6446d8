package catalog

import "github.com/kagehq/kage/internal/model"

// Factor codes. Labels match the category strings used in the instrument files.
const (
	FactorHonestyHumility   = "honesty-humility"
	FactorEmotionality      = "emotionality"
	FactorExtraversion      = "extraversion"
	FactorAgreeableness     = "agreeableness"
	FactorConscientiousness = "conscientiousness"
	FactorOpenness          = "openness"

	FactorAdaption   = "adaption"
	FactorInnovation = "innovation"

	FactorObject  = "object"
	FactorSpatial = "spatial"
	FactorVerbal  = "verbal"

	FactorInattention   = "inattention"
	FactorHyperactivity = "hyperactivity"

	FactorSocial = "social-communication"

	FactorSensitivity = "sensitivity"
	FactorComposure   = "composure"
	FactorAesthetic   = "aesthetic"
)

type tableKey struct {
	id      model.InstrumentID
	variant model.Variant
}

var personalityFactors = []model.FactorQuery{
	{Factor: FactorHonestyHumility, Label: "Honesty-Humility", Selector: model.ByPrefix("h")},
	{Factor: FactorEmotionality, Label: "Emotionality", Selector: model.ByPrefix("e")},
	{Factor: FactorExtraversion, Label: "Extraversion", Selector: model.ByPrefix("x")},
	{Factor: FactorAgreeableness, Label: "Agreeableness", Selector: model.ByPrefix("a")},
	{Factor: FactorConscientiousness, Label: "Conscientiousness", Selector: model.ByPrefix("c")},
	{Factor: FactorOpenness, Label: "Openness", Selector: model.ByPrefix("o")},
}

var cognitiveFactors = []model.FactorQuery{
	{Factor: FactorObject, Label: "Object", Selector: model.ByPrefix("o")},
	{Factor: FactorSpatial, Label: "Spatial", Selector: model.ByPrefix("s")},
	{Factor: FactorVerbal, Label: "Verbal", Selector: model.ByPrefix("v")},
}

// factorTables maps each instrument variant to its factor selectors. The
// problem-solving forms reuse the k<n> ids for different factors, so they
// are selected by numeric range rather than by prefix.
var factorTables = map[tableKey][]model.FactorQuery{
	{model.Personality, model.VariantLite}: personalityFactors,
	{model.Personality, model.VariantFull}: personalityFactors,

	{model.ProblemSolving, model.VariantLite}: {
		{Factor: FactorAdaption, Label: "Adaption", Selector: model.ByRange("k", 1, 3)},
		{Factor: FactorInnovation, Label: "Innovation", Selector: model.ByRange("k", 4, 6)},
	},
	{model.ProblemSolving, model.VariantFull}: {
		{Factor: FactorInnovation, Label: "Innovation", Selector: model.ByRange("k", 1, 13)},
		{Factor: FactorAdaption, Label: "Adaption", Selector: model.ByRange("k", 14, 32)},
	},

	{model.CognitiveStyle, model.VariantLite}: cognitiveFactors,
	{model.CognitiveStyle, model.VariantFull}: cognitiveFactors,

	{model.Attention, model.VariantFull}: {
		{Factor: FactorInattention, Label: "Inattention", Selector: model.ByRange("as", 1, 3)},
		{Factor: FactorHyperactivity, Label: "Hyperactivity", Selector: model.ByRange("as", 4, 6)},
	},

	{model.SocialCommunication, model.VariantFull}: {
		{Factor: FactorSocial, Label: "Social Communication", Selector: model.ByPrefix("aq")},
	},

	{model.Sensory, model.VariantFull}: {
		{Factor: FactorSensitivity, Label: "Sensitivity", Selector: model.ByRange("sn", 1, 3)},
		{Factor: FactorComposure, Label: "Composure", Selector: model.ByRange("sn", 4, 4)},
		{Factor: FactorAesthetic, Label: "Aesthetic", Selector: model.ByRange("sn", 5, 6)},
	},
}

// factorsFor returns the table for a variant, falling back to the other
// variant for instruments published in a single form.
func factorsFor(id model.InstrumentID, v model.Variant) ([]model.FactorQuery, bool) {
	if t, ok := factorTables[tableKey{id, v}]; ok {
		return t, true
	}
	other := model.VariantFull
	if v == model.VariantFull {
		other = model.VariantLite
	}
	t, ok := factorTables[tableKey{id, other}]
	return t, ok
}
