package scoring

import (
	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
)

// Profile holds the sub-scores of every instrument a subject has an
// authoritative record for. Missing instruments have no entry.
type Profile map[model.InstrumentID]SubScores

type traitDef struct {
	key         string
	label       string
	base        string // personality factor
	optional    model.InstrumentID
	optionalFac string
}

// Trait keys in their fixed display order.
const (
	TraitInnovation = "innovation"
	TraitExecution  = "execution"
	TraitDialogue   = "dialogue"
	TraitEmpathy    = "empathy"
	TraitLogic      = "logic"
	TraitStability  = "stability"
)

// The pairs are product policy and must not be rebalanced.
var traitTable = []traitDef{
	{TraitInnovation, "Innovation", catalog.FactorOpenness, model.ProblemSolving, catalog.FactorInnovation},
	{TraitExecution, "Execution", catalog.FactorConscientiousness, model.ProblemSolving, catalog.FactorAdaption},
	{TraitDialogue, "Dialogue", catalog.FactorExtraversion, model.SocialCommunication, catalog.FactorSocial},
	{TraitEmpathy, "Empathy", catalog.FactorAgreeableness, model.Sensory, factorAttunement},
	{TraitLogic, "Logic", catalog.FactorConscientiousness, model.CognitiveStyle, catalog.FactorVerbal},
	{TraitStability, "Stability", catalog.FactorEmotionality, model.Sensory, catalog.FactorComposure},
}

// factorAttunement is a blend-only factor: empathy reads the sn6 item on its
// own, while the displayed Aesthetic sub-score averages sn5 and sn6.
const factorAttunement = "attunement"

var blendQueries = map[model.InstrumentID][]model.FactorQuery{
	model.Sensory: {{Factor: factorAttunement, Label: "Attunement", Selector: model.ByRange("sn", 6, 6)}},
}

// profileEntry indexes the sub-scores of a record and adds the blend-only
// factors of its instrument.
func profileEntry(rec model.Record, subs []model.SubScore) SubScores {
	idx := Index(subs)
	for _, q := range blendQueries[rec.InstrumentID] {
		idx[q.Factor] = Aggregate(rec.Answers.Scores, q)
	}
	return idx
}

// TraitKeys returns the trait keys in display order.
func TraitKeys() []string {
	keys := make([]string, len(traitTable))
	for i, t := range traitTable {
		keys[i] = t.key
	}
	return keys
}

// BlendTraits computes the six integrated traits. Each trait averages a
// personality factor with one optional-instrument factor; when the optional
// factor has no answers the personality value is used alone. Without a
// personality record every trait is 0.
func BlendTraits(p Profile) []model.TraitValue {
	out := make([]model.TraitValue, len(traitTable))
	personality, hasPersonality := p[model.Personality]
	for i, t := range traitTable {
		out[i] = model.TraitValue{Key: t.key, Label: t.label}
		if !hasPersonality {
			continue
		}
		v := personality.Average(t.base)
		if opt, ok := p[t.optional]; ok && opt.Has(t.optionalFac) {
			v = (v + opt.Average(t.optionalFac)) / 2
		}
		out[i].Value = v
	}
	return out
}

// ArchetypeGeneralist is the key of the fallback archetype.
const ArchetypeGeneralist = "generalist"

var archetypes = map[string]model.Archetype{
	TraitInnovation: {
		Key:         "innovator",
		Title:       "Creative Innovator",
		ColorTheme:  "purple",
		Description: "Generates new ideas and challenges existing frameworks.",
	},
	TraitExecution: {
		Key:         "executor",
		Title:       "Reliable Executor",
		ColorTheme:  "blue",
		Description: "Delivers plans carefully and follows through to completion.",
	},
	TraitDialogue: {
		Key:         "leader",
		Title:       "Passionate Leader",
		ColorTheme:  "orange",
		Description: "Energizes people and drives the team through dialogue.",
	},
	TraitEmpathy: {
		Key:         "guardian",
		Title:       "Harmonious Guardian",
		ColorTheme:  "emerald",
		Description: "Reads the room and keeps relationships in balance.",
	},
	TraitLogic: {
		Key:         "strategist",
		Title:       "Logical Strategist",
		ColorTheme:  "cyan",
		Description: "Structures problems and reasons toward the best path.",
	},
	TraitStability: {
		Key:         "balancer",
		Title:       "Steady Balancer",
		ColorTheme:  "rose",
		Description: "Stays calm under pressure and steadies the team.",
	},
}

var generalist = model.Archetype{
	Key:         ArchetypeGeneralist,
	Title:       "Versatile Generalist",
	ColorTheme:  "slate",
	Description: "Shows a balanced profile without a single dominant trait.",
}

// SelectArchetype picks the archetype of the highest trait. Ties go to the
// trait that comes first. A vector with no positive value yields the
// generalist fallback.
func SelectArchetype(traits []model.TraitValue) model.Archetype {
	best := -1
	for i, t := range traits {
		if t.Value <= 0 {
			continue
		}
		if best < 0 || t.Value > traits[best].Value {
			best = i
		}
	}
	if best < 0 {
		return generalist
	}
	a, ok := archetypes[traits[best].Key]
	if !ok {
		return generalist
	}
	return a
}
