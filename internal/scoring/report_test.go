package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
)

func rec(id int64, inst model.InstrumentID, v model.Variant, at time.Time) model.Record {
	return model.Record{ID: id, SubjectID: "s1", InstrumentID: inst, Variant: v, CompletedAt: at}
}

func TestResolve(t *testing.T) {
	t0 := testNow
	t1 := testNow.Add(time.Hour)

	t.Run("full beats later lite", func(t *testing.T) {
		got := Resolve([]model.Record{
			rec(1, model.Personality, model.VariantFull, t0),
			rec(2, model.Personality, model.VariantLite, t1),
		})
		r := got[model.Personality]
		assert.Equal(t, int64(1), r.Record.ID)
		assert.True(t, r.IsFull())
		assert.Equal(t, model.StateFullCompleted, r.State)
	})

	t.Run("latest of same variant", func(t *testing.T) {
		got := Resolve([]model.Record{
			rec(1, model.Personality, model.VariantLite, t1),
			rec(2, model.Personality, model.VariantLite, t0),
		})
		assert.Equal(t, int64(1), got[model.Personality].Record.ID)
		assert.Equal(t, model.StateLiteCompleted, got[model.Personality].State)
	})

	t.Run("timestamp tie goes to higher id", func(t *testing.T) {
		got := Resolve([]model.Record{
			rec(7, model.ProblemSolving, model.VariantFull, t0),
			rec(3, model.ProblemSolving, model.VariantFull, t0),
		})
		assert.Equal(t, int64(7), got[model.ProblemSolving].Record.ID)
	})

	t.Run("order independent", func(t *testing.T) {
		a := Resolve([]model.Record{
			rec(1, model.Personality, model.VariantLite, t1),
			rec(2, model.Personality, model.VariantFull, t0),
		})
		b := Resolve([]model.Record{
			rec(2, model.Personality, model.VariantFull, t0),
			rec(1, model.Personality, model.VariantLite, t1),
		})
		assert.Equal(t, a, b)
	})

	t.Run("unknown instruments ignored", func(t *testing.T) {
		got := Resolve([]model.Record{rec(1, "tarot", model.VariantFull, t0)})
		assert.Empty(t, got)
	})
}

func TestStateAdvance(t *testing.T) {
	s := model.StateNotStarted
	s = s.Advance(model.VariantLite)
	assert.Equal(t, model.StateLiteCompleted, s)
	s = s.Advance(model.VariantFull)
	assert.Equal(t, model.StateFullCompleted, s)
	s = s.Advance(model.VariantLite)
	assert.Equal(t, model.StateFullCompleted, s, "full completion is terminal")
}

func personalityOnly(avg float64) Profile {
	subs := SubScores{}
	for _, f := range []string{
		catalog.FactorHonestyHumility, catalog.FactorEmotionality, catalog.FactorExtraversion,
		catalog.FactorAgreeableness, catalog.FactorConscientiousness, catalog.FactorOpenness,
	} {
		subs[f] = model.SubScore{Factor: f, Average: avg, Count: 2}
	}
	return Profile{model.Personality: subs}
}

func traitValue(t *testing.T, traits []model.TraitValue, key string) float64 {
	t.Helper()
	for _, tv := range traits {
		if tv.Key == key {
			return tv.Value
		}
	}
	t.Fatalf("trait %s not found", key)
	return 0
}

func TestBlendTraitsFallback(t *testing.T) {
	traits := BlendTraits(personalityOnly(4.0))
	require.Len(t, traits, 6)
	for _, tv := range traits {
		assert.InDelta(t, 4.0, tv.Value, 1e-9, tv.Key)
	}
	assert.Equal(t, TraitKeys(), []string{
		TraitInnovation, TraitExecution, TraitDialogue, TraitEmpathy, TraitLogic, TraitStability,
	})
}

func TestBlendTraitsPairs(t *testing.T) {
	p := personalityOnly(4.0)
	p[model.ProblemSolving] = SubScores{
		catalog.FactorInnovation: {Average: 2.0, Count: 3},
		// adaption absent: execution falls back to conscientiousness alone
	}
	p[model.Sensory] = SubScores{
		catalog.FactorComposure: {Average: 0, Count: 0},
		catalog.FactorAesthetic: {Average: 1.0, Count: 2},
		factorAttunement:        {Average: 5.0, Count: 1},
	}

	traits := BlendTraits(p)
	assert.InDelta(t, 3.0, traitValue(t, traits, TraitInnovation), 1e-9)
	assert.InDelta(t, 4.0, traitValue(t, traits, TraitExecution), 1e-9)
	assert.InDelta(t, 4.5, traitValue(t, traits, TraitEmpathy), 1e-9)
	assert.InDelta(t, 4.0, traitValue(t, traits, TraitStability), 1e-9, "zero-count factor is not averaged in")
}

func TestBlendTraitsWithoutPersonality(t *testing.T) {
	traits := BlendTraits(Profile{model.Sensory: SubScores{catalog.FactorAesthetic: {Average: 5, Count: 2}}})
	require.Len(t, traits, 6)
	for _, tv := range traits {
		assert.Zero(t, tv.Value)
	}
	assert.Equal(t, ArchetypeGeneralist, SelectArchetype(traits).Key)
}

func TestSelectArchetype(t *testing.T) {
	traits := []model.TraitValue{
		{Key: TraitInnovation, Value: 3},
		{Key: TraitExecution, Value: 4},
		{Key: TraitDialogue, Value: 2},
		{Key: TraitEmpathy, Value: 4},
		{Key: TraitLogic, Value: 1},
		{Key: TraitStability, Value: 4},
	}
	a := SelectArchetype(traits)
	assert.Equal(t, "executor", a.Key, "first maximum wins")
	assert.Equal(t, "blue", a.ColorTheme)

	assert.Equal(t, ArchetypeGeneralist, SelectArchetype(nil).Key)
}

func TestBuildReportScenarioA(t *testing.T) {
	cat := catalog.MustLoad()
	inst := mustInstrument(t, model.Personality, model.FormShort)

	r, err := Normalize("s1", inst, answerAll(inst, 3), testNow)
	require.NoError(t, err)
	r.ID = 1
	for _, v := range r.Answers.Scores {
		assert.Equal(t, 3, v)
	}

	report := BuildReport(cat, "s1", []model.Record{r}, testNow)
	assert.Equal(t, model.RiskMedium, report.RiskLevel)
	assert.InDelta(t, 3.0, report.HonestyHumility, 1e-9)
	assert.False(t, report.IsFullVersion)
	assert.Equal(t, LiteConfidenceNote, report.ConfidenceNote)

	pr := report.Instruments[0]
	assert.Equal(t, model.Personality, pr.InstrumentID)
	require.Len(t, pr.SubScores, 6)
	for _, s := range pr.SubScores {
		assert.InDelta(t, 3.0, s.Average, 1e-9, s.Factor)
		assert.Equal(t, 2, s.Count)
		assert.Equal(t, 10, s.MaxPossible)
	}
}

func TestBuildReportScenarioB(t *testing.T) {
	cat := catalog.MustLoad()
	inst := mustInstrument(t, model.Personality, model.FormShort)

	a := answerAll(inst, 4)
	a["h1"], a["h2"] = 1, 1
	r, err := Normalize("s1", inst, a, testNow)
	require.NoError(t, err)

	report := BuildReport(cat, "s1", []model.Record{r}, testNow)
	assert.InDelta(t, 1.0, report.HonestyHumility, 1e-9)
	assert.Equal(t, model.RiskHigh, report.RiskLevel)

	risk, ok := PersonalityRisk(cat, []model.Record{r})
	assert.True(t, ok)
	assert.Equal(t, model.RiskHigh, risk)
}

func TestBuildReportScenarioC(t *testing.T) {
	cat := catalog.MustLoad()
	inst := mustInstrument(t, model.Personality, model.FormFull)

	a := answerAll(inst, 3)
	for _, q := range inst.Questions {
		if q.Category == "Openness" {
			a[q.ID] = 5
			if q.Scoring == model.ScoringReverse {
				a[q.ID] = 1
			}
		}
	}
	r, err := Normalize("s1", inst, a, testNow)
	require.NoError(t, err)

	report := BuildReport(cat, "s1", []model.Record{r}, testNow)
	require.Len(t, report.Traits, 6)
	assert.True(t, report.IsFullVersion)
	assert.Empty(t, report.ConfidenceNote)
	assert.InDelta(t, 5.0, traitValue(t, report.Traits, TraitInnovation), 1e-9)
	assert.InDelta(t, 3.0, traitValue(t, report.Traits, TraitDialogue), 1e-9)
	assert.Equal(t, "innovator", report.Archetype.Key)
	assert.Equal(t, []model.InstrumentID{model.ProblemSolving, model.CognitiveStyle}, report.MissingMandatory)

	for _, ir := range report.Instruments[1:] {
		assert.Equal(t, model.StateNotStarted, ir.State, ir.InstrumentID)
		assert.Nil(t, ir.CompletedAt)
	}
}

// scoredAll answers every question of inst so that each normalized score is score.
func scoredAll(inst *model.Instrument, score int) model.RawAnswers {
	a := make(model.RawAnswers, len(inst.Questions))
	for _, q := range inst.Questions {
		a[q.ID] = score
		if q.Scoring == model.ScoringReverse {
			a[q.ID] = Reverse(score)
		}
	}
	return a
}

func TestBuildReportEmpathyReadsSn6(t *testing.T) {
	cat := catalog.MustLoad()
	pinst := mustInstrument(t, model.Personality, model.FormShort)
	p, err := Normalize("s1", pinst, scoredAll(pinst, 4), testNow)
	require.NoError(t, err)
	p.ID = 1

	sinst := mustInstrument(t, model.Sensory, model.FormFull)
	a := scoredAll(sinst, 3)
	a["sn5"], a["sn6"] = 1, 5
	sens, err := Normalize("s1", sinst, a, testNow)
	require.NoError(t, err)
	sens.ID = 2

	report := BuildReport(cat, "s1", []model.Record{p, sens}, testNow)
	assert.InDelta(t, 4.5, traitValue(t, report.Traits, TraitEmpathy), 1e-9)
	assert.InDelta(t, 3.5, traitValue(t, report.Traits, TraitStability), 1e-9)

	sr := report.Instruments[len(report.Instruments)-1]
	require.Equal(t, model.Sensory, sr.InstrumentID)
	for _, sub := range sr.SubScores {
		assert.NotEqual(t, factorAttunement, sub.Factor, "blend-only factor is not displayed")
		if sub.Factor == catalog.FactorAesthetic {
			assert.InDelta(t, 3.0, sub.Average, 1e-9)
		}
	}
}

func TestBuildReportEmptyHistory(t *testing.T) {
	report := BuildReport(catalog.MustLoad(), "s1", nil, testNow)
	assert.Equal(t, ArchetypeGeneralist, report.Archetype.Key)
	assert.Empty(t, report.RiskLevel)
	assert.Len(t, report.Traits, 6)
	assert.Len(t, report.Instruments, len(model.InstrumentIDs))
	assert.Equal(t, []model.InstrumentID{model.Personality, model.ProblemSolving, model.CognitiveStyle}, report.MissingMandatory)

	_, ok := PersonalityRisk(catalog.MustLoad(), nil)
	assert.False(t, ok)
}
