package scoring

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func mustInstrument(t *testing.T, id model.InstrumentID, form model.Form) *model.Instrument {
	t.Helper()
	inst, err := catalog.MustLoad().Instrument(id, form)
	require.NoError(t, err)
	return inst
}

// answerAll answers every question of inst with raw.
func answerAll(inst *model.Instrument, raw int) model.RawAnswers {
	a := make(model.RawAnswers, len(inst.Questions))
	for _, q := range inst.Questions {
		a[q.ID] = raw
	}
	return a
}

func TestReverseInvolution(t *testing.T) {
	for r := 1; r <= model.MaxScale; r++ {
		assert.Equal(t, r, Reverse(Reverse(r)))
		assert.GreaterOrEqual(t, Reverse(r), 1)
		assert.LessOrEqual(t, Reverse(r), model.MaxScale)
	}
	assert.Equal(t, 5, Reverse(1))
	assert.Equal(t, 3, Reverse(3))
}

func TestNormalize(t *testing.T) {
	inst := mustInstrument(t, model.Personality, model.FormShort)

	rec, err := Normalize("s1", inst, answerAll(inst, 4), testNow)
	require.NoError(t, err)

	assert.Equal(t, "s1", rec.SubjectID)
	assert.Equal(t, model.Personality, rec.InstrumentID)
	assert.Equal(t, model.VariantLite, rec.Variant)
	assert.Equal(t, testNow, rec.CompletedAt)
	assert.Equal(t, model.ResultVersion, rec.Answers.Version)
	assert.Equal(t, model.VariantLite, rec.Answers.Meta.Variant)
	assert.Equal(t, 12, rec.Answers.Meta.QuestionCount)
	assert.Len(t, rec.Answers.Scores, rec.Answers.Meta.QuestionCount)

	assert.Equal(t, 4, rec.Answers.Scores["h1"], "normal item keeps raw value")
	assert.Equal(t, 2, rec.Answers.Scores["e2"], "reverse item is inverted")
}

func TestNormalizeFullForm(t *testing.T) {
	inst := mustInstrument(t, model.Personality, model.FormFull)
	rec, err := Normalize("s1", inst, answerAll(inst, 3), testNow)
	require.NoError(t, err)
	assert.Equal(t, model.VariantFull, rec.Variant)
	assert.Equal(t, 66, rec.Answers.Meta.QuestionCount)
}

func TestNormalizeRejects(t *testing.T) {
	inst := mustInstrument(t, model.Personality, model.FormShort)

	tests := []struct {
		name    string
		subject string
		mutate  func(model.RawAnswers)
		check   func(t *testing.T, verr *ValidationError)
	}{
		{
			name:    "missing answer",
			subject: "s1",
			mutate:  func(a model.RawAnswers) { delete(a, "h1"); delete(a, "o2") },
			check: func(t *testing.T, verr *ValidationError) {
				assert.Equal(t, []string{"h1", "o2"}, verr.Missing)
			},
		},
		{
			name:    "out of range",
			subject: "s1",
			mutate:  func(a model.RawAnswers) { a["x1"] = 0; a["x2"] = 6 },
			check: func(t *testing.T, verr *ValidationError) {
				assert.Equal(t, []string{"x1", "x2"}, verr.OutOfRange)
			},
		},
		{
			name:    "unknown question",
			subject: "s1",
			mutate:  func(a model.RawAnswers) { a["z9"] = 3 },
			check: func(t *testing.T, verr *ValidationError) {
				assert.Equal(t, []string{"z9"}, verr.Unknown)
			},
		},
		{
			name:    "empty subject",
			subject: " ",
			mutate:  func(model.RawAnswers) {},
			check: func(t *testing.T, verr *ValidationError) {
				assert.NotEmpty(t, verr.Reason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := answerAll(inst, 3)
			tt.mutate(a)
			_, err := Normalize(tt.subject, inst, a, testNow)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, model.Personality, verr.InstrumentID)
			tt.check(t, verr)
		})
	}
}

func TestAggregate(t *testing.T) {
	scores := map[string]int{"h1": 4, "h2": 2, "e1": 5, "k1": 1, "k2": 2, "k10": 5}

	t.Run("prefix", func(t *testing.T) {
		s := Aggregate(scores, model.FactorQuery{Factor: "hh", Label: "HH", Selector: model.ByPrefix("h")})
		assert.Equal(t, 6, s.Sum)
		assert.Equal(t, 2, s.Count)
		assert.InDelta(t, 3.0, s.Average, 1e-9)
		assert.Equal(t, 10, s.MaxPossible)
	})

	t.Run("range excludes numerically outside keys", func(t *testing.T) {
		s := Aggregate(scores, model.FactorQuery{Factor: "ad", Selector: model.ByRange("k", 1, 3)})
		assert.Equal(t, 3, s.Sum)
		assert.Equal(t, 2, s.Count)
		assert.InDelta(t, 1.5, s.Average, 1e-9)
	})

	t.Run("zero count", func(t *testing.T) {
		s := Aggregate(scores, model.FactorQuery{Factor: "none", Selector: model.ByPrefix("q")})
		assert.Equal(t, 0, s.Count)
		assert.Equal(t, 0.0, s.Average)
		assert.Equal(t, 0, s.MaxPossible)
	})

	t.Run("nil scores", func(t *testing.T) {
		s := Aggregate(nil, model.FactorQuery{Factor: "none", Selector: model.ByPrefix("h")})
		assert.Equal(t, 0.0, s.Average)
	})
}

func TestDenominatorMatchesForm(t *testing.T) {
	cat := catalog.MustLoad()
	for _, form := range []model.Form{model.FormShort, model.FormFull} {
		inst := mustInstrument(t, model.Personality, form)
		rec, err := Normalize("s1", inst, answerAll(inst, 3), testNow)
		require.NoError(t, err)

		total := 0
		for _, s := range AggregateRecord(cat, rec) {
			assert.Equal(t, s.Count*model.MaxScale, s.MaxPossible)
			assert.InDelta(t, 3.0, s.Average, 1e-9)
			total += s.Count
		}
		assert.Equal(t, len(inst.Questions), total, "form %s", form)
	}
}

func TestAggregateRecordUsesVariantTable(t *testing.T) {
	cat := catalog.MustLoad()

	lite := model.Record{
		InstrumentID: model.ProblemSolving,
		Variant:      model.VariantLite,
		Answers: model.ResultData{Scores: map[string]int{
			"k1": 1, "k2": 1, "k3": 1, "k4": 5, "k5": 5, "k6": 5,
		}},
	}
	subs := Index(AggregateRecord(cat, lite))
	assert.InDelta(t, 1.0, subs.Average(catalog.FactorAdaption), 1e-9)
	assert.InDelta(t, 5.0, subs.Average(catalog.FactorInnovation), 1e-9)

	scores := make(map[string]int)
	for i := 1; i <= 32; i++ {
		v := 2
		if i <= 13 {
			v = 4
		}
		scores["k"+strconv.Itoa(i)] = v
	}
	full := model.Record{InstrumentID: model.ProblemSolving, Variant: model.VariantFull, Answers: model.ResultData{Scores: scores}}
	subs = Index(AggregateRecord(cat, full))
	assert.InDelta(t, 4.0, subs.Average(catalog.FactorInnovation), 1e-9)
	assert.Equal(t, 13, subs[catalog.FactorInnovation].Count)
	assert.InDelta(t, 2.0, subs.Average(catalog.FactorAdaption), 1e-9)
	assert.Equal(t, 19, subs[catalog.FactorAdaption].Count)
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		avg  float64
		want model.RiskLevel
	}{
		{1.0, model.RiskHigh},
		{2.5, model.RiskHigh},
		{2.51, model.RiskMedium},
		{3.0, model.RiskMedium},
		{3.59, model.RiskMedium},
		{3.6, model.RiskLow},
		{5.0, model.RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRisk(tt.avg), "avg %v", tt.avg)
	}
}
