package scoring

import (
	"github.com/kagehq/kage/internal/model"
)

// Aggregate sums the answers selected by q. The denominator is the number of
// answers actually present, so short and full forms share one code path. A
// factor with no answers has an average of 0.
func Aggregate(scores map[string]int, q model.FactorQuery) model.SubScore {
	s := model.SubScore{Factor: q.Factor, Label: q.Label}
	for id, v := range scores {
		if !q.Selector.Match(id) {
			continue
		}
		s.Sum += v
		s.Count++
	}
	if s.Count > 0 {
		s.Average = float64(s.Sum) / float64(s.Count)
	}
	s.MaxPossible = s.Count * model.MaxScale
	return s
}

// FactorSource supplies the factor table for an instrument variant.
type FactorSource interface {
	Factors(id model.InstrumentID, v model.Variant) []model.FactorQuery
}

// AggregateRecord computes every factor of a record using the table for the
// record's own variant tag.
func AggregateRecord(src FactorSource, rec model.Record) []model.SubScore {
	factors := src.Factors(rec.InstrumentID, recordVariant(rec))
	out := make([]model.SubScore, 0, len(factors))
	for _, f := range factors {
		out = append(out, Aggregate(rec.Answers.Scores, f))
	}
	return out
}

// SubScores indexes sub-scores by factor code.
type SubScores map[string]model.SubScore

// Index builds a SubScores map.
func Index(list []model.SubScore) SubScores {
	m := make(SubScores, len(list))
	for _, s := range list {
		m[s.Factor] = s
	}
	return m
}

// Average returns the factor average, or 0 when the factor is absent.
func (s SubScores) Average(factor string) float64 {
	return s[factor].Average
}

// Has reports whether the factor has at least one contributing answer.
func (s SubScores) Has(factor string) bool {
	return s[factor].Count > 0
}

func recordVariant(rec model.Record) model.Variant {
	if rec.Variant != "" {
		return rec.Variant
	}
	return rec.Answers.Meta.Variant
}
