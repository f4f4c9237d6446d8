package scoring

import (
	"time"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
)

// LiteConfidenceNote is attached to reports built from a short personality form.
const LiteConfidenceNote = "This profile is based on the short personality form. Take the full form for a more reliable result."

// Catalog is the part of the instrument catalog report assembly needs.
type Catalog interface {
	FactorSource
	Mandatory() []model.InstrumentID
}

// BuildReport runs resolution, aggregation, risk classification and trait
// blending over a subject's history. It never fails: missing instruments
// only reduce what the report contains.
func BuildReport(cat Catalog, subjectID string, records []model.Record, now time.Time) model.Report {
	resolved := Resolve(records)

	profile := make(Profile, len(resolved))
	instruments := make([]model.InstrumentReport, 0, len(model.InstrumentIDs))
	for _, id := range model.InstrumentIDs {
		res, ok := resolved[id]
		if !ok {
			instruments = append(instruments, model.InstrumentReport{
				InstrumentID: id,
				State:        model.StateNotStarted,
			})
			continue
		}
		subs := AggregateRecord(cat, res.Record)
		profile[id] = profileEntry(res.Record, subs)
		completed := res.Record.CompletedAt
		instruments = append(instruments, model.InstrumentReport{
			InstrumentID: id,
			State:        res.State,
			Variant:      recordVariant(res.Record),
			CompletedAt:  &completed,
			SubScores:    subs,
		})
	}

	traits := BlendTraits(profile)
	r := model.Report{
		SubjectID:   subjectID,
		Archetype:   SelectArchetype(traits),
		Traits:      traits,
		Instruments: instruments,
		GeneratedAt: now,
	}

	if p, ok := resolved[model.Personality]; ok {
		hh := profile[model.Personality].Average(catalog.FactorHonestyHumility)
		r.HonestyHumility = hh
		r.RiskLevel = ClassifyRisk(hh)
		r.IsFullVersion = p.IsFull()
		if !r.IsFullVersion {
			r.ConfidenceNote = LiteConfidenceNote
		}
	}

	for _, id := range cat.Mandatory() {
		if _, ok := resolved[id]; !ok {
			r.MissingMandatory = append(r.MissingMandatory, id)
		}
	}
	return r
}

// PersonalityAssessment is the decision-support view of a subject's
// authoritative personality record.
type PersonalityAssessment struct {
	RiskLevel       model.RiskLevel
	HonestyHumility float64
	IsFull          bool
}

// AssessPersonality classifies a subject's authoritative personality record.
// ok is false when the subject has none.
func AssessPersonality(src FactorSource, records []model.Record) (a PersonalityAssessment, ok bool) {
	res, found := Resolve(records)[model.Personality]
	if !found {
		return a, false
	}
	hh := Index(AggregateRecord(src, res.Record)).Average(catalog.FactorHonestyHumility)
	return PersonalityAssessment{
		RiskLevel:       ClassifyRisk(hh),
		HonestyHumility: hh,
		IsFull:          res.IsFull(),
	}, true
}

// PersonalityRisk classifies the risk level of a subject's authoritative
// personality record. ok is false when the subject has none.
func PersonalityRisk(src FactorSource, records []model.Record) (level model.RiskLevel, ok bool) {
	a, ok := AssessPersonality(src, records)
	return a.RiskLevel, ok
}
