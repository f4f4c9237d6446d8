package report

import (
	"context"

	"github.com/kagehq/kage/internal/i18n"
	"github.com/kagehq/kage/internal/model"
)

// Localize replaces the user-facing strings of r with translations for the
// localizer in ctx. Strings without a translation keep their English value.
func Localize(ctx context.Context, r *model.Report) {
	if s, ok := i18n.Lookup(ctx, "ArchetypeTitle_"+r.Archetype.Key); ok {
		r.Archetype.Title = s
	}
	if s, ok := i18n.Lookup(ctx, "ArchetypeDesc_"+r.Archetype.Key); ok {
		r.Archetype.Description = s
	}

	traits := make([]model.TraitValue, len(r.Traits))
	copy(traits, r.Traits)
	for i := range traits {
		if s, ok := i18n.Lookup(ctx, "Trait_"+traits[i].Key); ok {
			traits[i].Label = s
		}
	}
	r.Traits = traits

	if r.ConfidenceNote != "" {
		if s, ok := i18n.Lookup(ctx, "LiteConfidenceNote"); ok {
			r.ConfidenceNote = s
		}
	}
	if r.RiskLevel != "" {
		if s, ok := i18n.Lookup(ctx, "Risk_"+string(r.RiskLevel)); ok {
			r.RiskLabel = s
		}
	}
	if n := len(r.MissingMandatory); n > 0 {
		r.MissingNote = i18n.Tp(ctx, "MissingMandatory", n)
	}
}
