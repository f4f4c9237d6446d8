// Package scoring turns raw Likert answers into normalized result records,
// factor sub-scores, a risk level and an integrated trait profile.
//
// Every function in this package is pure: no I/O, no clocks, no shared state.
// Callers supply timestamps and persist whatever they need.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kagehq/kage/internal/model"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports why a submission was rejected.
type ValidationError struct {
	InstrumentID model.InstrumentID `json:"instrument_id"`
	Missing      []string           `json:"missing,omitempty"`
	OutOfRange   []string           `json:"out_of_range,omitempty"`
	Unknown      []string           `json:"unknown,omitempty"`
	Reason       string             `json:"reason,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing answers: "+strings.Join(e.Missing, ", "))
	}
	if len(e.OutOfRange) > 0 {
		parts = append(parts, fmt.Sprintf("answers outside 1..%d: %s", model.MaxScale, strings.Join(e.OutOfRange, ", ")))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown questions: "+strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("%s: %s", e.InstrumentID, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) empty() bool {
	return e.Reason == "" && len(e.Missing) == 0 && len(e.OutOfRange) == 0 && len(e.Unknown) == 0
}

// Reverse inverts a raw answer on the 1..MaxScale scale.
func Reverse(raw int) int {
	return model.MaxScale + 1 - raw
}

// NormalizeAnswer applies the question's scoring direction to a raw answer.
func NormalizeAnswer(q model.Question, raw int) int {
	if q.Scoring == model.ScoringReverse {
		return Reverse(raw)
	}
	return raw
}

// Normalize validates a complete submission and produces the record to store.
// Partial submissions are rejected with a *ValidationError; nothing is scored.
func Normalize(subjectID string, inst *model.Instrument, raw model.RawAnswers, now time.Time) (model.Record, error) {
	verr := &ValidationError{InstrumentID: inst.ID}
	if strings.TrimSpace(subjectID) == "" {
		verr.Reason = "subject id is required"
	}

	known := make(map[string]bool, len(inst.Questions))
	scores := make(map[string]int, len(inst.Questions))
	for _, q := range inst.Questions {
		known[q.ID] = true
		r, ok := raw[q.ID]
		if !ok {
			verr.Missing = append(verr.Missing, q.ID)
			continue
		}
		if r < 1 || r > model.MaxScale {
			verr.OutOfRange = append(verr.OutOfRange, q.ID)
			continue
		}
		scores[q.ID] = NormalizeAnswer(q, r)
	}
	for id := range raw {
		if !known[id] {
			verr.Unknown = append(verr.Unknown, id)
		}
	}
	sort.Strings(verr.Unknown)

	if !verr.empty() {
		return model.Record{}, verr
	}

	variant := inst.Form.Variant()
	return model.Record{
		SubjectID:    subjectID,
		InstrumentID: inst.ID,
		Variant:      variant,
		Answers: model.ResultData{
			Scores:  scores,
			Version: model.ResultVersion,
			Meta: model.Meta{
				Variant:       variant,
				QuestionCount: len(scores),
				Timestamp:     now,
			},
		},
		CompletedAt: now,
	}, nil
}
