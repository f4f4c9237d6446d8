package scoring

import (
	"github.com/kagehq/kage/internal/model"
)

// Resolution is the authoritative record of one instrument for a subject.
type Resolution struct {
	Record model.Record
	State  model.CompletionState
}

// IsFull reports whether the authoritative record came from the full form.
func (r Resolution) IsFull() bool {
	return recordVariant(r.Record) == model.VariantFull
}

// Resolve picks one authoritative record per instrument from a subject's
// history. A full record always beats a lite one regardless of completion
// time; among records of the same variant the latest completion wins, and
// equal timestamps fall back to the higher record id. Records of unknown
// instruments are ignored.
func Resolve(records []model.Record) map[model.InstrumentID]Resolution {
	out := make(map[model.InstrumentID]Resolution)
	for _, rec := range records {
		if !rec.InstrumentID.Valid() {
			continue
		}
		cur, ok := out[rec.InstrumentID]
		state := model.StateNotStarted
		if ok {
			state = cur.State
		}
		state = state.Advance(recordVariant(rec))
		if !ok || supersedes(rec, cur.Record) {
			cur.Record = rec
		}
		cur.State = state
		out[rec.InstrumentID] = cur
	}
	return out
}

func supersedes(next, cur model.Record) bool {
	nv, cv := recordVariant(next), recordVariant(cur)
	if nv != cv {
		return nv == model.VariantFull
	}
	if !next.CompletedAt.Equal(cur.CompletedAt) {
		return next.CompletedAt.After(cur.CompletedAt)
	}
	return next.ID > cur.ID
}
