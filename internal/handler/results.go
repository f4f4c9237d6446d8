package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/scoring"
)

type submission struct {
	InstrumentID model.InstrumentID `json:"instrument_id"`
	Form         string             `json:"form"`
	Answers      model.RawAnswers   `json:"answers"`
}

type batchRequest struct {
	Submissions []submission `json:"submissions"`
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	if _, err := h.store.GetSubject(subjectID); err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := h.store.ListResults(subjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	var req submission
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.store.GetSubject(subjectID); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.normalize(subjectID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err = h.store.InsertResult(rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.reports.Invalidate(subjectID)

	slog.Info("stored result", "subject_id", subjectID, "instrument", rec.InstrumentID, "variant", rec.Variant)
	writeJSON(w, http.StatusCreated, rec)
}

// handleSubmitBatch stores the answers of several instruments at once. Every
// submission is validated before anything is written; one invalid submission
// rejects the whole batch.
func (h *Handler) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Submissions) == 0 {
		writeError(w, r, &scoring.ValidationError{Reason: "no submissions"})
		return
	}
	if _, err := h.store.GetSubject(subjectID); err != nil {
		writeError(w, r, err)
		return
	}

	recs := make([]model.Record, 0, len(req.Submissions))
	for _, sub := range req.Submissions {
		rec, err := h.normalize(subjectID, sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		recs = append(recs, rec)
	}
	recs, err := h.store.InsertResults(recs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.reports.Invalidate(subjectID)

	slog.Info("stored result batch", "subject_id", subjectID, "count", len(recs))
	writeJSON(w, http.StatusCreated, recs)
}

// normalize resolves the submitted instrument form and validates its answers.
func (h *Handler) normalize(subjectID string, sub submission) (model.Record, error) {
	form := h.formFor(sub.InstrumentID, sub.Form)
	inst, err := h.catalog.Instrument(sub.InstrumentID, form)
	if errors.Is(err, catalog.ErrUnknownInstrument) {
		return model.Record{}, &scoring.ValidationError{
			InstrumentID: sub.InstrumentID,
			Reason:       fmt.Sprintf("unknown instrument form %q", form),
		}
	}
	if err != nil {
		return model.Record{}, err
	}
	rec, err := scoring.Normalize(subjectID, inst, sub.Answers, h.now().UTC())
	h.observer.RecordSubmission(inst.ID, inst.Form.Variant(), err)
	return rec, err
}
