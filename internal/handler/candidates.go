package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/scoring"
)

type createCandidateRequest struct {
	SubjectID    string             `json:"subject_id"`
	CampaignID   *string            `json:"campaign_id"`
	HiringStatus model.HiringStatus `json:"hiring_status"`
}

// handleListCandidates lists an organization's candidates with the risk
// level of each subject's current authoritative personality record. The
// level stored at import is reported as import_risk_level.
func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	cands, err := h.store.ListCandidates(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cands == nil {
		cands = []model.Candidate{}
	}
	for i := range cands {
		recs, err := h.store.ListResults(cands[i].SubjectID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h.applyAssessment(&cands[i], recs)
	}
	writeJSON(w, http.StatusOK, cands)
}

// handleCreateCandidate imports a subject into an organization's pipeline.
// The stored risk level comes from the subject's authoritative personality
// record, or medium when there is none yet.
func (h *Handler) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req createCandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SubjectID == "" {
		writeError(w, r, &scoring.ValidationError{Reason: "subject_id is required"})
		return
	}
	switch req.HiringStatus {
	case "", model.HiringScreening, model.HiringInterview, model.HiringOffer, model.HiringRejected:
	default:
		writeError(w, r, &scoring.ValidationError{Reason: "unknown hiring_status " + string(req.HiringStatus)})
		return
	}
	if _, err := h.store.GetSubject(req.SubjectID); err != nil {
		writeError(w, r, err)
		return
	}

	recs, err := h.store.ListResults(req.SubjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	risk, ok := scoring.PersonalityRisk(h.catalog, recs)
	if !ok {
		risk = model.RiskMedium
	}

	cand, err := h.store.CreateCandidate(model.Candidate{
		OrganizationID: orgID,
		SubjectID:      req.SubjectID,
		CampaignID:     req.CampaignID,
		HiringStatus:   req.HiringStatus,
		RiskLevel:      risk,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.applyAssessment(&cand, recs)
	writeJSON(w, http.StatusCreated, cand)
}

// applyAssessment replaces the stored risk level of c with the one derived
// from recs. Without a personality record the stored level stays in place.
func (h *Handler) applyAssessment(c *model.Candidate, recs []model.Record) {
	c.ImportRiskLevel = c.RiskLevel
	a, ok := scoring.AssessPersonality(h.catalog, recs)
	if !ok {
		return
	}
	c.RiskLevel = a.RiskLevel
	c.IsFullVersion = a.IsFull
	c.HonestyHumility = a.HonestyHumility
}
