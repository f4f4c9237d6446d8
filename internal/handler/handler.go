package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/i18n"
	"github.com/kagehq/kage/internal/metrics"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/report"
	"github.com/kagehq/kage/internal/scoring"
	"github.com/kagehq/kage/internal/store"
)

// maxBodyBytes caps request bodies. The largest form has well under a
// hundred answers.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	catalog  *catalog.Catalog
	reports  *report.Service
	observer metrics.Observer
	config   model.ServerConfig
	now      func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, cat *catalog.Catalog, reports *report.Service, obs metrics.Observer, cfg model.ServerConfig) *Handler {
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Handler{
		store:    s,
		catalog:  cat,
		reports:  reports,
		observer: obs,
		config:   cfg,
		now:      time.Now,
	}
}

// Routes registers all routes on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(i18n.Middleware)

		r.Get("/meta", h.handleMeta)
		r.Get("/instruments", h.handleListInstruments)
		r.Get("/instruments/{instrumentID}", h.handleGetInstrument)

		r.Get("/subjects", h.handleListSubjects)
		r.Post("/subjects", h.handleCreateSubject)
		r.Get("/subjects/{subjectID}", h.handleGetSubject)
		r.Get("/subjects/{subjectID}/results", h.handleListResults)
		r.Post("/subjects/{subjectID}/results", h.handleSubmitResult)
		r.Post("/subjects/{subjectID}/results/batch", h.handleSubmitBatch)
		r.Get("/subjects/{subjectID}/report", h.handleSubjectReport)
		r.Get("/share/{shareID}/report", h.handleSharedReport)

		r.Get("/orgs/{orgID}/candidates", h.handleListCandidates)
		r.Post("/orgs/{orgID}/candidates", h.handleCreateCandidate)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type metaResponse struct {
	App             string             `json:"app"`
	DefaultLanguage string             `json:"default_language"`
	Languages       []string           `json:"languages"`
	Traits          []model.TraitValue `json:"traits"`
	CatalogChecksum string             `json:"catalog_checksum"`
	Narrative       bool               `json:"narrative"`
}

// handleMeta describes the service in the request language: supported
// languages and the trait keys with their labels.
func (h *Handler) handleMeta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := metaResponse{
		App:             i18n.T(ctx, "AppTitle"),
		DefaultLanguage: h.config.Lang,
		CatalogChecksum: h.catalog.Checksum(),
		Narrative:       h.config.Narrative && h.reports.NarrativeEnabled(),
	}
	for _, tag := range i18n.Languages() {
		resp.Languages = append(resp.Languages, tag.String())
	}
	for _, key := range scoring.TraitKeys() {
		resp.Traits = append(resp.Traits, model.TraitValue{Key: key, Label: i18n.T(ctx, "Trait_"+key)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListInstruments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Instruments())
}

func (h *Handler) handleGetInstrument(w http.ResponseWriter, r *http.Request) {
	id := model.InstrumentID(chi.URLParam(r, "instrumentID"))
	inst, err := h.catalog.Instrument(id, h.formFor(id, r.URL.Query().Get("form")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// formFor returns the requested form, or the first published form of the
// instrument when none was given.
func (h *Handler) formFor(id model.InstrumentID, form string) model.Form {
	if form != "" {
		return model.Form(form)
	}
	if forms := h.catalog.Forms(id); len(forms) > 0 {
		return forms[0]
	}
	return ""
}

type createSubjectRequest struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SubjectID == "" {
		writeError(w, r, &scoring.ValidationError{Reason: "subject_id is required"})
		return
	}
	sub, err := h.store.CreateSubject(req.SubjectID, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubjects()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.Subject{}
	}
	writeJSON(w, http.StatusOK, subs)
}

type subjectResponse struct {
	model.Subject
	ResultCount int `json:"result_count"`
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubject(chi.URLParam(r, "subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.store.ResultCount(sub.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjectResponse{Subject: sub, ResultCount: n})
}

func (h *Handler) handleSubjectReport(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	narrative := h.config.Narrative && r.URL.Query().Get("narrative") == "1"
	rep, err := h.reports.Report(r.Context(), subjectID, requestLang(r), narrative)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleSharedReport serves the public view of a report. The risk flag and
// the raw Honesty-Humility score are reserved for the subject and recruiters.
func (h *Handler) handleSharedReport(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubjectByShareID(chi.URLParam(r, "shareID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.reports.Report(r.Context(), sub.ID, requestLang(r), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep.RiskLevel = ""
	rep.RiskLabel = ""
	rep.HonestyHumility = 0
	writeJSON(w, http.StatusOK, rep)
}

// requestLang returns the language preference of a request: ?lang= first,
// then Accept-Language.
func requestLang(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}

type errorResponse struct {
	Error   string                   `json:"error"`
	Details *scoring.ValidationError `json:"details,omitempty"`
}

// writeError maps err to a status code and writes a localized JSON error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var verr *scoring.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: i18n.T(ctx, "ValidationFailed"), Details: verr})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, catalog.ErrUnknownInstrument):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: i18n.T(ctx, "NotFound")})
	case errors.Is(err, store.ErrSubjectExists), errors.Is(err, store.ErrCandidateExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON reads a JSON body into v. On failure it writes a 400 response
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}
