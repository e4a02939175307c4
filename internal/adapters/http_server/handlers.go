package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"homesquare/internal/app"
	"homesquare/internal/domain"
)

const maxBodyBytes = 5 << 20

type Handlers struct {
	A *app.AnalysisService
	S *app.SavedListingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Post("/analyze/url", h.analyzeURL)
		r.Get("/saved-listings", h.listSaved)
		r.Post("/saved-listings", h.createSaved)
		r.Delete("/saved-listings/{id}", h.deleteSaved)
	})
}

/********** views **********/

// analysisView is the wire form of a result: estimate in cents, percent
// difference to 4 places, confidence to 3.
type analysisView struct {
	EstimatedPrice *float64          `json:"estimated_price"`
	Label          domain.Label      `json:"label"`
	PercentDiff    *float64          `json:"percent_diff"`
	Confidence     float64           `json:"confidence"`
	Explanation    string            `json:"explanation"`
	CompCount      int               `json:"comp_count"`
	Features       domain.FeatureSet `json:"features"`
}

type urlAnalysisView struct {
	URL      string            `json:"url"`
	Address  string            `json:"address"`
	Listing  domain.Listing    `json:"listing"`
	Analysis analysisView      `json:"analysis"`
	Comps    []app.CompPreview `json:"comps_preview"`
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v, places)
	return &r
}

func toView(res domain.AnalysisResult) analysisView {
	return analysisView{
		EstimatedPrice: roundPtr(res.EstimatedPrice, 2),
		Label:          res.Label,
		PercentDiff:    roundPtr(res.PercentDiff, 4),
		Confidence:     roundTo(res.Confidence, 3),
		Explanation:    res.Explanation,
		CompCount:      res.CompCount,
		Features:       res.Features,
	}
}

/********** helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses. upstream is the
// status used for anything unrecognised.
func writeError(w http.ResponseWriter, err error, upstream int) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrUnsupportedSite):
		writeProblem(w, http.StatusBadRequest, "Unsupported Site", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Gateway Timeout", "upstream did not answer in time")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, upstream, http.StatusText(upstream), err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

/********** handlers **********/

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var in app.AnalyzeInput
	if !decodeBody(w, r, &in) {
		return
	}
	res, err := h.A.Analyze(r.Context(), in)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toView(res))
}

func (h *Handlers) analyzeURL(w http.ResponseWriter, r *http.Request) {
	var in struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.URL == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", "missing 'url'")
		return
	}
	out, err := h.A.AnalyzeURL(r.Context(), in.URL)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, urlAnalysisView{
		URL:      out.URL,
		Address:  out.Address,
		Listing:  out.Listing,
		Analysis: toView(out.Result),
		Comps:    out.Comps,
	})
}

func (h *Handlers) listSaved(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.List(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listSaved body")
	}
}

func (h *Handlers) createSaved(w http.ResponseWriter, r *http.Request) {
	var in app.SaveInput
	if !decodeBody(w, r, &in) {
		return
	}
	sl, err := h.S.Save(r.Context(), in)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sl)
}

func (h *Handlers) deleteSaved(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	if err := h.S.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "saved listing not found")
			return
		}
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
