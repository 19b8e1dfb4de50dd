// internal/adapters/http_server/handlers.go
package httpserver

import (
	"bytes"
	"context"
	"crypto/sha1"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/app"
	"playreviews/internal/domain"
)

//go:embed index.html
var indexHTML []byte

type Handlers struct {
	F          *app.FetchService
	MaxReviews int
	Throttle   *Throttle
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/", h.index)
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Group(func(r chi.Router) {
		if h.Throttle != nil {
			r.Use(h.Throttle.Middleware)
		}
		r.Post("/fetch-reviews", h.fetchReviews)
	})
	s.mux.Get("/download-csv", h.downloadCSV)
	s.mux.Get("/fetches/{id}", h.getFetch)
	s.mux.Get("/fetches/{id}/months", h.getMonths)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
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

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not encode response")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// ---- fetch ----

// flexInt accepts 50 as well as "50"; the form posts numbers as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return &domain.ValidationError{Field: "totalReviews", Reason: "must be an integer"}
	}
	*n = flexInt(v)
	return nil
}

type fetchBody struct {
	AppID        string  `json:"appId"`
	TotalReviews flexInt `json:"totalReviews"`
	SortOrder    string  `json:"sortOrder"`
}

func parseFetchBody(w http.ResponseWriter, r *http.Request) (fetchBody, error) {
	var b fetchBody
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		if err := dec.Decode(&b); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return b, ve
			}
			return b, &domain.ValidationError{Field: "body", Reason: "malformed JSON"}
		}
		return b, nil
	}
	if err := r.ParseForm(); err != nil {
		return b, &domain.ValidationError{Field: "body", Reason: "malformed form"}
	}
	b.AppID = r.PostForm.Get("appId")
	b.SortOrder = r.PostForm.Get("sortOrder")
	if v := strings.TrimSpace(r.PostForm.Get("totalReviews")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return b, &domain.ValidationError{Field: "totalReviews", Reason: "must be an integer"}
		}
		b.TotalReviews = flexInt(n)
	}
	return b, nil
}

func (h *Handlers) toRequest(b fetchBody) (app.FetchRequest, error) {
	appID := strings.TrimSpace(b.AppID)
	if appID == "" {
		return app.FetchRequest{}, &domain.ValidationError{Field: "appId", Reason: "must not be empty"}
	}
	n := int(b.TotalReviews)
	if n <= 0 {
		return app.FetchRequest{}, &domain.ValidationError{Field: "totalReviews", Reason: "must be a positive integer"}
	}
	if h.MaxReviews > 0 && n > h.MaxReviews {
		return app.FetchRequest{}, &domain.ValidationError{Field: "totalReviews", Reason: fmt.Sprintf("must not exceed %d", h.MaxReviews)}
	}
	sort := domain.SortNewest
	if strings.TrimSpace(b.SortOrder) != "" {
		s, err := domain.ParseSortOrder(b.SortOrder)
		if err != nil {
			return app.FetchRequest{}, err
		}
		sort = s
	}
	return app.FetchRequest{AppID: appID, Count: n, Sort: sort}, nil
}

type reviewView struct {
	Month    string `json:"Month"`
	User     string `json:"User"`
	Rating   int    `json:"Rating"`
	Date     string `json:"Date"`
	ThumbsUp int    `json:"ThumbsUp"`
	Review   string `json:"Review"`
}

func viewReviews(in []domain.AggregatedReview) []reviewView {
	out := make([]reviewView, 0, len(in))
	for _, r := range in {
		out = append(out, reviewView{
			Month:    r.Month,
			User:     r.UserName,
			Rating:   r.Score,
			Date:     r.Date.Format("2006-01-02"),
			ThumbsUp: r.ThumbsUp,
			Review:   app.FlattenText(r.Text),
		})
	}
	return out
}

type fetchResponse struct {
	ID        string             `json:"id"`
	AppID     string             `json:"appId"`
	SortOrder domain.SortOrder   `json:"sortOrder"`
	Requested int                `json:"requested"`
	Count     int                `json:"count"`
	Partial   bool               `json:"partial"`
	Error     string             `json:"error,omitempty"`
	Reviews   []reviewView       `json:"reviews"`
	Months    []app.MonthSummary `json:"months"`
}

func snapshotResponse(s domain.Snapshot) fetchResponse {
	return fetchResponse{
		ID:        s.ID,
		AppID:     s.AppID,
		SortOrder: s.Sort,
		Requested: s.Requested,
		Count:     len(s.Reviews),
		Partial:   s.Partial,
		Reviews:   viewReviews(s.Reviews),
		Months:    app.GroupByMonth(s.Reviews),
	}
}

// fetchProblem maps a fetch error to a status, a title and a metrics outcome.
func fetchProblem(err error) (int, string, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "Invalid Request", "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "App Not Found", "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Source Timeout", "timeout"
	}
	var se *domain.SourceError
	if errors.As(err, &se) {
		return http.StatusBadGateway, "Review Source Failed", "source_error"
	}
	return http.StatusInternalServerError, "Internal Error", "error"
}

func (h *Handlers) fetchReviews(w http.ResponseWriter, r *http.Request) {
	b, err := parseFetchBody(w, r)
	if err == nil {
		var req app.FetchRequest
		if req, err = h.toRequest(b); err == nil {
			h.runFetch(w, r, req)
			return
		}
	}
	status, title, outcome := fetchProblem(err)
	observability.ObserveFetch(outcome, 0)
	writeProblem(w, status, title, err.Error())
}

func (h *Handlers) runFetch(w http.ResponseWriter, r *http.Request, req app.FetchRequest) {
	res, err := h.F.Fetch(r.Context(), req)
	if err != nil {
		status, title, outcome := fetchProblem(err)
		observability.ObserveFetch(outcome, 0)
		log.Warn().Err(err).Str("app_id", req.AppID).Int("status", status).Msg("fetch failed")
		detail := "the review source could not be reached"
		if status < 500 {
			detail = err.Error()
		}
		writeProblem(w, status, title, detail)
		return
	}

	out := snapshotResponse(res.Snapshot)
	outcome := "ok"
	if res.Err != nil {
		outcome = "partial"
		out.Error = res.Err.Error()
		w.Header().Set("X-Partial-Result", "true")
	}
	observability.ObserveFetch(outcome, out.Count)

	w.Header().Set("Location", "/download-csv?id="+res.Snapshot.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write fetch body")
	}
}

// ---- snapshot reads ----

func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request, id string) (domain.Snapshot, bool) {
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Missing ID", "id is required")
		return domain.Snapshot{}, false
	}
	s, err := h.F.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "fetch result not found or expired")
			return domain.Snapshot{}, false
		}
		log.Error().Err(err).Str("snapshot", id).Msg("snapshot lookup failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "snapshot lookup failed")
		return domain.Snapshot{}, false
	}
	return s, true
}

func (h *Handlers) getFetch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSONWithETag(w, r, snapshotResponse(s))
}

func (h *Handlers) getMonths(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSONWithETag(w, r, app.GroupByMonth(s.Reviews))
}

func (h *Handlers) downloadCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	layout, err := app.ParseCSVLayout(q.Get("layout"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid layout", err.Error())
		return
	}
	s, ok := h.snapshot(w, r, q.Get("id"))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := app.WriteCSV(&buf, app.FilterMonth(s.Reviews, q.Get("month")), layout); err != nil {
		log.Error().Err(err).Str("snapshot", s.ID).Msg("csv render failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "csv render failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reviews_monthwise.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write csv body")
	}
}
