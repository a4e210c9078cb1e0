// Package httpadapter exposes the enhancement workflow over HTTP: document
// intake, session polling, result delivery, and feedback composition.
package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
	"github.com/verolabz/doctweak/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	intake    ports.EnhancementIntake
	reader    ports.SessionReader
	presenter ports.ResultPresenter
	feedback  ports.FeedbackComposer
	metrics   *metrics.HTTPServerMetrics

	authToken string
	loginURL  string

	rateLimitRPS   float64
	rateLimitBurst int
}

type Options struct {
	AuthToken      string
	LoginURL       string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	intake ports.EnhancementIntake,
	reader ports.SessionReader,
	presenter ports.ResultPresenter,
	feedback ports.FeedbackComposer,
	m *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	if m == nil {
		m = metrics.NewHTTPServerMetrics(serviceName)
	}
	if opts.LoginURL == "" {
		opts.LoginURL = "/auth"
	}
	return &Router{
		intake:         intake,
		reader:         reader,
		presenter:      presenter,
		feedback:       feedback,
		metrics:        m,
		authToken:      opts.AuthToken,
		loginURL:       opts.LoginURL,
		rateLimitRPS:   opts.RateLimitRPS,
		rateLimitBurst: opts.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.Handle("/v1/documents", rt.authenticated(rt.uploadDocument))
	mux.Handle("/v1/documents/text", rt.authenticated(rt.submitText))
	mux.Handle("/v1/sessions/", rt.authenticated(rt.sessionSubtree))
	mux.Handle("/v1/feedback", rt.authenticated(rt.composeFeedback))

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxConcurrentRequests, backpressureWait)
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(domain.MaxUploadBytes + 1<<20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, domain.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	upload := domain.UploadedFile{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     int64(len(content)),
		Content:  content,
	}

	session, err := rt.intake.Submit(
		r.Context(),
		upload,
		r.FormValue("instructions"),
		domain.ParseDocumentType(r.FormValue("document_type")),
		domain.ParseOutputFormat(r.FormValue("output_format")),
		userEmailFromContext(r.Context()),
	)
	if err != nil {
		rt.metrics.RecordValidationFailure(serviceName, errorKindLabel(err))
		rt.writeError(w, err)
		return
	}

	rt.metrics.RecordUpload(serviceName, "file", upload.Size)
	writeJSON(w, http.StatusAccepted, sessionView(session))
}

func (rt *Router) submitText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req struct {
		Text         string `json:"text"`
		Instructions string `json:"instructions"`
		DocumentType string `json:"document_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}

	session, err := rt.intake.SubmitText(
		r.Context(),
		req.Text,
		req.Instructions,
		domain.ParseDocumentType(req.DocumentType),
		userEmailFromContext(r.Context()),
	)
	if err != nil {
		rt.metrics.RecordValidationFailure(serviceName, errorKindLabel(err))
		rt.writeError(w, err)
		return
	}

	rt.metrics.RecordUpload(serviceName, "text", int64(len(req.Text)))
	writeJSON(w, http.StatusAccepted, sessionView(session))
}

// sessionSubtree dispatches /v1/sessions/{id}[/result|/preview].
func (rt *Router) sessionSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("session id is required"))
		return
	}

	switch action {
	case "":
		rt.getSession(w, r, id)
	case "result":
		rt.downloadResult(w, r, id)
	case "preview":
		rt.previewResult(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown resource"))
	}
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

func (rt *Router) downloadResult(w http.ResponseWriter, r *http.Request, id string) {
	artifact, err := rt.presenter.Download(r.Context(), id)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.metrics.RecordResultDelivery(serviceName, "download")

	w.Header().Set("Content-Type", artifact.Mime)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Content)
}

func (rt *Router) previewResult(w http.ResponseWriter, r *http.Request, id string) {
	html, err := rt.presenter.Preview(r.Context(), id)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.metrics.RecordResultDelivery(serviceName, "preview")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (rt *Router) composeFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req struct {
		Rating       int      `json:"rating"`
		Notes        string   `json:"notes"`
		Features     []string `json:"features"`
		OtherFeature string   `json:"other_feature"`
		Filename     string   `json:"filename"`
		Action       string   `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}

	links, err := rt.feedback.Compose(domain.FeedbackRecord{
		Rating:       req.Rating,
		Notes:        req.Notes,
		Features:     req.Features,
		OtherFeature: req.OtherFeature,
		Filename:     req.Filename,
		Action:       domain.FeedbackAction(req.Action),
		UserEmail:    userEmailFromContext(r.Context()),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		rt.writeError(w, err)
		return
	}

	rt.metrics.RecordFeedback(serviceName, req.Rating)
	writeJSON(w, http.StatusOK, links)
}

// sessionView is the polling payload: stage, numeric progress, and the
// display label, plus error classification when the workflow failed.
func sessionView(s *domain.Session) map[string]any {
	view := map[string]any{
		"id":       s.ID,
		"filename": s.Filename,
		"stage":    s.Stage,
		"progress": s.Progress,
		"label":    domain.StageLabel(s.Stage),
		"message":  s.Message,
	}
	if s.ErrorKind != "" {
		view["error_kind"] = s.ErrorKind
		view["error_message"] = s.ErrorMessage
	}
	if s.NeedsOCR {
		view["needs_ocr"] = true
	}
	if s.Backend != "" {
		view["processing_method"] = s.Backend
	}
	if s.Stage == domain.StageComplete && s.ResultName != "" {
		view["result_name"] = s.ResultName
		view["result_mime"] = s.ResultMime
	}
	return view
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody(domain.SafeMessage(err)))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
