package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
)

type fakeIntake struct {
	session *domain.Session
	err     error
	calls   int
	gotFile domain.UploadedFile
}

func (f *fakeIntake) Submit(_ context.Context, file domain.UploadedFile, _ string, _ domain.DocumentType, _ domain.OutputFormat, _ string) (*domain.Session, error) {
	f.calls++
	f.gotFile = file
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return f.session, f.err
}

func (f *fakeIntake) SubmitText(_ context.Context, text, _ string, _ domain.DocumentType, _ string) (*domain.Session, error) {
	f.calls++
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrEmptyFile, "submit text", nil)
	}
	return f.session, f.err
}

type fakeReader struct {
	session *domain.Session
	err     error
}

func (f *fakeReader) GetByID(context.Context, string) (*domain.Session, error) {
	return f.session, f.err
}

type fakePresenter struct {
	artifact *ports.Artifact
	html     string
	err      error
}

func (f *fakePresenter) Download(context.Context, string) (*ports.Artifact, error) {
	return f.artifact, f.err
}

func (f *fakePresenter) Preview(context.Context, string) (string, error) {
	return f.html, f.err
}

type fakeFeedback struct {
	links domain.ComposeLinks
	err   error
}

func (f *fakeFeedback) Compose(record domain.FeedbackRecord) (domain.ComposeLinks, error) {
	if err := record.Validate(); err != nil {
		return domain.ComposeLinks{}, err
	}
	return f.links, f.err
}

func newTestRouter(intake *fakeIntake, reader *fakeReader, presenter *fakePresenter, opts Options) http.Handler {
	if intake == nil {
		intake = &fakeIntake{}
	}
	if reader == nil {
		reader = &fakeReader{}
	}
	if presenter == nil {
		presenter = &fakePresenter{}
	}
	return NewRouter(intake, reader, presenter, &fakeFeedback{}, nil, opts).Handler()
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("document_type", "business"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func acceptedSession() *domain.Session {
	return &domain.Session{
		ID:       "sess-1",
		Filename: "report.pdf",
		Stage:    domain.StageUploading,
		Progress: 20,
		Message:  domain.StageLabel(domain.StageUploading),
	}
}

func TestUploadAccepted(t *testing.T) {
	intake := &fakeIntake{session: acceptedSession()}
	handler := newTestRouter(intake, nil, nil, Options{})

	body, contentType := multipartUpload(t, "report.pdf", []byte("%PDF-1.7 content"))
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var view map[string]any
	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view["id"] != "sess-1" || view["progress"] != float64(20) {
		t.Fatalf("view = %v", view)
	}
	if view["label"] != "Uploading document..." {
		t.Fatalf("label = %v", view["label"])
	}
}

func TestUploadEmptyFileRejected(t *testing.T) {
	handler := newTestRouter(&fakeIntake{session: acceptedSession()}, nil, nil, Options{})

	body, contentType := multipartUpload(t, "empty.txt", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
	if !strings.Contains(res.Body.String(), "empty") {
		t.Fatalf("body = %s", res.Body.String())
	}
}

func TestUploadUnsupportedExtensionRejected(t *testing.T) {
	handler := newTestRouter(&fakeIntake{session: acceptedSession()}, nil, nil, Options{})

	body, contentType := multipartUpload(t, "data.csv", []byte("a,b,c"))
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestAuthGateRejectsWithoutInvokingIntake(t *testing.T) {
	intake := &fakeIntake{session: acceptedSession()}
	handler := newTestRouter(intake, nil, nil, Options{AuthToken: "secret", LoginURL: "/auth"})

	body, contentType := multipartUpload(t, "report.pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	var reply map[string]string
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply["login_url"] != "/auth?next=%2Fv1%2Fdocuments" {
		t.Fatalf("login_url = %q", reply["login_url"])
	}
	if intake.calls != 0 {
		t.Fatalf("intake invoked %d times while unauthenticated", intake.calls)
	}
}

func TestAuthGateAcceptsBearerToken(t *testing.T) {
	intake := &fakeIntake{session: acceptedSession()}
	handler := newTestRouter(intake, nil, nil, Options{AuthToken: "secret"})

	body, contentType := multipartUpload(t, "report.pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer secret")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
}

func TestGetSessionView(t *testing.T) {
	session := &domain.Session{
		ID:           "sess-2",
		Filename:     "scan.pdf",
		Stage:        domain.StageError,
		Progress:     40,
		Message:      domain.StageLabel(domain.StageError),
		ErrorKind:    "ExtractionFailed",
		ErrorMessage: "We could not read this PDF.",
		NeedsOCR:     true,
	}
	handler := newTestRouter(nil, &fakeReader{session: session}, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-2", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var view map[string]any
	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view["error_kind"] != "ExtractionFailed" || view["needs_ocr"] != true {
		t.Fatalf("view = %v", view)
	}
	if view["progress"] != float64(40) {
		t.Fatalf("progress = %v, want held at 40", view["progress"])
	}
}

func TestSessionNotFound(t *testing.T) {
	reader := &fakeReader{err: domain.WrapError(domain.ErrSessionNotFound, "get session", nil)}
	handler := newTestRouter(nil, reader, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestDownloadSetsDispositionAndName(t *testing.T) {
	presenter := &fakePresenter{artifact: &ports.Artifact{
		Name:    "enhanced_Report.pdf",
		Mime:    "application/pdf",
		Content: []byte("%PDF-1.7 enhanced"),
	}}
	handler := newTestRouter(nil, nil, presenter, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/result", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="enhanced_Report.pdf"` {
		t.Fatalf("disposition = %q", got)
	}
	if got := res.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if res.Body.String() != "%PDF-1.7 enhanced" {
		t.Fatalf("body = %q", res.Body.String())
	}
}

func TestDownloadBeforeCompletionConflicts(t *testing.T) {
	presenter := &fakePresenter{err: domain.WrapError(domain.ErrNoResult, "load result", nil)}
	handler := newTestRouter(nil, nil, presenter, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/result", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", res.Code)
	}
}

func TestSubmitTextAccepted(t *testing.T) {
	handler := newTestRouter(&fakeIntake{session: acceptedSession()}, nil, nil, Options{})

	payload := `{"text":"raw notes","instructions":"tighten up"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/text", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
}

func TestComposeFeedback(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, Options{})

	payload := `{"rating":5,"notes":"great","features":["accuracy"],"action":"download","filename":"report.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
}

func TestComposeFeedbackRejectsBadRating(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, Options{})

	payload := `{"rating":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feedback", strings.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}
