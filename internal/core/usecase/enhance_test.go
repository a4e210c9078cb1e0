package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
)

func seedSession(t *testing.T, repo *memRepo, storage *memStorage, filename, mime string, content []byte) *domain.Session {
	t.Helper()
	session := &domain.Session{
		ID:           "sess-1",
		Filename:     filename,
		MimeType:     mime,
		StoragePath:  "sess-1_" + filename,
		Instructions: "clean this up",
		DocumentType: domain.DocTypeGeneral,
		OutputFormat: domain.FormatPDF,
		Stage:        domain.StageUploading,
		Progress:     20,
	}
	if err := storage.Save(context.Background(), session.StoragePath, bytes.NewReader(content)); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}

func TestProcessBinaryHappyPath(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{}
	backend := &fakeBackend{
		id: domain.BackendBinaryPass,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			return &domain.EnhancementResult{
				Backend:  domain.BackendBinaryPass,
				Artifact: []byte("%PDF-enhanced"),
				MimeHint: "application/pdf",
			}, nil
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{backend}, nil)
	seedSession(t, repo, storage, "Report.pdf", "application/pdf", []byte("%PDF-1.4 source"))

	if err := uc.ProcessByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	session, err := repo.GetByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if session.Stage != domain.StageComplete || session.Progress != 100 {
		t.Fatalf("expected complete/100, got %s/%d", session.Stage, session.Progress)
	}
	if session.Backend != domain.BackendBinaryPass {
		t.Fatalf("expected binary-passthrough, got %s", session.Backend)
	}
	if session.ResultName != "enhanced_Report.pdf" {
		t.Fatalf("unexpected result name %q", session.ResultName)
	}
	if session.ResultMime != "application/pdf" {
		t.Fatalf("unexpected result mime %q", session.ResultMime)
	}
	if got := string(storage.objects[session.ResultPath]); got != "%PDF-enhanced" {
		t.Fatalf("stored artifact must be byte-identical, got %q", got)
	}
	if extractor.calls != 0 {
		t.Fatalf("binary path must not extract text, extractor called %d times", extractor.calls)
	}
	if repo.visited(domain.StageExtracting) {
		t.Fatal("pdf upload must skip the extracting stage")
	}
	if backend.lastReq.File == nil || backend.lastReq.Instructions != "clean this up" {
		t.Fatalf("backend request not populated: %+v", backend.lastReq)
	}
}

func TestProcessTextUploadExtractsFirst(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{}
	backend := &fakeBackend{
		id: domain.BackendDirectText,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			return &domain.EnhancementResult{
				Backend:      domain.BackendDirectText,
				EnhancedText: "Enhanced: " + req.Text,
				OriginalText: req.Text,
			}, nil
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{backend}, nil)
	seedSession(t, repo, storage, "notes.txt", "text/plain", []byte("raw notes"))

	if err := uc.ProcessByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !repo.visited(domain.StageExtracting) {
		t.Fatal("text upload must pass through the extracting stage")
	}
	if extractor.calls != 1 {
		t.Fatalf("extractor called %d times, expected once", extractor.calls)
	}
	if backend.lastReq.Text != "raw notes" {
		t.Fatalf("backend should receive extracted text, got %q", backend.lastReq.Text)
	}

	session, _ := repo.GetByID(context.Background(), "sess-1")
	if session.ResultName != "enhanced_notes.txt" {
		t.Fatalf("unexpected result name %q", session.ResultName)
	}
	if got := string(storage.objects[session.ResultPath]); got != "Enhanced: raw notes" {
		t.Fatalf("unexpected stored text %q", got)
	}
	if session.ResultMime != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected result mime %q", session.ResultMime)
	}
}

func TestProcessLazyExtractionForTextCandidate(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{text: "extracted pdf text"}
	binary := &fakeBackend{
		id: domain.BackendBinaryPass,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			return nil, domain.WrapError(domain.ErrBackendCallFailed, "binary", errors.New("502"))
		},
	}
	direct := &fakeBackend{
		id: domain.BackendDirectText,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			return &domain.EnhancementResult{Backend: domain.BackendDirectText, EnhancedText: "better"}, nil
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{binary, direct}, nil)
	seedSession(t, repo, storage, "scan.pdf", "application/pdf", []byte("%PDF-1.4"))

	if err := uc.ProcessByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if binary.calls != 1 {
		t.Fatalf("failed candidate must be tried exactly once, got %d", binary.calls)
	}
	if extractor.calls != 1 {
		t.Fatalf("text should be extracted lazily exactly once, got %d calls", extractor.calls)
	}
	if direct.lastReq.Text != "extracted pdf text" {
		t.Fatalf("text candidate should receive extracted text, got %q", direct.lastReq.Text)
	}

	session, _ := repo.GetByID(context.Background(), "sess-1")
	if session.Backend != domain.BackendDirectText {
		t.Fatalf("expected direct-text winner, got %s", session.Backend)
	}
}

func TestProcessScannedPDFFailsWithOCRFlag(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{err: domain.NewExtractionError(domain.ReasonNoTextFound, errors.New("0 glyphs"))}
	direct := &fakeBackend{
		id: domain.BackendDirectText,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			t.Fatal("enhance must not run when extraction fails")
			return nil, nil
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{direct}, nil)
	seedSession(t, repo, storage, "scan.pdf", "application/pdf", []byte("%PDF-1.4"))

	err := uc.ProcessByID(context.Background(), "sess-1")
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction failure, got %v", err)
	}

	session, _ := repo.GetByID(context.Background(), "sess-1")
	if session.Stage != domain.StageError {
		t.Fatalf("expected error stage, got %s", session.Stage)
	}
	if !session.NeedsOCR {
		t.Fatal("no-text-found must flag needs_ocr")
	}
	if session.ErrorKind != "ExtractionFailed" {
		t.Fatalf("unexpected error kind %q", session.ErrorKind)
	}
	if session.Progress != 60 {
		t.Fatalf("error must hold the enhancing progress, got %d", session.Progress)
	}
}

func TestProcessDegradedLocalEcho(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{}
	unavailable := &fakeBackend{
		id:           domain.BackendDirectText,
		availableErr: domain.WrapError(domain.ErrBackendUnavailable, "probe", errors.New("no api key")),
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			t.Fatal("unavailable backend must be skipped, not invoked")
			return nil, nil
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{unavailable}, nil)
	seedSession(t, repo, storage, "notes.txt", "text/plain", []byte("original text"))

	if err := uc.ProcessByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	session, _ := repo.GetByID(context.Background(), "sess-1")
	if session.Backend != domain.BackendLocalEcho {
		t.Fatalf("expected local-echo, got %s", session.Backend)
	}
	if got := string(storage.objects[session.ResultPath]); got != "original text" {
		t.Fatalf("degraded path must return the text unmodified, got %q", got)
	}
}

func TestProcessDegradedSkippedWhenRemoteConfigured(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	extractor := &fakeExtractor{}
	failing := &fakeBackend{
		id: domain.BackendDirectText,
		enhance: func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
			return nil, domain.WrapError(domain.ErrBackendCallFailed, "direct-text", errors.New("quota exceeded"))
		},
	}
	uc := NewEnhanceUseCase(repo, storage, extractor, []ports.BackendCandidate{failing}, nil)
	seedSession(t, repo, storage, "notes.txt", "text/plain", []byte("source"))

	err := uc.ProcessByID(context.Background(), "sess-1")
	if !domain.IsKind(err, domain.ErrAllBackendsExhausted) {
		t.Fatalf("expected ErrAllBackendsExhausted, got %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("failed candidate must not be retried, got %d calls", failing.calls)
	}

	session, _ := repo.GetByID(context.Background(), "sess-1")
	if session.Stage != domain.StageError {
		t.Fatalf("expected error stage, got %s", session.Stage)
	}
	if session.ErrorKind != "AllBackendsExhausted" {
		t.Fatalf("unexpected error kind %q", session.ErrorKind)
	}
	if session.ErrorMessage != "We couldn't process your document right now. Please try again." {
		t.Fatalf("unexpected safe message %q", session.ErrorMessage)
	}
}

func TestProcessUnknownSession(t *testing.T) {
	uc := NewEnhanceUseCase(newMemRepo(), newMemStorage(), &fakeExtractor{}, nil, nil)
	err := uc.ProcessByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
