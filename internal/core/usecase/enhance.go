package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/fallback"
	"github.com/verolabz/doctweak/internal/core/ports"
)

// ChainObserver receives fallback-chain telemetry. Implemented by the worker
// metrics; a no-op is used in tests.
type ChainObserver interface {
	ObserveAttempt(backend string, status fallback.AttemptStatus)
	ObserveOutcome(outcome string, depth int, duration time.Duration)
	ObserveExtractionFailure(reason domain.ExtractionReason)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, fallback.AttemptStatus)    {}
func (nopObserver) ObserveOutcome(string, int, time.Duration)        {}
func (nopObserver) ObserveExtractionFailure(domain.ExtractionReason) {}

// NopObserver discards all chain telemetry.
var NopObserver ChainObserver = nopObserver{}

// EnhanceUseCase drives one session through extraction and the backend
// fallback chain, updating the persisted workflow state at every transition.
// Exactly one in-flight remote call at a time; the first success ends the
// chain. A failed candidate is never retried within the same request.
type EnhanceUseCase struct {
	repo      ports.SessionRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	backends  []ports.BackendCandidate
	observer  ChainObserver
}

func NewEnhanceUseCase(
	repo ports.SessionRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	backends []ports.BackendCandidate,
	observer ChainObserver,
) *EnhanceUseCase {
	if observer == nil {
		observer = NopObserver
	}
	return &EnhanceUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		backends:  backends,
		observer:  observer,
	}
}

func (uc *EnhanceUseCase) ProcessByID(ctx context.Context, sessionID string) error {
	started := time.Now()

	session, err := uc.repo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}

	file, err := uc.loadSource(ctx, session)
	if err != nil {
		return uc.failSession(ctx, session, err)
	}

	text := ""
	if file.NeedsLocalExtraction() {
		if err := uc.transition(ctx, session, domain.StageExtracting, ""); err != nil {
			return err
		}
		text, err = uc.extract(ctx, file)
		if err != nil {
			return uc.failSession(ctx, session, err)
		}
	}

	if err := uc.transition(ctx, session, domain.StageEnhancing, ""); err != nil {
		return err
	}

	result, report, err := uc.runChain(ctx, session, file, text)
	for _, attempt := range report.Attempts {
		uc.observer.ObserveAttempt(attempt.Name, attempt.Status)
	}
	if err != nil {
		uc.observer.ObserveOutcome("failed", report.FallbackDepth(), time.Since(started))
		aggregated := domain.WrapError(domain.ErrAllBackendsExhausted, "enhance document", report.LastErr)
		return uc.failSession(ctx, session, aggregated)
	}

	if err := uc.materialize(ctx, session, result); err != nil {
		return uc.failSession(ctx, session, err)
	}

	if err := uc.transition(ctx, session, domain.StageComplete, ""); err != nil {
		return err
	}
	uc.observer.ObserveOutcome("complete", report.FallbackDepth(), time.Since(started))
	return nil
}

func (uc *EnhanceUseCase) runChain(
	ctx context.Context,
	session *domain.Session,
	file *domain.UploadedFile,
	extractedText string,
) (*domain.EnhancementResult, fallback.Report, error) {
	// Lazy, memoized extraction for text-only candidates behind binary
	// formats; the raw bytes skip the text round-trip otherwise.
	text := extractedText
	var textErr error
	textForCandidate := func(ctx context.Context) (string, error) {
		if text != "" || textErr != nil {
			return text, textErr
		}
		text, textErr = uc.extract(ctx, file)
		return text, textErr
	}

	baseReq := domain.EnhancementRequest{
		File:         file,
		Text:         extractedText,
		Instructions: session.Instructions,
		DocumentType: session.DocumentType,
		OutputFormat: session.OutputFormat,
	}

	candidates := make([]fallback.Candidate[*domain.EnhancementResult], 0, len(uc.backends)+1)
	for _, backend := range uc.backends {
		backend := backend
		candidates = append(candidates, fallback.Candidate[*domain.EnhancementResult]{
			Name: string(backend.ID()),
			Skip: backend.Available,
			Run: func(ctx context.Context) (*domain.EnhancementResult, error) {
				req := baseReq
				if needsText(backend) {
					t, err := textForCandidate(ctx)
					if err != nil {
						return nil, err
					}
					req.Text = t
				}
				result, err := backend.Enhance(ctx, req)
				if err != nil {
					slog.Warn("backend_candidate_failed",
						"session_id", session.ID,
						"backend", backend.ID(),
						"error", err,
					)
					return nil, err
				}
				return result, nil
			},
		})
	}
	candidates = append(candidates, uc.degradedCandidate(session, textForCandidate))

	return fallback.Run(ctx, candidates)
}

// degradedCandidate returns the extracted original text unmodified. It only
// runs when no remote candidate is configured at all, so a user without any
// upstream credentials still gets their text back.
func (uc *EnhanceUseCase) degradedCandidate(
	session *domain.Session,
	textFn func(ctx context.Context) (string, error),
) fallback.Candidate[*domain.EnhancementResult] {
	return fallback.Candidate[*domain.EnhancementResult]{
		Name: string(domain.BackendLocalEcho),
		Skip: func(ctx context.Context) error {
			for _, backend := range uc.backends {
				if backend.Available(ctx) == nil {
					return fmt.Errorf("remote candidate %s is configured", backend.ID())
				}
			}
			return nil
		},
		Run: func(ctx context.Context) (*domain.EnhancementResult, error) {
			t, err := textFn(ctx)
			if err != nil {
				return nil, err
			}
			slog.Info("degraded_local_path", "session_id", session.ID)
			return &domain.EnhancementResult{
				Backend:      domain.BackendLocalEcho,
				EnhancedText: t,
				OriginalText: t,
			}, nil
		},
	}
}

func (uc *EnhanceUseCase) loadSource(ctx context.Context, session *domain.Session) (*domain.UploadedFile, error) {
	reader, err := uc.storage.Open(ctx, session.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	return &domain.UploadedFile{
		Filename: session.Filename,
		MimeType: session.MimeType,
		Size:     int64(len(raw)),
		Content:  raw,
	}, nil
}

func (uc *EnhanceUseCase) extract(ctx context.Context, file *domain.UploadedFile) (string, error) {
	text, err := uc.extractor.Extract(ctx, file.Filename, file.Content)
	if err != nil {
		if reason := domain.ExtractionReasonOf(err); reason != "" {
			uc.observer.ObserveExtractionFailure(reason)
		}
		return "", err
	}
	return text, nil
}

func (uc *EnhanceUseCase) materialize(ctx context.Context, session *domain.Session, result *domain.EnhancementResult) error {
	name := domain.ArtifactName(session.Filename, result.IsBinary())
	content := result.Artifact
	mime := result.MimeHint
	if !result.IsBinary() {
		content = []byte(result.EnhancedText)
		mime = "text/plain; charset=utf-8"
	}
	if mime == "" {
		mime = domain.ArtifactMime(name)
	}

	resultKey := session.ID + "_result_" + name
	if err := uc.storage.Save(ctx, resultKey, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("save result artifact: %w", err)
	}

	session.Backend = result.Backend
	session.ResultPath = resultKey
	session.ResultName = name
	session.ResultMime = mime
	return nil
}

func (uc *EnhanceUseCase) transition(ctx context.Context, session *domain.Session, to domain.Stage, message string) error {
	if err := session.Transition(to, message); err != nil {
		return err
	}
	if err := uc.repo.Update(ctx, session); err != nil {
		return fmt.Errorf("persist %s transition: %w", to, err)
	}
	return nil
}

func (uc *EnhanceUseCase) failSession(ctx context.Context, session *domain.Session, cause error) error {
	if err := session.Fail(cause); err != nil {
		return errors.Join(cause, err)
	}
	if err := uc.repo.Update(ctx, session); err != nil {
		return errors.Join(cause, fmt.Errorf("persist error state: %w", err))
	}
	return cause
}

func needsText(backend ports.BackendCandidate) bool {
	return backend.ID() == domain.BackendDirectText
}
