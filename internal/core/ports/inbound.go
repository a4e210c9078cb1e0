package ports

import (
	"context"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// EnhancementIntake is the inbound contract for accepting a document (or
// pasted text) and opening a workflow session.
type EnhancementIntake interface {
	Submit(ctx context.Context, file domain.UploadedFile, instructions string, docType domain.DocumentType, format domain.OutputFormat, userEmail string) (*domain.Session, error)
	SubmitText(ctx context.Context, text, instructions string, docType domain.DocumentType, userEmail string) (*domain.Session, error)
}

// EnhancementProcessor drives a session through the workflow asynchronously.
type EnhancementProcessor interface {
	ProcessByID(ctx context.Context, sessionID string) error
}

// SessionReader is the read model the UI polls for stage/progress.
type SessionReader interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// ResultPresenter materializes a completed session into a downloadable
// artifact and an optional preview.
type ResultPresenter interface {
	Download(ctx context.Context, sessionID string) (*Artifact, error)
	Preview(ctx context.Context, sessionID string) (string, error)
}

// Artifact is a downloadable result: the bytes are byte-identical to what
// the winning backend returned (or the text wrapped as text/plain).
type Artifact struct {
	Name    string
	Mime    string
	Content []byte
}

// FeedbackComposer packages a feedback record into email compose links.
type FeedbackComposer interface {
	Compose(record domain.FeedbackRecord) (domain.ComposeLinks, error)
}
