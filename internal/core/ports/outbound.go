package ports

import (
	"context"
	"io"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// SessionRepository persists workflow session state and transitions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
}

// ObjectStorage stores source documents and result artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes enhancement jobs.
type MessageQueue interface {
	PublishEnhancementRequested(ctx context.Context, sessionID string) error
	SubscribeEnhancementRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor converts a supported source document into plain text,
// classifying failures into extraction reasons.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}

// BackendCandidate is one remote enhancement service in the fallback chain.
// Available reports why the candidate cannot serve (probe failure, missing
// credentials); a non-nil error means the orchestrator skips it without
// counting a failure. Enhance must be idempotent from the caller's view and
// must never surface upstream status text.
type BackendCandidate interface {
	ID() domain.BackendID
	Available(ctx context.Context) error
	Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error)
}

// PreviewRenderer converts a binary artifact to display-only HTML. The
// download path never goes through here.
type PreviewRenderer interface {
	RenderHTML(artifact []byte, mime string) (string, error)
}
