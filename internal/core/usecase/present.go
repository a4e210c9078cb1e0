package usecase

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
)

// PresentUseCase serves completed sessions: the download artifact stays
// byte-identical to the backend output, while previews are rendered to HTML
// for display only.
type PresentUseCase struct {
	repo     ports.SessionRepository
	storage  ports.ObjectStorage
	renderer ports.PreviewRenderer
}

func NewPresentUseCase(
	repo ports.SessionRepository,
	storage ports.ObjectStorage,
	renderer ports.PreviewRenderer,
) *PresentUseCase {
	return &PresentUseCase{
		repo:     repo,
		storage:  storage,
		renderer: renderer,
	}
}

func (uc *PresentUseCase) Download(ctx context.Context, sessionID string) (*ports.Artifact, error) {
	session, content, err := uc.loadResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ports.Artifact{
		Name:    session.ResultName,
		Mime:    session.ResultMime,
		Content: content,
	}, nil
}

func (uc *PresentUseCase) Preview(ctx context.Context, sessionID string) (string, error) {
	session, content, err := uc.loadResult(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(session.ResultMime, "text/plain") {
		return textPreviewHTML(string(content)), nil
	}
	html, err := uc.renderer.RenderHTML(content, session.ResultMime)
	if err != nil {
		return "", domain.WrapError(domain.ErrNoResult, "render preview", err)
	}
	return html, nil
}

func (uc *PresentUseCase) loadResult(ctx context.Context, sessionID string) (*domain.Session, []byte, error) {
	session, err := uc.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch session: %w", err)
	}
	if session.Stage != domain.StageComplete || session.ResultPath == "" {
		return nil, nil, domain.WrapError(domain.ErrNoResult, "load result", fmt.Errorf("session in stage %s", session.Stage))
	}

	reader, err := uc.storage.Open(ctx, session.ResultPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open result artifact: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read result artifact: %w", err)
	}
	return session, content, nil
}

func textPreviewHTML(text string) string {
	var b strings.Builder
	b.WriteString("<div class=\"doc-preview\">")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	b.WriteString("</div>")
	return b.String()
}
