package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/ports"
)

// IntakeUseCase validates an upload, stores the source bytes, opens a
// workflow session in the uploading stage, and queues it for enhancement.
type IntakeUseCase struct {
	repo    ports.SessionRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIntakeUseCase(
	repo ports.SessionRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IntakeUseCase {
	return &IntakeUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IntakeUseCase) Submit(
	ctx context.Context,
	file domain.UploadedFile,
	instructions string,
	docType domain.DocumentType,
	format domain.OutputFormat,
	userEmail string,
) (*domain.Session, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Content)); err != nil {
		return nil, fmt.Errorf("save source document: %w", err)
	}

	session := &domain.Session{
		ID:           id,
		UserEmail:    userEmail,
		Filename:     file.Filename,
		MimeType:     file.MimeType,
		StoragePath:  storageKey,
		Instructions: instructions,
		DocumentType: docType,
		OutputFormat: format,
		Stage:        domain.StageIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := session.Transition(domain.StageUploading, ""); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := uc.queue.PublishEnhancementRequested(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("publish enhancement job: %w", err)
	}

	return session, nil
}

// SubmitText accepts pasted text by wrapping it in a synthetic .txt upload,
// so the rest of the workflow treats both entry points the same way.
func (uc *IntakeUseCase) SubmitText(
	ctx context.Context,
	text, instructions string,
	docType domain.DocumentType,
	userEmail string,
) (*domain.Session, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrEmptyFile, "submit text", fmt.Errorf("no text provided"))
	}
	file := domain.UploadedFile{
		Filename: "pasted-text.txt",
		MimeType: "text/plain",
		Size:     int64(len(trimmed)),
		Content:  []byte(trimmed),
	}
	return uc.Submit(ctx, file, instructions, docType, domain.FormatText, userEmail)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
