package usecase

import (
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// FeedbackUseCase packages a feedback record into email compose links.
// Nothing is stored and no network call is made; delivery is the user's
// mail client's job.
type FeedbackUseCase struct {
	recipients []string
}

func NewFeedbackUseCase(recipients []string) *FeedbackUseCase {
	return &FeedbackUseCase{recipients: recipients}
}

func (uc *FeedbackUseCase) Compose(record domain.FeedbackRecord) (domain.ComposeLinks, error) {
	if err := record.Validate(); err != nil {
		return domain.ComposeLinks{}, err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return record.BuildComposeLinks(uc.recipients), nil
}
