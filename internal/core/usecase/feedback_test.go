package usecase

import (
	"strings"
	"testing"

	"github.com/verolabz/doctweak/internal/core/domain"
)

func TestComposeFillsTimestampAndLinks(t *testing.T) {
	uc := NewFeedbackUseCase([]string{"verolabz@gmail.com"})

	links, err := uc.Compose(domain.FeedbackRecord{Rating: 5, Action: domain.FeedbackAfterDownload})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(links.WebmailURL, "verolabz%40gmail.com") {
		t.Fatalf("recipient missing from webmail link %q", links.WebmailURL)
	}
	if !strings.Contains(links.Body, "Rating: 5 / 5") {
		t.Fatalf("body missing rating:\n%s", links.Body)
	}
	if strings.Contains(links.Body, "Time: 0001-01-01") {
		t.Fatal("zero timestamp should be replaced with now")
	}
}

func TestComposeRejectsInvalidRecord(t *testing.T) {
	uc := NewFeedbackUseCase([]string{"verolabz@gmail.com"})
	_, err := uc.Compose(domain.FeedbackRecord{Rating: 0})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
