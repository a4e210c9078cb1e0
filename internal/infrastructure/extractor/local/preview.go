package local

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// PreviewRenderer renders binary result artifacts as display-only HTML.
// Word documents are split into paragraphs, PDFs go through the page text
// extractor. Anything else is treated as UTF-8 text.
type PreviewRenderer struct{}

func NewPreviewRenderer() *PreviewRenderer { return &PreviewRenderer{} }

func (r *PreviewRenderer) RenderHTML(artifact []byte, mime string) (string, error) {
	switch {
	case strings.Contains(mime, "wordprocessingml"), strings.Contains(mime, "msword"):
		paragraphs, err := docxParagraphs(artifact)
		if err != nil {
			return "", fmt.Errorf("render word preview: %w", err)
		}
		return paragraphsHTML(paragraphs), nil
	case strings.Contains(mime, "pdf"):
		text, err := extractPDF(artifact)
		if err != nil {
			return "", fmt.Errorf("render pdf preview: %w", err)
		}
		return paragraphsHTML(strings.Split(text, "\n\n")), nil
	default:
		if !utf8.Valid(artifact) {
			return "", domain.NewExtractionError(domain.ReasonCorrupted, errors.New("artifact is not valid UTF-8 text"))
		}
		return paragraphsHTML(strings.Split(string(artifact), "\n\n")), nil
	}
}

func paragraphsHTML(paragraphs []string) string {
	var b strings.Builder
	b.WriteString("<div class=\"doc-preview\">")
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</div>")
	return b.String()
}
