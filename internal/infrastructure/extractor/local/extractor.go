// Package local converts supported source documents to plain text without
// leaving the process. Only formats the remote backends cannot ingest
// natively are extracted here; pdf/docx bytes headed for a binary-capable
// backend skip this package entirely.
package local

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/verolabz/doctweak/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch domain.NormalizeExtension(filename) {
	case "txt":
		return extractPlainText(content)
	case "pdf":
		return extractPDF(content)
	case "doc", "docx":
		return extractWord(content)
	default:
		return "", domain.WrapError(domain.ErrUnsupportedType, "extract text", errors.New("extension "+domain.NormalizeExtension(filename)))
	}
}

func extractPlainText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", domain.NewExtractionError(domain.ReasonCorrupted, errors.New("not valid UTF-8 text"))
	}
	return strings.TrimSpace(string(content)), nil
}

// extractWord handles .docx (OOXML zip) and legacy .doc. A legacy binary
// .doc is not a zip container, so it classifies as corrupted unless it is
// actually an OOXML file with the wrong extension.
func extractWord(content []byte) (string, error) {
	text, err := docxPlainText(content)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewExtractionError(domain.ReasonNoTextFound, errors.New("no text content found in Word document"))
	}
	return text, nil
}
