package local

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// maxPDFPages bounds extraction latency; pages beyond the cap are skipped
// and noted in the output.
const maxPDFPages = 15

var pdfSignature = []byte("%PDF")

func extractPDF(content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", domain.NewExtractionError(domain.ReasonCorrupted, errors.New("zero-length pdf"))
	}
	if !bytes.Contains(content[:min(len(content), 8)], pdfSignature) {
		return "", domain.NewExtractionError(domain.ReasonMissingSignature, errors.New("missing %PDF marker"))
	}

	// The underlying parser panics on malformed structures; fold panics
	// into the classified failure path.
	defer func() {
		if r := recover(); r != nil {
			err = classifyPDFFailure(fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", classifyPDFFailure(err)
	}

	totalPages := reader.NumPage()
	pages := totalPages
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}

	if b.Len() == 0 {
		return "", domain.NewExtractionError(
			domain.ReasonNoTextFound,
			fmt.Errorf("no readable text in %d/%d pages, likely a scanned or image-based document", pages, totalPages),
		)
	}

	if pages < totalPages {
		fmt.Fprintf(&b, "\n\n[Note: processed first %d of %d pages]", pages, totalPages)
	}
	return b.String(), nil
}

func classifyPDFFailure(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return domain.NewExtractionError(domain.ReasonEncrypted, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "encrypt") || strings.Contains(msg, "password"):
		return domain.NewExtractionError(domain.ReasonEncrypted, err)
	case strings.Contains(msg, "out of memory") || strings.Contains(msg, "too large"):
		return domain.NewExtractionError(domain.ReasonOutOfMemory, err)
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "invalid") || strings.Contains(msg, "corrupt"):
		return domain.NewExtractionError(domain.ReasonCorrupted, err)
	default:
		return domain.NewExtractionError(domain.ReasonWorkerFailure, err)
	}
}
