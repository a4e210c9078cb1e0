package local

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// docxPlainText pulls the paragraph text out of an OOXML container.
// Paragraphs are separated by blank lines; runs within a paragraph are
// concatenated.
func docxPlainText(content []byte) (string, error) {
	paragraphs, err := docxParagraphs(content)
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func docxParagraphs(content []byte) ([]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.NewExtractionError(domain.ReasonCorrupted, fmt.Errorf("not an OOXML container: %w", err))
	}

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return nil, domain.NewExtractionError(domain.ReasonCorrupted, errors.New("container has no word/document.xml"))
	}

	rc, err := document.Open()
	if err != nil {
		return nil, domain.NewExtractionError(domain.ReasonCorrupted, fmt.Errorf("open document part: %w", err))
	}
	defer rc.Close()

	return walkDocumentXML(rc)
}

func walkDocumentXML(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.NewExtractionError(domain.ReasonCorrupted, fmt.Errorf("decode document xml: %w", err))
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para := strings.TrimSpace(current.String()); para != "" {
					paragraphs = append(paragraphs, para)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	if para := strings.TrimSpace(current.String()); para != "" {
		paragraphs = append(paragraphs, para)
	}
	return paragraphs, nil
}
