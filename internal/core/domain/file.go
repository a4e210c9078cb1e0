package domain

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the hard upload limit: 15 MiB.
const MaxUploadBytes = 15 << 20

// UploadedFile is the raw source document as received from the user.
type UploadedFile struct {
	Filename string
	MimeType string
	Size     int64
	Content  []byte
}

// Extension returns the lowercased extension without the leading dot.
func (f UploadedFile) Extension() string {
	return NormalizeExtension(f.Filename)
}

func NormalizeExtension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

var supportedExtensions = map[string]bool{
	"txt":  true,
	"pdf":  true,
	"doc":  true,
	"docx": true,
}

// Validate checks intake rules in order; the first violated rule wins.
// It is a total function with no side effects.
func (f UploadedFile) Validate() error {
	if f.Size > MaxUploadBytes {
		return WrapError(ErrFileTooLarge, "validate upload", errors.New("size exceeds 15 MiB"))
	}
	if f.Size == 0 {
		return WrapError(ErrEmptyFile, "validate upload", errors.New("zero-length file"))
	}
	ext := f.Extension()
	if !supportedExtensions[ext] {
		return WrapError(ErrUnsupportedType, "validate upload", errors.New("extension "+ext))
	}
	if ext == "pdf" && strings.ContainsAny(f.Filename, "%?") {
		return WrapError(ErrInvalidFilename, "validate upload", errors.New("pdf filename contains reserved characters"))
	}
	return nil
}

// NeedsLocalExtraction reports whether the file must be converted to plain
// text before any enhancement. Binary office/PDF formats are forwarded to
// backends that ingest them natively; text is only extracted for them when a
// text-only candidate ends up handling the request.
func (f UploadedFile) NeedsLocalExtraction() bool {
	switch f.Extension() {
	case "txt", "doc":
		return true
	default:
		return false
	}
}
