package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFileTooLarge           = errors.New("file too large")
	ErrEmptyFile              = errors.New("empty file")
	ErrUnsupportedType        = errors.New("unsupported file type")
	ErrInvalidFilename        = errors.New("invalid filename")
	ErrExtractionFailed       = errors.New("extraction failed")
	ErrBackendUnavailable     = errors.New("backend unavailable")
	ErrBackendCallFailed      = errors.New("backend call failed")
	ErrAllBackendsExhausted   = errors.New("all backends exhausted")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNoResult               = errors.New("no result available")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTemporary              = errors.New("temporary failure")
)

// ExtractionReason narrows ErrExtractionFailed to the cause the user can act on.
type ExtractionReason string

const (
	ReasonMissingSignature ExtractionReason = "missing-signature"
	ReasonNoTextFound      ExtractionReason = "no-text-found"
	ReasonEncrypted        ExtractionReason = "encrypted"
	ReasonWorkerFailure    ExtractionReason = "worker-failure"
	ReasonOutOfMemory      ExtractionReason = "out-of-memory"
	ReasonCorrupted        ExtractionReason = "corrupted"
)

// ExtractionError carries the classified reason alongside the underlying cause.
type ExtractionError struct {
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed (%s)", e.Reason)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }

func NewExtractionError(reason ExtractionReason, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Err: err}
}

// ExtractionReasonOf returns the classified reason when err is an extraction
// failure, or an empty reason otherwise.
func ExtractionReasonOf(err error) ExtractionReason {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Reason
	}
	return ""
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// SuggestsScannedSource reports whether a failure looks like the source is a
// scanned or image-only document that would need OCR. String matching is a
// heuristic; it is deliberately confined to this one function.
func SuggestsScannedSource(err error) bool {
	if err == nil {
		return false
	}
	if ExtractionReasonOf(err) == ReasonNoTextFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"scanned", "image-based", "no readable text"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// SafeMessage maps an error to a user-facing message. Upstream status lines
// and internal detail never pass through here.
func SafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrFileTooLarge):
		return "File size must be less than 15MB."
	case IsKind(err, ErrEmptyFile):
		return "File appears to be empty."
	case IsKind(err, ErrUnsupportedType):
		return "Please upload a .txt, .pdf, .doc, or .docx file."
	case IsKind(err, ErrInvalidFilename):
		return "Filename contains invalid characters."
	case IsKind(err, ErrExtractionFailed):
		return extractionMessage(ExtractionReasonOf(err))
	case IsKind(err, ErrBackendUnavailable):
		return "The enhancement service is currently unavailable. Please try again later."
	case IsKind(err, ErrAllBackendsExhausted):
		return "We couldn't process your document right now. Please try again."
	case IsKind(err, ErrBackendCallFailed):
		return "Document processing failed. Please try again."
	case IsKind(err, ErrAuthenticationRequired):
		return "Please sign in to enhance documents."
	case IsKind(err, ErrSessionNotFound):
		return "Session not found."
	case IsKind(err, ErrNoResult):
		return "No enhanced document is available yet."
	default:
		return "Something went wrong. Please try again."
	}
}

func extractionMessage(reason ExtractionReason) string {
	switch reason {
	case ReasonMissingSignature:
		return "File does not appear to be a valid PDF."
	case ReasonNoTextFound:
		return "No readable text found. This might be a scanned or image-based document."
	case ReasonEncrypted:
		return "Document is password protected. Please remove the password and try again."
	case ReasonOutOfMemory:
		return "Document is too large to process. Please try a smaller file."
	case ReasonCorrupted:
		return "Document appears to be corrupted or unreadable."
	default:
		return "Could not read the document. Please try copy-pasting the text instead."
	}
}
