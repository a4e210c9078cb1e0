package domain

import (
	"errors"
	"testing"
)

func TestWrapErrorPreservesKind(t *testing.T) {
	err := WrapError(ErrBackendUnavailable, "probe binary-passthrough", errors.New("connection refused"))
	if !IsKind(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if IsKind(err, ErrBackendCallFailed) {
		t.Fatal("wrapped error must not match a different kind")
	}
}

func TestWrapErrorNilPassthrough(t *testing.T) {
	if err := WrapError(ErrInvalidInput, "noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestExtractionErrorReason(t *testing.T) {
	err := NewExtractionError(ReasonEncrypted, errors.New("pdf: encrypted"))
	if !IsKind(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if got := ExtractionReasonOf(err); got != ReasonEncrypted {
		t.Fatalf("expected encrypted reason, got %q", got)
	}
	if got := ExtractionReasonOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty reason for unrelated error, got %q", got)
	}
}

func TestSuggestsScannedSource(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{NewExtractionError(ReasonNoTextFound, nil), true},
		{errors.New("document looks scanned"), true},
		{errors.New("image-based PDF detected"), true},
		{NewExtractionError(ReasonCorrupted, nil), false},
		{errors.New("timeout"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := SuggestsScannedSource(c.err); got != c.want {
			t.Fatalf("SuggestsScannedSource(%v): expected %v, got %v", c.err, c.want, got)
		}
	}
}

func TestSafeMessageNeverLeaksDetail(t *testing.T) {
	err := WrapError(ErrBackendCallFailed, "ocr-pipeline enhance", errors.New("502 Bad Gateway: upstream key sk-abc123 rejected"))
	msg := SafeMessage(err)
	if msg != "Document processing failed. Please try again." {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSafeMessageByKind(t *testing.T) {
	inner := errors.New("detail")
	cases := []struct {
		kind error
		want string
	}{
		{ErrFileTooLarge, "File size must be less than 15MB."},
		{ErrEmptyFile, "File appears to be empty."},
		{ErrUnsupportedType, "Please upload a .txt, .pdf, .doc, or .docx file."},
		{ErrAllBackendsExhausted, "We couldn't process your document right now. Please try again."},
		{ErrAuthenticationRequired, "Please sign in to enhance documents."},
		{ErrNoResult, "No enhanced document is available yet."},
	}
	for _, c := range cases {
		if got := SafeMessage(WrapError(c.kind, "op", inner)); got != c.want {
			t.Fatalf("%v: expected %q, got %q", c.kind, c.want, got)
		}
	}
	if got := SafeMessage(errors.New("unclassified")); got != "Something went wrong. Please try again." {
		t.Fatalf("unexpected fallback message %q", got)
	}
}

func TestExtractionSafeMessages(t *testing.T) {
	cases := map[ExtractionReason]string{
		ReasonMissingSignature: "File does not appear to be a valid PDF.",
		ReasonNoTextFound:      "No readable text found. This might be a scanned or image-based document.",
		ReasonEncrypted:        "Document is password protected. Please remove the password and try again.",
		ReasonOutOfMemory:      "Document is too large to process. Please try a smaller file.",
		ReasonCorrupted:        "Document appears to be corrupted or unreadable.",
	}
	for reason, want := range cases {
		if got := SafeMessage(NewExtractionError(reason, nil)); got != want {
			t.Fatalf("%s: expected %q, got %q", reason, want, got)
		}
	}
}
