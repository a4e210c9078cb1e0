package domain

import (
	"encoding/json"
	"strings"
)

type BackendID string

const (
	BackendBinaryPass BackendID = "binary-passthrough"
	BackendOCRPipe    BackendID = "ocr-pipeline"
	BackendDirectText BackendID = "direct-text"
	BackendLocalEcho  BackendID = "local-echo"
)

type DocumentType string

const (
	DocTypeBusiness DocumentType = "business"
	DocTypeStudent  DocumentType = "student"
	DocTypeGeneral  DocumentType = "general"
	DocTypeAuto     DocumentType = "auto"
)

func ParseDocumentType(raw string) DocumentType {
	switch DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case DocTypeBusiness:
		return DocTypeBusiness
	case DocTypeStudent:
		return DocTypeStudent
	case DocTypeGeneral:
		return DocTypeGeneral
	default:
		return DocTypeAuto
	}
}

type OutputFormat string

const (
	FormatHTML     OutputFormat = "html"
	FormatMarkdown OutputFormat = "markdown"
	FormatText     OutputFormat = "text"
	FormatDocx     OutputFormat = "docx"
	FormatPDF      OutputFormat = "pdf"
)

// IsBinary reports whether the negotiated format comes back as raw bytes
// rather than JSON.
func (f OutputFormat) IsBinary() bool {
	return f == FormatDocx || f == FormatPDF
}

func ParseOutputFormat(raw string) OutputFormat {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatMarkdown:
		return FormatMarkdown
	case FormatText:
		return FormatText
	case FormatDocx:
		return FormatDocx
	case FormatPDF:
		return FormatPDF
	default:
		return FormatHTML
	}
}

// DefaultInstructions is applied when the user submits no instructions.
const DefaultInstructions = "automatic enhancement"

// EnhancementRequest is the immutable payload dispatched to a backend
// candidate. Either File or Text is set; Text carries already-extracted
// content for text-only backends.
type EnhancementRequest struct {
	File         *UploadedFile
	Text         string
	Instructions string
	DocumentType DocumentType
	OutputFormat OutputFormat
}

func (r EnhancementRequest) EffectiveInstructions() string {
	if s := strings.TrimSpace(r.Instructions); s != "" {
		return s
	}
	return DefaultInstructions
}

// EnhancementResult is one successful backend outcome. Exactly one of
// Artifact or EnhancedText carries the payload.
type EnhancementResult struct {
	Backend      BackendID
	Artifact     []byte
	MimeHint     string
	EnhancedText string
	OriginalText string
}

// IsBinary reports whether the result is a ready-made document artifact.
func (r *EnhancementResult) IsBinary() bool {
	return len(r.Artifact) > 0
}

// ResponseShape declares how a backend answers; clients pick the shape up
// front instead of sniffing the body at runtime.
type ResponseShape int

const (
	ShapeJSON ResponseShape = iota
	ShapeBinary
)

// RemoteResponse is the tagged union of the two wire shapes backends use.
// Mime carries the reply Content-Type for binary payloads.
type RemoteResponse struct {
	Shape  ResponseShape
	JSON   json.RawMessage
	Binary []byte
	Mime   string
}
