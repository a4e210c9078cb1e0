package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StageIdle       Stage = "idle"
	StageUploading  Stage = "uploading"
	StageExtracting Stage = "extracting"
	StageEnhancing  Stage = "enhancing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// StageProgress maps each stage to its nominal progress percentage.
func StageProgress(stage Stage) int {
	switch stage {
	case StageUploading:
		return 20
	case StageExtracting:
		return 40
	case StageEnhancing:
		return 60
	case StageComplete:
		return 100
	default:
		return 0
	}
}

// StageLabel is the human-readable label shown next to the progress bar.
func StageLabel(stage Stage) string {
	switch stage {
	case StageIdle:
		return "Ready"
	case StageUploading:
		return "Uploading document..."
	case StageExtracting:
		return "Extracting text..."
	case StageEnhancing:
		return "Enhancing with AI..."
	case StageComplete:
		return "Complete!"
	case StageError:
		return "Error occurred"
	default:
		return string(stage)
	}
}

var allowedTransitions = map[Stage][]Stage{
	StageIdle:       {StageUploading},
	StageUploading:  {StageExtracting, StageEnhancing, StageError},
	StageExtracting: {StageEnhancing, StageError},
	StageEnhancing:  {StageComplete, StageError},
	StageComplete:   {StageIdle},
	StageError:      {StageIdle},
}

// Session tracks one document-enhancement request through the workflow.
// Progress is monotonically non-decreasing within a request; an error holds
// the progress reached by the last successful stage.
type Session struct {
	ID           string       `json:"id"`
	UserEmail    string       `json:"user_email,omitempty"`
	Filename     string       `json:"filename"`
	MimeType     string       `json:"mime_type"`
	StoragePath  string       `json:"storage_path"`
	Instructions string       `json:"instructions"`
	DocumentType DocumentType `json:"document_type"`
	OutputFormat OutputFormat `json:"output_format"`

	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	NeedsOCR     bool   `json:"needs_ocr,omitempty"`

	Backend    BackendID `json:"processing_method,omitempty"`
	ResultPath string    `json:"result_path,omitempty"`
	ResultName string    `json:"result_name,omitempty"`
	ResultMime string    `json:"result_mime,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transition advances the session to the given stage if the workflow allows
// it, bumping progress monotonically.
func (s *Session) Transition(to Stage, message string) error {
	if !transitionAllowed(s.Stage, to) {
		return fmt.Errorf("%w: transition %s -> %s", ErrInvalidInput, s.Stage, to)
	}
	s.Stage = to
	if message == "" {
		message = StageLabel(to)
	}
	s.Message = message
	if to == StageIdle {
		s.Progress = 0
	} else if p := StageProgress(to); p > s.Progress {
		// Error holds the last reached progress value.
		s.Progress = p
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the session to the error stage, recording the classified kind
// and a user-safe message. Progress is held.
func (s *Session) Fail(err error) error {
	if terr := s.Transition(StageError, StageLabel(StageError)); terr != nil {
		return terr
	}
	s.ErrorKind = kindName(err)
	s.ErrorMessage = SafeMessage(err)
	s.NeedsOCR = SuggestsScannedSource(err)
	return nil
}

// Reset returns a completed or failed session to idle, discarding prior
// outcome state.
func (s *Session) Reset() error {
	if err := s.Transition(StageIdle, StageLabel(StageIdle)); err != nil {
		return err
	}
	s.ErrorKind = ""
	s.ErrorMessage = ""
	s.NeedsOCR = false
	s.Backend = ""
	s.ResultPath = ""
	s.ResultName = ""
	s.ResultMime = ""
	return nil
}

func transitionAllowed(from, to Stage) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func kindName(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrFileTooLarge):
		return "FileTooLarge"
	case IsKind(err, ErrEmptyFile):
		return "EmptyFile"
	case IsKind(err, ErrUnsupportedType):
		return "UnsupportedType"
	case IsKind(err, ErrInvalidFilename):
		return "InvalidFilename"
	case IsKind(err, ErrExtractionFailed):
		return "ExtractionFailed"
	case IsKind(err, ErrAllBackendsExhausted):
		return "AllBackendsExhausted"
	case IsKind(err, ErrBackendUnavailable):
		return "BackendUnavailable"
	case IsKind(err, ErrBackendCallFailed):
		return "BackendCallFailed"
	case IsKind(err, ErrAuthenticationRequired):
		return "AuthenticationRequired"
	default:
		return "Internal"
	}
}
