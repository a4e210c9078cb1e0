package httpadapter

import (
	"net/http"

	"github.com/verolabz/doctweak/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrEmptyFile),
		domain.IsKind(err, domain.ErrUnsupportedType),
		domain.IsKind(err, domain.ErrInvalidFilename),
		domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoResult):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorKindLabel names the validation failure for metrics without leaking
// message text into label values.
func errorKindLabel(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrFileTooLarge):
		return "file_too_large"
	case domain.IsKind(err, domain.ErrEmptyFile):
		return "empty_file"
	case domain.IsKind(err, domain.ErrUnsupportedType):
		return "unsupported_type"
	case domain.IsKind(err, domain.ErrInvalidFilename):
		return "invalid_filename"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
