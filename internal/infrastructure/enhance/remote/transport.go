// Package remote holds the HTTP plumbing shared by the enhancement
// backend clients: request helpers, status error typing, and the mapping
// from transport failures to domain error kinds.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
)

// maxResponseBytes caps how much of a backend response we buffer; enhanced
// binary artifacts stay well under this.
const maxResponseBytes = 64 << 20

const errorBodySnippet = 2048

// DefaultHTTPClient returns the client configuration every backend shares.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// HTTPStatusError is a non-2xx upstream reply. Body holds at most the
// first couple of KB for diagnostics; it never reaches end users.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// Field is one text part of a multipart form.
type Field struct {
	Name  string
	Value string
}

// FilePart is the file part of a multipart form.
type FilePart struct {
	FieldName string
	Filename  string
	Content   []byte
}

// EncodeMultipart builds a multipart body from a file part and text fields.
func EncodeMultipart(file *FilePart, fields []Field) (body *bytes.Buffer, contentType string, err error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if file != nil {
		part, err := writer.CreateFormFile(file.FieldName, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("write form file: %w", err)
		}
	}
	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}

// Do issues the request and returns the buffered body. Non-2xx replies
// become an *HTTPStatusError with a truncated body snippet.
func Do(client *http.Client, req *http.Request, operation string) (data []byte, contentType string, err error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("backend %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySnippet))
		return nil, "", &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s response: %w", operation, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// DoShaped issues the request and tags the reply with the wire shape the
// caller negotiated. A JSON content type overrides an expected binary
// shape, because the services report processing failures as JSON even when
// a binary document was requested.
func DoShaped(client *http.Client, req *http.Request, operation string, expect domain.ResponseShape) (domain.RemoteResponse, error) {
	data, contentType, err := Do(client, req, operation)
	if err != nil {
		return domain.RemoteResponse{}, err
	}
	if expect == domain.ShapeBinary && !strings.Contains(contentType, "json") {
		return domain.RemoteResponse{Shape: domain.ShapeBinary, Binary: data, Mime: contentType}, nil
	}
	return domain.RemoteResponse{Shape: domain.ShapeJSON, JSON: data}, nil
}

// PostJSON marshals payload, posts it, and decodes the JSON reply into out.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, out any, headers map[string]string, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	data, _, err := Do(client, req, operation)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// GetJSON fetches url and decodes the JSON reply into out.
func GetJSON(ctx context.Context, client *http.Client, url string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	data, _, err := Do(client, req, operation)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// AsCallFailure folds a transport error into the domain call-failure kind.
// Context cancellation passes through untouched so callers can abort the
// whole chain instead of moving to the next candidate.
func AsCallFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}
	return domain.WrapError(domain.ErrBackendCallFailed, operation, err)
}

// AsUnavailable folds a probe error into the unavailable kind.
func AsUnavailable(operation string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}
	return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}

// IsConnectionFailure reports whether the error is a dial-level failure,
// meaning the service is down rather than rejecting the request.
func IsConnectionFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
