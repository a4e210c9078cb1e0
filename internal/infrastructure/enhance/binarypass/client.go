// Package binarypass talks to the format-preserving enhancement service.
// The service takes the raw uploaded document and returns the enhanced
// document in the same binary format, so no local extraction happens on
// this path.
package binarypass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/remote"
)

type Client struct {
	baseURL     string
	modelChoice string
	httpClient  *http.Client

	mu      sync.Mutex
	healthy bool
}

func New(baseURL, modelChoice string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelChoice: modelChoice,
		httpClient:  remote.DefaultHTTPClient(timeout),
	}
}

func (c *Client) ID() domain.BackendID { return domain.BackendBinaryPass }

// Available probes the service health endpoint. Only a healthy verdict is
// cached for the process lifetime; a failed probe can be a cancelled request
// or a transient dial error, so it is repeated on the next call. A missing
// base URL counts as unconfigured, not as a failure.
func (c *Client) Available(ctx context.Context) error {
	if c.baseURL == "" {
		return domain.WrapError(domain.ErrBackendUnavailable, "binarypass probe", errors.New("service URL not configured"))
	}

	c.mu.Lock()
	healthy := c.healthy
	c.mu.Unlock()
	if healthy {
		return nil
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := remote.GetJSON(ctx, c.httpClient, c.baseURL+"/health", &health, "health"); err != nil {
		return remote.AsUnavailable("binarypass probe", err)
	}
	if health.Status != "" && health.Status != "ok" && health.Status != "healthy" {
		return domain.WrapError(domain.ErrBackendUnavailable, "binarypass probe", fmt.Errorf("service reports status %q", health.Status))
	}

	c.mu.Lock()
	c.healthy = true
	c.mu.Unlock()
	return nil
}

// Enhance posts the source document and returns the enhanced bytes. The
// service preserves the container format, so MimeHint mirrors the upload.
func (c *Client) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	if req.File == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "binarypass enhance", errors.New("no source document"))
	}

	body, contentType, err := remote.EncodeMultipart(
		&remote.FilePart{FieldName: "file", Filename: req.File.Filename, Content: req.File.Content},
		[]remote.Field{
			{Name: "user_prompt", Value: req.EffectiveInstructions()},
			{Name: "model_choice", Value: c.modelChoice},
			{Name: "document_type", Value: string(req.DocumentType)},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("encode enhance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-document", body)
	if err != nil {
		return nil, fmt.Errorf("create enhance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := remote.DoShaped(c.httpClient, httpReq, "enhance", domain.ShapeBinary)
	if err != nil {
		return nil, remote.AsCallFailure("binarypass enhance", err)
	}
	if resp.Shape != domain.ShapeBinary {
		// The service only answers JSON when processing failed upstream.
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "binarypass enhance", fmt.Errorf("service answered JSON instead of a document: %s", snippet(resp.JSON)))
	}
	if len(resp.Binary) == 0 {
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "binarypass enhance", errors.New("empty response body"))
	}

	mime := resp.Mime
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = req.File.MimeType
	}
	return &domain.EnhancementResult{
		Backend:  domain.BackendBinaryPass,
		Artifact: resp.Binary,
		MimeHint: mime,
	}, nil
}

func snippet(data []byte) string {
	const max = 256
	if len(data) > max {
		data = data[:max]
	}
	return string(data)
}
