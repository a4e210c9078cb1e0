// Package ocrpipeline talks to the OCR-backed enhancement service. It can
// read scanned and image-heavy documents server-side, so it receives the
// raw upload and answers with structured text, or with a rebuilt binary
// document when a binary output format was negotiated.
package ocrpipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/remote"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: remote.DefaultHTTPClient(timeout),
	}
}

func (c *Client) ID() domain.BackendID { return domain.BackendOCRPipe }

type healthReply struct {
	Status   string `json:"status"`
	Services struct {
		OCR      bool `json:"ocr"`
		Enhancer bool `json:"enhancer"`
	} `json:"services"`
}

// Available checks the health endpoint on every call. The service flips
// its capability flags when an upstream credential expires, so the verdict
// is not cacheable.
func (c *Client) Available(ctx context.Context) error {
	if c.baseURL == "" {
		return domain.WrapError(domain.ErrBackendUnavailable, "ocrpipeline probe", errors.New("service URL not configured"))
	}

	var health healthReply
	if err := remote.GetJSON(ctx, c.httpClient, c.baseURL+"/health", &health, "health"); err != nil {
		return remote.AsUnavailable("ocrpipeline probe", err)
	}
	if !health.Services.OCR {
		return domain.WrapError(domain.ErrBackendUnavailable, "ocrpipeline probe", errors.New("ocr service not configured"))
	}
	if !health.Services.Enhancer {
		return domain.WrapError(domain.ErrBackendUnavailable, "ocrpipeline probe", errors.New("enhancer service not configured"))
	}
	return nil
}

type processReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		OriginalText    string `json:"originalText"`
		EnhancedText    string `json:"enhancedText"`
		FormatPreserved bool   `json:"format_preserved"`
	} `json:"data"`
}

func (c *Client) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	if req.File == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ocrpipeline enhance", errors.New("no source document"))
	}

	body, contentType, err := remote.EncodeMultipart(
		&remote.FilePart{FieldName: "document", Filename: req.File.Filename, Content: req.File.Content},
		[]remote.Field{
			{Name: "context", Value: req.EffectiveInstructions()},
			{Name: "documentType", Value: string(req.DocumentType)},
			{Name: "preserve_format", Value: "true"},
			{Name: "enhancement_level", Value: "standard"},
			{Name: "output_format", Value: string(req.OutputFormat)},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("encode enhance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/process", body)
	if err != nil {
		return nil, fmt.Errorf("create enhance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	expect := domain.ShapeJSON
	if req.OutputFormat.IsBinary() {
		expect = domain.ShapeBinary
	}
	resp, err := remote.DoShaped(c.httpClient, httpReq, "enhance", expect)
	if err != nil {
		return nil, remote.AsCallFailure("ocrpipeline enhance", err)
	}

	if resp.Shape == domain.ShapeBinary {
		if len(resp.Binary) == 0 {
			return nil, domain.WrapError(domain.ErrBackendCallFailed, "ocrpipeline enhance", errors.New("empty binary response"))
		}
		return &domain.EnhancementResult{
			Backend:  domain.BackendOCRPipe,
			Artifact: resp.Binary,
			MimeHint: resp.Mime,
		}, nil
	}

	var reply processReply
	if err := json.Unmarshal(resp.JSON, &reply); err != nil {
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "ocrpipeline enhance", fmt.Errorf("decode enhance response: %w", err))
	}
	if !reply.Success {
		cause := reply.Error
		if cause == "" {
			cause = "processing reported failure without detail"
		}
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "ocrpipeline enhance", errors.New(cause))
	}
	if strings.TrimSpace(reply.Data.EnhancedText) == "" {
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "ocrpipeline enhance", errors.New("empty enhanced text"))
	}

	return &domain.EnhancementResult{
		Backend:      domain.BackendOCRPipe,
		EnhancedText: reply.Data.EnhancedText,
		OriginalText: reply.Data.OriginalText,
	}, nil
}
