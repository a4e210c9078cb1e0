// Package directtext enhances already-extracted text through an OpenAI
// compatible chat completions API. Models are tried in preference order,
// reusing the same cascade mechanics the orchestrator applies to whole
// backends.
package directtext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/fallback"
	"github.com/verolabz/doctweak/internal/infrastructure/enhance/remote"
)

// DefaultModels is the preference order used when no explicit model list
// is configured.
var DefaultModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"openai/gpt-oss-120b",
	"openai/gpt-oss-20b",
}

type Client struct {
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL, apiKey string, models []string, timeout time.Duration, logger *slog.Logger) *Client {
	if len(models) == 0 {
		models = DefaultModels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		models:     models,
		httpClient: remote.DefaultHTTPClient(timeout),
		logger:     logger,
	}
}

func (c *Client) ID() domain.BackendID { return domain.BackendDirectText }

// Available only checks credentials; the API has no useful probe endpoint
// and a wasted completion call is too expensive for one.
func (c *Client) Available(ctx context.Context) error {
	if c.baseURL == "" {
		return domain.WrapError(domain.ErrBackendUnavailable, "directtext probe", errors.New("service URL not configured"))
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.WrapError(domain.ErrBackendUnavailable, "directtext probe", errors.New("API key missing"))
	}
	return nil
}

func (c *Client) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "directtext enhance", errors.New("no extracted text"))
	}

	prompt := userPrompt(text, req.EffectiveInstructions())
	system := systemPrompt(req.DocumentType)

	candidates := make([]fallback.Candidate[string], 0, len(c.models))
	for _, model := range c.models {
		model := model
		candidates = append(candidates, fallback.Candidate[string]{
			Name: model,
			Run: func(ctx context.Context) (string, error) {
				return c.complete(ctx, model, system, prompt)
			},
		})
	}

	enhanced, report, err := fallback.Run(ctx, candidates)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrBackendCallFailed, "directtext enhance", report.LastErr)
	}
	if report.FallbackDepth() > 0 {
		c.logger.Warn("model_cascade_fell_back",
			slog.String("model", report.Winner),
			slog.Int("depth", report.FallbackDepth()),
		)
	}

	return &domain.EnhancementResult{
		Backend:      domain.BackendDirectText,
		EnhancedText: enhanced,
		OriginalText: text,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReply struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, model, system, prompt string) (string, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   2048,
		TopP:        0.9,
	}

	var reply chatReply
	err := remote.PostJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", payload, &reply,
		map[string]string{"Authorization": "Bearer " + c.apiKey}, "completion")
	if err != nil {
		return "", err
	}
	if len(reply.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	content := strings.TrimSpace(reply.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("completion returned empty content")
	}
	return content, nil
}

func systemPrompt(docType domain.DocumentType) string {
	switch docType {
	case domain.DocTypeBusiness:
		return "You are an expert business document enhancer. Improve professional tone, clarity, and persuasive language. Optimize structure and flow, use industry-appropriate terminology, and keep the original meaning while making the document more impactful for decision-makers."
	case domain.DocTypeStudent:
		return "You are an expert document enhancer for students and freelancers. Strengthen structure, readability, and impact while keeping the author's genuine personal voice. Optimize the text for applications, resumes, and proposals, and highlight achievements effectively."
	default:
		return "You are an expert document enhancer. Improve clarity, structure, and readability, tailor tone and language to the stated purpose, and keep the original meaning while making the document more effective and professional."
	}
}

func userPrompt(text, instructions string) string {
	return fmt.Sprintf("Please enhance this document for the following context: %q\n\nOriginal Document:\n%s\n\nProvide the enhanced version, well-structured and optimized for the given context. Return only the enhanced document without additional commentary.", instructions, text)
}
