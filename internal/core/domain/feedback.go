package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type FeedbackAction string

const (
	FeedbackAfterPreview  FeedbackAction = "preview"
	FeedbackAfterDownload FeedbackAction = "download"
)

// MaxFeedbackNotes bounds the free-text notes field.
const MaxFeedbackNotes = 1000

// PreviewFeedbackDelay is how long a preview stays undisturbed before
// feedback is solicited.
const PreviewFeedbackDelay = 30 * time.Second

// FeedbackFeatures is the fixed catalogue of requestable feature tags.
var FeedbackFeatures = []string{
	"better_quality",
	"faster_speed",
	"privacy_controls",
	"advanced_tweak",
	"multi_language",
	"feedback_context",
	"batch_processing",
	"accuracy",
	"smarter_ai",
}

// FeedbackRecord is assembled after a result exists and is never persisted
// server-side; it only ever travels inside an outgoing email body.
type FeedbackRecord struct {
	Rating       int
	Notes        string
	Features     []string
	OtherFeature string
	Filename     string
	Action       FeedbackAction
	UserEmail    string
	CreatedAt    time.Time
}

func (r FeedbackRecord) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return WrapError(ErrInvalidInput, "validate feedback", fmt.Errorf("rating %d out of range", r.Rating))
	}
	if len(r.Notes) > MaxFeedbackNotes {
		return WrapError(ErrInvalidInput, "validate feedback", fmt.Errorf("notes exceed %d characters", MaxFeedbackNotes))
	}
	return nil
}

// EmailBody renders the plain-text summary sent to the maintainers.
func (r FeedbackRecord) EmailBody() string {
	lines := []string{
		"Verolabz - DocTweak Feedback",
		"",
		fmt.Sprintf("Rating: %d / 5", r.Rating),
		fmt.Sprintf("Action: %s", valueOr(string(r.Action), "unknown")),
		fmt.Sprintf("File: %s", valueOr(r.Filename, "n/a")),
		fmt.Sprintf("User: %s", valueOr(r.UserEmail, "anonymous")),
		fmt.Sprintf("Time: %s", r.CreatedAt.UTC().Format(time.RFC3339)),
		"",
		"Requested Features:",
	}
	if len(r.Features) == 0 {
		lines = append(lines, "- (none)")
	} else {
		for _, f := range r.Features {
			lines = append(lines, "- "+f)
		}
	}
	if r.OtherFeature != "" {
		lines = append(lines, "Other Feature: "+r.OtherFeature)
	}
	lines = append(lines, "", "Notes:")
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		lines = append(lines, notes)
	} else {
		lines = append(lines, "(none provided)")
	}
	return strings.Join(lines, "\n")
}

// FeedbackSubject is the fixed subject line for feedback mail.
const FeedbackSubject = "Verolabz DocTweak Feedback"

// ComposeLinks holds the two email deep links plus the raw body for the
// copy-to-clipboard fallback. Delivery relies entirely on the user's mail
// client; this component makes no network call.
type ComposeLinks struct {
	WebmailURL string `json:"webmail_url"`
	MailtoURL  string `json:"mailto_url"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// BuildComposeLinks URL-encodes the record into a webmail compose URL and a
// mailto: fallback addressed to the given maintainers.
func (r FeedbackRecord) BuildComposeLinks(recipients []string) ComposeLinks {
	to := strings.Join(recipients, ",")
	body := r.EmailBody()
	webmail := fmt.Sprintf(
		"https://mail.google.com/mail/?view=cm&fs=1&to=%s&su=%s&body=%s",
		url.QueryEscape(to), url.QueryEscape(FeedbackSubject), url.QueryEscape(body),
	)
	// RFC 6068 requires percent-encoding in mailto URIs; query escaping
	// would render spaces as literal plus signs in most mail clients.
	mailto := fmt.Sprintf(
		"mailto:%s?subject=%s&body=%s",
		mailtoEscape(to), mailtoEscape(FeedbackSubject), mailtoEscape(body),
	)
	return ComposeLinks{
		WebmailURL: webmail,
		MailtoURL:  mailto,
		Subject:    FeedbackSubject,
		Body:       body,
	}
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
