// Package notifier emails each submission through a Resend-style API.
package notifier

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/mssola/useragent"

	"formgate/internal/adapters/provider"
	"formgate/internal/submission"
	"formgate/internal/validation"
	"formgate/pkg/email"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/platform/sentinel"
)

// ServiceName identifies the adapter in results, logs and metrics.
const ServiceName = "notifier"

const defaultSubject = "New form submission"

type Config struct {
	BaseURL string
	APIKey  string
	From    string
	To      []string
	Subject string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type Adapter struct {
	endpoint string
	cfg      Config
	client   *provider.Client
}

// New builds the adapter. An API key, a sender and at least one recipient
// are required.
func New(cfg Config, client *provider.Client) (*Adapter, error) {
	if cfg.APIKey == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("%w: email API key, sender and recipients are required", sentinel.ErrNotConfigured)
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	if client == nil {
		client = provider.NewClient(ServiceName)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.resend.com"
	}
	return &Adapter{endpoint: base + "/emails", cfg: cfg, client: client}, nil
}

func (a *Adapter) Name() string {
	return ServiceName
}

// Deliver sends one notification and returns the provider message ID.
func (a *Adapter) Deliver(ctx context.Context, s submission.Submission) (string, error) {
	req, err := a.buildRequest(s)
	if err != nil {
		return "", provider.NewProviderError(provider.ErrorInternal, ServiceName, "could not render email", err)
	}
	resp, err := a.client.PostJSON(ctx, a.endpoint, a.cfg.APIKey, req)
	if err != nil {
		return "", err
	}
	return provider.DecodeID(ServiceName, resp)
}

func (a *Adapter) buildRequest(s submission.Submission) (*sendRequest, error) {
	fields := s.Fields()
	meta := s.Metadata()

	view := emailView{
		Timestamp: s.Timestamp(),
		Origin:    meta.Origin,
		Client:    DescribeClient(meta.UserAgent),
		IP:        privacy.AnonymizeIP(meta.ClientIP),
		ID:        s.ID(),
	}
	for _, f := range fields {
		view.Fields = append(view.Fields, fieldView{
			Name: f.Name,
			HTML: htmlValue(f.Value),
			Text: html.UnescapeString(submission.ValueString(f.Value)),
		})
	}

	htmlOut, textOut, err := render(view)
	if err != nil {
		return nil, err
	}

	return &sendRequest{
		From:    a.cfg.From,
		To:      a.cfg.To,
		Subject: subject(a.cfg.Subject, fields),
		HTML:    htmlOut,
		Text:    textOut,
		ReplyTo: replyTo(fields),
	}, nil
}

// htmlValue trusts sanitized strings, which carry no raw markup, and keeps
// their line breaks visible.
func htmlValue(v any) template.HTML {
	s, ok := v.(string)
	if !ok {
		return template.HTML(template.HTMLEscapeString(submission.ValueString(v)))
	}
	return template.HTML(strings.ReplaceAll(s, "\n", "<br>"))
}

// subject names the submitter, falling back to a name guessed from a valid
// email address.
func subject(base string, fields submission.Fields) string {
	name := strings.Join(strings.Fields(html.UnescapeString(fields.String("name"))), " ")
	if name == "" {
		if addr := replyTo(fields); addr != "" {
			name = email.DisplayName(addr)
		}
	}
	if name == "" {
		return base
	}
	return base + " from " + name
}

// replyTo returns the submitter's address when it is a well-formed email.
func replyTo(fields submission.Fields) string {
	addr := html.UnescapeString(fields.String("email"))
	if !validation.IsEmail(addr) {
		return ""
	}
	return addr
}

// DescribeClient renders a user agent as "Browser on OS".
func DescribeClient(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "Unknown client"
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "Unknown browser"
	}
	os := parsed.OS()
	if os == "" {
		os = parsed.Platform()
	}
	if os == "" {
		os = "unknown OS"
	}
	out := browser + " on " + os
	if parsed.Bot() {
		out += " (bot)"
	}
	return strings.Join(strings.Fields(out), " ")
}
