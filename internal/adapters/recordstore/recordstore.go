// Package recordstore delivers submissions to an Airtable-style record API.
package recordstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"formgate/internal/adapters/provider"
	"formgate/internal/submission"
	"formgate/internal/validation"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/platform/sentinel"
)

// ServiceName identifies the adapter in results, logs and metrics.
const ServiceName = "recordStore"

type Config struct {
	BaseURL string
	Token   string
	BaseID  string
	Table   string
}

type createRequest struct {
	Fields   submission.Fields `json:"fields"`
	Typecast bool              `json:"typecast"`
}

type Adapter struct {
	endpoint string
	token    string
	client   *provider.Client
}

// New builds the adapter. Token, base ID and table are required.
func New(cfg Config, client *provider.Client) (*Adapter, error) {
	if cfg.Token == "" || cfg.BaseID == "" || cfg.Table == "" {
		return nil, fmt.Errorf("%w: record store token, base ID and table are required", sentinel.ErrNotConfigured)
	}
	if client == nil {
		client = provider.NewClient(ServiceName)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.airtable.com"
	}
	return &Adapter{
		endpoint: base + "/v0/" + url.PathEscape(cfg.BaseID) + "/" + url.PathEscape(cfg.Table),
		token:    cfg.Token,
		client:   client,
	}, nil
}

func (a *Adapter) Name() string {
	return ServiceName
}

// Deliver creates one record and returns its provider ID.
func (a *Adapter) Deliver(ctx context.Context, s submission.Submission) (string, error) {
	resp, err := a.client.PostJSON(ctx, a.endpoint, a.token, createRequest{
		Fields:   recordFields(s),
		Typecast: true,
	})
	if err != nil {
		return "", err
	}
	return provider.DecodeID(ServiceName, resp)
}

// recordFields appends pipeline metadata after the submitted fields. The
// metadata names are reserved, so they cannot collide with client input.
// Origin and User-Agent are request headers and get the same sanitizing as
// field values.
func recordFields(s submission.Submission) submission.Fields {
	meta := s.Metadata()
	fields := s.Fields()
	if id := s.ID(); id != "" {
		fields = append(fields, submission.Field{Name: "submissionId", Value: id})
	}
	fields = append(fields,
		submission.Field{Name: "submittedAt", Value: s.Timestamp()},
		submission.Field{Name: "origin", Value: validation.Sanitize(meta.Origin)},
		submission.Field{Name: "clientIp", Value: privacy.AnonymizeIP(meta.ClientIP)},
		submission.Field{Name: "userAgent", Value: validation.Sanitize(meta.UserAgent)},
	)
	return fields
}
