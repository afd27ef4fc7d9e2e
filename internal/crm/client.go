// Package crm is the HTTP/JSON client for the remote lead management API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpggio/leadboard/internal/domain/lead"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the hosted CRM endpoint.
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	// DefaultVersion is sent in the Version header.
	DefaultVersion = "2021-07-28"

	maxErrorBody = 2048
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client. A
// client passed to WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithVersion overrides the API version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if strings.TrimSpace(version) != "" {
			c.version = version
		}
	}
}

// Client implements lead.LeadAPI over HTTP.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

var _ lead.LeadAPI = (*Client)(nil)

// NewClient creates a client for the API at baseURL. By default requests
// time out after 30s and are throttled to 10 req/s.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		version: DefaultVersion,
		timeout: 30 * time.Second,
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// ListLeadsByStage fetches every lead grouped by stage title.
func (c *Client) ListLeadsByStage(ctx context.Context) (map[string][]lead.Lead, error) {
	var resp pipelineResponse
	if err := c.do(ctx, http.MethodGet, "/pipeline/leads", nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string][]lead.Lead, len(resp.Stages))
	for stage, leads := range resp.Stages {
		bucket := make([]lead.Lead, 0, len(leads))
		for _, wl := range leads {
			l := wl.toLead()
			if l.Stage == "" {
				l.Stage = stage
			}
			bucket = append(bucket, l)
		}
		out[stage] = bucket
	}
	return out, nil
}

// StageTags fetches the tag vocabulary of a stage.
func (c *Client) StageTags(ctx context.Context, stage string) ([]string, error) {
	var resp tagsResponse
	if err := c.do(ctx, http.MethodGet, "/pipeline/stages/"+url.PathEscape(stage)+"/tags", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tags == nil {
		return []string{}, nil
	}
	return resp.Tags, nil
}

// CreateLead creates a lead in stage.
func (c *Client) CreateLead(ctx context.Context, stage string, draft lead.Draft) (*lead.Lead, error) {
	req := createRequest{
		Stage:      stage,
		Name:       draft.Name,
		LoanType:   draft.LoanType,
		LoanAmount: draft.LoanAmount,
		Tags:       draft.Tags,
	}
	return c.leadCall(ctx, http.MethodPost, "/pipeline/leads", req)
}

// UpdateLead sends a partial update.
func (c *Client) UpdateLead(ctx context.Context, id string, patch lead.Patch) (*lead.Lead, error) {
	return c.leadCall(ctx, http.MethodPatch, leadPath(id), patch)
}

// MoveLead moves a lead between stages.
func (c *Client) MoveLead(ctx context.Context, id, fromStage, toStage string) (*lead.Lead, error) {
	return c.leadCall(ctx, http.MethodPost, leadPath(id)+"/move", moveRequest{FromStage: fromStage, ToStage: toStage})
}

// DeleteLead deletes a lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, leadPath(id), nil, nil)
}

// UpdateTags replaces the tags of a lead.
func (c *Client) UpdateTags(ctx context.Context, id string, tags []string) (*lead.Lead, error) {
	if tags == nil {
		tags = []string{}
	}
	return c.leadCall(ctx, http.MethodPut, leadPath(id)+"/tags", tagsRequest{Tags: tags})
}

func (c *Client) leadCall(ctx context.Context, method, path string, body any) (*lead.Lead, error) {
	var resp wireLead
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	l := resp.toLead()
	return &l, nil
}

func leadPath(id string) string {
	return "/pipeline/leads/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("crm: rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("crm: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("crm: %s %s: empty response body", method, path)
		}
		return fmt.Errorf("crm: decode %s %s: %w", method, path, err)
	}
	return nil
}
