package ara

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds each API request when no timeout is configured.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// Endpoint is the ARA server base URL, e.g. http://127.0.0.1:8000.
	Endpoint string

	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string

	// Timeout bounds each request. Zero uses DefaultHTTPTimeout.
	Timeout time.Duration

	// Limit is sent as the page size of collection requests. Zero leaves the
	// server default. Only the first page is ever read.
	Limit int

	// Logger receives a warning when a listing has further pages. Optional.
	Logger Logger
}

// Logger receives client warnings.
type Logger interface {
	LogWarn(message string)
}

// HTTPClient reads records from the ARA REST API (v1).
type HTTPClient struct {
	baseURL    *url.URL
	username   string
	password   string
	limit      int
	logger     Logger
	httpClient *http.Client
}

// NewHTTPClient creates a client for the given options.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("ara endpoint is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ara endpoint %q: %w", opts.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid ara endpoint %q: scheme must be http or https", opts.Endpoint)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	return &HTTPClient{
		baseURL:  base,
		username: opts.Username,
		password: opts.Password,
		limit:    opts.Limit,
		logger:   opts.Logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ListPlaybooks implements Source.
func (c *HTTPClient) ListPlaybooks(ctx context.Context, q PlaybookQuery) ([]Playbook, error) {
	params := url.Values{}
	for _, status := range q.Statuses {
		params.Add("status", status)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if !q.EndedAfter.IsZero() {
		params.Set("ended_after", q.EndedAfter.UTC().Format(time.RFC3339Nano))
	}
	c.applyLimit(params)

	var resp listResponse[Playbook]
	if err := c.get(ctx, "/api/v1/playbooks", params, &resp); err != nil {
		return nil, err
	}
	c.warnTruncated("playbooks", resp.Count, len(resp.Results), resp.Next)
	return resp.Results, nil
}

// ListResults implements Source.
func (c *HTTPClient) ListResults(ctx context.Context, playbookID int64) ([]Result, error) {
	params := url.Values{}
	params.Set("playbook", strconv.FormatInt(playbookID, 10))
	c.applyLimit(params)

	var resp listResponse[Result]
	if err := c.get(ctx, "/api/v1/results", params, &resp); err != nil {
		return nil, err
	}
	c.warnTruncated(fmt.Sprintf("results of playbook %d", playbookID), resp.Count, len(resp.Results), resp.Next)
	return resp.Results, nil
}

// GetTask implements Source.
func (c *HTTPClient) GetTask(ctx context.Context, id int64) (Task, error) {
	var task Task
	if err := c.get(ctx, fmt.Sprintf("/api/v1/tasks/%d", id), nil, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// GetHost implements Source.
func (c *HTTPClient) GetHost(ctx context.Context, id int64) (Host, error) {
	var host Host
	if err := c.get(ctx, fmt.Sprintf("/api/v1/hosts/%d", id), nil, &host); err != nil {
		return Host{}, err
	}
	return host, nil
}

// warnTruncated reports a listing that has pages beyond the first.
func (c *HTTPClient) warnTruncated(what string, count, got int, next *string) {
	if next == nil || c.logger == nil {
		return
	}
	c.logger.LogWarn(fmt.Sprintf("%s: read %d of %d records, later pages are not fetched; raise limit", what, got, count))
}

func (c *HTTPClient) applyLimit(params url.Values) {
	if c.limit > 0 {
		params.Set("limit", strconv.Itoa(c.limit))
	}
}

// get issues a GET request and decodes the JSON body into out.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: server returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}
