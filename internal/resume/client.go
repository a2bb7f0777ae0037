package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// RequestResumePath is appended to the configured API endpoint.
const RequestResumePath = "request-resume"

// Request is the JSON body sent to the resume backend. Unset fields are
// sent as null.
type Request struct {
	RecaptchaResponse *string `json:"recaptchaResponse"`
	FullName          *string `json:"fullName"`
	Email             *string `json:"email"`
	PhoneNumber       *string `json:"phoneNumber"`
	Company           *string `json:"company"`
	Message           *string `json:"message"`
}

type response struct {
	Success *bool `json:"success"`
}

// Submitter sends one resume request. Any returned error counts as a failed
// submission.
type Submitter interface {
	RequestResume(ctx context.Context, req Request) error
}

// Client posts resume requests to the backend over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     logr.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request, on a copy of the http.Client so a shared
// client is left alone. Zero keeps the client's own timeout, which for the
// default client means only the caller's context can end a request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the logger used for request outcomes.
func WithClientLogger(l logr.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient builds a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/" + RequestResumePath,
		httpClient: &http.Client{},
		logger:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Endpoint returns the full URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// RequestResume posts req and succeeds only when the backend answers 2xx
// with {"success": true}.
func (c *Client) RequestResume(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("resume: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("resume: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error(err, "resume request transport failure", "endpoint", c.endpoint)
		return fmt.Errorf("resume: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("resume: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("resume backend returned error status", "status", resp.StatusCode)
		return &StatusError{StatusCode: resp.StatusCode}
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("resume: decode response: %w", err)
	}
	if parsed.Success == nil || !*parsed.Success {
		c.logger.Info("resume backend rejected request", "status", resp.StatusCode)
		return ErrRejected
	}

	c.logger.V(1).Info("resume request accepted", "status", resp.StatusCode)
	return nil
}
