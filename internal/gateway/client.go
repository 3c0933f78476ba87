package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

// Default timeouts, matching the mobile client this replaces.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 15 * time.Second

	// maxResponseSize caps a decoded body. /api/states on a large
	// installation is a few MB.
	maxResponseSize = 32 << 20
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client talks to one gateway base URL with one bearer token.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient validates baseURL and returns a client bound to it.
//
// A malformed URL fails here rather than on the first request.
//
// Parameters:
//   - baseURL: e.g. "http://homeassistant.local:8123"
//   - token: long-lived access token sent as a Bearer credential
//   - opts: timeouts and transport
//
// Returns:
//   - *Client: ready to use
//   - error: wraps ErrInvalidURL
func NewClient(baseURL, token string, opts Options) (*Client, error) {
	normalised, err := normaliseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext
		t.TLSHandshakeTimeout = opts.ConnectTimeout
		transport = t
	}

	return &Client{
		baseURL: normalised,
		token:   token,
		httpClient: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: transport,
		},
	}, nil
}

func normaliseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: query and fragment are not allowed", ErrInvalidURL)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalised base URL the client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListAll fetches every entity (GET /api/states) as an id-sorted snapshot.
func (c *Client) ListAll(ctx context.Context) (entity.Snapshot, error) {
	var entities []entity.Entity
	if err := c.getJSON(ctx, "/api/states", &entities); err != nil {
		return entity.Snapshot{}, err
	}
	return entity.NewSnapshot(entities), nil
}

// GetOne fetches a single entity (GET /api/states/{id}).
func (c *Client) GetOne(ctx context.Context, entityID string) (entity.Entity, error) {
	var e entity.Entity
	if err := c.getJSON(ctx, "/api/states/"+url.PathEscape(entityID), &e); err != nil {
		return entity.Entity{}, err
	}
	if e.ID == "" {
		return entity.Entity{}, fmt.Errorf("%w: state for %s has no entity_id", ErrMalformedResponse, entityID)
	}
	return e, nil
}

// Invoke sends action a for entityID (POST /api/services/{domain}/{service}).
// A 2xx response is success; the response body is ignored.
func (c *Client) Invoke(ctx context.Context, entityID string, a Action) error {
	call, err := resolve(entityID, a)
	if err != nil {
		return err
	}

	body, err := json.Marshal(call.body)
	if err != nil {
		return fmt.Errorf("encoding service call: %w", err)
	}

	path := "/api/services/" + url.PathEscape(call.domain) + "/" + url.PathEscape(call.service)
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck // Drain for connection reuse

	return nil
}

// HealthCheck calls GET /api/, which answers 200 when the token is valid.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrUnreachable, path, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}

// do performs one request and classifies the outcome. On success the
// caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Best effort detail
		resp.Body.Close()
		detail := strings.TrimSpace(string(snippet))
		if detail != "" {
			return nil, fmt.Errorf("%w: %s %s: HTTP %d: %s", statusError(resp.StatusCode), method, path, resp.StatusCode, detail)
		}
		return nil, fmt.Errorf("%w: %s %s: HTTP %d", statusError(resp.StatusCode), method, path, resp.StatusCode)
	}

	return resp, nil
}

// classifyTransport wraps a transport failure as ErrUnreachable, keeping
// the cause (including context.Canceled) reachable through errors.Is.
func classifyTransport(method, path string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, path, err)
}
