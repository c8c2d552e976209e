package vrchat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	apiKeyCookie   = "apiKey"

	// maxErrorBody caps how much of a failed response is kept in errors.
	maxErrorBody = 512
)

// Credentials is the account login plus the static API key.
type Credentials struct {
	APIKey   string
	Username string
	Password string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL     string
	Credentials Credentials

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration

	UserAgent string

	// TLSConfig overrides the transport's TLS settings when non-nil.
	TLSConfig *tls.Config

	// HTTPClient replaces the default client entirely when non-nil. Timeout
	// and TLSConfig are ignored in that case.
	HTTPClient *http.Client
}

// Client is a thin HTTP client for the platform REST API. Every request
// carries HTTP basic auth and the apiKey cookie. It performs no retries;
// callers decide what to do with a failed call.
type Client struct {
	baseURL    string
	creds      Credentials
	userAgent  string
	httpClient *http.Client
}

// NewClient validates cfg and builds a Client. No network call is made.
// Failures are returned as *ConnectionError.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, &ConnectionError{BaseURL: cfg.BaseURL, Err: err}
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, &ConnectionError{
			BaseURL: cfg.BaseURL,
			Err:     fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return nil, &ConnectionError{BaseURL: cfg.BaseURL, Err: errors.New("missing host")}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLSConfig != nil {
			transport.TLSClientConfig = cfg.TLSConfig
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}

	return &Client{
		baseURL:    base,
		creds:      cfg.Credentials,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
	}, nil
}

// Do sends a request to ep using ep.Method. query is appended when
// non-empty, body is JSON-encoded when non-nil, and the JSON response is
// decoded into result when result is non-nil.
func (c *Client) Do(
	ctx context.Context,
	ep Endpoint,
	query url.Values,
	body interface{},
	result interface{},
) error {
	path := ep.Path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, ep.Method, path, body, result)
}

// do builds the request, attaches auth, and decodes the response.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{
				Method: method, Path: path,
				Err: fmt.Errorf("marshaling request body: %w", err),
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &RequestError{
			Method: method, Path: path,
			Err: fmt.Errorf("creating request: %w", err),
		}
	}

	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.AddCookie(&http.Cookie{Name: apiKeyCookie, Value: c.creds.APIKey})
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{
			Method: method, Path: path,
			Err: fmt.Errorf("executing request: %w", err),
		}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return &RequestError{
			Method: method, Path: path, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("reading response body: %w", readErr),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{
			Method: method, Path: path, StatusCode: resp.StatusCode,
		}
		var apiErr ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			reqErr.Message = apiErr.Error.Message
		} else if len(respBody) > 0 {
			reqErr.Err = errors.New(truncate(string(respBody), maxErrorBody))
		}
		return reqErr
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &RequestError{
			Method: method, Path: path, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unmarshaling response: %w", err),
		}
	}

	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
