// Package api is a client for the parts of the Bitwarden Secrets Manager API
// that a machine account uses: access token login and fetching secrets.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitwarden/sm-action/internal/smhttp"
	"github.com/bitwarden/sm-action/logger"
	"github.com/buildkite/roko"
)

const (
	DefaultAPIURL      = "https://api.bitwarden.com"
	DefaultIdentityURL = "https://identity.bitwarden.com"

	defaultUserAgent     = "bitwarden/sm-action"
	defaultRetryAttempts = 3

	// deviceTypeSDK is the Device-Type the Bitwarden SDKs identify as.
	deviceTypeSDK = "21"
)

// Config is configuration for the API Client
type Config struct {
	// APIURL is the base URL of the Secrets Manager API.
	APIURL string

	// IdentityURL is the base URL of the identity service used to log in.
	IdentityURL string

	// User agent used when communicating with Bitwarden.
	UserAgent string

	// If true, HTTP2 is disabled
	DisableHTTP2 bool

	// If true timings for each request will be logged
	TraceHTTP bool

	// The http client used, leave nil for the default
	HTTPClient *http.Client

	// optional TLS configuration primarily used for testing
	TLSConfig *tls.Config

	// RetryAttempts bounds how often a request is tried. Defaults to 3.
	RetryAttempts int

	// RetrySleepFunc overrides the sleep function within roko retries.
	// This is primarily useful for unit tests. It's recommended to leave as nil.
	RetrySleepFunc func(time.Duration)
}

// A Client manages communication with Bitwarden.
type Client struct {
	conf   Config
	client *http.Client
	logger logger.Logger

	mu      sync.RWMutex
	session *session
}

// NewClient returns a new Client.
func NewClient(l logger.Logger, conf Config) *Client {
	if conf.APIURL == "" {
		conf.APIURL = DefaultAPIURL
	}
	if conf.IdentityURL == "" {
		conf.IdentityURL = DefaultIdentityURL
	}
	if conf.UserAgent == "" {
		conf.UserAgent = defaultUserAgent
	}
	if conf.RetryAttempts <= 0 {
		conf.RetryAttempts = defaultRetryAttempts
	}

	client := conf.HTTPClient
	if client == nil {
		client = smhttp.NewClient(
			smhttp.WithAllowHTTP2(!conf.DisableHTTP2),
			smhttp.WithTLSConfig(conf.TLSConfig),
		)
	}

	return &Client{
		logger: l,
		client: client,
		conf:   conf,
	}
}

// Config returns the internal configuration for the Client
func (c *Client) Config() Config {
	return c.conf
}

type Header struct {
	Name  string
	Value string
}

// newRequest creates a request for path relative to baseURL.
func (c *Client) newRequest(
	ctx context.Context,
	method, baseURL, path string,
	body io.Reader,
	headers ...Header,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, joinURLPath(baseURL, path), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.conf.UserAgent)
	req.Header.Set("Device-Type", deviceTypeSDK)
	req.Header.Set("Accept", "application/json")

	for _, header := range headers {
		req.Header.Set(header.Name, header.Value)
	}

	return req, nil
}

// newJSONRequest is newRequest with body JSON encoded.
func (c *Client) newJSONRequest(
	ctx context.Context,
	method, baseURL, path string,
	body any,
	headers ...Header,
) (*http.Request, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, err
	}
	headers = append(headers, Header{Name: "Content-Type", Value: "application/json; charset=utf-8"})
	return c.newRequest(ctx, method, baseURL, path, buf, headers...)
}

// Response is a Bitwarden API response. This wraps the standard
// http.Response.
type Response struct {
	*http.Response
}

func newResponse(r *http.Response) *Response {
	return &Response{Response: r}
}

// doRequest sends req and decodes a successful JSON response into v.
func (c *Client) doRequest(req *http.Request, v any) (*Response, error) {
	resp, err := smhttp.Do(c.logger, c.client, req, smhttp.WithTraceHTTP(c.conf.TraceHTTP))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	response := newResponse(resp)

	if err := checkResponse(resp); err != nil {
		// the response is still returned so callers can inspect the status
		return response, err
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return response, fmt.Errorf("failed to decode JSON response: %w", err)
		}
	}

	return response, nil
}

// doWithRetry builds and sends a request until it succeeds, fails with a
// non-retryable error, or runs out of attempts. newReq is called once per
// attempt since request bodies cannot be replayed.
func (c *Client) doWithRetry(ctx context.Context, newReq func() (*http.Request, error), v any) (*Response, error) {
	r := roko.NewRetrier(
		roko.WithMaxAttempts(c.conf.RetryAttempts),
		roko.WithStrategy(roko.Exponential(2*time.Second, 0)),
		roko.WithJitter(),
		roko.WithSleepFunc(c.conf.RetrySleepFunc),
	)

	return roko.DoFunc(ctx, r, func(r *roko.Retrier) (*Response, error) {
		req, err := newReq()
		if err != nil {
			r.Break()
			return nil, err
		}

		resp, err := c.doRequest(req, v)
		if err == nil {
			return resp, nil
		}

		var apierr *ErrorResponse
		switch {
		case errors.As(err, &apierr) && !IsRetryableStatus(resp):
			r.Break()
		case !errors.As(err, &apierr) && !IsRetryableError(err):
			r.Break()
		default:
			c.logger.Warn("%s (%s)", err, r)
		}
		return resp, err
	})
}

// ErrorResponse is returned for any non-2xx response.
type ErrorResponse struct {
	Response *http.Response // HTTP response that caused this error

	// Message is set by the API service.
	Message string `json:"message"`

	// Error and ErrorDescription are set by the identity service.
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (r *ErrorResponse) Error() string {
	s := fmt.Sprintf("%v %v: %s",
		r.Response.Request.Method, r.Response.Request.URL,
		r.Response.Status)

	switch {
	case r.Message != "":
		s = fmt.Sprintf("%s: %v", s, r.Message)
	case r.ErrorDescription != "":
		s = fmt.Sprintf("%s: %v", s, r.ErrorDescription)
	case r.ErrorCode != "":
		s = fmt.Sprintf("%s: %v", s, r.ErrorCode)
	}

	return s
}

func IsErrHavingStatus(err error, code int) bool {
	var apierr *ErrorResponse
	return errors.As(err, &apierr) && apierr.Response.StatusCode == code
}

func checkResponse(r *http.Response) error {
	if c := r.StatusCode; 200 <= c && c <= 299 {
		return nil
	}

	errorResponse := &ErrorResponse{Response: r}
	data, err := io.ReadAll(r.Body)
	if err == nil && len(data) > 0 {
		json.Unmarshal(data, errorResponse)
	}

	return errorResponse
}

func joinURLPath(endpoint string, path string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}
