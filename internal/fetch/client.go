package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// maxLoggedBody bounds how much of an unexpected response body is logged.
const maxLoggedBody = 1024

// Options configures a Client.
type Options struct {
	Retry RetryPolicy

	// Timeout applies to each attempt. Zero means no timeout.
	Timeout time.Duration

	// RateLimit caps attempts per second across the client. Zero disables
	// limiting.
	RateLimit float64
	RateBurst int
}

// BasicAuth holds static credentials sent on every attempt.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes one GET. It fully determines the upstream call.
type Request struct {
	URL    string
	Params url.Values
	Auth   *BasicAuth
	Accept string
}

// Response is a classified upstream answer. Body is empty for the
// steady-state empty classes.
type Response struct {
	URL        string
	StatusCode int
	Class      Class
	Header     http.Header
	Body       []byte
}

// Client issues GETs with the retry policy applied around each call.
type Client struct {
	http   *retryablehttp.Client
	logger *slog.Logger
}

// NewClient creates a fetch client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = opts.Retry.MaxRetries
	httpClient.RetryWaitMin = opts.Retry.Delay
	httpClient.RetryWaitMax = opts.Retry.Delay
	httpClient.CheckRetry = opts.Retry.CheckRetry
	httpClient.Backoff = opts.Retry.Backoff
	httpClient.ErrorHandler = giveUp
	httpClient.Logger = logger
	httpClient.HTTPClient.Timeout = opts.Timeout

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		httpClient.HTTPClient.Transport = &limitedTransport{
			base:    httpClient.HTTPClient.Transport,
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		}
	}

	return &Client{http: httpClient, logger: logger}
}

// giveUp runs once the retry budget is spent or a non-retryable outcome is
// reached. Responses are handed back for classification; a missing
// response becomes a TransportError.
func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if err == nil {
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}
	return nil, &TransportError{Attempts: numTries, Err: err}
}

// Get issues the request. It returns a Response for 200, 204 and 304 and a
// *StatusError for every other status.
func (c *Client) Get(ctx context.Context, r Request) (*Response, error) {
	target, err := r.target()
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	if r.Auth != nil {
		req.SetBasicAuth(r.Auth.Username, r.Auth.Password)
	}
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// cancellation during a backoff wait bypasses the error handler
		var te *TransportError
		if !errors.As(err, &te) {
			te = &TransportError{Err: err}
		}
		te.URL = r.URL
		c.logger.ErrorContext(ctx, "request failed", "url", r.URL, "attempts", te.Attempts, "error", te.Err)
		return nil, te
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: r.URL, Attempts: 1, Err: fmt.Errorf("read body: %w", err)}
	}

	out := &Response{
		URL:        r.URL,
		StatusCode: resp.StatusCode,
		Class:      Classify(resp.StatusCode),
		Header:     resp.Header,
		Body:       body,
	}

	switch out.Class {
	case ClassOK:
		c.logger.InfoContext(ctx, "fetched", "url", r.URL, "status", resp.StatusCode, "bytes", len(body))
		return out, nil
	case ClassNoContent:
		c.logger.InfoContext(ctx, "no content", "url", r.URL, "status", resp.StatusCode)
		out.Body = nil
		return out, nil
	case ClassNotModified:
		c.logger.InfoContext(ctx, "not modified", "url", r.URL, "status", resp.StatusCode)
		out.Body = nil
		return out, nil
	case ClassClientError:
		c.logger.ErrorContext(ctx, "client error", "url", r.URL, "status", resp.StatusCode)
	case ClassAuthError:
		c.logger.ErrorContext(ctx, "auth error", "url", r.URL, "status", resp.StatusCode)
	case ClassTransient:
		c.logger.ErrorContext(ctx, "upstream unavailable, retries exhausted", "url", r.URL, "status", resp.StatusCode)
	default:
		c.logger.ErrorContext(ctx, "unexpected status", "url", r.URL, "status", resp.StatusCode, "body", truncate(body, maxLoggedBody))
	}

	return nil, &StatusError{
		URL:        r.URL,
		StatusCode: resp.StatusCode,
		Class:      out.Class,
		Body:       truncate(body, maxLoggedBody),
	}
}

func (r Request) target() (string, error) {
	if len(r.Params) == 0 {
		return r.URL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("fetch: parse url: %w", err)
	}
	q := u.Query()
	for k, vs := range r.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// limitedTransport waits on a shared limiter before every attempt,
// including retries.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// Getter is the subset of Client that adapters depend on.
type Getter interface {
	Get(ctx context.Context, r Request) (*Response, error)
}

var _ Getter = (*Client)(nil)
