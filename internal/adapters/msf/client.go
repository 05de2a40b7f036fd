package msf

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/fetch"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/ingestion"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

const (
	// DefaultSchemaVersion matches the API version in DefaultBaseURL.
	DefaultSchemaVersion = "v2.1"
	// DefaultDFSType selects the DFS site whose salaries are returned.
	DefaultDFSType = "draftkings"

	contentType = "application/json"
	extension   = "json"
)

// Config holds the MySportsFeeds credentials and request defaults.
type Config struct {
	APIKey   string
	Password string

	SchemaVersion string
	// Params are sent with every request. Nil falls back to dfstype=draftkings.
	Params url.Values
}

// Client fetches MySportsFeeds feeds. It implements ingestion.Fetcher.
type Client struct {
	getter        fetch.Getter
	auth          fetch.BasicAuth
	schemaVersion string
	params        url.Values
	logger        *slog.Logger
}

var _ ingestion.Fetcher = (*Client)(nil)

// NewClient creates a new MySportsFeeds client on top of getter.
func NewClient(getter fetch.Getter, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	schemaVersion := cfg.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = DefaultSchemaVersion
	}
	params := cfg.Params
	if params == nil {
		params = DefaultParams()
	}
	return &Client{
		getter:        getter,
		auth:          fetch.BasicAuth{Username: cfg.APIKey, Password: cfg.Password},
		schemaVersion: schemaVersion,
		params:        params,
		logger:        logger,
	}
}

// DefaultParams returns the query parameters sent when none are configured.
func DefaultParams() url.Values {
	return url.Values{"dfstype": {DefaultDFSType}}
}

// Fetch GETs req.URL with Basic auth. A 200 body must be valid JSON; it is
// returned byte-for-byte as served.
func (c *Client) Fetch(ctx context.Context, req ingestion.FetchRequest) (ingestion.FetchResult, error) {
	resp, err := c.getter.Get(ctx, fetch.Request{
		URL:    req.URL,
		Params: c.params,
		Auth:   &c.auth,
		Accept: contentType,
	})
	if err != nil {
		return ingestion.FetchResult{}, err
	}

	result := ingestion.FetchResult{
		StatusCode:    resp.StatusCode,
		Empty:         resp.Class.Empty(),
		Provider:      model.MySportsFeeds,
		SchemaVersion: c.schemaVersion,
		Extension:     extension,
		ContentType:   contentType,
	}
	if result.Empty {
		return result, nil
	}

	if !json.Valid(resp.Body) {
		c.logger.ErrorContext(ctx, "response is not valid JSON", "url", req.URL, "bytes", len(resp.Body))
		return ingestion.FetchResult{}, &fetch.DecodeError{URL: req.URL, Err: errors.New("invalid JSON")}
	}

	if updated := lastUpdatedOn(resp.Body); updated != "" {
		c.logger.InfoContext(ctx, "feed freshness", "dataset", req.Dataset, "last_updated_on", updated)
	}

	result.Body = resp.Body
	return result, nil
}

// lastUpdatedOn pulls the feed timestamp every MySportsFeeds payload
// carries. It returns "" when absent.
func lastUpdatedOn(body []byte) string {
	var envelope struct {
		LastUpdatedOn string `json:"lastUpdatedOn"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.LastUpdatedOn
}
