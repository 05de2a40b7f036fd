package moneypuck

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/fetch"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/ingestion"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

const (
	DefaultBaseURL = "https://moneypuck.com/moneypuck/playerData/seasonSummary"
	// DefaultDataset is the team-level aggregate file.
	DefaultDataset = "teams"
	// DefaultSchemaVersion is used because MoneyPuck does not version its files.
	DefaultSchemaVersion = "unknown"

	contentType = "text/csv"
	extension   = "csv"
)

// URLBuilder renders MoneyPuck season summary URLs.
type URLBuilder struct {
	BaseURL string
}

// Build returns {base}/{seasonYear}/{seasonType}/{dataset}.csv.
func (b URLBuilder) Build(seasonYear, seasonType, dataset string) string {
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	return fmt.Sprintf("%s/%s/%s/%s.csv", base, seasonYear, seasonType, dataset)
}

// BuildURL builds a season summary URL against the public site.
func BuildURL(seasonYear, seasonType, dataset string) string {
	return URLBuilder{}.Build(seasonYear, seasonType, dataset)
}

// Client fetches public MoneyPuck CSV files. No credentials are sent.
type Client struct {
	getter        fetch.Getter
	schemaVersion string
	logger        *slog.Logger
}

var _ ingestion.Fetcher = (*Client)(nil)

func NewClient(getter fetch.Getter, schemaVersion string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if schemaVersion == "" {
		schemaVersion = DefaultSchemaVersion
	}
	return &Client{getter: getter, schemaVersion: schemaVersion, logger: logger}
}

// Fetch GETs req.URL. A 200 body must start with a parseable CSV header
// row; the bytes are returned exactly as served.
func (c *Client) Fetch(ctx context.Context, req ingestion.FetchRequest) (ingestion.FetchResult, error) {
	resp, err := c.getter.Get(ctx, fetch.Request{URL: req.URL, Accept: contentType})
	if err != nil {
		return ingestion.FetchResult{}, err
	}

	result := ingestion.FetchResult{
		StatusCode:    resp.StatusCode,
		Empty:         resp.Class.Empty(),
		Provider:      model.MoneyPuck,
		SchemaVersion: c.schemaVersion,
		Extension:     extension,
		ContentType:   contentType,
	}
	if result.Empty {
		return result, nil
	}

	header, err := readHeader(resp.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "response is not CSV", "url", req.URL, "bytes", len(resp.Body), "error", err)
		return ingestion.FetchResult{}, &fetch.DecodeError{URL: req.URL, Err: err}
	}
	c.logger.DebugContext(ctx, "csv header", "dataset", req.Dataset, "columns", len(header))

	result.Body = resp.Body
	return result, nil
}

// readHeader parses the first record. Anything with fewer than two columns
// is an HTML error page or truncated download rather than a stats table.
func readHeader(body []byte) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty body")
	}
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csv header has %d column(s)", len(header))
	}
	return header, nil
}
