package msf

import "fmt"

const (
	// DefaultBaseURL is the NHL pull API root, version 2.1.
	DefaultBaseURL = "https://api.mysportsfeeds.com/v2.1/pull/nhl"
	DefaultFormat  = "json"

	EndpointDFS            = "dfs"
	EndpointDFSProjections = "dfs_projections"
)

// URLBuilder renders MySportsFeeds feed URLs. The zero value targets the
// public API in JSON.
type URLBuilder struct {
	BaseURL string
	Format  string
}

// Build returns {base}/{season}/date/{date}/{endpoint}.{format}. Inputs are
// not validated; a malformed season or date yields a URL the API rejects
// with a 4xx.
func (b URLBuilder) Build(season, date, endpoint string) string {
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	format := b.Format
	if format == "" {
		format = DefaultFormat
	}
	return fmt.Sprintf("%s/%s/date/%s/%s.%s", base, season, date, endpoint, format)
}

// BuildURL builds a JSON feed URL against the public API.
func BuildURL(season, date, endpoint string) string {
	return URLBuilder{}.Build(season, date, endpoint)
}
