package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Provider identifies an upstream data provider. It is the first segment
// of every object key.
type Provider string

const (
	MySportsFeeds Provider = "mysportsfeeds"
	MoneyPuck     Provider = "moneypuck"
)

// Dataset represents a known dataset identifier.
type Dataset string

const (
	NHLDFS             Dataset = "nhl_dfs"
	NHLDFSProjections  Dataset = "nhl_dfs_projections"
	MoneyPuckTeamStats Dataset = "moneypuck_team_stats"
)

// MSFDataset names the dataset stored for a MySportsFeeds endpoint.
func MSFDataset(endpoint string) Dataset {
	return Dataset("nhl_" + endpoint)
}

// Validate checks that the dataset name is usable as a key segment and a
// file name: lower-case letters, digits and underscores only.
func (d Dataset) Validate() error {
	if d == "" {
		return fmt.Errorf("dataset cannot be empty")
	}
	for _, r := range d {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return fmt.Errorf("dataset %q contains invalid character %q", string(d), r)
		}
	}
	return nil
}

// RunID represents a UUIDv7 run identifier for one flow invocation.
type RunID string

// NewRunID generates a fresh UUIDv7 run identifier.
func NewRunID() (RunID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run-id: %w", err)
	}
	return RunID(id.String()), nil
}

// Validate checks that the RunID is a valid UUIDv7.
func (r RunID) Validate() error {
	if r == "" {
		return fmt.Errorf("run-id cannot be empty")
	}
	id, err := uuid.Parse(string(r))
	if err != nil {
		return fmt.Errorf("run-id must be a valid UUID: %w", err)
	}
	if id.Version() != uuid.Version(7) {
		return fmt.Errorf("run-id must be a UUIDv7, got v%d", id.Version())
	}
	return nil
}

// String returns the run ID as a string.
func (r RunID) String() string {
	return string(r)
}
