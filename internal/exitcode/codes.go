package exitcode

import (
	"errors"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/config"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/fetch"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/storage"
)

// Exit codes for the ingestion CLI.
// Schedulers can use these to decide retry strategy.
const (
	// Success - flow completed, including "no content" outcomes
	Success = 0

	// ConfigError - missing or invalid configuration or credentials
	// Don't retry: fix the config first
	ConfigError = 1

	// NetworkError - no response from upstream after all retries
	// Retry with backoff
	NetworkError = 2

	// APIError - upstream answered with a client, auth, exhausted transient
	// or unexpected status
	// Check logs, may need manual intervention
	APIError = 3

	// StorageError - failed to write to MinIO/S3
	// Retry with backoff
	StorageError = 4

	// DataError - received invalid/unparseable data from source
	// Don't retry: investigate the data
	DataError = 5

	// ApplicationError - anything else
	ApplicationError = 6
)

// For maps an error returned by a flow onto an exit code.
func For(err error) int {
	if err == nil {
		return Success
	}

	var (
		missingKey *config.ErrMissingRequiredKey
		cfgErr     *config.Error
		decodeErr  *fetch.DecodeError
		statusErr  *fetch.StatusError
		netErr     *fetch.TransportError
		storeErr   *storage.Error
	)
	switch {
	case errors.As(err, &missingKey), errors.As(err, &cfgErr):
		return ConfigError
	case errors.As(err, &decodeErr):
		return DataError
	case errors.As(err, &statusErr):
		return APIError
	case errors.As(err, &netErr):
		return NetworkError
	case errors.As(err, &storeErr):
		return StorageError
	}
	return ApplicationError
}
