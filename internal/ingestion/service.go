package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/storage"
)

// FetchRequest contains input parameters for fetching a dataset.
type FetchRequest struct {
	URL     string
	Dataset model.Dataset
	Date    time.Time
}

// FetchResult wraps the fetched payload and metadata derived during fetch.
type FetchResult struct {
	Body       []byte
	StatusCode int
	// Empty is set when the upstream had nothing to hand out (204, 304).
	Empty bool

	Provider      model.Provider
	SchemaVersion string
	Extension     string
	ContentType   string
}

// Fetcher retrieves raw data for a given request.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// ObjectStorage writes payloads to object storage.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, data []byte, opts storage.PutOptions) error
}

// Outcome describes what an ingestion run left behind.
type Outcome string

const (
	OutcomeStored      Outcome = "stored"
	OutcomeNoContent   Outcome = "no content"
	OutcomeNotModified Outcome = "not modified"
)

// Report summarizes one ingestion.
type Report struct {
	Outcome    Outcome
	StatusCode int
	Bucket     string
	Key        string
	Bytes      int
}

// Service orchestrates ingestion steps: fetch, derive the object key, store.
type Service struct {
	fetcher       Fetcher
	objectStorage ObjectStorage
	bucket        string
	context       string
	logger        *slog.Logger
}

func NewService(fetcher Fetcher, objectStorage ObjectStorage, bucket, context string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, objectStorage: objectStorage, bucket: bucket, context: context, logger: logger}
}

func (s *Service) Ingest(ctx context.Context, req FetchRequest, runID model.RunID) (Report, error) {
	if err := runID.Validate(); err != nil {
		return Report{}, err
	}
	date := req.Date.Format(model.DateLayout)
	logger := s.logger.With("run_id", runID, "dataset", req.Dataset, "date", date)

	logger.DebugContext(ctx, "ingestion started", "url", req.URL)

	result, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "fetch failed", "url", req.URL, "error", err)
		return Report{}, fmt.Errorf("fetch: %w", err)
	}

	if result.Empty {
		outcome := OutcomeNoContent
		if result.StatusCode == http.StatusNotModified {
			outcome = OutcomeNotModified
		}
		logger.InfoContext(ctx, "nothing to store", "outcome", string(outcome), "status", result.StatusCode, "url", req.URL)
		return Report{Outcome: outcome, StatusCode: result.StatusCode}, nil
	}

	// Build object key
	key := storage.ObjectKey{
		Provider:      result.Provider,
		Context:       s.context,
		Dataset:       req.Dataset,
		SchemaVersion: result.SchemaVersion,
		Date:          date,
		Extension:     result.Extension,
	}
	if err := key.Validate(); err != nil {
		return Report{}, err
	}

	// Store data
	err = s.objectStorage.Put(ctx, s.bucket, key.Key(), result.Body, storage.PutOptions{
		ContentType: result.ContentType,
		Metadata:    map[string]string{"run-id": runID.String()},
	})
	if err != nil {
		logger.ErrorContext(ctx, "store failed", "bucket", s.bucket, "key", key.Key(), "error", err)
		return Report{}, fmt.Errorf("store: %w", err)
	}

	logger.InfoContext(ctx, "ingestion complete", "bucket", s.bucket, "key", key.Key(), "bytes", len(result.Body))
	return Report{
		Outcome:    OutcomeStored,
		StatusCode: result.StatusCode,
		Bucket:     s.bucket,
		Key:        key.Key(),
		Bytes:      len(result.Body),
	}, nil
}
