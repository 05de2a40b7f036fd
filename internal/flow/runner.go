// Package flow wires the ingestion steps into the three scheduled flows:
// DFS actuals, DFS projections and MoneyPuck team stats.
//
// Every invocation loads credentials first and fails before any network
// call when a required key is missing. URL building is memoized for the
// lifetime of the Runner.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/adapters/moneypuck"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/adapters/msf"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/config"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/fetch"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/ingestion"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/storage"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/task"
)

// Flow names, as used by the CLI and the scheduler.
const (
	DFSActualsName     = "dfs"
	DFSProjectionsName = "projections"
	TeamStatsName      = "teamstats"
)

// Names lists every flow in the order run-all executes them.
var Names = []string{DFSActualsName, DFSProjectionsName, TeamStatsName}

// StoreOpener connects to object storage with the loaded credentials.
type StoreOpener func(ctx context.Context, cfg storage.MinIOConfig) (ingestion.ObjectStorage, error)

// Runner executes flows. It is safe for concurrent use.
type Runner struct {
	settings  *config.Settings
	credsPath string
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
	openStore StoreOpener
	fetcher   *fetch.Client
	urls      *task.Memo[string]
}

type Option func(*Runner)

// WithClock overrides time.Now, used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithStoreOpener overrides how the object store client is created.
func WithStoreOpener(open StoreOpener) Option {
	return func(r *Runner) { r.openStore = open }
}

func NewRunner(settings *config.Settings, credsPath string, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if credsPath == "" {
		credsPath = config.DefaultCredentialsPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		settings:  settings,
		credsPath: credsPath,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
		openStore: openMinIO,
		urls:      task.NewMemo[string]("build_url", settings.Cache.Size, settings.Cache.TTL),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.fetcher = fetch.NewClient(fetch.Options{
		Retry: fetch.RetryPolicy{
			MaxRetries: settings.Fetch.RetryMax,
			Delay:      settings.Fetch.RetryDelay,
		},
		Timeout:   settings.Fetch.Timeout,
		RateLimit: settings.Fetch.RateLimit,
		RateBurst: settings.Fetch.RateBurst,
	}, logger)

	return r, nil
}

func openMinIO(ctx context.Context, cfg storage.MinIOConfig) (ingestion.ObjectStorage, error) {
	client, err := storage.NewMinIOClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// env is the per-invocation state: credentials, store and run identity.
type env struct {
	runID  model.RunID
	creds  *config.Credentials
	store  ingestion.ObjectStorage
	logger *slog.Logger
}

func (r *Runner) newEnv(ctx context.Context, flow string, runID model.RunID) (*env, error) {
	runID, err := ensureRunID(runID)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With("flow", flow, "run_id", runID)

	creds, err := config.LoadCredentials(r.credsPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load credentials", "path", r.credsPath, "error", err)
		return nil, err
	}

	store, err := r.openStore(ctx, storage.MinIOConfig{
		Endpoint:  creds.MinIO.Endpoint,
		AccessKey: creds.MinIO.AccessKey,
		SecretKey: creds.MinIO.SecretKey,
		UseSSL:    creds.MinIO.UseSSL,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialize object store", "error", err)
		return nil, &config.Error{Path: r.credsPath, Err: err}
	}

	return &env{runID: runID, creds: creds, store: store, logger: logger}, nil
}

func ensureRunID(runID model.RunID) (model.RunID, error) {
	if runID == "" {
		return model.NewRunID()
	}
	if err := runID.Validate(); err != nil {
		return "", err
	}
	return runID, nil
}

// today is the current date in the configured timezone.
func (r *Runner) today() time.Time {
	return model.Today(r.now(), r.loc)
}

// MSFParams selects a MySportsFeeds feed. Zero values mean today's date,
// the season containing it, and the configured DFS site.
type MSFParams struct {
	// Date accepts YYYYMMDD or YYYY-MM-DD.
	Date     string
	Season   string
	Endpoint string
	Params   url.Values
	RunID    model.RunID
}

// DFSActuals ingests the dfs endpoint.
func (r *Runner) DFSActuals(ctx context.Context, p MSFParams) (ingestion.Report, error) {
	p.Endpoint = msf.EndpointDFS
	return r.MSF(ctx, DFSActualsName, p)
}

// DFSProjections ingests the dfs_projections endpoint.
func (r *Runner) DFSProjections(ctx context.Context, p MSFParams) (ingestion.Report, error) {
	p.Endpoint = msf.EndpointDFSProjections
	return r.MSF(ctx, DFSProjectionsName, p)
}

// MSF ingests any date-scoped MySportsFeeds endpoint.
func (r *Runner) MSF(ctx context.Context, flow string, p MSFParams) (ingestion.Report, error) {
	date := r.today()
	if p.Date != "" {
		d, err := model.ParseDate(p.Date)
		if err != nil {
			return ingestion.Report{}, err
		}
		date = d
	}
	season := p.Season
	if season == "" {
		season = model.SeasonFor(date, model.Regular)
	}
	dataset := model.MSFDataset(p.Endpoint)
	if err := dataset.Validate(); err != nil {
		return ingestion.Report{}, fmt.Errorf("endpoint %q: %w", p.Endpoint, err)
	}

	e, err := r.newEnv(ctx, flow, p.RunID)
	if err != nil {
		return ingestion.Report{}, err
	}

	compact := date.Format(model.CompactDateLayout)
	base := r.settings.MSF.BaseURL
	target, err := r.urls.Do(func() (string, error) {
		u := msf.URLBuilder{BaseURL: base}.Build(season, compact, p.Endpoint)
		e.logger.InfoContext(ctx, "built url", "endpoint", p.Endpoint, "date", compact, "url", u)
		return u, nil
	}, "msf", base, season, compact, p.Endpoint)
	if err != nil {
		return ingestion.Report{}, err
	}

	params := p.Params
	if params == nil {
		params = url.Values{"dfstype": {r.settings.MSF.DFSType}}
	}
	client := msf.NewClient(r.fetcher, msf.Config{
		APIKey:        e.creds.MSF.Key,
		Password:      e.creds.MSF.Password,
		SchemaVersion: r.settings.MSF.SchemaVersion,
		Params:        params,
	}, e.logger)

	return r.ingest(ctx, e, client, ingestion.FetchRequest{URL: target, Dataset: dataset, Date: date})
}

// TeamStatsParams selects a MoneyPuck season summary. Zero values mean the
// current season's regular season.
type TeamStatsParams struct {
	SeasonYear string
	SeasonType string
	RunID      model.RunID
}

// TeamStats ingests MoneyPuck team aggregates, keyed by today's date.
func (r *Runner) TeamStats(ctx context.Context, p TeamStatsParams) (ingestion.Report, error) {
	date := r.today()
	seasonYear := p.SeasonYear
	if seasonYear == "" {
		seasonYear = strconv.Itoa(model.SeasonStartYear(date))
	}
	seasonType := p.SeasonType
	if seasonType == "" {
		seasonType = string(model.Regular)
	}

	e, err := r.newEnv(ctx, TeamStatsName, p.RunID)
	if err != nil {
		return ingestion.Report{}, err
	}

	base := r.settings.MoneyPuck.BaseURL
	target, err := r.urls.Do(func() (string, error) {
		u := moneypuck.URLBuilder{BaseURL: base}.Build(seasonYear, seasonType, moneypuck.DefaultDataset)
		e.logger.InfoContext(ctx, "built url", "season_year", seasonYear, "season_type", seasonType, "url", u)
		return u, nil
	}, "moneypuck", base, seasonYear, seasonType)
	if err != nil {
		return ingestion.Report{}, err
	}

	client := moneypuck.NewClient(r.fetcher, r.settings.MoneyPuck.SchemaVersion, e.logger)
	return r.ingest(ctx, e, client, ingestion.FetchRequest{URL: target, Dataset: model.MoneyPuckTeamStats, Date: date})
}

func (r *Runner) ingest(ctx context.Context, e *env, fetcher ingestion.Fetcher, req ingestion.FetchRequest) (ingestion.Report, error) {
	svc := ingestion.NewService(fetcher, e.store, r.settings.Bucket, r.settings.Context, e.logger)
	report, err := svc.Ingest(ctx, req, e.runID)
	if err != nil {
		return ingestion.Report{}, err
	}
	e.logger.InfoContext(ctx, "flow complete", "outcome", string(report.Outcome), "key", report.Key)
	return report, nil
}

// Run executes the named flow with default parameters.
func (r *Runner) Run(ctx context.Context, name string, runID model.RunID) (ingestion.Report, error) {
	switch name {
	case DFSActualsName:
		return r.DFSActuals(ctx, MSFParams{RunID: runID})
	case DFSProjectionsName:
		return r.DFSProjections(ctx, MSFParams{RunID: runID})
	case TeamStatsName:
		return r.TeamStats(ctx, TeamStatsParams{RunID: runID})
	}
	return ingestion.Report{}, fmt.Errorf("unknown flow %q", name)
}

// RunAll runs every flow in sequence under one run ID. A failing flow does
// not stop the others; all failures are returned joined.
func (r *Runner) RunAll(ctx context.Context, runID model.RunID) error {
	runID, err := ensureRunID(runID)
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range Names {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := r.Run(ctx, name, runID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
