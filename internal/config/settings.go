package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. INGEST_BUCKET or
// INGEST_FETCH_RETRY_DELAY.
const EnvPrefix = "INGEST"

// Settings are the non-secret pipeline knobs.
type Settings struct {
	Env       string
	Context   string            `mapstructure:"context"`
	Bucket    string            `mapstructure:"bucket"`
	Timezone  string            `mapstructure:"timezone"`
	Fetch     FetchSettings     `mapstructure:"fetch"`
	MSF       MSFSettings       `mapstructure:"msf"`
	MoneyPuck MoneyPuckSettings `mapstructure:"moneypuck"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Schedule  ScheduleSettings  `mapstructure:"schedule"`
}

type FetchSettings struct {
	RetryMax   int           `mapstructure:"retry_max"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

type MSFSettings struct {
	BaseURL       string `mapstructure:"base_url"`
	SchemaVersion string `mapstructure:"schema_version"`
	DFSType       string `mapstructure:"dfs_type"`
}

type MoneyPuckSettings struct {
	BaseURL       string `mapstructure:"base_url"`
	SchemaVersion string `mapstructure:"schema_version"`
}

type CacheSettings struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type ScheduleSettings struct {
	Cron string `mapstructure:"cron"`
	// Flows overrides Cron per flow name.
	Flows map[string]string `mapstructure:"flows"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("context", "dev")
	v.SetDefault("bucket", "raw-nhl-dfs")
	v.SetDefault("timezone", "America/Chicago")
	v.SetDefault("fetch.retry_max", 3)
	v.SetDefault("fetch.retry_delay", "60s")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.rate_limit", 0)
	v.SetDefault("fetch.rate_burst", 1)
	v.SetDefault("msf.base_url", "https://api.mysportsfeeds.com/v2.1/pull/nhl")
	v.SetDefault("msf.schema_version", "v2.1")
	v.SetDefault("msf.dfs_type", "draftkings")
	v.SetDefault("moneypuck.base_url", "https://moneypuck.com/moneypuck/playerData/seasonSummary")
	v.SetDefault("moneypuck.schema_version", "unknown")
	v.SetDefault("cache.size", 128)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("schedule.cron", "0 11 * 10-12,1-6 *")
}

// DefaultSettings returns the settings used when no file or environment
// override is present.
func DefaultSettings() *Settings {
	s, err := NewSettings(nil, nil, "")
	if err != nil {
		panic(err)
	}
	return s
}

// NewSettings loads settings from the base reader and merges the
// environment-specific reader over it. Either reader may be nil.
func NewSettings(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Settings, error) {
	if env == "" {
		env = "dev"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if baseConfigReader != nil {
		if err := v.ReadConfig(baseConfigReader); err != nil {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}
	if envConfigReader != nil {
		if err := v.MergeConfig(envConfigReader); err != nil {
			return nil, fmt.Errorf("error merging %s config: %w", env, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	settings.Env = env

	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// LoadSettings reads config.base.yaml and config.{env}.yaml from dir. Both
// files are optional.
func LoadSettings(dir, env string) (*Settings, error) {
	if env == "" {
		env = "dev"
	}
	base, err := openOptional(filepath.Join(dir, "config.base.yaml"))
	if err != nil {
		return nil, err
	}
	if base != nil {
		defer base.Close()
	}
	envFile, err := openOptional(filepath.Join(dir, "config."+env+".yaml"))
	if err != nil {
		return nil, err
	}
	if envFile != nil {
		defer envFile.Close()
	}

	// typed nil *os.File must not reach NewSettings as a non-nil io.Reader
	var baseReader, envReader io.Reader
	if base != nil {
		baseReader = base
	}
	if envFile != nil {
		envReader = envFile
	}
	return NewSettings(baseReader, envReader, env)
}

func openOptional(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return f, nil
}

// Location resolves the configured timezone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// CronFor returns the schedule for a flow, falling back to Schedule.Cron.
func (s *Settings) CronFor(flow string) string {
	if spec, ok := s.Schedule.Flows[flow]; ok && spec != "" {
		return spec
	}
	return s.Schedule.Cron
}

func (s *Settings) validate() error {
	switch {
	case s.Bucket == "":
		return errors.New("bucket cannot be empty")
	case s.Context == "":
		return errors.New("context cannot be empty")
	case s.Fetch.RetryMax < 0:
		return fmt.Errorf("fetch.retry_max must not be negative, got %d", s.Fetch.RetryMax)
	case s.Fetch.RetryDelay < 0:
		return fmt.Errorf("fetch.retry_delay must not be negative, got %s", s.Fetch.RetryDelay)
	case s.Cache.Size <= 0:
		return fmt.Errorf("cache.size must be positive, got %d", s.Cache.Size)
	}
	return nil
}
