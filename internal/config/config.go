package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultCredentialsPath is where flows look for credentials unless told
// otherwise.
const DefaultCredentialsPath = "creds.yml"

// Credentials holds the secrets every flow needs. Values are never logged.
type Credentials struct {
	MSF   MSFCredentials   `mapstructure:"msf"`
	MinIO MinIOCredentials `mapstructure:"minio"`
}

type MSFCredentials struct {
	Key      string `mapstructure:"key"`
	Password string `mapstructure:"password"`
}

type MinIOCredentials struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// requiredKeys are checked in order; the first missing one is reported.
var requiredKeys = []string{
	"msf.key",
	"msf.password",
	"minio.endpoint",
	"minio.access_key",
	"minio.secret_key",
}

type ErrMissingRequiredKey struct {
	Name string
}

func (e *ErrMissingRequiredKey) Error() string {
	return fmt.Sprintf("required credential %q is not set", e.Name)
}

// Error reports a configuration file that could not be loaded.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LoadCredentials reads the YAML credentials file at path.
func LoadCredentials(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	creds, err := ReadCredentials(f)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return creds, nil
}

// ReadCredentials parses credentials YAML. It returns an
// *ErrMissingRequiredKey when any required key is absent or blank.
func ReadCredentials(r io.Reader) (*Credentials, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading credentials: %w", err)
	}

	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			return nil, &ErrMissingRequiredKey{Name: key}
		}
	}

	var creds Credentials
	if err := v.Unmarshal(&creds); err != nil {
		return nil, fmt.Errorf("unable to decode credentials: %w", err)
	}
	return &creds, nil
}
