package storage

import (
	"fmt"
	"strings"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

// DefaultExtension is used when an ObjectKey leaves Extension empty.
const DefaultExtension = "json"

// ObjectKey identifies one raw payload in the data lake. Re-ingesting the
// same key overwrites the previous object.
type ObjectKey struct {
	Provider      model.Provider
	Context       string // environment tag, e.g. "dev"
	Dataset       model.Dataset
	SchemaVersion string
	Date          string // in YYYY-MM-DD format
	Extension     string
}

// Key renders the object key:
// {provider}/{context}/{dataset}/v={schema}/date={date}/{dataset}_{date}.{ext}
func (k ObjectKey) Key() string {
	ext := k.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s/%s/%s/v=%s/date=%s/%s_%s.%s",
		k.Provider, k.Context, k.Dataset, k.SchemaVersion, k.Date, k.Dataset, k.Date, ext)
}

// Validate rejects segments that would make Key ambiguous. Keys built from
// valid ObjectKeys never collide.
func (k ObjectKey) Validate() error {
	segments := []struct {
		name, value string
	}{
		{"provider", string(k.Provider)},
		{"context", k.Context},
		{"dataset", string(k.Dataset)},
		{"schema version", k.SchemaVersion},
		{"date", k.Date},
	}
	for _, s := range segments {
		if s.value == "" {
			return fmt.Errorf("object key: %s is empty", s.name)
		}
		if strings.ContainsAny(s.value, "/=") {
			return fmt.Errorf("object key: %s %q contains a reserved character", s.name, s.value)
		}
	}
	if strings.ContainsAny(k.Extension, "/.") {
		return fmt.Errorf("object key: extension %q contains a reserved character", k.Extension)
	}
	return nil
}
