package storage

import (
	"testing"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

func TestObjectKey_Key(t *testing.T) {
	key := ObjectKey{
		Provider:      model.MySportsFeeds,
		Context:       "dev",
		Dataset:       model.Dataset("nhl_dfs_actuals"),
		SchemaVersion: "v2.1",
		Date:          "2023-11-30",
	}

	got := key.Key()
	want := "mysportsfeeds/dev/nhl_dfs_actuals/v=v2.1/date=2023-11-30/nhl_dfs_actuals_2023-11-30.json"

	if got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
	if again := key.Key(); again != got {
		t.Fatalf("Key() not deterministic: %s != %s", again, got)
	}
}

func TestObjectKey_Key_CSVExtension(t *testing.T) {
	key := ObjectKey{
		Provider:      model.MoneyPuck,
		Context:       "dev",
		Dataset:       model.MoneyPuckTeamStats,
		SchemaVersion: "unknown",
		Date:          "2024-11-02",
		Extension:     "csv",
	}

	want := "moneypuck/dev/moneypuck_team_stats/v=unknown/date=2024-11-02/moneypuck_team_stats_2024-11-02.csv"
	if got := key.Key(); got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
}

func TestObjectKey_DistinctInputsDistinctKeys(t *testing.T) {
	base := ObjectKey{
		Provider:      model.MySportsFeeds,
		Context:       "dev",
		Dataset:       model.NHLDFS,
		SchemaVersion: "v2.1",
		Date:          "2023-11-30",
	}
	variants := []ObjectKey{base}
	for _, mutate := range []func(k *ObjectKey){
		func(k *ObjectKey) { k.Provider = model.MoneyPuck },
		func(k *ObjectKey) { k.Context = "prod" },
		func(k *ObjectKey) { k.Dataset = model.NHLDFSProjections },
		func(k *ObjectKey) { k.SchemaVersion = "v2.0" },
		func(k *ObjectKey) { k.Date = "2023-12-01" },
		func(k *ObjectKey) { k.Extension = "csv" },
	} {
		k := base
		mutate(&k)
		variants = append(variants, k)
	}

	seen := map[string]ObjectKey{}
	for _, k := range variants {
		if err := k.Validate(); err != nil {
			t.Fatalf("Validate(%+v) error = %v", k, err)
		}
		if prev, ok := seen[k.Key()]; ok {
			t.Fatalf("key collision between %+v and %+v", prev, k)
		}
		seen[k.Key()] = k
	}
}

func TestObjectKey_Validate(t *testing.T) {
	valid := ObjectKey{
		Provider:      model.MySportsFeeds,
		Context:       "dev",
		Dataset:       model.NHLDFS,
		SchemaVersion: "v2.1",
		Date:          "2023-11-30",
	}

	tests := []struct {
		name   string
		mutate func(k *ObjectKey)
	}{
		{"empty context", func(k *ObjectKey) { k.Context = "" }},
		{"empty schema version", func(k *ObjectKey) { k.SchemaVersion = "" }},
		{"slash in dataset", func(k *ObjectKey) { k.Dataset = "nhl/dfs" }},
		{"equals in date", func(k *ObjectKey) { k.Date = "date=2023-11-30" }},
		{"dotted extension", func(k *ObjectKey) { k.Extension = "tar.gz" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid
			tt.mutate(&k)
			if err := k.Validate(); err == nil {
				t.Fatalf("expected error for %+v", k)
			}
		})
	}
}
