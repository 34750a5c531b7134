package config

import "github.com/forPelevin/annoset/internal/types"

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Project: Project{
			Path:           ".",
			PackageVersion: types.PackageVersion,
		},
		Index: Index{
			Backend: BackendCSV,
		},
		Merge: Merge{
			Sentinel: types.NA,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
