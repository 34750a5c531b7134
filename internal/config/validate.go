package config

import (
	"errors"
	"fmt"
	"regexp"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Project.Path == "" {
		return errors.New("project.path is required")
	}
	if !versionPattern.MatchString(c.Project.PackageVersion) {
		return fmt.Errorf("project.package_version: %q is not a x.y.z version", c.Project.PackageVersion)
	}
	switch c.Index.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("index.backend: unsupported value %q", c.Index.Backend)
	}
	if c.Import.Threads < 0 {
		return errors.New("import.threads must be >= 0")
	}
	if c.Merge.Threads < 0 {
		return errors.New("merge.threads must be >= 0")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
