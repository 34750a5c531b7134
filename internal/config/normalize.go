package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	EnvProject  = "ANNOSET_PROJECT"
	EnvLogLevel = "ANNOSET_LOG_LEVEL"
	EnvThreads  = "ANNOSET_THREADS"
)

func (c *Config) normalize() error {
	project, err := expandPath(strings.TrimSpace(c.Project.Path))
	if err != nil {
		return fmt.Errorf("project.path: %w", err)
	}
	c.Project.Path = project
	c.Project.PackageVersion = strings.TrimSpace(c.Project.PackageVersion)

	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	if c.Index.Backend == "" {
		c.Index.Backend = BackendCSV
	}
	if c.Index.Backend == BackendSQLite {
		switch sp := strings.TrimSpace(c.Index.SQLitePath); {
		case sp == "":
			c.Index.SQLitePath = filepath.Join(c.Project.Path, "metadata", "annotations.db")
		case !filepath.IsAbs(sp) && !strings.HasPrefix(sp, "~"):
			// relative to the project root
			c.Index.SQLitePath = filepath.Join(c.Project.Path, sp)
		}
		if c.Index.SQLitePath, err = expandPath(c.Index.SQLitePath); err != nil {
			return fmt.Errorf("index.sqlite_path: %w", err)
		}
	}

	if c.Merge.Sentinel == "" {
		c.Merge.Sentinel = Default().Merge.Sentinel
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Dir != "" {
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

func (c *Config) applyOverrides(ov Overrides) {
	if strings.TrimSpace(ov.ProjectPath) != "" {
		c.Project.Path = ov.ProjectPath
	}
	if strings.TrimSpace(ov.LogLevel) != "" {
		c.Logging.Level = ov.LogLevel
	}
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvProject); ok && strings.TrimSpace(v) != "" {
		c.Project.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvThreads); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreads, err)
		}
		c.Import.Threads = n
		c.Merge.Threads = n
	}
	return nil
}
