package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/forPelevin/annoset/internal/config"
	"github.com/forPelevin/annoset/internal/domain/records"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/ports/adapters/csvstore"
	"github.com/forPelevin/annoset/internal/ports/adapters/sqlitestore"
	"github.com/forPelevin/annoset/internal/registry"
	"github.com/forPelevin/annoset/internal/types"
	"github.com/forPelevin/annoset/internal/usecase"
)

type Config struct {
	ProjectPath string
	// Backend selects where the annotation index lives: "csv" or "sqlite".
	Backend    string
	SQLitePath string
	Version    string
	Logger     *slog.Logger
}

// FromConfig maps the loaded settings onto a pipeline configuration.
func FromConfig(c *config.Config, logger *slog.Logger) Config {
	return Config{
		ProjectPath: c.Project.Path,
		Backend:     c.Index.Backend,
		SQLitePath:  c.Index.SQLitePath,
		Version:     c.Project.PackageVersion,
		Logger:      logger,
	}
}

func (c Config) Validate() error {
	if c.ProjectPath == "" {
		return errors.New("project path is empty")
	}
	info, err := os.Stat(c.ProjectPath)
	if err != nil {
		return fmt.Errorf("stat project: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project %s is not a directory", c.ProjectPath)
	}
	switch c.Backend {
	case "", config.BackendCSV:
	case config.BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite backend requires a database path")
		}
	default:
		return fmt.Errorf("unsupported index backend %q", c.Backend)
	}
	return nil
}

// Pipeline holds the adapters of one opened project.
type Pipeline struct {
	Usecase   usecase.Usecase
	Project   *csvstore.Project
	Registry  *registry.Registry
	Index     ports.IndexStore
	closeFunc func() error
}

func Open(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// adapters
	project := csvstore.NewProject(cfg.ProjectPath)
	reg := registry.Builtin()
	p := &Pipeline{Project: project, Registry: reg, closeFunc: func() error { return nil }}

	switch cfg.Backend {
	case config.BackendSQLite:
		idx, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		p.Index = idx
		p.closeFunc = idx.Close
	default:
		p.Index = csvstore.NewIndex(project)
	}

	p.Usecase = usecase.New(usecase.Deps{
		Index:      p.Index,
		Segments:   csvstore.NewSegments(project),
		Project:    project,
		Converters: reg,
		Logger:     cfg.Logger,
		Version:    cfg.Version,
	})
	return p, nil
}

func (p *Pipeline) Close() error { return p.closeFunc() }

var (
	_ ports.Converters   = (*registry.Registry)(nil)
	_ ports.IndexStore   = (*csvstore.Index)(nil)
	_ ports.IndexStore   = (*sqlitestore.Index)(nil)
	_ ports.SegmentStore = (*csvstore.Segments)(nil)
	_ ports.Project      = (*csvstore.Project)(nil)
)

// ImportFile imports the units listed in a CSV file.
func (p *Pipeline) ImportFile(ctx context.Context, path string, threads int) (usecase.ImportResult, error) {
	units, err := ReadUnits(path)
	if err != nil {
		return usecase.ImportResult{}, err
	}
	return p.Usecase.Import(ctx, usecase.ImportInput{Records: units, Threads: threads})
}

// ReadUnits parses an import listing shaped like the index. Generated
// columns are ignored.
func ReadUnits(path string) ([]types.Record, error) {
	header, rows, err := csvstore.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	var inputCols []schema.Column
	for _, c := range schema.IndexColumns {
		if !c.Generated {
			inputCols = append(inputCols, c)
		}
	}
	if rep := schema.Validate(path, inputCols, header, rows); !rep.OK() {
		return nil, fmt.Errorf("%w: %s", ports.ErrPrecondition, strings.Join(rep.Errors, "; "))
	}
	return records.Decode(header, rows), nil
}
