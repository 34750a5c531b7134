package csvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/forPelevin/annoset/internal/domain/records"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

// Index stores the annotation index in metadata/annotations.csv.
type Index struct {
	project *Project
}

func NewIndex(p *Project) *Index { return &Index{project: p} }

var _ ports.IndexStore = (*Index)(nil)

// Load reads and validates the index, creating an empty one when absent.
func (x *Index) Load(_ context.Context) ([]types.Record, schema.Report, error) {
	path := x.project.IndexPath()
	if err := x.ensure(); err != nil {
		return nil, schema.Report{}, err
	}
	header, rows, err := ReadCSV(path)
	if err != nil {
		return nil, schema.Report{}, err
	}
	rep := schema.Validate(path, schema.IndexColumns, header, rows)
	recs := records.Decode(header, rows)
	rep.Merge(records.Duplicates(recs))
	return recs, rep, nil
}

// Update holds the project lock for the whole read-modify-write cycle. The
// lock is taken without waiting: a concurrent mutating operation is a caller
// error and is reported as ports.ErrLocked.
func (x *Index) Update(ctx context.Context, fn func([]types.Record) ([]types.Record, error)) error {
	unlock, err := lockProject(x.project)
	if err != nil {
		return err
	}
	defer unlock()

	current, _, err := x.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	_, err = writeCSVAtomic(x.project.IndexPath(), schema.Names(schema.IndexColumns), records.Encode(next))
	return err
}

func (x *Index) ensure() error {
	path := x.project.IndexPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err := writeCSVAtomic(path, schema.Names(schema.IndexColumns), nil)
	return err
}

func lockProject(p *Project) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(p.LockPath()), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(p.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrLocked, p.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}
