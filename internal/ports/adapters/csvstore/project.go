// Package csvstore keeps a project on disk the way annotators share it: CSV
// metadata under metadata/ and one directory per annotation set under
// annotations/.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/forPelevin/annoset/internal/ports"
)

// Project resolves paths inside a project root.
type Project struct {
	root string
}

func NewProject(root string) *Project { return &Project{root: root} }

func (p *Project) Root() string           { return p.root }
func (p *Project) IndexPath() string      { return filepath.Join(p.root, "metadata", "annotations.csv") }
func (p *Project) RecordingsPath() string { return filepath.Join(p.root, "metadata", "recordings.csv") }
func (p *Project) LockPath() string       { return filepath.Join(p.root, "metadata", ".annotations.lock") }
func (p *Project) AnnotationsDir() string { return filepath.Join(p.root, "annotations") }

func (p *Project) SetDir(set string) string {
	return filepath.Join(p.AnnotationsDir(), filepath.FromSlash(set))
}

func (p *Project) RawPath(set, rawFilename string) string {
	return filepath.Join(p.SetDir(set), "raw", filepath.FromSlash(rawFilename))
}

func (p *Project) ConvertedPath(set, filename string) string {
	return filepath.Join(p.SetDir(set), "converted", filepath.FromSlash(filename))
}

// Recordings reads the recording_filename column of metadata/recordings.csv.
func (p *Project) Recordings(_ context.Context) ([]string, error) {
	header, rows, err := ReadCSV(p.RecordingsPath())
	if err != nil {
		return nil, fmt.Errorf("read recordings: %w", err)
	}
	col := slices.Index(header, "recording_filename")
	if col < 0 {
		return nil, fmt.Errorf("read recordings: %s lacks column 'recording_filename'", p.RecordingsPath())
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if col < len(row) && row[col] != "" {
			out = append(out, row[col])
		}
	}
	return out, nil
}

var _ ports.Project = (*Project)(nil)

// ReadCSV reads a whole CSV file. A missing file is reported as ErrMissingFile.
func ReadCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ports.ErrMissingFile, path)
		}
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
