package csvstore

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

var keyColumns = []string{"raw_filename", "segment_onset", "segment_offset"}

// Segments stores converted annotations under annotations/<set>/converted.
type Segments struct {
	project *Project
}

func NewSegments(p *Project) *Segments { return &Segments{project: p} }

var _ ports.SegmentStore = (*Segments)(nil)

func (s *Segments) Exists(set, filename string) bool {
	info, err := os.Stat(s.project.ConvertedPath(set, filename))
	return err == nil && !info.IsDir()
}

func (s *Segments) ReadRaw(_ context.Context, set, filename string) ([]string, [][]string, error) {
	return ReadCSV(s.project.ConvertedPath(set, filename))
}

// Read parses a converted file. Bounds written in decimal notation are
// truncated to whole milliseconds.
func (s *Segments) Read(ctx context.Context, set, filename string) (types.Table, error) {
	header, rows, err := s.ReadRaw(ctx, set, filename)
	if err != nil {
		return types.Table{}, err
	}
	idx := func(name string) int { return slices.Index(header, name) }
	rawCol, onCol, offCol := idx("raw_filename"), idx("segment_onset"), idx("segment_offset")
	if onCol < 0 || offCol < 0 {
		return types.Table{}, fmt.Errorf("%s: missing segment_onset or segment_offset column", s.project.ConvertedPath(set, filename))
	}

	t := types.Table{}
	for _, h := range header {
		if !slices.Contains(keyColumns, h) {
			t.Columns = append(t.Columns, h)
		}
	}
	t.Segments = make([]types.Segment, 0, len(rows))
	for n, row := range rows {
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return row[i]
		}
		on, err := types.ParseMS(cell(onCol))
		if err != nil {
			return types.Table{}, fmt.Errorf("%s line %d: %w", filename, n+2, err)
		}
		off, err := types.ParseMS(cell(offCol))
		if err != nil {
			return types.Table{}, fmt.Errorf("%s line %d: %w", filename, n+2, err)
		}
		seg := types.Segment{RawFilename: cell(rawCol), Onset: on, Offset: off, Attrs: make(map[string]string, len(t.Columns))}
		for i, h := range header {
			if !slices.Contains(keyColumns, h) {
				seg.Attrs[h] = cell(i)
			}
		}
		t.Segments = append(t.Segments, seg)
	}
	return t, nil
}

// Write persists t with the key columns first and returns its BLAKE3 digest.
func (s *Segments) Write(_ context.Context, set, filename string, t types.Table) (string, error) {
	header := append(append([]string(nil), keyColumns...), t.Columns...)
	rows := make([][]string, len(t.Segments))
	for i, seg := range t.Segments {
		row := make([]string, 0, len(header))
		row = append(row, seg.RawFilename, strconv.FormatInt(seg.Onset, 10), strconv.FormatInt(seg.Offset, 10))
		for _, c := range t.Columns {
			row = append(row, seg.Attr(c))
		}
		rows[i] = row
	}
	digest, err := writeCSVAtomic(s.project.ConvertedPath(set, filename), header, rows)
	if err != nil {
		return "", fmt.Errorf("write annotations/%s/converted/%s: %w", set, filename, err)
	}
	return digest, nil
}
