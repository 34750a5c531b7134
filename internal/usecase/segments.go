package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/types"
)

// SegmentRows is a denormalized segment listing: every row carries the
// record that references its converted file. Columns lists the attribute
// columns found across the loaded files.
type SegmentRows struct {
	Columns []string
	Rows    []types.AnnotatedSegment
}

type fileKey struct{ set, filename string }

// Segments loads the segments of every record that has a converted file.
// Each distinct file is read once; each referencing record gets its own view
// clipped to its range.
func (u Usecase) Segments(ctx context.Context, recs []types.Record) (SegmentRows, error) {
	return u.segments(ctx, recs, nil)
}

// CollapsedSegments lays the records of each set end to end on a virtual
// timeline ordered by recording, absolute onset, absolute offset and set.
// Segment bounds are rewritten to that timeline and Position holds the
// start of the owning record on it.
func (u Usecase) CollapsedSegments(ctx context.Context, recs []types.Record) (SegmentRows, error) {
	sorted := slices.Clone(recs)
	slices.SortStableFunc(sorted, func(a, b types.Record) int {
		return cmp.Or(
			cmp.Compare(a.RecordingFilename, b.RecordingFilename),
			cmp.Compare(a.AbsOnset(), b.AbsOnset()),
			cmp.Compare(a.AbsOffset(), b.AbsOffset()),
			cmp.Compare(a.Set, b.Set),
		)
	})

	positions := make([]int64, len(sorted))
	running := map[string]int64{}
	for i, r := range sorted {
		positions[i] = running[r.Set]
		running[r.Set] += r.Duration()
	}
	return u.segments(ctx, sorted, positions)
}

func (u Usecase) segments(ctx context.Context, recs []types.Record, positions []int64) (SegmentRows, error) {
	var (
		order  []fileKey
		byFile = map[fileKey][]int{}
	)
	for i, r := range recs {
		if !r.Imported() {
			continue
		}
		k := fileKey{r.Set, r.AnnotationFilename}
		if _, ok := byFile[k]; !ok {
			order = append(order, k)
		}
		byFile[k] = append(byFile[k], i)
	}

	var (
		out     SegmentRows
		columns []string
	)
	for _, k := range order {
		t, err := u.d.Segments.Read(ctx, k.set, k.filename)
		if err != nil {
			return SegmentRows{}, fmt.Errorf("read annotations/%s/converted/%s: %w", k.set, k.filename, err)
		}
		for _, c := range t.Columns {
			if !slices.Contains(columns, c) {
				columns = append(columns, c)
			}
		}
		for _, i := range byFile[k] {
			r := recs[i]
			for _, s := range clipSegments(t.Segments, r.RangeOnset, r.RangeOffset) {
				row := types.AnnotatedSegment{Segment: s, Record: r}
				if positions != nil {
					row.Position = positions[i]
					row.Onset += positions[i] - r.RangeOnset
					row.Offset += positions[i] - r.RangeOnset
				}
				out.Rows = append(out.Rows, row)
			}
		}
	}
	out.Columns = schema.OrderAttributes(columns)
	return out, nil
}
