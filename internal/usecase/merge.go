package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/annoset/internal/domain/coverage"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/logging"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
	"github.com/forPelevin/annoset/internal/workers"
)

type MergeInput struct {
	LeftSet      string
	RightSet     string
	LeftColumns  []string
	RightColumns []string
	OutputSet    string
	// Columns assigns constant values. Segment attributes are written on
	// every merged segment; "format" and "filter" on every merged record.
	Columns map[string]string
	Threads int
	// Sentinel marks attributes the other side did not annotate. Defaults
	// to NA.
	Sentinel string
}

type MergeResult struct {
	BatchID string
	Records []types.Record
}

// Index columns a merge may assign through MergeInput.Columns.
var mergeRecordColumns = []string{"format", "filter"}

func (in MergeInput) check() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ports.ErrPrecondition, fmt.Sprintf(format, args...))
	}
	if in.LeftSet == "" || in.RightSet == "" || in.OutputSet == "" {
		return fail("left, right and output sets are required")
	}
	if in.LeftSet == in.RightSet {
		return fail("sets must differ")
	}
	if in.OutputSet == in.LeftSet || in.OutputSet == in.RightSet {
		return fail("output set %q must differ from the merged sets", in.OutputSet)
	}
	for _, c := range in.LeftColumns {
		if slices.Contains(in.RightColumns, c) {
			return fail("left_columns and right_columns must be disjoint (%q in both)", c)
		}
	}
	attrs := schema.AttributeColumns()
	union := append(slices.Clone(in.LeftColumns), in.RightColumns...)
	for _, c := range union {
		if !slices.Contains(attrs, c) {
			return fail("left_columns and right_columns have unexpected values (%q)", c)
		}
	}
	for _, c := range schema.RequiredAttributeColumns() {
		if !slices.Contains(union, c) {
			return fail("left_columns and right_columns have missing values (%q)", c)
		}
	}
	for k := range in.Columns {
		if !slices.Contains(attrs, k) && !slices.Contains(mergeRecordColumns, k) {
			return fail("column %q cannot be assigned by a merge", k)
		}
	}
	return nil
}

// Merge combines the segments of two sets into a new set over the span both
// sets cover. Segments are paired only when their bounds match exactly; a
// segment without a counterpart keeps the other side's columns as the
// sentinel.
func (u Usecase) Merge(ctx context.Context, in MergeInput) (MergeResult, error) {
	if err := in.check(); err != nil {
		return MergeResult{}, err
	}
	if in.Sentinel == "" {
		in.Sentinel = types.NA
	}

	all, _, err := u.d.Index.Load(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("load index: %w", err)
	}
	var recs []types.Record
	for _, r := range all {
		if (r.Set == in.LeftSet || r.Set == in.RightSet) && r.Error == "" && r.Imported() {
			recs = append(recs, r)
		}
	}
	clipped := coverage.Intersect(recs, []string{in.LeftSet, in.RightSet})

	var missing []string
	for _, c := range clipped {
		if !u.d.Segments.Exists(c.Set, c.AnnotationFilename) {
			missing = append(missing, fmt.Sprintf("annotations/%s/converted/%s", c.Set, c.AnnotationFilename))
		}
	}
	if len(missing) > 0 {
		return MergeResult{}, fmt.Errorf("%w: the following annotations are missing: %s", ports.ErrMissingFile, strings.Join(missing, ","))
	}

	var (
		recordings []string
		units      = map[string][]coverage.Clipped{}
	)
	for _, c := range clipped {
		if _, ok := units[c.RecordingFilename]; !ok {
			recordings = append(recordings, c.RecordingFilename)
		}
		units[c.RecordingFilename] = append(units[c.RecordingFilename], c)
	}

	batchID := uuid.NewString()
	log := u.logger("merge").With(logging.String(logging.FieldBatchID, batchID))
	log.Info("merge started",
		logging.String("left_set", in.LeftSet),
		logging.String("right_set", in.RightSet),
		logging.String("output_set", in.OutputSet),
		logging.Int("recordings", len(recordings)),
	)

	results := workers.Map(ctx, in.Threads, recordings, func(ctx context.Context, recording string) ([]types.Record, error) {
		return u.mergeRecording(ctx, in, units[recording])
	})
	out := MergeResult{BatchID: batchID}
	var errs []error
	for i, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", recordings[i], res.Err))
			continue
		}
		out.Records = append(out.Records, res.Value...)
	}
	if err := errors.Join(errs...); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s and %s: %w", in.LeftSet, in.RightSet, err)
	}

	if err := u.d.Index.Update(ctx, func(current []types.Record) ([]types.Record, error) {
		return append(current, out.Records...), nil
	}); err != nil {
		return MergeResult{}, fmt.Errorf("update index: %w", err)
	}
	log.Info("merge finished", logging.Int("records", len(out.Records)))
	return out, nil
}

// mergedRow is a joined segment in absolute time.
type mergedRow struct {
	onset, offset int64
	left, right   *types.Segment
}

// mergeRecording produces one record and one converted file per overlap of
// the two sets on a single recording.
func (u Usecase) mergeRecording(ctx context.Context, in MergeInput, clipped []coverage.Clipped) ([]types.Record, error) {
	var (
		overlaps []int
		byID     = map[int][]coverage.Clipped{}
	)
	for _, c := range clipped {
		if _, ok := byID[c.Overlap]; !ok {
			overlaps = append(overlaps, c.Overlap)
		}
		byID[c.Overlap] = append(byID[c.Overlap], c)
	}

	// Each referenced file is read once for the whole recording; rows are
	// routed back to their overlap through the clipped record they belong to.
	recs := make([]types.Record, len(clipped))
	overlapOf := make(map[types.Record]int, len(clipped))
	for i, c := range clipped {
		recs[i] = c.Record
		overlapOf[c.Record] = c.Overlap
	}
	loaded, err := u.segments(ctx, recs, nil)
	if err != nil {
		return nil, err
	}
	type sides struct{ left, right []types.Segment }
	byOverlap := map[int]*sides{}
	for _, row := range loaded.Rows {
		id := overlapOf[row.Record]
		sd, ok := byOverlap[id]
		if !ok {
			sd = &sides{}
			byOverlap[id] = sd
		}
		seg := row.Segment
		seg.Onset += row.TimeSeek
		seg.Offset += row.TimeSeek
		if row.Set == in.LeftSet {
			sd.left = append(sd.left, seg)
		} else {
			sd.right = append(sd.right, seg)
		}
	}

	columns := append(slices.Clone(in.LeftColumns), in.RightColumns...)
	for k := range in.Columns {
		if schema.IsSegmentColumn(k) && !slices.Contains(columns, k) {
			columns = append(columns, k)
		}
	}
	columns = schema.OrderAttributes(columns)

	var out []types.Record
	for _, id := range overlaps {
		var base *coverage.Clipped
		for k, c := range byID[id] {
			if c.Set == in.LeftSet {
				base = &byID[id][k]
				break
			}
		}
		if base == nil {
			continue
		}

		var rows []mergedRow
		if sd := byOverlap[id]; sd != nil {
			rows = joinExact(sd.left, sd.right)
		}
		t := types.Table{Columns: columns, Segments: make([]types.Segment, 0, len(rows))}
		var leftRaw, rightRaw []string
		for _, row := range rows {
			seg := types.Segment{
				Onset:  row.onset - base.TimeSeek,
				Offset: row.offset - base.TimeSeek,
				Attrs:  make(map[string]string, len(columns)),
			}
			var l, r string
			if row.left != nil {
				l = row.left.RawFilename
				leftRaw = appendUnique(leftRaw, l)
			}
			if row.right != nil {
				r = row.right.RawFilename
				rightRaw = appendUnique(rightRaw, r)
			}
			seg.RawFilename = l + "," + r
			for _, c := range in.LeftColumns {
				seg.Attrs[c] = attrOrSentinel(row.left, c, in.Sentinel)
			}
			for _, c := range in.RightColumns {
				seg.Attrs[c] = attrOrSentinel(row.right, c, in.Sentinel)
			}
			for k, v := range in.Columns {
				if schema.IsSegmentColumn(k) {
					seg.Attrs[k] = v
				}
			}
			t.Segments = append(t.Segments, seg)
		}

		rec := base.Record
		rec.Set = in.OutputSet
		rec.Format = ""
		rec.Filter = ""
		rec.Error = ""
		rec.RawFilename = in.Sentinel
		if len(leftRaw) > 0 || len(rightRaw) > 0 {
			rec.RawFilename = strings.Join(leftRaw, ",") + "," + strings.Join(rightRaw, ",")
		}
		for _, k := range mergeRecordColumns {
			if v, ok := in.Columns[k]; ok {
				if err := rec.SetField(k, v); err != nil {
					return nil, err
				}
			}
		}
		rec.AnnotationFilename = CanonicalFilename(rec)
		if _, err := u.d.Segments.Write(ctx, rec.Set, rec.AnnotationFilename, t); err != nil {
			return nil, err
		}
		u.stamp(&rec)
		out = append(out, rec)
	}
	return out, nil
}

// joinExact is a full outer join of two segment lists on (onset, offset).
// Duplicate keys pair every left segment with every right one.
func joinExact(left, right []types.Segment) []mergedRow {
	type key struct{ onset, offset int64 }
	rightByKey := map[key][]int{}
	for i, s := range right {
		k := key{s.Onset, s.Offset}
		rightByKey[k] = append(rightByKey[k], i)
	}

	matched := make([]bool, len(right))
	var rows []mergedRow
	for i := range left {
		l := &left[i]
		idx := rightByKey[key{l.Onset, l.Offset}]
		if len(idx) == 0 {
			rows = append(rows, mergedRow{onset: l.Onset, offset: l.Offset, left: l})
			continue
		}
		for _, j := range idx {
			matched[j] = true
			rows = append(rows, mergedRow{onset: l.Onset, offset: l.Offset, left: l, right: &right[j]})
		}
	}
	for j := range right {
		if !matched[j] {
			r := &right[j]
			rows = append(rows, mergedRow{onset: r.Onset, offset: r.Offset, right: r})
		}
	}
	slices.SortStableFunc(rows, func(a, b mergedRow) int {
		return cmp.Or(cmp.Compare(a.onset, b.onset), cmp.Compare(a.offset, b.offset))
	})
	return rows
}

func attrOrSentinel(s *types.Segment, column, sentinel string) string {
	if s == nil {
		return sentinel
	}
	if v := s.Attr(column); v != "" {
		return v
	}
	return sentinel
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
