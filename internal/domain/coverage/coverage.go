// Package coverage computes where several annotation sets cover the same span
// of a recording and restricts their records to that common coverage.
package coverage

import (
	"sort"

	"github.com/forPelevin/annoset/internal/domain/interval"
	"github.com/forPelevin/annoset/internal/types"
)

// Clipped is a record restricted to one overlap of the requested sets.
// Overlap numbers the overlaps of a single Intersect call, so records of
// different sets sharing an Overlap value are aligned on the same span.
type Clipped struct {
	types.Record
	Overlap int
	Span    interval.Interval
}

// Intersect computes, per recording, the intersection of the absolute ranges of
// every set in sets (all sets present in records when sets is nil) and returns
// the records of those sets clipped to each overlap. Clipped ranges are
// expressed back in each record's own time_seek coordinates.
func Intersect(records []types.Record, sets []string) []Clipped {
	if sets == nil {
		sets = Sets(records)
	}
	wanted := make(map[string]struct{}, len(sets))
	for _, s := range sets {
		wanted[s] = struct{}{}
	}

	var (
		recordings []string
		byRec      = map[string][]types.Record{}
	)
	for _, r := range records {
		if _, ok := byRec[r.RecordingFilename]; !ok {
			recordings = append(recordings, r.RecordingFilename)
			byRec[r.RecordingFilename] = nil
		}
		if _, ok := wanted[r.Set]; ok {
			byRec[r.RecordingFilename] = append(byRec[r.RecordingFilename], r)
		}
	}

	var out []Clipped
	overlapID := 0
	for _, recording := range recordings {
		recs := byRec[recording]
		if len(recs) == 0 {
			continue
		}
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].AbsOnset() != recs[j].AbsOnset() {
				return recs[i].AbsOnset() < recs[j].AbsOnset()
			}
			return recs[i].AbsOffset() < recs[j].AbsOffset()
		})

		lists := make([][]interval.Interval, len(sets))
		for i, s := range sets {
			for _, r := range recs {
				if r.Set == s {
					lists[i] = append(lists[i], interval.Interval{Start: r.AbsOnset(), Stop: r.AbsOffset()})
				}
			}
		}

		for _, span := range interval.IntersectAll(lists...) {
			for _, r := range recs {
				abs := interval.Clip(interval.Interval{Start: r.AbsOnset(), Stop: r.AbsOffset()}, span.Start, span.Stop)
				if abs.Empty() {
					continue
				}
				c := r
				c.RangeOnset = abs.Start - r.TimeSeek
				c.RangeOffset = abs.Stop - r.TimeSeek
				out = append(out, Clipped{Record: c, Overlap: overlapID, Span: span})
			}
			overlapID++
		}
	}
	return out
}

// Records strips the overlap bookkeeping.
func Records(cs []Clipped) []types.Record {
	out := make([]types.Record, len(cs))
	for i, c := range cs {
		out[i] = c.Record
	}
	return out
}

// Sets lists the distinct sets of records in order of first appearance.
func Sets(records []types.Record) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Set]; ok {
			continue
		}
		seen[r.Set] = struct{}{}
		out = append(out, r.Set)
	}
	return out
}
