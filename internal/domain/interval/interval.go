// Package interval implements the algebra on (start, stop) millisecond spans
// used to reason about annotation coverage.
package interval

import "sort"

// Interval is a half-open span [Start, Stop). It is well formed when Stop > Start.
type Interval struct {
	Start int64
	Stop  int64
}

func (iv Interval) Len() int64  { return iv.Stop - iv.Start }
func (iv Interval) Empty() bool { return iv.Stop <= iv.Start }

// Clip clamps both bounds into [lo, hi]. The result may be empty; callers drop
// it in that case.
func Clip(iv Interval, lo, hi int64) Interval {
	return Interval{Start: clamp(iv.Start, lo, hi), Stop: clamp(iv.Stop, lo, hi)}
}

// Overlap returns the common part of a and b and whether it has positive
// length. Touching intervals do not overlap.
func Overlap(a, b Interval) (Interval, bool) {
	out := Interval{Start: max(a.Start, b.Start), Stop: min(a.Stop, b.Stop)}
	return out, !out.Empty()
}

// Sort orders intervals by start, then stop.
func Sort(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].Stop < ivs[j].Stop
	})
}

// Intersect returns every non-empty overlap between an interval of a and an
// interval of b, sorted by start. Both inputs must be sorted by start; they may
// contain overlapping intervals.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	for _, x := range a {
		for _, y := range b {
			if y.Start >= x.Stop {
				break
			}
			if ov, ok := Overlap(x, y); ok {
				out = append(out, ov)
			}
		}
	}
	Sort(out)
	return out
}

// IntersectAll folds Intersect over lists from the left and stops as soon as
// the running result is empty.
func IntersectAll(lists ...[]Interval) []Interval {
	if len(lists) == 0 {
		return nil
	}
	acc := append([]Interval(nil), lists[0]...)
	Sort(acc)
	for _, next := range lists[1:] {
		if len(acc) == 0 {
			return nil
		}
		sorted := append([]Interval(nil), next...)
		Sort(sorted)
		acc = Intersect(acc, sorted)
	}
	if len(acc) == 0 {
		return nil
	}
	return acc
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
