package coverage

import (
	"testing"

	"github.com/forPelevin/annoset/internal/domain/interval"
	"github.com/forPelevin/annoset/internal/types"
)

func rec(set, recording string, seek, on, off int64) types.Record {
	return types.Record{Set: set, RecordingFilename: recording, TimeSeek: seek, RangeOnset: on, RangeOffset: off}
}

func TestIntersect_OnlyOverlappingRanges(t *testing.T) {
	records := []types.Record{
		rec("A", "r1.wav", 0, 0, 500),
		rec("A", "r1.wav", 0, 500, 900),
		rec("B", "r1.wav", 0, 100, 300),
		rec("B", "r1.wav", 0, 500, 900),
	}
	got := Intersect(records, []string{"A", "B"})

	want := []struct {
		set     string
		on, off int64
		overlap int
	}{
		{"A", 100, 300, 0},
		{"B", 100, 300, 0},
		{"A", 500, 900, 1},
		{"B", 500, 900, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d clipped records, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Set != w.set || g.RangeOnset != w.on || g.RangeOffset != w.off || g.Overlap != w.overlap {
			t.Fatalf("record %d = %s [%d,%d) overlap %d, want %s [%d,%d) overlap %d",
				i, g.Set, g.RangeOnset, g.RangeOffset, g.Overlap, w.set, w.on, w.off, w.overlap)
		}
	}
}

func TestIntersect_RespectsTimeSeek(t *testing.T) {
	records := []types.Record{
		rec("A", "r1.wav", 1000, 0, 1000),
		rec("B", "r1.wav", 0, 1500, 2500),
	}
	got := Intersect(records, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %+v", got)
	}
	if got[0].Span != (interval.Interval{Start: 1500, Stop: 2000}) {
		t.Fatalf("unexpected overlap span %v", got[0].Span)
	}
	for _, c := range got {
		switch c.Set {
		case "A":
			if c.RangeOnset != 500 || c.RangeOffset != 1000 {
				t.Fatalf("A clipped to [%d,%d), want [500,1000)", c.RangeOnset, c.RangeOffset)
			}
		case "B":
			if c.RangeOnset != 1500 || c.RangeOffset != 2000 {
				t.Fatalf("B clipped to [%d,%d), want [1500,2000)", c.RangeOnset, c.RangeOffset)
			}
		}
	}
}

func TestIntersect_MissingSetYieldsNothing(t *testing.T) {
	records := []types.Record{
		rec("A", "r1.wav", 0, 0, 1000),
		rec("B", "r2.wav", 0, 0, 1000),
	}
	if got := Intersect(records, []string{"A", "B"}); len(got) != 0 {
		t.Fatalf("expected no overlap across different recordings, got %+v", got)
	}
}

func TestIntersect_IgnoresUnrequestedSets(t *testing.T) {
	records := []types.Record{
		rec("A", "r1.wav", 0, 0, 1000),
		rec("B", "r1.wav", 0, 200, 400),
		rec("C", "r1.wav", 0, 900, 1000),
	}
	got := Intersect(records, []string{"A", "B"})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %+v", got)
	}
	for _, c := range got {
		if c.Set == "C" {
			t.Fatalf("unrequested set leaked into result")
		}
		if c.RangeOnset != 200 || c.RangeOffset != 400 {
			t.Fatalf("unexpected range [%d,%d)", c.RangeOnset, c.RangeOffset)
		}
	}
}

func TestSets(t *testing.T) {
	got := Sets([]types.Record{{Set: "b"}, {Set: "a"}, {Set: "b"}})
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("Sets = %v", got)
	}
}
