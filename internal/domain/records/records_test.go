package records

import (
	"testing"

	"github.com/forPelevin/annoset/internal/types"
)

func TestDecode_IgnoresUnknownAndShortRows(t *testing.T) {
	header := []string{"set", "parser_extra", "time_seek", "range_onset", "range_offset"}
	rows := [][]string{
		{"vtc", "junk", "-20", "10", "30"},
		{"lena", "junk"},
	}
	got := Decode(header, rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Set != "vtc" || got[0].TimeSeek != -20 || got[0].RangeOnset != 10 || got[0].RangeOffset != 30 {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Set != "lena" || got[1].RangeOffset != 0 {
		t.Fatalf("unexpected second record %+v", got[1])
	}
}

func TestEncode_FollowsIndexColumnOrder(t *testing.T) {
	rows := Encode([]types.Record{{Set: "vtc", RecordingFilename: "a.wav", TimeSeek: 5, RangeOnset: 1, RangeOffset: 2, Error: "x"}})
	want := []string{"vtc", "a.wav", "5", "1", "2", "", "", "", "", "", "", "x"}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("unexpected rows %v", rows)
	}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Fatalf("column %d = %q, want %q", i, rows[0][i], want[i])
		}
	}
}

func TestDuplicates_SkipsUnimported(t *testing.T) {
	recs := []types.Record{
		{Set: "a", AnnotationFilename: "f.csv"},
		{Set: "b", AnnotationFilename: "f.csv"},
		{Set: "a"},
		{Set: "a"},
	}
	if rep := Duplicates(recs); !rep.OK() {
		t.Fatalf("unexpected duplicates: %v", rep.Errors)
	}
	recs = append(recs, types.Record{Set: "a", AnnotationFilename: "f.csv"})
	if rep := Duplicates(recs); len(rep.Errors) != 1 {
		t.Fatalf("expected one duplicate error, got %v", rep.Errors)
	}
}
