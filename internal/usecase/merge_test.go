package usecase

import (
	"context"
	"errors"
	"os"
	"reflect"
	"slices"
	"testing"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

func mergeInput() MergeInput {
	return MergeInput{
		LeftSet:      "A",
		RightSet:     "B",
		LeftColumns:  []string{"speaker_type"},
		RightColumns: []string{"vcm_type"},
		OutputSet:    "AB",
	}
}

func (e *env) merge(t *testing.T, in MergeInput) (MergeResult, SegmentRows) {
	t.Helper()
	res, err := e.uc.Merge(context.Background(), in)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	rows, err := e.uc.Segments(context.Background(), res.Records)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	return res, rows
}

func TestMerge_PairsOnlyExactBoundaries(t *testing.T) {
	e := newEnv(t)
	e.importSet(t, fixtures{
		"a.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{
			seg(0, 500, "speaker_type", "CHI"),
			seg(500, 900, "speaker_type", "FEM"),
		}},
		"b.txt": {Columns: []string{"vcm_type"}, Segments: []types.Segment{
			seg(100, 300, "vcm_type", "N"),
			seg(500, 900, "vcm_type", "C"),
		}},
	},
		unit("A", "rec1.wav", "a.txt", 0, 0, 1000),
		unit("B", "rec1.wav", "b.txt", 0, 100, 1000),
	)

	res, rows := e.merge(t, mergeInput())
	if len(res.Records) != 1 {
		t.Fatalf("expected one merged record, got %+v", res.Records)
	}
	rec := res.Records[0]
	if rec.Set != "AB" || rec.RangeOnset != 100 || rec.RangeOffset != 1000 || rec.AnnotationFilename != "rec1_0_100.csv" {
		t.Fatalf("unexpected merged record %+v", rec)
	}
	if rec.RawFilename != "a.txt,b.txt" || rec.Format != "" || rec.ImportedAt == "" {
		t.Fatalf("unexpected merged record fields %+v", rec)
	}

	if got, want := bounds(rows.Rows), [][2]int64{{100, 300}, {100, 500}, {500, 900}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("bounds: got %v want %v", got, want)
	}
	type attrs struct{ speaker, vcm, raw string }
	var got []attrs
	for _, r := range rows.Rows {
		got = append(got, attrs{r.Attr("speaker_type"), r.Attr("vcm_type"), r.RawFilename})
	}
	want := []attrs{
		{"NA", "N", ",b.txt"},
		{"CHI", "NA", "a.txt,"},
		{"FEM", "C", "a.txt,b.txt"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("attributes: got %v want %v", got, want)
	}

	stored, _, err := e.uc.Records(context.Background(), "AB")
	if err != nil || len(stored) != 1 {
		t.Fatalf("merged record not indexed: %v %+v", err, stored)
	}
}

func TestMerge_BoundaryExactness(t *testing.T) {
	cases := []struct {
		name        string
		right       []types.Segment
		wantRows    int
		wantMatched int
	}{
		{
			name:        "never coincide",
			right:       []types.Segment{seg(100, 200, "vcm_type", "C"), seg(300, 400, "vcm_type", "N")},
			wantRows:    4,
			wantMatched: 0,
		},
		{
			name:        "identical",
			right:       []types.Segment{seg(0, 100, "vcm_type", "C"), seg(200, 300, "vcm_type", "N")},
			wantRows:    2,
			wantMatched: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.importSet(t, fixtures{
				"a.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{
					seg(0, 100, "speaker_type", "CHI"),
					seg(200, 300, "speaker_type", "FEM"),
				}},
				"b.txt": {Columns: []string{"vcm_type"}, Segments: tc.right},
			},
				unit("A", "rec1.wav", "a.txt", 0, 0, 1000),
				unit("B", "rec1.wav", "b.txt", 0, 0, 1000),
			)
			_, rows := e.merge(t, mergeInput())
			if len(rows.Rows) != tc.wantRows {
				t.Fatalf("expected %d rows, got %d", tc.wantRows, len(rows.Rows))
			}
			matched := 0
			for _, r := range rows.Rows {
				left, right := r.Attr("speaker_type") != "NA", r.Attr("vcm_type") != "NA"
				if !left && !right {
					t.Fatalf("row with no side: %+v", r)
				}
				if left && right {
					matched++
				}
			}
			if matched != tc.wantMatched {
				t.Fatalf("expected %d matched rows, got %d", tc.wantMatched, matched)
			}
		})
	}
}

func TestMerge_AlignsAcrossTimeSeek(t *testing.T) {
	e := newEnv(t)
	e.importSet(t, fixtures{
		"a.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{seg(1000, 1500, "speaker_type", "CHI")}},
		"b.txt": {Columns: []string{"vcm_type"}, Segments: []types.Segment{
			seg(0, 500, "vcm_type", "C"),
			seg(600, 800, "vcm_type", "Y"),
		}},
	},
		unit("A", "rec1.wav", "a.txt", 0, 1000, 2000),
		unit("B", "rec1.wav", "b.txt", 1000, 0, 1000),
	)
	in := mergeInput()
	in.Columns = map[string]string{"format": "eaf", "addressee": "T"}
	res, rows := e.merge(t, in)
	if res.Records[0].TimeSeek != 0 || res.Records[0].Format != "eaf" {
		t.Fatalf("merged record should follow the left side: %+v", res.Records[0])
	}
	if got, want := bounds(rows.Rows), [][2]int64{{1000, 1500}, {1600, 1800}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("bounds: got %v want %v", got, want)
	}
	if rows.Rows[0].Attr("vcm_type") != "C" || rows.Rows[0].Attr("speaker_type") != "CHI" {
		t.Fatalf("segments shifted by time_seek should pair: %+v", rows.Rows[0].Attrs)
	}
	for _, r := range rows.Rows {
		if r.Attr("addressee") != "T" {
			t.Fatalf("static column not applied: %+v", r.Attrs)
		}
	}
}

func TestMerge_Preconditions(t *testing.T) {
	cases := map[string]func(*MergeInput){
		"same sets":           func(in *MergeInput) { in.RightSet = "A" },
		"output is an input":  func(in *MergeInput) { in.OutputSet = "B" },
		"overlapping columns": func(in *MergeInput) { in.RightColumns = []string{"vcm_type", "speaker_type"} },
		"unknown column":      func(in *MergeInput) { in.LeftColumns = []string{"bogus"} },
		"key column":          func(in *MergeInput) { in.LeftColumns = []string{"segment_onset"} },
		"protected static":    func(in *MergeInput) { in.Columns = map[string]string{"set": "x"} },
		"missing output":      func(in *MergeInput) { in.OutputSet = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			in := mergeInput()
			mutate(&in)
			if _, err := e.uc.Merge(context.Background(), in); !errors.Is(err, ports.ErrPrecondition) {
				t.Fatalf("expected ErrPrecondition, got %v", err)
			}
			if _, err := os.Stat(e.project.IndexPath()); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("precondition failure must not touch the project")
			}
		})
	}
}

func TestMerge_MissingConvertedFile(t *testing.T) {
	e := newEnv(t)
	e.importSet(t, fixtures{
		"a.txt": {Columns: []string{"speaker_type"}},
		"b.txt": {Columns: []string{"vcm_type"}},
	},
		unit("A", "rec1.wav", "a.txt", 0, 0, 1000),
		unit("B", "rec1.wav", "b.txt", 0, 0, 1000),
	)
	if err := os.Remove(e.project.ConvertedPath("B", "rec1_0_0.csv")); err != nil {
		t.Fatal(err)
	}
	_, err := e.uc.Merge(context.Background(), mergeInput())
	if !errors.Is(err, ports.ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if _, statErr := os.Stat(e.project.ConvertedPath("AB", "rec1_0_0.csv")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("no output may be written when inputs are missing")
	}
}

func TestMerge_NoCommonCoverage(t *testing.T) {
	e := newEnv(t)
	e.importSet(t, fixtures{
		"a.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{seg(0, 10, "speaker_type", "CHI")}},
		"b.txt": {Columns: []string{"vcm_type"}, Segments: []types.Segment{seg(0, 10, "vcm_type", "C")}},
	},
		unit("A", "rec1.wav", "a.txt", 0, 0, 1000),
		unit("B", "rec2.wav", "b.txt", 0, 0, 1000),
	)
	res, err := e.uc.Merge(context.Background(), mergeInput())
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("sets on different recordings share no coverage: %+v", res.Records)
	}
}

func TestJoinExact_DuplicateKeys(t *testing.T) {
	left := []types.Segment{seg(0, 10, "speaker_type", "CHI"), seg(0, 10, "speaker_type", "FEM")}
	right := []types.Segment{seg(0, 10, "vcm_type", "C")}
	rows := joinExact(left, right)
	if len(rows) != 2 || rows[0].right == nil || rows[1].right == nil {
		t.Fatalf("each left duplicate pairs with the right segment: %+v", rows)
	}
}

func TestMerge_RecordingsInSubdirectories(t *testing.T) {
	e := newEnv(t, "day1/rec.wav", "day2/rec.wav")
	e.importSet(t, fixtures{
		"a1.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{seg(0, 100, "speaker_type", "CHI")}},
		"b1.txt": {Columns: []string{"vcm_type"}, Segments: []types.Segment{seg(0, 100, "vcm_type", "C")}},
		"a2.txt": {Columns: []string{"speaker_type"}, Segments: []types.Segment{seg(200, 300, "speaker_type", "FEM")}},
		"b2.txt": {Columns: []string{"vcm_type"}, Segments: []types.Segment{seg(200, 300, "vcm_type", "N")}},
	},
		unit("A", "day1/rec.wav", "a1.txt", 0, 0, 1000),
		unit("B", "day1/rec.wav", "b1.txt", 0, 0, 1000),
		unit("A", "day2/rec.wav", "a2.txt", 0, 0, 1000),
		unit("B", "day2/rec.wav", "b2.txt", 0, 0, 1000),
	)

	res, rows := e.merge(t, mergeInput())
	var names []string
	for _, r := range res.Records {
		names = append(names, r.AnnotationFilename)
	}
	slices.Sort(names)
	if !reflect.DeepEqual(names, []string{"day1/rec_0_0.csv", "day2/rec_0_0.csv"}) {
		t.Fatalf("unexpected merged filenames %q", names)
	}

	got := map[string]string{}
	for _, r := range rows.Rows {
		got[r.RecordingFilename] = r.Attr("speaker_type") + "/" + r.Attr("vcm_type")
	}
	want := map[string]string{"day1/rec.wav": "CHI/C", "day2/rec.wav": "FEM/N"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged segments: got %v want %v", got, want)
	}
}
