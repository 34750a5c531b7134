package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/ports/adapters/csvstore"
	"github.com/forPelevin/annoset/internal/registry"
	"github.com/forPelevin/annoset/internal/types"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type env struct {
	root     string
	project  *csvstore.Project
	registry *registry.Registry
	uc       Usecase
}

func newEnv(t *testing.T, recordings ...string) *env {
	t.Helper()
	if len(recordings) == 0 {
		recordings = []string{"rec1.wav", "rec2.wav"}
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "metadata", "recordings.csv"), "recording_filename\n"+strings.Join(recordings, "\n")+"\n")

	p := csvstore.NewProject(root)
	reg := registry.New()
	return &env{
		root:     root,
		project:  p,
		registry: reg,
		uc: New(Deps{
			Index:      csvstore.NewIndex(p),
			Segments:   csvstore.NewSegments(p),
			Project:    p,
			Converters: reg,
			Now:        func() time.Time { return fixedNow },
		}),
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fixtures converts raw files by base name.
type fixtures map[string]types.Table

func (f fixtures) converter(safe bool) ports.ConverterFunc {
	return ports.ConverterFunc{Safe: safe, Fn: func(_ context.Context, path, _ string) (types.Table, error) {
		t, ok := f[filepath.Base(path)]
		if !ok {
			return types.Table{}, fmt.Errorf("cannot parse %s", filepath.Base(path))
		}
		out := types.Table{Columns: append([]string(nil), t.Columns...)}
		for _, s := range t.Segments {
			out.Segments = append(out.Segments, s.Clone())
		}
		return out, nil
	}}
}

func seg(onset, offset int64, kv ...string) types.Segment {
	s := types.Segment{Onset: onset, Offset: offset, Attrs: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Attrs[kv[i]] = kv[i+1]
	}
	return s
}

func unit(set, recording, raw string, seek, onset, offset int64) types.Record {
	return types.Record{
		Set:               set,
		RecordingFilename: recording,
		TimeSeek:          seek,
		RangeOnset:        onset,
		RangeOffset:       offset,
		RawFilename:       raw,
		Format:            "vtc_rttm",
	}
}

// importSet imports units with the fixture converter and fails the test on
// any unit error.
func (e *env) importSet(t *testing.T, f fixtures, units ...types.Record) ImportResult {
	t.Helper()
	e.registry.Register("vtc_rttm", f.converter(true))
	res, err := e.uc.Import(context.Background(), ImportInput{Records: units, Threads: 2})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, r := range res.Records {
		if r.Error != "" {
			t.Fatalf("unit %s failed: %s", r.RawFilename, r.Error)
		}
	}
	return res
}

func bounds(rows []types.AnnotatedSegment) [][2]int64 {
	out := make([][2]int64, len(rows))
	for i, r := range rows {
		out[i] = [2]int64{r.Onset, r.Offset}
	}
	return out
}
