package usecase

import (
	"cmp"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/forPelevin/annoset/internal/domain/interval"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/logging"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

type Deps struct {
	Index      ports.IndexStore
	Segments   ports.SegmentStore
	Project    ports.Project
	Converters ports.Converters
	Logger     *slog.Logger
	// Now and Version stamp imported_at and package_version; zero values
	// fall back to time.Now and types.PackageVersion.
	Now     func() time.Time
	Version string
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Version == "" {
		d.Version = types.PackageVersion
	}
	return Usecase{d: d}
}

func (u Usecase) logger(component string) *slog.Logger {
	return logging.NewComponentLogger(u.d.Logger, component)
}

func (u Usecase) stamp(r *types.Record) {
	r.ImportedAt = u.d.Now().Format(schema.ImportedAtLayout)
	r.PackageVersion = u.d.Version
}

// CanonicalFilename names the converted file of a record after its recording,
// time_seek and range_onset. The recording's directory is kept, so recordings
// sharing a base name in different directories never share a file.
func CanonicalFilename(r types.Record) string {
	name := filepath.ToSlash(r.RecordingFilename)
	name = strings.TrimSuffix(name, path.Ext(name))
	return fmt.Sprintf("%s_%d_%d.csv", name, r.TimeSeek, r.RangeOnset)
}

// clipSegments restricts segments to [lo, hi] and drops those left without a
// positive length. The input is not modified.
func clipSegments(segs []types.Segment, lo, hi int64) []types.Segment {
	out := make([]types.Segment, 0, len(segs))
	for _, s := range segs {
		iv := interval.Clip(interval.Interval{Start: s.Onset, Stop: s.Offset}, lo, hi)
		if iv.Empty() {
			continue
		}
		c := s.Clone()
		c.Onset, c.Offset = iv.Start, iv.Stop
		out = append(out, c)
	}
	return out
}

// sortSegments orders by onset, offset and, when the table has it, speaker_type.
func sortSegments(segs []types.Segment, columns []string) {
	bySpeaker := slices.Contains(columns, "speaker_type")
	slices.SortStableFunc(segs, func(a, b types.Segment) int {
		if a.Onset != b.Onset {
			return cmp.Compare(a.Onset, b.Onset)
		}
		if a.Offset != b.Offset {
			return cmp.Compare(a.Offset, b.Offset)
		}
		if bySpeaker {
			return strings.Compare(a.Attr("speaker_type"), b.Attr("speaker_type"))
		}
		return 0
	})
}
