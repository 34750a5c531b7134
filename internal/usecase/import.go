package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/logging"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
	"github.com/forPelevin/annoset/internal/workers"
)

type ImportInput struct {
	// Records describe the units to import; generated columns are ignored.
	Records []types.Record
	// Threads bounds the worker pool; 0 uses every CPU.
	Threads int
	// Converter, when set, converts every unit regardless of its format. It
	// is run serially unless it reports itself thread safe.
	Converter ports.Converter
}

type ImportResult struct {
	BatchID string
	// Records are the index rows appended by the batch, in input order.
	Records []types.Record
	// Digests holds the BLAKE3 digest of each converted file, "" for failed
	// units.
	Digests []string
}

// Failed counts the units that could not be converted.
func (r ImportResult) Failed() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Error != "" {
			n++
		}
	}
	return n
}

type converted struct {
	record types.Record
	digest string
}

// Import converts every unit of the batch and appends the resulting rows to
// the index. A failing unit is recorded with its error and never stops the
// batch; only invalid ranges, unknown recordings and index failures are
// returned as errors.
func (u Usecase) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	if err := checkRanges(in.Records); err != nil {
		return ImportResult{}, err
	}
	if err := u.checkRecordings(ctx, in.Records); err != nil {
		return ImportResult{}, err
	}

	batchID := uuid.NewString()
	log := u.logger("import").With(logging.String(logging.FieldBatchID, batchID))

	threads := in.Threads
	if !u.batchThreadSafe(in) {
		if threads != 1 {
			log.Warn("some converters of the batch are not thread safe; running on 1 thread")
		}
		threads = 1
	}
	log.Info("import started", logging.Int("units", len(in.Records)), logging.Int("threads", threads))

	units := make([]types.Record, len(in.Records))
	for i, r := range in.Records {
		r.AnnotationFilename, r.ImportedAt, r.PackageVersion, r.Error = "", "", "", ""
		units[i] = r
	}

	results := workers.Map(ctx, threads, units, func(ctx context.Context, r types.Record) (converted, error) {
		return u.importUnit(ctx, r, in.Converter)
	})

	out := ImportResult{BatchID: batchID, Records: make([]types.Record, len(units)), Digests: make([]string, len(units))}
	for i, res := range results {
		if res.Err != nil {
			rec := units[i]
			rec.Error = unitError(res.Err)
			out.Records[i] = rec
			log.Warn("annotation import failed",
				logging.String(logging.FieldSet, rec.Set),
				logging.String(logging.FieldRawFilename, rec.RawFilename),
				logging.Error(res.Err),
			)
			continue
		}
		out.Records[i] = res.Value.record
		out.Digests[i] = res.Value.digest
		log.Debug("annotation imported",
			logging.String(logging.FieldSet, res.Value.record.Set),
			logging.String("annotation_filename", res.Value.record.AnnotationFilename),
			logging.String(logging.FieldDigest, res.Value.digest),
		)
	}

	if err := u.d.Index.Update(ctx, func(current []types.Record) ([]types.Record, error) {
		return append(current, out.Records...), nil
	}); err != nil {
		return ImportResult{}, fmt.Errorf("update index: %w", err)
	}
	log.Info("import finished", logging.Int("units", len(units)), logging.Int("failed", out.Failed()))
	return out, nil
}

func (u Usecase) importUnit(ctx context.Context, rec types.Record, override ports.Converter) (converted, error) {
	conv := override
	if conv == nil {
		c, err := u.d.Converters.Lookup(rec.Format)
		if err != nil {
			return converted{}, fmt.Errorf("file format '%s' unknown for '%s': %w", rec.Format, rec.RawFilename, err)
		}
		conv = c
	}

	t, err := conv.Convert(ctx, u.d.Project.RawPath(rec.Set, rec.RawFilename), rec.Filter)
	if err != nil {
		return converted{}, err
	}
	if t.Columnless() {
		t.Columns = schema.AttributeColumns()
	}
	for i := range t.Segments {
		t.Segments[i].RawFilename = rec.RawFilename
	}
	t.Segments = clipSegments(t.Segments, rec.RangeOnset, rec.RangeOffset)
	sortSegments(t.Segments, t.Columns)

	rec.AnnotationFilename = CanonicalFilename(rec)
	digest, err := u.d.Segments.Write(ctx, rec.Set, rec.AnnotationFilename, t)
	if err != nil {
		return converted{}, err
	}
	u.stamp(&rec)
	return converted{record: rec, digest: digest}, nil
}

// batchThreadSafe decides for the whole batch: one unsafe converter among the
// formats present forces serial execution of every unit.
func (u Usecase) batchThreadSafe(in ImportInput) bool {
	if in.Converter != nil {
		return in.Converter.ThreadSafe()
	}
	seen := map[string]struct{}{}
	for _, r := range in.Records {
		if _, ok := seen[r.Format]; ok {
			continue
		}
		seen[r.Format] = struct{}{}
		c, err := u.d.Converters.Lookup(r.Format)
		if err != nil {
			continue
		}
		if !c.ThreadSafe() {
			return false
		}
	}
	return true
}

func (u Usecase) checkRecordings(ctx context.Context, recs []types.Record) error {
	known, err := u.d.Project.Recordings(ctx)
	if err != nil {
		return fmt.Errorf("read recordings: %w", err)
	}
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	var missing []string
	seen := map[string]struct{}{}
	for _, r := range recs {
		if _, ok := set[r.RecordingFilename]; ok {
			continue
		}
		if _, ok := seen[r.RecordingFilename]; ok {
			continue
		}
		seen[r.RecordingFilename] = struct{}{}
		missing = append(missing, r.RecordingFilename)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: cannot import annotations, because the following recordings are not referenced in the metadata:\n%s",
			ports.ErrUnknownRecording, strings.Join(missing, "\n"))
	}
	return nil
}

// checkRanges rejects units whose range is empty or reversed.
func checkRanges(recs []types.Record) error {
	var bad []string
	for i, r := range recs {
		if r.RangeOffset <= r.RangeOnset {
			bad = append(bad, fmt.Sprintf("unit %d (%s/%s): range_offset %d must be greater than range_onset %d",
				i+1, r.Set, r.RawFilename, r.RangeOffset, r.RangeOnset))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrPrecondition, strings.Join(bad, "; "))
	}
	return nil
}

func unitError(err error) string {
	var pe *workers.PanicError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%v: %v", ports.ErrConverterCrashed, pe.Value)
	}
	return err.Error()
}
