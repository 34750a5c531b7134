package ports

import (
	"context"

	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/types"
)

// Converter turns one raw annotation file into a segment table. Onsets and
// offsets are returned in integer milliseconds.
type Converter interface {
	Convert(ctx context.Context, path, filter string) (types.Table, error)
	// ThreadSafe reports whether Convert may run concurrently with any other
	// conversion of the same batch.
	ThreadSafe() bool
}

// ConverterFunc adapts a plain function to Converter. Safe declares whether
// it may run concurrently.
type ConverterFunc struct {
	Fn   func(ctx context.Context, path, filter string) (types.Table, error)
	Safe bool
}

func (f ConverterFunc) Convert(ctx context.Context, path, filter string) (types.Table, error) {
	return f.Fn(ctx, path, filter)
}

func (f ConverterFunc) ThreadSafe() bool { return f.Safe }

// Converters resolves a format tag to its converter. Unknown tags wrap
// ErrUnknownFormat.
type Converters interface {
	Lookup(format string) (Converter, error)
}

// IndexStore persists the annotation index as a whole table.
type IndexStore interface {
	// Load reads the whole index. Structural problems are reported, not
	// returned as errors.
	Load(ctx context.Context) ([]types.Record, schema.Report, error)
	// Update runs fn on a fresh snapshot of the index and atomically replaces
	// the index with its result. Overlapping Update calls on one project fail
	// fast instead of waiting.
	Update(ctx context.Context, fn func(current []types.Record) ([]types.Record, error)) error
}

// SegmentStore reads and writes converted annotation files, addressed by
// (set, annotation_filename).
type SegmentStore interface {
	Read(ctx context.Context, set, filename string) (types.Table, error)
	// ReadRaw returns the header and string rows of a converted file, for
	// schema validation.
	ReadRaw(ctx context.Context, set, filename string) ([]string, [][]string, error)
	// Write persists the table and returns a content digest of the file.
	Write(ctx context.Context, set, filename string, t types.Table) (string, error)
	Exists(set, filename string) bool
}

// Project exposes the on-disk layout of a project and its recordings.
type Project interface {
	// Recordings returns the recording filenames known to the project metadata.
	Recordings(ctx context.Context) ([]string, error)
	RawPath(set, rawFilename string) string
	SetDir(set string) string
	AnnotationsDir() string
}
