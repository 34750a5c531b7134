package types

import (
	"fmt"
	"strconv"
)

// PackageVersion is stamped on every record produced by an import or a merge.
const PackageVersion = "0.4.0"

// NA marks an attribute that does not apply to a segment, e.g. the right-hand
// columns of a merged segment that only the left set annotated.
const NA = "NA"

// Record is one row of the annotation index. Range bounds are milliseconds
// relative to TimeSeek.
type Record struct {
	Set                string
	RecordingFilename  string
	TimeSeek           int64
	RangeOnset         int64
	RangeOffset        int64
	RawFilename        string
	Format             string
	Filter             string
	AnnotationFilename string
	ImportedAt         string
	PackageVersion     string
	Error              string
}

func (r Record) AbsOnset() int64  { return r.RangeOnset + r.TimeSeek }
func (r Record) AbsOffset() int64 { return r.RangeOffset + r.TimeSeek }
func (r Record) Duration() int64  { return r.RangeOffset - r.RangeOnset }

// Imported reports whether the record points at a converted file.
func (r Record) Imported() bool { return r.AnnotationFilename != "" }

// Field returns the textual value of an index column.
func (r Record) Field(column string) (string, bool) {
	switch column {
	case "set":
		return r.Set, true
	case "recording_filename":
		return r.RecordingFilename, true
	case "time_seek":
		return strconv.FormatInt(r.TimeSeek, 10), true
	case "range_onset":
		return strconv.FormatInt(r.RangeOnset, 10), true
	case "range_offset":
		return strconv.FormatInt(r.RangeOffset, 10), true
	case "raw_filename":
		return r.RawFilename, true
	case "format":
		return r.Format, true
	case "filter":
		return r.Filter, true
	case "annotation_filename":
		return r.AnnotationFilename, true
	case "imported_at":
		return r.ImportedAt, true
	case "package_version":
		return r.PackageVersion, true
	case "error":
		return r.Error, true
	}
	return "", false
}

// SetField assigns an index column from its textual form.
func (r *Record) SetField(column, value string) error {
	parseMS := func(dst *int64) error {
		if value == "" {
			*dst = 0
			return nil
		}
		v, err := ParseMS(value)
		if err != nil {
			return fmt.Errorf("%s: %w", column, err)
		}
		*dst = v
		return nil
	}
	switch column {
	case "set":
		r.Set = value
	case "recording_filename":
		r.RecordingFilename = value
	case "time_seek":
		return parseMS(&r.TimeSeek)
	case "range_onset":
		return parseMS(&r.RangeOnset)
	case "range_offset":
		return parseMS(&r.RangeOffset)
	case "raw_filename":
		r.RawFilename = value
	case "format":
		r.Format = value
	case "filter":
		r.Filter = value
	case "annotation_filename":
		r.AnnotationFilename = value
	case "imported_at":
		r.ImportedAt = value
	case "package_version":
		r.PackageVersion = value
	case "error":
		r.Error = value
	default:
		return fmt.Errorf("unknown index column %q", column)
	}
	return nil
}

// Segment is one labeled span of a converted annotation. Onset and Offset share
// the zero of the owning record's range.
type Segment struct {
	RawFilename string
	Onset       int64
	Offset      int64
	Attrs       map[string]string
}

// Attr returns the value of an attribute column, or "" when unset.
func (s Segment) Attr(name string) string {
	if s.Attrs == nil {
		return ""
	}
	return s.Attrs[name]
}

func (s Segment) Clone() Segment {
	out := s
	if s.Attrs != nil {
		out.Attrs = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Table is a segment table as produced by a converter or read from a converted
// file. Columns lists the attribute columns beyond raw_filename and the two
// bounds; a table with no columns and no segments is "columnless".
type Table struct {
	Columns  []string
	Segments []Segment
}

func (t Table) Columnless() bool { return len(t.Columns) == 0 && len(t.Segments) == 0 }

// AnnotatedSegment is a segment joined with the record that references its
// converted file. Position is only set by collapsed retrieval.
type AnnotatedSegment struct {
	Segment
	Record   Record
	Position int64
}

// ParseMS parses a millisecond value, accepting decimal notation and
// truncating toward zero.
func ParseMS(value string) (int64, error) {
	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid millisecond value %q", value)
	}
	return int64(f), nil
}
