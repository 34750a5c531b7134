// Package schema declares the columns of the annotation index and of converted
// segment files, and validates tabular data against them.
package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Column describes one column of an index or segment table.
type Column struct {
	Name        string
	Description string
	Required    bool
	Generated   bool
	Pattern     *regexp.Regexp
	Choices     []string
	// Layout is a time layout the value must parse with.
	Layout string
}

// Check validates a single non-empty cell.
func (c Column) Check(value string) error {
	switch {
	case c.Pattern != nil && !c.Pattern.MatchString(value):
		return fmt.Errorf("'%s' does not match the format required for '%s', expected '%s'", value, c.Name, patternSource(c.Pattern))
	case len(c.Choices) > 0 && !slices.Contains(c.Choices, value):
		return fmt.Errorf("'%s' is not a permitted value for column '%s', should be any of [%s]", value, c.Name, strings.Join(c.Choices, ","))
	case c.Layout != "":
		if _, err := time.Parse(c.Layout, value); err != nil {
			return fmt.Errorf("'%s' is not a proper date/time for column '%s' (expected %s)", value, c.Name, c.Layout)
		}
	}
	return nil
}

// ImportedAtLayout is the layout of the imported_at index column.
const ImportedAtLayout = "2006-01-02 15:04:05"

func full(expr string) *regexp.Regexp { return regexp.MustCompile(`^(?:` + expr + `)$`) }

func patternSource(re *regexp.Regexp) string {
	s := re.String()
	s = strings.TrimPrefix(s, "^(?:")
	return strings.TrimSuffix(s, ")$")
}

var (
	reInt       = full(`[0-9]+`)
	reSignedInt = full(`(-?)([0-9]+)`)
	reNumber    = full(`\d+(\.\d+)?`)
	reSignedNum = full(`(-?)(\d+(\.\d+)?)`)
	reVersion   = full(`[0-9]+\.[0-9]+\.[0-9]+`)
)

// Format is the tag of a raw annotation format.
type Format string

const (
	FormatTextGrid    Format = "TextGrid"
	FormatEAF         Format = "eaf"
	FormatVTCRTTM     Format = "vtc_rttm"
	FormatVCMRTTM     Format = "vcm_rttm"
	FormatAlice       Format = "alice"
	FormatITS         Format = "its"
	FormatCHAT        Format = "cha"
	FormatWhisperJSON Format = "whisper_json"
)

// Formats lists every format tag the index accepts.
var Formats = []Format{FormatTextGrid, FormatEAF, FormatVTCRTTM, FormatVCMRTTM, FormatAlice, FormatITS, FormatCHAT, FormatWhisperJSON}

func formatChoices() []string {
	out := make([]string, len(Formats))
	for i, f := range Formats {
		out[i] = string(f)
	}
	return out
}

var IndexColumns = []Column{
	{Name: "set", Description: "name of the annotation set (e.g. VTC, annotator1, etc.)", Required: true},
	{Name: "recording_filename", Description: "recording filename as specified in the recordings index", Required: true},
	{Name: "time_seek", Description: "reference time in milliseconds; all times of the annotation are relative to it", Required: true, Pattern: reSignedInt},
	{Name: "range_onset", Description: "covered range start time in milliseconds, measured since time_seek", Required: true, Pattern: reInt},
	{Name: "range_offset", Description: "covered range end time in milliseconds, measured since time_seek", Required: true, Pattern: reInt},
	{Name: "raw_filename", Description: "annotation input filename, relative to annotations/<set>/raw", Required: true},
	{Name: "format", Description: "input annotation format", Choices: formatChoices()},
	{Name: "filter", Description: "source file to filter in (rttm and alice only) or recording number (its)"},
	{Name: "annotation_filename", Description: "converted annotation filename, relative to annotations/<set>/converted", Generated: true},
	{Name: "imported_at", Description: "importation date", Generated: true, Layout: ImportedAtLayout},
	{Name: "package_version", Description: "version of the package used for the importation", Generated: true, Pattern: reVersion},
	{Name: "error", Description: "error message in case the annotation could not be imported", Generated: true},
}

var SegmentColumns = []Column{
	{Name: "raw_filename", Description: "raw annotation path, relative to annotations/<set>/raw", Required: true},
	{Name: "segment_onset", Description: "segment start time in milliseconds", Required: true, Pattern: reInt},
	{Name: "segment_offset", Description: "segment end time in milliseconds", Required: true, Pattern: reInt},
	{Name: "speaker_id", Description: "identity of speaker in the annotation"},
	{Name: "speaker_type", Description: "class of speaker", Choices: []string{
		"FEM", "MAL", "CHI", "OCH", "SPEECH",
		"TVN", "TVF", "FUZ", "FEF", "MAF", "SIL", "CXF", "NON", "OLN", "OLF", "CHF", "NA",
		"ELE",
	}},
	{Name: "ling_type", Description: "1 if the vocalization contains at least a vowel, 0 if crying or laughing", Choices: []string{"1", "0", "NA"}},
	{Name: "vcm_type", Description: "vocal maturity: C canonical, N non-canonical, Y crying, L laughing, J junk", Choices: []string{"C", "N", "Y", "L", "J", "NA"}},
	{Name: "lex_type", Description: "W if meaningful, 0 otherwise", Choices: []string{"W", "0", "NA"}},
	{Name: "mwu_type", Description: "M if multiword, 1 if single word; only filled if lex_type is W", Choices: []string{"M", "1", "NA"}},
	{Name: "addressee", Description: "T target child, C other child, A adult, U uncertain", Choices: []string{"T", "C", "A", "U", "NA"}},
	{Name: "transcription", Description: "orthographic transcription of the speech"},
	{Name: "phonemes", Description: "amount of phonemes", Pattern: reNumber},
	{Name: "syllables", Description: "amount of syllables", Pattern: reNumber},
	{Name: "words", Description: "amount of words", Pattern: reNumber},
	{Name: "lena_block_type", Description: "whether regarded as part of a pause or a conversation by LENA", Choices: []string{
		"pause", "CM", "CIC", "CIOCX", "CIOCAX", "AMF", "AICF", "AIOCF", "AIOCCXF", "AMM", "AICM", "AIOCM", "AIOCCXM", "XM", "XIOCC", "XIOCA", "XIC", "XIOCAC",
	}},
	{Name: "lena_block_number", Description: "number of the LENA pause/conversation the segment belongs to", Pattern: reNumber},
	{Name: "lena_conv_status", Description: "LENA conversation status", Choices: []string{"BC", "RC", "EC"}},
	{Name: "lena_response_count", Description: "LENA turn count within block", Pattern: reNumber},
	{Name: "lena_conv_floor_type", Description: "FI floor initiation, FH floor holding", Choices: []string{"FI", "FH"}},
	{Name: "lena_conv_turn_type", Description: "LENA turn type", Choices: []string{"TIFI", "TIMI", "TIFR", "TIMR", "TIFE", "TIME", "NT"}},
	{Name: "utterances_count", Description: "utterances count", Pattern: reNumber},
	{Name: "utterances_length", Description: "utterances length", Pattern: reInt},
	{Name: "non_speech_length", Description: "non-speech length", Pattern: reInt},
	{Name: "average_db", Description: "average dB level", Pattern: reSignedNum},
	{Name: "peak_db", Description: "peak dB level", Pattern: reSignedNum},
	{Name: "child_cry_vfx_len", Description: "childCryVfxLen", Pattern: reInt},
	{Name: "utterances", Description: "LENA utterances details (json)"},
	{Name: "cries", Description: "cries (json)"},
	{Name: "vfxs", Description: "Vfx (json)"},
}

// na is treated as an absent value during validation.
const na = "NA"

// Segment columns that hold the segment identity rather than an attribute.
var segmentKeys = []string{"raw_filename", "segment_onset", "segment_offset"}

// Names returns the column names of cols in declaration order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// RequiredNames returns the names of required columns.
func RequiredNames(cols []Column) []string {
	var out []string
	for _, c := range cols {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// Lookup finds a column by name.
func Lookup(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// AttributeColumns returns the segment columns that carry attributes.
func AttributeColumns() []string {
	var out []string
	for _, c := range SegmentColumns {
		if !slices.Contains(segmentKeys, c.Name) {
			out = append(out, c.Name)
		}
	}
	return out
}

// RequiredAttributeColumns returns the required segment attributes.
func RequiredAttributeColumns() []string {
	var out []string
	for _, c := range SegmentColumns {
		if c.Required && !slices.Contains(segmentKeys, c.Name) {
			out = append(out, c.Name)
		}
	}
	return out
}

// IsSegmentColumn reports whether name is a declared segment column.
func IsSegmentColumn(name string) bool {
	_, ok := Lookup(SegmentColumns, name)
	return ok
}

// OrderAttributes sorts attribute names by declaration order, undeclared
// names last in their input order.
func OrderAttributes(names []string) []string {
	rank := func(n string) int {
		for i, c := range SegmentColumns {
			if c.Name == n {
				return i
			}
		}
		return len(SegmentColumns)
	}
	out := append([]string(nil), names...)
	slices.SortStableFunc(out, func(a, b string) int { return rank(a) - rank(b) })
	return out
}

// Report collects the problems found in a batch; nothing in it is fatal to
// the batch that produced it.
type Report struct {
	Errors   []string
	Warnings []string
}

func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) Merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validate checks a table given as a header and string rows. source names the
// table in messages; line numbers count the header as line 1.
func Validate(source string, cols []Column, header []string, rows [][]string) Report {
	var rep Report
	for _, name := range RequiredNames(cols) {
		if !slices.Contains(header, name) {
			rep.Errorf("%s: missing required column '%s'", source, name)
		}
	}
	declared := make([]*Column, len(header))
	for i, h := range header {
		if c, ok := Lookup(cols, h); ok {
			declared[i] = &c
		} else {
			rep.Warnf("%s: unknown column '%s'", source, h)
		}
	}
	for n, row := range rows {
		line := n + 2
		for i, value := range row {
			if i >= len(declared) || declared[i] == nil {
				continue
			}
			col := declared[i]
			if value == "" || value == na {
				if col.Required {
					rep.Errorf("%s: '%s' is empty on line %d", source, col.Name, line)
				}
				continue
			}
			if err := col.Check(value); err != nil {
				rep.Errorf("%s: %v on line %d", source, err, line)
			}
		}
	}
	return rep
}
