package cli

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/forPelevin/annoset/internal/domain/records"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/types"
	"github.com/forPelevin/annoset/internal/usecase"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeRecords(w io.Writer, recs []types.Record) error {
	return writeCSV(w, schema.Names(schema.IndexColumns), records.Encode(recs))
}

// Record columns repeated on every segment row.
var segmentRecordColumns = []string{"set", "recording_filename", "annotation_filename", "time_seek", "range_onset", "range_offset"}

func writeSegments(w io.Writer, rows usecase.SegmentRows, collapsed bool) error {
	header := []string{"raw_filename", "segment_onset", "segment_offset"}
	header = append(header, rows.Columns...)
	header = append(header, segmentRecordColumns...)
	if collapsed {
		header = append(header, "position")
	}

	out := make([][]string, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		row := []string{
			r.Segment.RawFilename,
			strconv.FormatInt(r.Onset, 10),
			strconv.FormatInt(r.Offset, 10),
		}
		for _, c := range rows.Columns {
			row = append(row, r.Attr(c))
		}
		for _, c := range segmentRecordColumns {
			v, _ := r.Record.Field(c)
			row = append(row, v)
		}
		if collapsed {
			row = append(row, strconv.FormatInt(r.Position, 10))
		}
		out = append(out, row)
	}
	return writeCSV(w, header, out)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(w io.Writer, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.DrawBorder = false
	}
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
