// Package records converts annotation index rows between their tabular and
// typed forms and checks index-wide invariants.
package records

import (
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/types"
)

// Decode maps index rows onto records; unknown columns are ignored and
// malformed numbers decode as zero (validation reports them).
func Decode(header []string, rows [][]string) []types.Record {
	out := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		var r types.Record
		for i, col := range header {
			if i >= len(row) {
				break
			}
			if _, known := schema.Lookup(schema.IndexColumns, col); !known {
				continue
			}
			_ = r.SetField(col, row[i])
		}
		out = append(out, r)
	}
	return out
}

// Encode renders records in index column order.
func Encode(records []types.Record) [][]string {
	names := schema.Names(schema.IndexColumns)
	out := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(names))
		for j, name := range names {
			row[j], _ = r.Field(name)
		}
		out[i] = row
	}
	return out
}

// Duplicates reports converted files referenced more than once within a set.
func Duplicates(records []types.Record) schema.Report {
	type key struct{ set, file string }
	var (
		order  []key
		counts = map[key]int{}
	)
	for _, r := range records {
		if !r.Imported() {
			continue
		}
		k := key{r.Set, r.AnnotationFilename}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	var rep schema.Report
	for _, k := range order {
		if n := counts[k]; n > 1 {
			rep.Errorf("duplicate reference to annotations/%s/converted/%s (appears %d times)", k.set, k.file, n)
		}
	}
	return rep
}
