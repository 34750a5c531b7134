package usecase

import (
	"context"
	"fmt"

	"github.com/forPelevin/annoset/internal/domain/coverage"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/types"
	"github.com/forPelevin/annoset/internal/workers"
)

// Records loads the index, keeping the rows of the given sets (every set
// when sets is empty).
func (u Usecase) Records(ctx context.Context, sets ...string) ([]types.Record, schema.Report, error) {
	all, rep, err := u.d.Index.Load(ctx)
	if err != nil {
		return nil, rep, fmt.Errorf("load index: %w", err)
	}
	if len(sets) == 0 {
		return all, rep, nil
	}
	wanted := map[string]struct{}{}
	for _, s := range sets {
		wanted[s] = struct{}{}
	}
	var out []types.Record
	for _, r := range all {
		if _, ok := wanted[r.Set]; ok {
			out = append(out, r)
		}
	}
	return out, rep, nil
}

// Validate checks the index and every converted file it references. Problems
// are reported, not returned; the error is reserved for an unreadable index.
func (u Usecase) Validate(ctx context.Context, threads int) (schema.Report, error) {
	recs, rep, err := u.Records(ctx)
	if err != nil {
		return rep, err
	}
	rep.Merge(u.ValidateAnnotations(ctx, recs, threads))
	return rep, nil
}

// ValidateAnnotations checks the converted files of recs against the segment
// schema, reading them on a worker pool.
func (u Usecase) ValidateAnnotations(ctx context.Context, recs []types.Record, threads int) schema.Report {
	var imported []types.Record
	for _, r := range recs {
		if r.Imported() {
			imported = append(imported, r)
		}
	}
	results := workers.Map(ctx, threads, imported, func(ctx context.Context, r types.Record) (schema.Report, error) {
		source := fmt.Sprintf("annotations/%s/converted/%s", r.Set, r.AnnotationFilename)
		header, rows, err := u.d.Segments.ReadRaw(ctx, r.Set, r.AnnotationFilename)
		if err != nil {
			return schema.Report{}, err
		}
		return schema.Validate(source, schema.SegmentColumns, header, rows), nil
	})

	var rep schema.Report
	for _, res := range results {
		if res.Err != nil {
			rep.Errorf("%s", res.Err.Error())
			continue
		}
		rep.Merge(res.Value)
	}
	return rep
}

// Intersection restricts the error-free records of sets (every set when
// empty) to the spans all of them cover.
func (u Usecase) Intersection(ctx context.Context, sets ...string) ([]types.Record, error) {
	recs, _, err := u.Records(ctx, sets...)
	if err != nil {
		return nil, err
	}
	ok := recs[:0:0]
	for _, r := range recs {
		if r.Error == "" {
			ok = append(ok, r)
		}
	}
	var want []string
	if len(sets) > 0 {
		want = sets
	}
	return coverage.Records(coverage.Intersect(ok, want)), nil
}
