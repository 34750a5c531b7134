package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/annoset/internal/types"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the index and every converted annotation file",
		Args:  cobra.NoArgs,
		RunE:  withSession(runValidate),
	}
	cmd.Flags().Int("threads", 0, "Concurrent file checks (0: one per CPU)")
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	rep, err := s.p.Usecase.Validate(ctx, threadsFlag(cmd, s.cfg.Import.Threads))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rep.Errors)+len(rep.Warnings) > 0 {
		rows := make([][]string, 0, len(rep.Errors)+len(rep.Warnings))
		for _, e := range rep.Errors {
			rows = append(rows, []string{"error", e})
		}
		for _, w := range rep.Warnings {
			rows = append(rows, []string{"warning", w})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Level", "Message"}, rows, nil))
	}
	if !rep.OK() {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(rep.Errors), len(rep.Warnings))
	}
	fmt.Fprintf(out, "index is valid (%d warning(s))\n", len(rep.Warnings))
	return nil
}

func newIntersectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intersect",
		Short: "Print the index rows of the given sets restricted to the spans they all cover",
		Args:  cobra.NoArgs,
		RunE:  withSession(runIntersect),
	}
	cmd.Flags().StringSlice("set", nil, "Set to intersect (repeatable, at least two)")
	return cmd
}

func runIntersect(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	sets, _ := cmd.Flags().GetStringSlice("set")
	if len(sets) < 2 {
		return errors.New("intersect needs at least two --set values")
	}
	recs, err := s.p.Usecase.Intersection(ctx, sets...)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), recs)
}

func newSegmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Print the segments of imported annotations as CSV",
		Args:  cobra.NoArgs,
		RunE:  withSession(runSegments),
	}
	cmd.Flags().StringSlice("set", nil, "Restrict to these sets (repeatable; default all)")
	cmd.Flags().Bool("collapse", false, "Lay annotations end to end on a per-set virtual timeline")
	return cmd
}

func runSegments(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	sets, _ := cmd.Flags().GetStringSlice("set")
	collapse, _ := cmd.Flags().GetBool("collapse")

	all, _, err := s.p.Usecase.Records(ctx, sets...)
	if err != nil {
		return err
	}
	var recs []types.Record
	for _, r := range all {
		if r.Error == "" && r.Imported() {
			recs = append(recs, r)
		}
	}

	load := s.p.Usecase.Segments
	if collapse {
		load = s.p.Usecase.CollapsedSegments
	}
	rows, err := load(ctx, recs)
	if err != nil {
		return err
	}
	return writeSegments(cmd.OutOrStdout(), rows, collapse)
}
