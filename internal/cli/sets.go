package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/forPelevin/annoset/internal/usecase"
	"github.com/spf13/cobra"
)

func newSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "Summarize the sets present in the index",
		Args:  cobra.NoArgs,
		RunE:  withSession(runSets),
	}
}

type setSummary struct {
	records, imported, failed int
	duration                  int64
	subsets                   int
}

func runSets(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	recs, _, err := s.p.Usecase.Records(ctx)
	if err != nil {
		return err
	}

	var names []string
	summaries := map[string]*setSummary{}
	for _, r := range recs {
		sum, ok := summaries[r.Set]
		if !ok {
			sum = &setSummary{}
			summaries[r.Set] = sum
			names = append(names, r.Set)
		}
		sum.records++
		switch {
		case r.Error != "":
			sum.failed++
		case r.Imported():
			sum.imported++
			sum.duration += r.Duration()
		}
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		sum := summaries[name]
		if subs, err := s.p.Usecase.Subsets(name, false); err == nil {
			sum.subsets = len(subs)
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(sum.records),
			strconv.Itoa(sum.imported),
			strconv.Itoa(sum.failed),
			strconv.FormatInt(sum.duration, 10),
			strconv.Itoa(sum.subsets),
		})
	}

	out := cmd.OutOrStdout()
	headers := []string{"Set", "Records", "Imported", "Errors", "Duration (ms)", "Subsets"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
	return nil
}

func newRemoveSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-set <set>",
		Short: "Delete the converted files of a set and drop its index rows",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runRemoveSet),
	}
	cmd.Flags().Bool("recursive", false, "Also remove the subsets of the set")
	return cmd
}

func runRemoveSet(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	return s.p.Usecase.RemoveSet(ctx, args[0], recursive)
}

func newRenameSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename-set <set> <new-set>",
		Short: "Move a set's files to a new name and rewrite its index rows",
		Args:  cobra.ExactArgs(2),
		RunE:  withSession(runRenameSet),
	}
	cmd.Flags().Bool("recursive", false, "Also rename the subsets of the set")
	cmd.Flags().Bool("ignore-errors", false, "Rename the directories even if the set has no index rows")
	return cmd
}

func runRenameSet(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
	in := usecase.RenameInput{Set: args[0], NewSet: args[1]}
	in.Recursive, _ = cmd.Flags().GetBool("recursive")
	in.IgnoreErrors, _ = cmd.Flags().GetBool("ignore-errors")
	return s.p.Usecase.RenameSet(ctx, in)
}
