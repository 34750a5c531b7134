package cli

import (
	"context"

	"github.com/forPelevin/annoset/internal/usecase"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Combine the columns of two sets over their common coverage into a new set",
		Args:  cobra.NoArgs,
		RunE:  withSession(runMerge),
	}
	cmd.Flags().String("left-set", "", "Set providing the left columns")
	cmd.Flags().String("right-set", "", "Set providing the right columns")
	cmd.Flags().StringSlice("left-columns", nil, "Attribute columns taken from the left set")
	cmd.Flags().StringSlice("right-columns", nil, "Attribute columns taken from the right set")
	cmd.Flags().String("output-set", "", "Name of the merged set")
	cmd.Flags().StringToString("column", nil, "Constant column value, e.g. --column speaker_type=CHI (repeatable)")
	cmd.Flags().Int("threads", 0, "Recordings merged concurrently (0: one per CPU)")
	for _, f := range []string{"left-set", "right-set", "output-set"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func runMerge(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
	flags := cmd.Flags()
	in := usecase.MergeInput{
		Threads:  threadsFlag(cmd, s.cfg.Merge.Threads),
		Sentinel: s.cfg.Merge.Sentinel,
	}
	in.LeftSet, _ = flags.GetString("left-set")
	in.RightSet, _ = flags.GetString("right-set")
	in.LeftColumns, _ = flags.GetStringSlice("left-columns")
	in.RightColumns, _ = flags.GetStringSlice("right-columns")
	in.OutputSet, _ = flags.GetString("output-set")
	in.Columns, _ = flags.GetStringToString("column")

	res, err := s.p.Usecase.Merge(ctx, in)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), res.Records)
}
