package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <input.csv>",
		Short: "Convert raw annotations listed in a CSV file and append them to the index",
		Long: "The input lists one annotation unit per row with the index columns set, recording_filename,\n" +
			"time_seek, range_onset, range_offset, raw_filename and optionally format and filter.\n" +
			"The imported rows are printed as CSV; units that failed carry their error message.",
		Args: cobra.ExactArgs(1),
		RunE: withSession(runImport),
	}
	cmd.Flags().Int("threads", 0, "Concurrent conversions (0: one per CPU)")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
	res, err := s.p.ImportFile(ctx, args[0], threadsFlag(cmd, s.cfg.Import.Threads))
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), res.Records)
}
