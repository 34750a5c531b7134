package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "annoset",
		Short:        "Index, convert, merge and query annotation sets of a dataset",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Path to config file (default ~/.config/annoset/config.toml or ./annoset.toml)")
	root.PersistentFlags().StringP("project", "p", "", "Dataset root, overrides project.path")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newImportCmd(),
		newValidateCmd(),
		newIntersectCmd(),
		newMergeCmd(),
		newSegmentsCmd(),
		newSetsCmd(),
		newRemoveSetCmd(),
		newRenameSetCmd(),
		newInitConfigCmd(),
	)
	return root
}
