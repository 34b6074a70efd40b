package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abelbrown/forager/internal/config"
)

// addSessionFlags registers the settings a labeling session reads. Only
// flags the user set override the file and environment.
func addSessionFlags(flags *pflag.FlagSet) {
	flags.String("view", "", "image view: column or grid")
	flags.Int("image-height", 0, "lines per image in the view")
	flags.Int("grid-cell-width", 0, "cell width of the grid view")
	flags.Duration("poll-interval", 0, "time between lifecycle polls")
	flags.Bool("focus-guard", false, "keep keys away from the engine while the caption field is focused")
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or save the resolved configuration",
	}
	cmd.AddCommand(newConfigSaveCmd())
	return cmd
}

func newConfigSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [path]",
		Short: "Write the resolved configuration as JSON",
		Long: "Resolve defaults, the config file, FORAGER_* variables and flags, then write the\n" +
			"result to path (default is the --config file, or ~/.forager/config.json).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			path := cfgFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.ConfigPath()
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
			return nil
		},
	}
	addSessionFlags(cmd.Flags())
	return cmd
}
