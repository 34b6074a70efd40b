// Command forager runs a terminal labeling session against a forager server.
//
// Usage:
//
//	forager label <dataset>     Open the labeling session for a dataset
//	forager status              Print cluster and index status
//	forager config save [path]  Write the resolved configuration as JSON
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abelbrown/forager/internal/config"
)

var cfgFile string

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forager",
		Short:         "Terminal labeling sessions for a forager server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.forager/config.json)")
	flags.String("server-url", "", "forager server base URL")
	flags.String("log-level", "", "event log level: debug, info, warn, error")
	flags.String("data-dir", "", "directory for the database and event log")
	flags.Float64("rate-limit", 0, "server requests per second (0 = unlimited)")

	root.AddCommand(newLabelCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// loadConfig resolves the configuration with cmd's flags as the top layer.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return config.Config{}, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return config.Config{}, fmt.Errorf("create data directory: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "forager: %v\n", err)
		os.Exit(1)
	}
}
