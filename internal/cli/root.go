package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"unwbridge/pkg/config"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbose    bool
	configPath string
	logOutput  io.Writer
}

// loadConfig reads the configuration named by --config, falling back to defaults.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(o.configPath)
}

// NewRootCommand builds the unwbridge command tree. Logs go to logOutput.
func NewRootCommand(logOutput io.Writer) *cobra.Command {
	opts := &globalOptions{logOutput: logOutput}

	root := &cobra.Command{
		Use:   "unwbridge",
		Short: "Bridge separately unwrapped regions of an interferogram",
		Long: `unwbridge removes integer 2π offsets between the connected regions of an
unwrapped interferogram. Regions are joined along the shortest bridges of a
minimum spanning tree rooted at the reference region.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(opts.logOutput, level)))
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stderr).ExecuteContext(ctx)
}
