// Command toolgen generates Go code that calls MCP tools and runs it in a
// sandbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	catalogPath string
	mock        bool
	verbose     bool

	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "toolgen",
		Short: "Generate and run Go code against MCP tool servers",
		Long: `toolgen turns a natural-language request into Go code that calls MCP tools
through the agent package, then runs that code in a sandboxed interpreter.

The tool catalog is read from a YAML, JSON or TOML file, or from a metadata
directory tree. Servers are launched lazily from the configuration file; with
--mock no process is ever started and tool calls return acknowledgments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.OutputPaths = []string{"stderr"}
			if opts.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "launch configuration file (yaml, json or toml)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "tool catalog file or directory (overrides the configuration)")
	flags.BoolVar(&opts.mock, "mock", false, "answer tool calls with acknowledgments instead of launching servers")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(opts),
		newGenerateCmd(opts),
		newExecCmd(opts),
		newCallCmd(opts),
		newServersCmd(opts),
		newTreeCmd(opts),
		newSearchCmd(opts),
		newDescribeCmd(opts),
		newDiscoverCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}
