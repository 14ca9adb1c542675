package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgen/generate"
	"github.com/jonwraymond/toolgen/relevance"
	"github.com/jonwraymond/toolgen/sandbox"
	"github.com/jonwraymond/toolgen/workflow"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		noExec      bool
		tierName    string
		contextText string
	)
	cmd := &cobra.Command{
		Use:   "run <request...>",
		Short: "Generate code for a request and execute it",
		Example: `  toolgen run --catalog catalog.yaml --mock "send hello to the general channel"
  toolgen run -c toolgen.yaml --no-exec "list my repositories"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tier, err := resolveTier(tierName, a.cfg.Sandbox.Tier)
			if err != nil {
				return err
			}
			gen, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			sb, err := a.sandbox()
			if err != nil {
				return err
			}
			if err := a.openHistory(ctx); err != nil {
				return err
			}

			wcfg := workflow.Config{Generator: gen, Executor: sb, Logger: a.logger}
			if a.history != nil {
				wcfg.Recorder = a.history
			}
			coord, err := workflow.New(wcfg)
			if err != nil {
				return err
			}

			res := coord.Run(ctx, strings.Join(args, " "), workflow.Options{
				Execute: !noExec,
				Tier:    tier,
				Context: contextText,
			})
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("run %s failed: %s", res.RunID, res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noExec, "no-exec", false, "generate only; do not execute the code")
	cmd.Flags().StringVar(&tierName, "tier", "", "sandbox tier: restricted or unrestricted (default from configuration)")
	cmd.Flags().StringVar(&contextText, "context", "", "additional context appended to the prompt")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		contextText string
		promptOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "generate <request...>",
		Short: "Generate code for a request without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.openCatalog(); err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if promptOnly {
				tools := relevance.SearchByKeywords(a.catalog, query)
				prompt, err := generate.BuildPrompt(query, tools, a.catalog, contextText)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
				return err
			}

			gen, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			res, err := gen.Generate(cmd.Context(), query, contextText)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Unit())
		},
	}
	cmd.Flags().StringVar(&contextText, "context", "", "additional context appended to the prompt")
	cmd.Flags().BoolVar(&promptOnly, "prompt", false, "print the prompt instead of calling the backend")
	return cmd
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	var tierName string
	cmd := &cobra.Command{
		Use:   "exec <file|->",
		Short: "Run Go code in the sandbox",
		Long: `Run Go code in the sandbox. The code is read from a file, or from standard
input when the argument is "-". Scripts may declare a variable named result;
its value is reported in the outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			a, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tier, err := resolveTier(tierName, a.cfg.Sandbox.Tier)
			if err != nil {
				return err
			}
			sb, err := a.sandbox()
			if err != nil {
				return err
			}
			out := sb.Run(cmd.Context(), code, tier)
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("execution failed: %s", out.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tierName, "tier", "", "sandbox tier: restricted or unrestricted (default from configuration)")
	return cmd
}

// resolveTier parses the flag value, falling back to the configured tier.
func resolveTier(flag, configured string) (sandbox.Tier, error) {
	if flag == "" {
		flag = configured
	}
	return sandbox.ParseTier(flag)
}

func readSource(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	return string(data), nil
}
