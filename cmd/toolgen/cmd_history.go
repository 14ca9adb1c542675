package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgen/config"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := openHistoryRequired(cmd, a); err != nil {
				return err
			}
			entries, err := a.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tSUCCESS\tQUERY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", e.RunID, e.StartedAt.Format(time.RFC3339), e.Success, e.Query)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full result of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := openHistoryRequired(cmd, a); err != nil {
				return err
			}
			res, err := a.history.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func openHistoryRequired(cmd *cobra.Command, a *app) error {
	if a.cfg.History == "" {
		return fmt.Errorf("%w: no history configured", config.ErrConfiguration)
	}
	return a.openHistory(cmd.Context())
}
