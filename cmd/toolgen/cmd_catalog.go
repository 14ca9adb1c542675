package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/relevance"
)

func newServersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List catalog servers with their categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := a.openCatalog(); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range a.catalog.Servers() {
				fmt.Fprintf(w, "%s (%d tools)\n", s.Name, s.ToolCount())
				for _, c := range s.Categories {
					fmt.Fprintf(w, "  %s: %s (%d tools)\n", c.Name, c.Description, len(c.Tools))
				}
			}
			return nil
		},
	}
}

func newTreeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [server]",
		Short: "Print the catalog as a tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := a.openCatalog(); err != nil {
				return err
			}
			server := ""
			if len(args) == 1 {
				server = args[0]
			}
			tree, err := a.catalog.Tree(server)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tree)
			return err
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		ranked bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find tools whose name, description or keywords contain query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := a.openCatalog(); err != nil {
				return err
			}

			var tools []catalog.Tool
			if ranked {
				r, err := relevance.NewRanker(a.catalog)
				if err != nil {
					return err
				}
				if tools, err = r.Rank(args[0], limit); err != nil {
					return err
				}
			} else {
				tools = relevance.Search(a.catalog, args[0])
				if limit > 0 && len(tools) > limit {
					tools = tools[:limit]
				}
			}

			w := cmd.OutOrStdout()
			if len(tools) == 0 {
				fmt.Fprintf(w, "no tools match %q\n", args[0])
				return nil
			}
			for _, t := range tools {
				fmt.Fprintf(w, "%s\n    %s\n", t.Ref(), t.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ranked, "ranked", false, "order matches by BM25 relevance")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 for all)")
	return cmd
}

func newDescribeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <server> <category> <tool>",
		Short: "Show the documentation of one tool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.agent.Describe(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var rawArgs string
	cmd := &cobra.Command{
		Use:     "call <server> <category> <tool>",
		Short:   "Call one tool and print its result",
		Example: `  toolgen call --mock --catalog catalog.yaml slack messages send_message --args '{"text":"hi"}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if rawArgs != "" {
				if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}
			a, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.agent.Execute(cmd.Context(), args[0], args[1], args[2], params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	return cmd
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var (
		out         string
		format      string
		rules       string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Build a catalog by listing the tools of every configured server",
		Long: `Launch every server in the configuration, list its tools over MCP and
group them into categories. The resulting catalog is written in the chosen
format. Servers that fail to start are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(opts)
			if err != nil {
				return err
			}
			dopts := catalog.DiscoverOptions{Concurrency: concurrency, Logger: a.logger}
			if rules != "" {
				c, err := catalog.LoadCategorizer(rules)
				if err != nil {
					return err
				}
				dopts.Categorizer = c
			}
			cat, err := catalog.DiscoverAll(cmd.Context(), a.cfg.Servers, dopts)
			if err != nil {
				return err
			}
			data, err := cat.Marshal(format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the catalog to this file instead of standard output")
	cmd.Flags().StringVar(&format, "format", "yaml", "catalog format: yaml, json or toml")
	cmd.Flags().StringVar(&rules, "rules", "", "categorization rules file (json, yaml or toml)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "servers discovered in parallel")
	return cmd
}
