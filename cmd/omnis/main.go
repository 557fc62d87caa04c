// Package main is the entry point for the omnis binary.
// It serves the workflow engine over HTTP and offers offline inspection commands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultLogLevel = "info"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for omnis
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omnis",
		Short: "Intent routing and simulated multi-agent workflow engine",
		Long: `Omnis classifies free-text requests into workflow categories, composes the
agent DAG for that category, and simulates its execution.

Example:
  omnis serve --config omnis.yaml
  omnis classify "calculate financed emissions for my portfolio"`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newAgentsCmd(),
		newClassifyCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	cmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().Bool("pretty", false, "Enable human-readable console logging")

	return cmd
}

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Print the agent catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("catalog")
			if err != nil {
				return fmt.Errorf("failed to get catalog flag: %w", err)
			}

			cat := catalog.Default()
			if path != "" {
				cat, err = catalog.LoadFile(path)
				if err != nil {
					return err
				}
			}

			out, err := cat.Marshal()
			if err != nil {
				return fmt.Errorf("failed to render catalog: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().String("catalog", "", "Path to an agent catalog file (defaults to the built-in roster)")

	return cmd
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <text...>",
		Short: "Show which workflow a request would be routed to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			classifier, err := buildClassifier(cfg)
			if err != nil {
				return err
			}

			decision := classifier.Match(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "category: %s\n", decision.Category)
			if decision.Variant != "" {
				fmt.Fprintf(out, "variant:  %s\n", decision.Variant)
			}
			fmt.Fprintf(out, "rule:     %s\n", decision.Rule)
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML) whose intent.extra_rules apply")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "omnis %s\n", version)
		},
	}
}
