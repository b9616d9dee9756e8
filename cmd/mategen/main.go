// Package main is the entry point for the mategen CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/mategen/internal/config"
	"github.com/flemzord/mategen/internal/core"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command that opens a session.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (g *globalFlags) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(g.logLevel)); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", g.logLevel, err)
	}
	return l, nil
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mategen",
		Short:         "A conversational data-analysis assistant with tools and persistence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Persistent data directory")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Minimum log level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		chatCmd(g),
		askCmd(g),
		serveCmd(g),
		historyCmd(g),
		projectCmd(g),
		configCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mategen %s (commit: %s, built: %s)\n", version, commit, date)
			if len(core.GetModules()) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, ns := range core.Namespaces() {
				mods := core.GetModulesByNamespace(ns)
				if len(mods) == 0 {
					continue
				}
				fmt.Fprintf(out, "  %s:\n", ns)
				for _, mod := range mods {
					fmt.Fprintf(out, "    %s\n", mod.ID)
				}
			}
		},
	}
}

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				resolved, err := config.ResolvePath()
				if err != nil {
					return err
				}
				path = resolved
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if _, err := cfg.Assistant.SystemMessages(); err != nil {
				return err
			}

			ids := config.Resolve(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
