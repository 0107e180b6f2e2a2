package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fx-data/internal/engine"
	"fx-data/internal/slogx"
	"fx-data/internal/timeframe"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

var eng *engine.Engine

func main() {
	root := &cobra.Command{
		Use:           "fx-data",
		Short:         "tick/bar file indexing, aggregation and coverage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := InitializeEngine()
			if err != nil {
				return err
			}
			slog.SetDefault(e.Log)
			eng = e
			return nil
		},
	}

	root.AddCommand(indexCmd(), coverageCmd(), barsCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "index", Short: "tick/bar file index operations"}

	var force bool
	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "rebuild the persisted file indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return eng.RebuildIndexes(force)
		},
	}
	rebuild.Flags().BoolVar(&force, "force", false, "rebuild even when the indices look fresh")

	status := &cobra.Command{
		Use:   "status",
		Short: "show indexed files per source/symbol/kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := eng.Status()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.AddCommand(rebuild, status)
	return cmd
}

func coverageCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "coverage", Short: "gap-classified continuity reports"}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <symbol>",
		Short: "show the coverage report for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := eng.ShowCoverage(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(r.Summary(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(r.Text())
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "emit the machine-readable summary")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "check every symbol and list the ones with coverage issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, issues, err := eng.ValidateCoverage()
			if err != nil {
				return err
			}
			fmt.Printf("symbols checked: %d\n", len(reports))
			if len(issues) == 0 {
				fmt.Println("all symbols ok")
				return nil
			}
			fmt.Printf("symbols with issues: %s\n", strings.Join(issues, ", "))
			return nil
		},
	}

	var force bool
	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "bulk (re)populate the coverage cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := eng.RebuildCoverage(force)
			fmt.Println(out.String())
			for _, ke := range out.Errors {
				fmt.Printf("  failed %s: %v\n", ke.Key, ke.Err)
			}
			return nil
		},
	}
	rebuild.Flags().BoolVar(&force, "force", false, "regenerate even fresh artifacts")

	clear := &cobra.Command{
		Use:   "clear",
		Short: "delete all cache artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := eng.ClearCaches()
			fmt.Printf("removed %d artifacts\n", n)
			return err
		},
	}

	cmd.AddCommand(show, validate, rebuild, clear)
	return cmd
}

func barsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bars", Short: "bar series generation"}

	var symbols, tfs string
	build := &cobra.Command{
		Use:   "build",
		Short: "render bar files from indexed ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbolList []string
			if symbols != "" {
				symbolList = strings.Split(symbols, ",")
			}
			var tfList []timeframe.Timeframe
			if tfs != "" {
				for _, s := range strings.Split(tfs, ",") {
					tf, err := timeframe.Parse(s)
					if err != nil {
						return err
					}
					tfList = append(tfList, tf)
				}
			}
			stats, err := eng.BuildBars(symbolList, tfList)
			if err != nil {
				return err
			}
			fmt.Printf("jobs=%d success=%d failed=%d\n", stats.Jobs, stats.Success, stats.Failed)
			return nil
		},
	}
	build.Flags().StringVar(&symbols, "symbols", "", "comma-separated symbols (default: all indexed)")
	build.Flags().StringVar(&tfs, "timeframes", "", "comma-separated timeframes (default: all)")

	cmd.AddCommand(build)
	return cmd
}
