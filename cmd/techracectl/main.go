package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"techrace/internal/logging"
	"techrace/internal/simulation"
	"techrace/internal/storage"
	"techrace/pkg/techrace"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "techracectl",
		Short: "Simulate technology races between networked firms",
		Long: `techracectl runs an agent-based model of firms competing on technology
level (TAR) over a random interaction network, and inspects the stored runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(logging.NewLogger(level, cmd.ErrOrStderr()))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.Bool("json", false, "output as JSON")
	pf.String("log-level", "info", "log level: trace|debug|info|warn|error")
	pf.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	pf.String("db-path", "techrace.db", "sqlite database path")
	pf.String("artifacts-dir", "runs", "directory holding run artifacts and the run index")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newMetricsCmd(),
		newExportCmd(),
	)
	return rootCmd
}

func newClient(cmd *cobra.Command) (*techrace.Client, error) {
	storeKind, _ := cmd.Flags().GetString("store")
	dbPath, _ := cmd.Flags().GetString("db-path")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	return techrace.New(techrace.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		Logger:       slog.Default(),
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "techracectl version %s\n", version)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and store its results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), cfg)
			if err != nil && !simulation.IsCanceled(err) {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if jsonOut {
				if werr := writeJSON(out, map[string]any{
					"run_id":        summary.RunID,
					"final_step":    summary.FinalStep,
					"stop_reason":   summary.StopReason,
					"final_active":  summary.FinalActive,
					"median_tar":    summary.MedianTAR,
					"max_tar":       summary.MaxTAR,
					"edges":         summary.Edges,
					"artifacts_dir": summary.ArtifactsDir,
				}); werr != nil {
					return werr
				}
				return err
			}
			fmt.Fprintf(out, "run completed run_id=%s firms=%d distribution=%s seed=%d\n",
				summary.RunID, cfg.NumFirms, cfg.Distribution, cfg.Seed)
			fmt.Fprintf(out, "final_step=%d stop_reason=%s final_active=%d median_tar=%.4f max_tar=%.4f edges=%d\n",
				summary.FinalStep, summary.StopReason, summary.FinalActive, summary.MedianTAR, summary.MaxTAR, summary.Edges)
			fmt.Fprintf(out, "artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
			return err
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), techrace.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "run_id=%s created=%q distribution=%s firms=%d seed=%d final_step=%d stop_reason=%s final_active=%d\n",
					item.RunID, relativeTime(item.CreatedAtUTC), item.Distribution, item.NumFirms, item.Seed,
					item.FinalStep, item.StopReason, item.FinalActive)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "max runs to list")
	return cmd
}

func relativeTime(raw string) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return humanize.Time(t)
}

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the per-step metrics of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID, _ := cmd.Flags().GetString("run-id")
			latest, _ := cmd.Flags().GetBool("latest")
			limit, _ := cmd.Flags().GetInt("limit")
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			metrics, err := client.Metrics(cmd.Context(), techrace.MetricsRequest{RunID: runID, Latest: latest, Limit: limit})
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, metrics)
			}
			for _, m := range metrics {
				fmt.Fprintf(out, "step=%d active=%d innovating=%d median_tar=%.4f max_tar=%.4f skewness=%.4f intervals=%v leaders=%d followers=%d\n",
					m.Step, m.Active, m.Innovating, m.MedianTAR, m.MaxTAR, m.Skewness, m.IntervalCounts, m.Leaders, m.Followers)
			}
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "run id")
	cmd.Flags().Bool("latest", false, "use the most recent run")
	cmd.Flags().Int("limit", 0, "max steps to print, 0 for all")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to another directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID, _ := cmd.Flags().GetString("run-id")
			latest, _ := cmd.Flags().GetBool("latest")
			outDir, _ := cmd.Flags().GetString("out")
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), techrace.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"run_id": exported.RunID, "directory": exported.Directory})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "run id")
	cmd.Flags().Bool("latest", false, "export the most recent run")
	cmd.Flags().String("out", "exports", "output directory")
	return cmd
}
