package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scummsync/internal/launch"
)

func (c *commandContext) newOrchestrator(closers *[]io.Closer) (*launch.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := []launch.Option{launch.WithLogger(c.logger())}
	if hist := c.openHistory(); hist != nil {
		*closers = append(*closers, hist)
		opts = append(opts, launch.WithHistory(hist))
	}
	return launch.New(cfg, opts...)
}

func closeAll(closers []io.Closer) {
	for _, closer := range closers {
		_ = closer.Close()
	}
}

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "launch [game]",
		Short: "Start the engine for a game, then reconcile the engine config",
		Long: `Start the engine for a game, then reconcile the engine config.

The game is a marker name ("monkey"), a marker file ("monkey.svm") or a path to
either. Without a game the engine opens its own launcher.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var closers []io.Closer
			defer func() { closeAll(closers) }()

			orch, err := ctx.newOrchestrator(&closers)
			if err != nil {
				return err
			}
			base := ""
			if len(args) > 0 {
				base = args[0]
			}
			_, err = orch.Launch(cmd.Context(), base)
			return err
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var opts launch.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the engine config with the marker files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var closers []io.Closer
			defer func() { closeAll(closers) }()

			orch, err := ctx.newOrchestrator(&closers)
			if err != nil {
				return err
			}
			res, err := orch.Sync(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSyncResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show planned changes without writing anything")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Reconcile even when the config is unchanged since the last run")
	return cmd
}

func printSyncResult(out io.Writer, res launch.SyncResult) {
	if res.Skipped {
		fmt.Fprintf(out, "Nothing to do: %s\n", res.SkipReason)
		return
	}
	report := res.Report
	for _, r := range report.Removed {
		fmt.Fprintf(out, "removed [%s] (%s)\n", r.Label, r.Reason)
	}
	for _, r := range report.Renamed {
		fmt.Fprintf(out, "renamed [%s] -> [%s]\n", r.From, r.To)
	}
	for _, op := range report.MarkerOps {
		fmt.Fprintf(out, "marker %s\n", op)
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(out, "warning: %s\n", d)
	}
	summary := fmt.Sprintf("%s removed, %s renamed, %s",
		plural(len(report.Removed), "section"),
		plural(len(report.Renamed), "section"),
		plural(len(report.MarkerOps), "marker change"))
	if res.DryRun {
		fmt.Fprintf(out, "Dry run: %s planned; nothing written\n", summary)
		return
	}
	fmt.Fprintf(out, "Reconciled: %s\n", summary)
	if res.BackupPath != "" {
		fmt.Fprintf(out, "Previous config saved to %s\n", res.BackupPath)
	}
}
