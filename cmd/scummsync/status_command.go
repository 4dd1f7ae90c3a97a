package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scummsync/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, config stores and the engine binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			sectionHeader(out, "Checks", colorize)
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range checkLines(results, colorize) {
				fmt.Fprintln(out, line)
			}

			fmt.Fprintln(out)
			sectionHeader(out, "Library", colorize)
			probe := preflight.ProbeLibrary(cfg)
			kind := levelOK
			switch {
			case probe.Err != nil:
				kind = levelError
			case probe.Unmatched > 0 || probe.EmptyMarkers > 0:
				kind = levelWarn
			}
			fmt.Fprintln(out, statusLine("Markers", kind, probe.Detail(), colorize))
			version := preflight.ProbeEngineVersion(cfg.EngineBinary())
			if version == "" {
				version = "unknown"
			}
			fmt.Fprintln(out, statusLine("Engine version", levelInfo, version, colorize))
			return nil
		},
	}
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := levelOK
		if !r.Passed {
			kind = levelWarn
			if r.Blocking {
				kind = levelError
			}
		}
		lines = append(lines, statusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
