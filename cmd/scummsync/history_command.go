package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scummsync/internal/history"
)

type sessionJSON struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Game        string `json:"game,omitempty"`
	GameID      string `json:"game_id,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	EngineExit  int    `json:"engine_exit"`
	Reconciled  bool   `json:"reconciled"`
	Removed     int    `json:"sections_removed"`
	Renamed     int    `json:"sections_renamed"`
	MarkerOps   int    `json:"marker_ops"`
	Diagnostics int    `json:"diagnostics"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	DurationMS  int64  `json:"duration_ms"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launch and sync sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.openHistory()
			if store == nil {
				return errors.New("session history is unavailable; run with --debug for details")
			}
			defer store.Close()

			sessions, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				rows := make([]sessionJSON, 0, len(sessions))
				for _, s := range sessions {
					rows = append(rows, toSessionJSON(s))
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderSessions(sessions))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func renderSessions(sessions []history.Session) string {
	columns := []column{
		{title: "Started"}, {title: "Kind"}, {title: "Game"}, {title: "Resolution"},
		{title: "Exit", numeric: true}, {title: "Synced"}, {title: "Changes", numeric: true}, {title: "Error"},
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		game := s.GameID
		if game == "" {
			game = s.BaseName
		}
		exit := ""
		if s.Kind == history.KindLaunch && s.Resolution != "" && s.Resolution != "failed" {
			exit = strconv.Itoa(s.EngineExit)
		}
		rows = append(rows, []string{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Kind,
			game,
			s.Resolution,
			exit,
			yesNo(s.Reconciled),
			strconv.Itoa(s.SectionsRemoved + s.SectionsRenamed + s.MarkerOps),
			s.ErrorKind,
		})
	}
	return renderTable(columns, rows)
}

func toSessionJSON(s history.Session) sessionJSON {
	return sessionJSON{
		ID:          s.ID,
		Kind:        s.Kind,
		Game:        s.BaseName,
		GameID:      s.GameID,
		Resolution:  s.Resolution,
		EngineExit:  s.EngineExit,
		Reconciled:  s.Reconciled,
		Removed:     s.SectionsRemoved,
		Renamed:     s.SectionsRenamed,
		MarkerOps:   s.MarkerOps,
		Diagnostics: s.Diagnostics,
		Error:       s.ErrorMessage,
		StartedAt:   s.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:  s.Duration().Milliseconds(),
	}
}
