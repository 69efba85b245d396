package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/chatbridge/internal/journal"
	"github.com/user/chatbridge/internal/types"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsSessionsCmd, eventsTailCmd)
	eventsTailCmd.Flags().IntP("limit", "n", 20, "number of events")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the event journal",
}

var eventsSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List journaled sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := journal.NewFileStore(loadConfig().DataDir)
		ids, err := store.Sessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tEVENTS")
		for _, id := range ids {
			count, err := store.Count(cmd.Context(), id)
			if err != nil {
				count = 0
			}
			fmt.Fprintf(w, "%s\t%d\n", id, count)
		}
		return w.Flush()
	},
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail <session>",
	Short: "Show the latest events of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		limit, _ := cmd.Flags().GetInt("limit")
		id := types.SessionID(filepath.Base(args[0]))

		var store types.EventStore = journal.NewFileStore(cfg.DataDir)
		if cfg.Journal.PostgresDSN != "" {
			pg, err := journal.OpenPostgres(cmd.Context(), cfg.Journal.PostgresDSN)
			if err != nil {
				return err
			}
			defer pg.Close()
			store = pg
		}

		list, err := store.Tail(cmd.Context(), id, limit)
		if err != nil {
			return fmt.Errorf("tail events: %w", err)
		}
		for _, e := range list {
			fmt.Fprintf(os.Stdout, "%5d  %s  %-24s %s\n", e.Seq, e.At.Format("15:04:05.000"), e.Type, e.Payload)
		}
		return nil
	},
}
