package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vincentbai/visionui-beacon/internal/beacon"
	"github.com/vincentbai/visionui-beacon/internal/database"
	"github.com/vincentbai/visionui-beacon/internal/models"
	"github.com/vincentbai/visionui-beacon/internal/session"
)

var trackFlags struct {
	tab      string
	path     string
	referrer string
}

func trackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track <event> [detail]",
		Short: "Send one event to the collector",
		Long: `Send one event to the collector the way a page would.

Without --tab the event belongs to a fresh session. With --tab the session id
is read from (or stored into) that tab's storage in the bridge database.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail := ""
			if len(args) == 2 {
				detail = args[1]
			}
			return runTrack(cmd, models.Tag(args[0]), detail)
		},
	}
	cmd.Flags().StringVar(&trackFlags.tab, "tab", "", "tab id whose session to reuse")
	cmd.Flags().StringVar(&trackFlags.path, "page", "/", "page path reported with the event")
	cmd.Flags().StringVar(&trackFlags.referrer, "referrer", "", "document referrer")
	return cmd
}

func runTrack(cmd *cobra.Command, event models.Tag, detail string) error {
	var store session.Store = session.NewMemoryStore()
	if trackFlags.tab != "" {
		path, err := tabDatabasePath()
		if err != nil {
			return err
		}
		db, err := database.NewDatabase(path)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db.Tab(trackFlags.tab)
	}

	dispatcher := newDispatcher()
	client := beacon.New(
		models.Page{Path: trackFlags.path, Referrer: trackFlags.referrer},
		session.NewSessions(store, nil, log),
		dispatcher,
		beacon.WithLogger(log),
	)
	client.Track(event, detail)
	// the process is the page: wait for the attempt before exiting
	dispatcher.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s via %s\n", event, client.SessionID(), dispatcher.Channel())
	return nil
}
