package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		typ   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show the journal of lifecycle events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs := a.stack.History
			if hs == nil {
				return errors.New("history journal is not available (disabled in config or project not initialized)")
			}
			q := history.Query{Type: events.Type(typ), Limit: limit}
			if len(args) == 1 {
				q.FeatureID = args[0]
			}
			entries, err := hs.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, mutedStyle.Render("No events recorded."))
				return nil
			}
			for _, e := range entries {
				move := ""
				if e.From != "" || e.To != "" {
					move = fmt.Sprintf("%s → %s", e.From, e.To)
				}
				fmt.Fprintf(a.out, "%s  %-14s %-18s %s\n",
					mutedStyle.Render(e.At.Local().Format(time.DateTime)), e.FeatureID, e.Type, move)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Filter by event type (e.g. phase.transition)")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum number of events")
	return cmd
}
