package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"minuet/internal/api"
)

func newEntriesCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.listEntries(strings.TrimSpace(userID), strings.TrimSpace(sessionID))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}

			if len(resp.Entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for _, entry := range resp.Entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.Status,
					flagGlyphs(entry.EntryStatus),
					entry.UserID,
					entry.SessionID,
					entry.Filename,
					entry.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "A/T/S/R/M", "User", "Session", "File", "Created"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "Filter by session id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func flagGlyphs(status api.EntryStatus) string {
	glyph := func(ready bool) string {
		if ready {
			return "+"
		}
		return "-"
	}
	return strings.Join([]string{
		glyph(status.AffectReady),
		glyph(status.TranscriptReady),
		glyph(status.SummaryReady),
		glyph(status.ResponseReady),
		glyph(status.MusicReady),
	}, "")
}
