package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func parseEntryID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", arg)
	}
	return id, nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <entry-id>",
		Short: "Show readiness for one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.entryStatus(id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, status)
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "upload <audio-file>",
		Short: "Upload a recording and start the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.upload(args[0], userID, sessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d accepted (%s)\n", resp.ID, resp.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to record with the entry")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id to record with the entry")
	return cmd
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <entry-id>",
		Short: "Regenerate the summary for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrigger(ctx, cmd, args[0], "summarize")
		},
	}
}

func newRespondCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "respond <entry-id>",
		Short: "Regenerate the empathetic response for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrigger(ctx, cmd, args[0], "respond")
		},
	}
}

func runRetrigger(ctx *commandContext, cmd *cobra.Command, arg, op string) error {
	id, err := parseEntryID(arg)
	if err != nil {
		return err
	}
	client, err := ctx.client()
	if err != nil {
		return err
	}
	if err := client.retrigger(id, op); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Entry %d: %s scheduled\n", id, op)
	return nil
}
