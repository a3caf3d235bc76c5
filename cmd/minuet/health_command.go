package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report daemon and collaborator health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.health()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Daemon: %s\n", paint(resp.Status, resp.Status == "ok", colorize))
			fmt.Fprintf(out, "Store:  %s\n", paint(boolWord(resp.Store), resp.Store, colorize))
			for _, st := range resp.Stages {
				line := fmt.Sprintf("Stage %-11s %s", st.Name+":", paint(boolWord(st.Ready), st.Ready, colorize))
				if st.Detail != "" {
					line += " (" + st.Detail + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func boolWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}

func paint(text string, ok, colorize bool) string {
	if !colorize {
		return text
	}
	color := ansiGreen
	if !ok {
		color = ansiRed
	}
	return color + text + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
