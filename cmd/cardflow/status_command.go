package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cardflow/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client(false)
			if err != nil {
				return err
			}
			var status api.DaemonStatus
			if err := client.get("/api/status", &status); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Cardflow Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(out, renderStatusLine("Boards", statusInfo, fmt.Sprintf("%d", status.BoardCount), colorize))
			providersKind := statusWarn
			if len(status.Providers) > 0 {
				providersKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Providers", providersKind, strings.Join(status.Providers, ", "), colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
