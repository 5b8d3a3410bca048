package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/daemon"
	"rollcall/internal/ipc"
)

// errNotRecorded reports a mark the daemon answered but did not persist.
var errNotRecorded = errors.New("attendance not recorded")

func newMarkCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Record attendance for the face currently in view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Mark()
				if err != nil {
					return fmt.Errorf("mark: %w", err)
				}
				if jsonOut {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				}
				switch resp.Outcome {
				case daemon.MarkNoCandidate, daemon.MarkNotRunning, daemon.MarkStorageFailed:
					return errNotRecorded
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output result as JSON")
	return cmd
}
