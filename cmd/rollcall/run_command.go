package main

import (
	"github.com/spf13/cobra"

	"rollcall/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the camera loop and record attendance",
		Long: `Start the camera loop and record attendance.

Keys in the preview window: Q quits, L marks the face in view manually,
V logs the current lock or validation status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ReplayPath, "replay", "", "Replay a recorded face trace (JSON lines) instead of the camera")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "Repeat the replay trace until interrupted")
	cmd.Flags().BoolVar(&opts.NoDisplay, "no-display", false, "Run without the preview window")
	cmd.Flags().BoolVar(&opts.NoAPI, "no-api", false, "Do not start the HTTP API")
	return cmd
}
