package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var replay bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, models, gallery and cameras",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cfg, !replay)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					if r.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replay, "replay", false, "Skip camera and model checks")
	return cmd
}
