package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kmares/internal/app"
)

// newRemindCmd creates the "kmares remind" subcommand.
func newRemindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run only the reminder scanner",
		Long:  "Scan the timetable and deliver reminders to the log and the configured webhook until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			return a.Remind(ctx)
		},
	}
}
