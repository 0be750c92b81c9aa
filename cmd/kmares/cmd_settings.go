package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSettingsCmd creates the "kmares settings" command group.
func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change reminder settings",
	}
	cmd.AddCommand(newSettingsShowCmd(opts), newSettingsSetCmd(opts))
	return cmd
}

func newSettingsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current reminder settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.store().Settings(cmd.Context())
			if err != nil {
				return fmt.Errorf("settings show: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled=%t minutes_before=%d\n", st.Enabled, st.MinutesBefore)
			return nil
		},
	}
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	var (
		enabled bool
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update reminder settings",
		Long:  "Update reminder settings. Only the flags given are changed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := opts.store()
			st, err := store.Settings(cmd.Context())
			if err != nil {
				return fmt.Errorf("settings set: %w", err)
			}
			if cmd.Flags().Changed("enabled") {
				st.Enabled = enabled
			}
			if cmd.Flags().Changed("minutes") {
				st.MinutesBefore = minutes
			}
			if err := store.SaveSettings(st); err != nil {
				return fmt.Errorf("settings set: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled=%t minutes_before=%d\n", st.Enabled, st.MinutesBefore)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", false, "turn reminders on or off")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "minutes before a session to remind (5, 10, 15, 30 or 60)")
	return cmd
}
