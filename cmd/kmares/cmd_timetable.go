package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kmares/internal/reminder"
)

// newTimetableCmd creates the "kmares timetable" command group.
func newTimetableCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timetable",
		Short: "Inspect and edit the weekly timetable",
	}
	cmd.AddCommand(
		newTimetableListCmd(opts),
		newTimetableAddCmd(opts),
		newTimetableRemoveCmd(opts),
	)
	return cmd
}

func newTimetableListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List timetable entries in weekday and session order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := opts.store().Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("timetable list: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No timetable entries.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDAY\tSESSION\tSUBJECT\tNOTE")
			for _, e := range reminder.SortedEntries(entries) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Day, e.Session, e.Subject, e.Note)
			}
			return tw.Flush()
		},
	}
}

func newTimetableAddCmd(opts *rootOptions) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "add <day> <session> <subject>",
		Short: "Add an entry, e.g. add \"Thứ 2\" Sáng \"Giải tích\"",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.store().AddEntry(reminder.Entry{
				Day:     args[0],
				Session: args[1],
				Subject: args[2],
				Note:    note,
			})
			if err != nil {
				return fmt.Errorf("timetable add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s %s\n", e.ID, e.Day, e.Session, e.Subject)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

func newTimetableRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> [id...]",
		Short: "Remove entries by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := opts.store()
			for _, id := range args {
				ok, err := store.RemoveEntry(id)
				if err != nil {
					return fmt.Errorf("timetable remove: %w", err)
				}
				if !ok {
					return fmt.Errorf("timetable remove: id %q not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		},
	}
}
