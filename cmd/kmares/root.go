package main

import (
	"github.com/spf13/cobra"

	"kmares/internal/config"
	"kmares/internal/reminder"
	"kmares/pkg/runtime"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
}

func (o *rootOptions) load() error {
	if err := runtime.LoadDotEnv("[kmares]"); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) store() *reminder.FileStore {
	return reminder.NewFileStore(o.cfg.Reminder.DataDir)
}

// newRootCmd creates the root kmares command with all subcommands attached.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "kmares",
		Short:         "KMA-RES study assistant backend",
		Long:          "kmares serves the AI assistant proxy and sends timetable reminders.\nConfiguration comes from .env files, an optional YAML file and KMARES_* variables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newRemindCmd(opts),
		newChatCmd(opts),
		newTimetableCmd(opts),
		newSettingsCmd(opts),
	)
	return cmd
}
