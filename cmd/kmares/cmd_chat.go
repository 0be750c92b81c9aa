package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"kmares/internal/aiclient"
	"kmares/pkg/sse"
	"kmares/pkg/x/llm"
)

// newChatCmd creates the "kmares chat" subcommand.
func newChatCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "chat <message...>",
		Short: "Stream one assistant reply to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client, err := aiclient.New(aiclient.Options{
				URL:   opts.cfg.AssistantURL(),
				Token: token,
				Proxy: opts.cfg.HTTPProxy,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var streamErr error
			client.StreamChat(ctx, []llm.Message{{Role: "user", Content: strings.Join(args, " ")}}, sse.Handlers{
				OnDelta: func(text string) { fmt.Fprint(out, text) },
				OnDone:  func() { fmt.Fprintln(out) },
				OnError: func(err error) { streamErr = err },
			})
			if streamErr != nil {
				return fmt.Errorf("chat: %w", streamErr)
			}
			return ctx.Err()
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token sent to the assistant endpoint")
	return cmd
}
