package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hive/pkg/projection"
)

// newSendCmd creates the "hive send" subcommand.
func newSendCmd() *cobra.Command {
	var from, subject string
	cmd := &cobra.Command{
		Use:   "send <to>[,<to>...] <body>",
		Short: "Send a message to one or more agents",
		Long:  "Send a message from one registered agent to others. Recipients are\na comma-separated list of agent names; unknown names fail with\nclose-match suggestions.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			defer app.Close()

			to := strings.Split(args[0], ",")
			body := strings.Join(args[1:], " ")

			msg, err := app.coordinator.Send(cmd.Context(), from, to, subject, body)
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s\n", msg.ID, strings.Join(msg.To, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sending agent name (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "optional subject line")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// newInboxCmd creates the "hive inbox" subcommand.
func newInboxCmd() *cobra.Command {
	var unread bool
	var limit int
	cmd := &cobra.Command{
		Use:   "inbox <agent>",
		Short: "Show an agent's messages, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("inbox: %w", err)
			}
			defer app.Close()

			msgs, err := app.coordinator.Inbox(cmd.Context(), args[0], projection.InboxOpts{
				UnreadOnly: unread,
				Limit:      limit,
			})
			if err != nil {
				return fmt.Errorf("inbox: %w", err)
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages.")
				return nil
			}

			for _, m := range msgs {
				marker := paint(colorYellow, "unread")
				if m.ReadByAgent(args[0]) {
					marker = paint(colorDim, "read")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] from %s  %s\n", m.ID, marker, m.From, m.SentAt.Format("2006-01-02 15:04"))
				if m.Subject != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  subject: %s\n", m.Subject)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m.Body)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only messages not yet acked by the agent")
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to show (0 = all)")
	return cmd
}

// newAckCmd creates the "hive ack" subcommand.
func newAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <agent> <message-id>",
		Short: "Mark a message read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("ack: %w", err)
			}
			defer app.Close()

			if err := app.coordinator.Ack(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("ack: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Acked %s\n", args[1])
			return nil
		},
	}
}
