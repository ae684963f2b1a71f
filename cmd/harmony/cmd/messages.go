package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/loader"
)

var messagesCmd = &cobra.Command{
	Use:   "messages [channel-id]",
	Short: "Show recent messages in a channel",
	Long: `Show recent messages in a channel, oldest first.

With --server instead of a channel ID, the channel you last visited in that
server is shown.

Examples:
  harmony messages 7c9e6679-7425-40de-944b-e07fc1f90ae7
  harmony messages --server 0f8fad5b-d9cb-469f-a165-70867728950e --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMessages,
}

var sendCmd = &cobra.Command{
	Use:   "send <channel-id> <text...>",
	Short: "Post a message to a channel",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

var (
	messagesServer string
	messagesLimit  int
	messagesBefore string
)

func init() {
	rootCmd.AddCommand(messagesCmd, sendCmd)

	messagesCmd.Flags().StringVar(&messagesServer, "server", "", "open the last visited channel of this server")
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 50, "number of messages")
	messagesCmd.Flags().StringVar(&messagesBefore, "before", "", "only messages older than this message ID")
}

func runMessages(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (messagesServer == "") {
		return fmt.Errorf("specify either a channel ID or --server")
	}

	var before *uuid.UUID
	if messagesBefore != "" {
		id, err := parseID("message", messagesBefore)
		if err != nil {
			return err
		}
		before = &id
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		channelID, err := resolveChannel(ctx, a, args)
		if err != nil {
			return err
		}

		messages, err := a.api.Messages(ctx, channelID, messagesLimit, before)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, messages)
		}
		for _, m := range messages {
			printMessage(out, m)
		}
		return nil
	})
}

// resolveChannel returns the channel named in args, or the channel the
// loader picks for --server.
func resolveChannel(ctx context.Context, a *app, args []string) (uuid.UUID, error) {
	if len(args) > 0 {
		return parseID("channel", args[0])
	}

	serverID, err := parseID("server", messagesServer)
	if err != nil {
		return uuid.Nil, err
	}

	page, err := a.loader.ChannelPage(ctx, a.query, loader.ChannelParams{ServerID: serverID})
	if err != nil {
		return uuid.Nil, err
	}
	if page.ChannelID == "" {
		return uuid.Nil, fmt.Errorf("server %q has no channels", page.Server.Name)
	}
	return parseID("channel", page.ChannelID)
}

func runSend(cmd *cobra.Command, args []string) error {
	channelID, err := parseID("channel", args[0])
	if err != nil {
		return err
	}
	content := strings.Join(args[1:], " ")

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		msg, err := a.api.SendMessage(ctx, channelID, content)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), msg)
		}
		printMessage(cmd.OutOrStdout(), msg)
		return nil
	})
}

func printMessage(out io.Writer, m harmony.Message) {
	fmt.Fprintf(out, "%s  %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Username, m.Content)
}
