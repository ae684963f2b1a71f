package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/api"
	"github.com/tsarna/harmony/pkg/harmony/loader"
	"github.com/tsarna/harmony/pkg/harmony/query"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the servers you belong to",
	Args:  cobra.NoArgs,
	RunE:  runServers,
}

var serversCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runServersCreate,
}

var serversDeleteCmd = &cobra.Command{
	Use:   "delete <server-id>",
	Short: "Delete a server you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runServersDelete,
}

var serversMembersCmd = &cobra.Command{
	Use:   "members <server-id>",
	Short: "List the members of a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runServersMembers,
}

var channelsCmd = &cobra.Command{
	Use:   "channels <server-id> [channel-id]",
	Short: "List a server's channels",
	Long: `List a server's channels and mark the one that would be opened.

Without a channel ID this is the channel you last visited in the server,
falling back to the server's main channel and then to its first channel.
The marked channel is remembered as the last one visited.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChannels,
}

var channelsCreateCmd = &cobra.Command{
	Use:   "create <server-id> <name>",
	Short: "Create a text channel",
	Args:  cobra.ExactArgs(2),
	RunE:  runChannelsCreate,
}

var channelsDeleteCmd = &cobra.Command{
	Use:   "delete <channel-id>",
	Short: "Delete a channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannelsDelete,
}

var memberOffset int

func init() {
	rootCmd.AddCommand(serversCmd, channelsCmd)
	serversCmd.AddCommand(serversCreateCmd, serversDeleteCmd, serversMembersCmd)
	channelsCmd.AddCommand(channelsCreateCmd, channelsDeleteCmd)

	serversMembersCmd.Flags().IntVar(&memberOffset, "offset", 0, "pagination offset")
}

func parseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q", kind, s)
	}
	return id, nil
}

func runServers(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		servers, err := query.EnsureData(ctx, a.query, query.Key{"servers"}, a.api.Servers)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, servers)
		}
		for _, s := range servers {
			owner := ""
			if s.IsOwner {
				owner = "owner"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", s.ID, s.Name, owner)
		}
		return nil
	})
}

func runServersCreate(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		server, err := a.api.CreateServer(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), server)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", server.ID, server.Name)
		return nil
	})
}

func runServersDelete(cmd *cobra.Command, args []string) error {
	serverID, err := parseID("server", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}
		if err := a.api.DeleteServer(ctx, serverID); err != nil {
			return err
		}
		a.history.ClearServer(ctx, serverID.String())
		return nil
	})
}

func runServersMembers(cmd *cobra.Command, args []string) error {
	serverID, err := parseID("server", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		page, err := a.api.ServerMembers(ctx, serverID, api.Offset(memberOffset))
		if err != nil {
			return err
		}
		return printProfiles(cmd.OutOrStdout(), page)
	})
}

func runChannels(cmd *cobra.Command, args []string) error {
	params := loader.ChannelParams{}

	serverID, err := parseID("server", args[0])
	if err != nil {
		return err
	}
	params.ServerID = serverID

	if len(args) > 1 {
		channelID, err := parseID("channel", args[1])
		if err != nil {
			return err
		}
		params.ChannelID = channelID.String()
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		page, err := a.loader.ChannelPage(ctx, a.query, params)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, page)
		}
		fmt.Fprintf(out, "# %s\n", page.Server.Name)
		for _, c := range page.Channels {
			mark := " "
			if c.ID.String() == page.ChannelID {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\t%s\t%s\n", mark, c.ID, c.Name, c.ChannelType)
		}
		return nil
	})
}

func runChannelsCreate(cmd *cobra.Command, args []string) error {
	serverID, err := parseID("server", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		channel, err := a.api.CreateChannel(ctx, serverID, args[1])
		if err != nil {
			return err
		}
		a.query.Invalidate(loader.ChannelsKey(serverID)...)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), channel)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", channel.ID, channel.Name)
		return nil
	})
}

func runChannelsDelete(cmd *cobra.Command, args []string) error {
	channelID, err := parseID("channel", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}
		return a.api.DeleteChannel(ctx, channelID)
	})
}

func printProfiles(out io.Writer, page harmony.Page[harmony.FullProfile]) error {
	if jsonOutput {
		return printJSON(out, page)
	}
	for _, p := range page.Data {
		name := p.Username
		if p.DisplayName != nil && *p.DisplayName != "" {
			name = fmt.Sprintf("%s (%s)", *p.DisplayName, p.Username)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, name, p.Status)
	}
	if page.HasMore {
		fmt.Fprintf(out, "... more with --offset %d\n", page.Offset+len(page.Data))
	}
	return nil
}
