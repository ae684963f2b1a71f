package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/api"
)

var dmsCmd = &cobra.Command{
	Use:   "dms",
	Short: "List your direct message channels",
	Args:  cobra.NoArgs,
	RunE:  runDMs,
}

var dmsOpenCmd = &cobra.Command{
	Use:   "open <username>",
	Short: "Open a direct message channel with a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runDMsOpen,
}

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List friends or pending friend requests",
	Args:  cobra.NoArgs,
	RunE:  runFriends,
}

var friendsAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Send a friend request, or accept one",
	Args:  cobra.ExactArgs(1),
	RunE:  runFriendsAdd,
}

var friendsRejectCmd = &cobra.Command{
	Use:   "reject <user-id>",
	Short: "Reject an incoming friend request",
	Args:  cobra.ExactArgs(1),
	RunE:  runFriendsReject,
}

var friendsRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a friend",
	Args:  cobra.ExactArgs(1),
	RunE:  runFriendsRemove,
}

var usersCmd = &cobra.Command{
	Use:   "users <username>",
	Short: "Search users by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsers,
}

var (
	friendsIncoming bool
	friendsOutgoing bool
	friendsOffset   int
)

func init() {
	rootCmd.AddCommand(dmsCmd, friendsCmd, usersCmd)
	dmsCmd.AddCommand(dmsOpenCmd)
	friendsCmd.AddCommand(friendsAddCmd, friendsRejectCmd, friendsRemoveCmd)

	friendsCmd.Flags().BoolVar(&friendsIncoming, "incoming", false, "list incoming requests")
	friendsCmd.Flags().BoolVar(&friendsOutgoing, "outgoing", false, "list outgoing requests")
	friendsCmd.Flags().IntVar(&friendsOffset, "offset", 0, "pagination offset")
	friendsCmd.MarkFlagsMutuallyExclusive("incoming", "outgoing")
}

func runDMs(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		channels, err := a.api.DMs(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, channels)
		}
		for _, c := range channels {
			fmt.Fprintf(out, "%s\t%s\t%s\n", c.ID, c.Name, c.ChannelType)
		}
		return nil
	})
}

func runDMsOpen(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		profile, err := a.api.UserByUsername(ctx, args[0])
		if err != nil {
			return err
		}
		channel, err := a.api.CreateDM(ctx, profile.UserID)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), channel)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", channel.ID, channel.Name)
		return nil
	})
}

func runFriends(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		list := a.api.Friends
		switch {
		case friendsIncoming:
			list = a.api.IncomingFriendRequests
		case friendsOutgoing:
			list = a.api.OutgoingFriendRequests
		}

		page, err := list(ctx, api.Offset(friendsOffset))
		if err != nil {
			return err
		}
		return printProfiles(cmd.OutOrStdout(), page)
	})
}

func runFriendsAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		friendship, err := a.api.SendFriendRequestByUsername(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), friendship)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], friendshipLabel(friendship.Status))
		return nil
	})
}

func friendshipLabel(status harmony.FriendshipStatus) string {
	switch status.Normalize() {
	case harmony.FriendshipAccepted:
		return "friends"
	case harmony.FriendshipPending:
		return "request sent"
	default:
		return string(status)
	}
}

func runFriendsReject(cmd *cobra.Command, args []string) error {
	userID, err := parseID("user", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}
		return a.api.RejectFriendRequest(ctx, userID)
	})
}

func runFriendsRemove(cmd *cobra.Command, args []string) error {
	userID, err := parseID("user", args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}
		return a.api.RemoveFriend(ctx, userID)
	})
}

func runUsers(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		page, err := a.api.SearchUsers(ctx, args[0])
		if err != nil {
			return err
		}
		return printProfiles(cmd.OutOrStdout(), page)
	})
}
