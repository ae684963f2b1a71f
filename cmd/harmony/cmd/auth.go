package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login <email-or-username>",
	Short: "Sign in and remember the credentials",
	Long: `Sign in with an email address or a username.

The password is taken from --password, or read from the first line of stdin.

Examples:
  harmony login alice@example.com
  echo "$PASSWORD" | harmony login alice`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credentials",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var password string

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin if omitted)")
	}
}

func readPassword(in io.Reader) (string, error) {
	if password != "" {
		return password, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := harmony.LoginRequest{Password: pw}
	if strings.Contains(args[0], "@") {
		req.Email = args[0]
	} else {
		req.Username = args[0]
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.auth.Login(ctx, req); err != nil {
			return err
		}
		return printUser(cmd, a)
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := harmony.RegisterRequest{
		Username: args[0],
		Email:    args[1],
		Password: pw,
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.auth.Register(ctx, req); err != nil {
			return err
		}
		return printUser(cmd, a)
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.auth.Logout(ctx); err != nil {
			a.logger.Warn("Logout incomplete", zap.Error(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}
		return printUser(cmd, a)
	})
}

func printUser(cmd *cobra.Command, a *app) error {
	user, err := a.auth.User()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, user)
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", user.ID, user.Username, user.Email)
	return nil
}
