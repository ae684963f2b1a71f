package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the last visited channel of each server",
	Args:  cobra.NoArgs,
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the channel history as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the channel history with an exported one",
	Long: `Replace the channel history with one written by 'harmony history export'.

The file is validated first; an invalid file leaves the history untouched.
Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryImport,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Show what importing a file would change",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDiff,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear [server-id]",
	Short: "Forget the history of one server, or of all servers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyExportCmd, historyImportCmd, historyDiffCmd, historyClearCmd)
}

func runHistoryShow(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, a.history.All())
		}

		entries := a.history.All()
		for _, serverID := range a.history.ServerIDs() {
			e := entries[serverID]
			fmt.Fprintf(out, "%s\t%s\t%s\n", serverID, e.ChannelID, e.Visited().Local().Format(time.RFC3339))
		}
		return nil
	})
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		data, err := a.history.Export()
		if err != nil {
			return err
		}

		if len(args) == 0 || args[0] == "-" {
			fmt.Fprintln(cmd.OutOrStdout(), data)
			return nil
		}
		return os.WriteFile(args[0], []byte(data+"\n"), 0o600)
	})
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if err := a.history.Import(ctx, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported history for %d servers\n", len(a.history.ServerIDs()))
		return nil
	})
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		diff, err := a.history.Diff(data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), diff)
	})
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		if len(args) == 1 {
			a.history.ClearServer(ctx, args[0])
		} else {
			a.history.Clear(ctx)
		}
		return nil
	})
}
