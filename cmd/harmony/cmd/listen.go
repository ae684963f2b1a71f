package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony/history"
	"github.com/tsarna/harmony/pkg/harmony/loader"
	"github.com/tsarna/harmony/pkg/harmony/realtime"
	"github.com/tsarna/harmony/pkg/harmony/transform"
	"github.com/tsarna/harmony/pkg/harmony/wire"
	"go.uber.org/zap"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [channel-ids...]",
	Short: "Print realtime events from channels",
	Long: `Connect to the realtime service and print events from the given channels
until interrupted. The connection is re-established automatically.

Each --server adds the channel you last visited in that server.

Events are printed as JSON, one per line. --filter applies a jq query to each
event: the event object is the input and $type holds the event type, along
with any variables from the listen block of the config file. Events for
which the query produces no output are skipped, and string results are
printed as plain text.

Examples:
  harmony listen 7c9e6679-7425-40de-944b-e07fc1f90ae7
  harmony listen --server 0f8fad5b-d9cb-469f-a165-70867728950e
  harmony listen <channel-id> --filter 'select($type == "message_created") | "\(.username): \(.content)"'`,
	RunE: runListen,
}

var (
	listenServers []string
	listenFilter  string
)

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringSliceVar(&listenServers, "server", nil, "listen to the last visited channel of this server (repeatable)")
	listenCmd.Flags().StringVar(&listenFilter, "filter", "", "jq query applied to each event")
}

func runListen(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(listenServers) == 0 {
		return fmt.Errorf("specify at least one channel ID or --server")
	}

	channels := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := parseID("channel", arg)
		if err != nil {
			return err
		}
		channels = append(channels, id)
	}

	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		if err := a.requireAuth(); err != nil {
			return err
		}

		for _, s := range listenServers {
			id, err := serverChannel(ctx, a, s)
			if err != nil {
				return err
			}
			channels = append(channels, id)
		}

		query := listenFilter
		if query == "" {
			query = a.cfg.ListenFilter
		}
		filter := transform.Filter(transform.Identity)
		if query != "" {
			f, err := transform.JqFilter(query, a.cfg.ListenVars, a.logger)
			if err != nil {
				return err
			}
			filter = f
		}

		return listen(ctx, a, channels, filter, cmd.OutOrStdout())
	})
}

func serverChannel(ctx context.Context, a *app, s string) (uuid.UUID, error) {
	serverID, err := parseID("server", s)
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

func listen(ctx context.Context, a *app, channels []uuid.UUID, filter transform.Filter, out io.Writer) error {
	logger := a.logger

	janitor, err := history.NewJanitor(a.history, a.cfg.HistoryPruneSchedule, logger)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	printer := &eventPrinter{out: out, filter: filter, logger: logger}
	handle := a.session.OnMessage(printer.print)
	defer a.session.Unregister(handle)

	watch := a.session.Watch(func(state realtime.State) {
		logger.Info("Realtime connection", zap.Stringer("state", state))
	})
	defer a.session.Unwatch(watch)

	for _, id := range channels {
		a.session.Subscribe(id)
	}

	logger.Info("Listening for events... (Press Ctrl+C to exit)",
		zap.Stringers("channels", channels),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Debug("Signal received, exiting", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}
	return nil
}

// eventPrinter writes filtered realtime events, one per line.
type eventPrinter struct {
	out    io.Writer
	filter transform.Filter
	logger *zap.Logger
}

func (p *eventPrinter) print(msg wire.Message) {
	v, ok := p.filter(msg)
	if !ok {
		return
	}

	if s, isString := v.(string); isString {
		fmt.Fprintln(p.out, s)
		return
	}

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(p.out, "%s\t<error marshaling JSON: %v>\n", msg.MessageType(), err)
		p.logger.Warn("Failed to marshal event to JSON",
			zap.String("type", string(msg.MessageType())),
			zap.Error(err))
		return
	}
	fmt.Fprintln(p.out, string(jsonBytes))
}
