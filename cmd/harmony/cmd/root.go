package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	verbose    bool
	debug      bool
	jsonOutput bool

	configFile string
	overrides  flagSettings
)

// flagSettings are the command line overrides of config values.
type flagSettings struct {
	apiURL    string
	wsURL     string
	statePath string
	logLevel  string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harmony",
	Short: "Harmony chat client",
	Long: `Harmony is a command line client for the Harmony chat service.

It signs in over the REST API, browses servers, channels and direct messages,
sends messages and tails channels live over the realtime WebSocket.

Settings come from an optional HCL file (see --config), HARMONY_* environment
variables and the flags below, in increasing order of precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&debug, "debug", "d", false, "debug output")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")

	flags.StringVarP(&configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/harmony/config.hcl)")
	flags.StringVar(&overrides.apiURL, "api-url", "", "REST API base URL")
	flags.StringVar(&overrides.wsURL, "ws-url", "", "realtime base URL (derived from --api-url by default)")
	flags.StringVar(&overrides.statePath, "state", "", "path of the local state database")
	flags.StringVarP(&overrides.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetDebug returns the debug flag value
func GetDebug() bool {
	return debug
}
