// Freshpots controls a networked coffee pot.
//
// It finds the pot over mDNS (or talks to --host directly), reads its state,
// and sends brew, stop, delay, warm and schedule commands. It can also keep
// watching the pot in a terminal dashboard or bridge it to browsers over a
// WebSocket.
//
// Usage:
//
//	freshpots [command] [flags]
//
// Running without arguments shows the pot's status.
// See 'freshpots --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/freshpots/freshpots/internal/config"
	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("failure already reported")

// Global flags
var (
	potHost       string
	potPort       int
	serviceType   string
	responseDelay time.Duration
	dialTimeout   time.Duration
	discoveryWait time.Duration
	logLevel      string
)

// registry is loaded before any command runs
var registry *config.Registry

var rootCmd = &cobra.Command{
	Use:   "freshpots",
	Short: "Coffee pot control utility",
	Long: `Control a networked coffee pot from the command line.

The pot is found over mDNS unless --host is given. Every command is a single
request/response exchange on a fresh TCP connection; a pot that does not
answer in time is reported as not connected.

If no command is specified, the pot's status is shown.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&potHost, "host", "", "Pot IP address or hostname (skips discovery)")
	flags.IntVar(&potPort, "port", 80, "Pot TCP port (with --host)")
	flags.StringVar(&serviceType, "service", "", "mDNS service type to browse for")
	flags.DurationVar(&responseDelay, "response-delay", 0, "Wait between sending a request and reading the reply")
	flags.DurationVar(&dialTimeout, "dial-timeout", 0, "TCP connect timeout")
	flags.DurationVar(&discoveryWait, "timeout", 0, "How long to wait for the pot to resolve over mDNS")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent if unset")

	rootCmd.AddCommand(versionCmd)
}

// setup initializes logging and fills unset flags from the preferences file.
func setup(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	registry = reg
	prefs := reg.Preferences

	if serviceType == "" {
		serviceType = prefs.ServiceType
	}
	if responseDelay <= 0 {
		responseDelay = prefs.ResponseDelay()
	}
	if dialTimeout <= 0 {
		dialTimeout = prefs.DialTimeout()
	}
	if discoveryWait <= 0 {
		discoveryWait = prefs.DiscoveryWait()
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("freshpots"))
	},
}
