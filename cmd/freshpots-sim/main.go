// Freshpots-sim is a software coffee pot.
//
// It speaks the pot's TCP protocol, keeps a simulated brew/warm state with
// running timers, and can advertise itself over mDNS so the freshpots CLI
// finds it like real hardware.
//
// Usage:
//
//	freshpots-sim [flags]
//
// See 'freshpots-sim --help' for available options.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/simulator"
	"github.com/freshpots/freshpots/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Simulator flags
var (
	host        string
	port        int
	replyDelay  time.Duration
	advertise   bool
	instance    string
	serviceType string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "freshpots-sim",
	Short: "Simulated coffee pot",
	Long: `A stand-in for the coffee pot firmware.

Each TCP connection carries one request and gets one reply: an
acknowledgement for commands, the current state with timers for status
queries, and 'U' for anything that cannot be parsed.`,
	Example: `  # Listen on the pot's usual port and advertise over mDNS
  freshpots-sim --advertise

  # Unprivileged port with a slow reply, for exercising --response-delay
  freshpots-sim --port 8023 --reply-delay 300ms --log-level debug`,
	Version:      version.Version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runSimulator,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	defaults := simulator.DefaultConfig()
	rootCmd.Flags().StringVar(&host, "host", defaults.Host, "Address to listen on")
	rootCmd.Flags().IntVar(&port, "port", defaults.Port, "TCP port")
	rootCmd.Flags().DurationVar(&replyDelay, "reply-delay", 0, "Wait before answering each request")
	rootCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the pot over mDNS")
	rootCmd.Flags().StringVar(&instance, "instance", defaults.Instance, "mDNS instance name")
	rootCmd.Flags().StringVar(&serviceType, "service", discovery.DefaultServiceType, "mDNS service type")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("freshpots-sim"))
	},
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg := simulator.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.ReplyDelay = replyDelay
	cfg.Advertise = advertise
	cfg.Instance = instance
	cfg.ServiceType = serviceType

	logging.Info("Starting simulated pot",
		zap.String("version", version.Full()),
		zap.Bool("advertise", advertise),
	)

	srv := simulator.New(cfg, nil)
	if err := srv.Start(cmd.Context()); err != nil {
		return fmt.Errorf("simulator error: %w", err)
	}
	return nil
}
