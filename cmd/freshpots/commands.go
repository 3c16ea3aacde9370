package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freshpots/freshpots/internal/bridge"
	"github.com/freshpots/freshpots/internal/config"
	"github.com/freshpots/freshpots/internal/dashboard"
	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/poller"
	"github.com/freshpots/freshpots/internal/protocol"
	"github.com/freshpots/freshpots/internal/timer"
	"github.com/freshpots/freshpots/internal/ui"
)

// Command flags
var (
	outputJSON  bool
	atClock     string
	listenAddr  string
	forceConfig bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(brewCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(delayCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// scanCmd lists pots on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for pots on the network",
	Long: `Scan for pots using mDNS/DNS-SD discovery.

Every pot that answers within the timeout is listed with its address and TXT
metadata, and remembered in the config file as its last known address.`,
	Example: `  # Scan for 5 seconds (default)
  freshpots scan

  # Longer scan for slow networks
  freshpots scan --timeout 15s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	if !outputJSON {
		printer.PrintHeader("Pot scan", cmd.CommandPath(),
			ui.Detail{Key: "Service", Value: serviceType},
			ui.Detail{Key: "Timeout", Value: discoveryWait.String()},
		)
	}

	endpoints, err := discovery.ScanForPots(cmd.Context(), serviceType, discoveryWait)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(endpoints) > 0 {
		remember(endpoints...)
	}

	if outputJSON {
		return printJSON(cmd, endpoints)
	}

	if len(endpoints) == 0 {
		result := ui.NewWarningResult("No pots found",
			ui.Detail{Key: "Service", Value: serviceType},
		).SetWidth(printer.Width())
		result.Troubleshooting = ui.NotConnectedTips
		printer.Println(result.Render())
		return nil
	}

	result := ui.NewSuccessResult(fmt.Sprintf("Found %d pot(s)", len(endpoints))).SetWidth(printer.Width())
	for _, ep := range endpoints {
		value := ep.Address()
		if model := ep.GetMetadata("model"); model != "" {
			value += " • " + model
		}
		result.AddDetail(registry.DisplayName(ep.Instance), value)
	}
	printer.Println(result.Render())
	return nil
}

// statusCmd reads the pot's state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the pot is doing",
	Example: `  # Find the pot over mDNS
  freshpots status

  # Skip discovery
  freshpots status --host 192.168.1.40

  # JSON for scripting
  freshpots status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return sendRequest(cmd, "Pot status", protocol.QueryState())
}

var brewCmd = &cobra.Command{
	Use:   "brew",
	Short: "Start brewing now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRequest(cmd, "Brew", protocol.Brew())
	},
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Aliases: []string{"off"},
	Short:   "Turn the pot off",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRequest(cmd, "Stop", protocol.Stop())
	},
}

var delayCmd = &cobra.Command{
	Use:   "delay [<timer> | --at HH:MM]",
	Short: "Brew after a delay",
	Long: `Start brewing once the timer runs out.

The timer is a duration (90s, 15m, 1h30m), a number of minutes (45) or, with
--at, a time of day. Timers are limited to 65535 seconds (about 18 hours).`,
	Example: `  # Brew in 20 minutes
  freshpots delay 20m

  # Brew at 6:45
  freshpots delay --at 06:45`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := timerArg(args, atClock)
		if err != nil {
			return err
		}
		return sendRequest(cmd, "Delay", protocol.Delay(secs))
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm [<timer> | --at HH:MM]",
	Short: "Keep the pot warm for a while",
	Long: `Keep the pot warm until the timer runs out, then switch off.

The timer is a duration (90s, 15m, 1h30m), a number of minutes (45) or, with
--at, a time of day.`,
	Example: `  # Keep warm for half an hour
  freshpots warm 30m

  # Keep warm until 9:00
  freshpots warm --at 09:00`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := timerArg(args, atClock)
		if err != nil {
			return err
		}
		return sendRequest(cmd, "Warm", protocol.Warm(secs))
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <delay> <warm>",
	Short: "Brew after a delay, then keep warm",
	Long: `Start brewing once the first timer runs out, then keep the pot warm for
the second. Either timer may be a duration, minutes or a time of day.`,
	Example: `  # Brew at 6:45 and keep warm for an hour
  freshpots schedule 06:45 1h`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		delay, err := timer.Parse(args[0], now)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		warm, err := timer.Parse(args[1], now)
		if err != nil {
			return fmt.Errorf("warm: %w", err)
		}
		return sendRequest(cmd, "Schedule", protocol.Schedule(delay, warm))
	},
}

func init() {
	for _, c := range []*cobra.Command{delayCmd, warmCmd} {
		c.Flags().StringVar(&atClock, "at", "", "Time of day (HH:MM, 24-hour) instead of a duration")
	}
}

// timerArg reads the single timer of delay/warm from args or --at.
func timerArg(args []string, at string) (uint16, error) {
	switch {
	case at != "" && len(args) > 0:
		return 0, fmt.Errorf("give either a timer or --at, not both")
	case at != "":
		hour, minute, err := timer.ParseClock(at)
		if err != nil {
			return 0, err
		}
		return timer.ToWire(timer.SecondsUntil(time.Now(), hour, minute))
	case len(args) == 1:
		return timer.Parse(args[0], time.Now())
	}
	return 0, fmt.Errorf("a timer or --at is required")
}

// sendRequest runs one transaction and prints what the pot is now doing.
func sendRequest(cmd *cobra.Command, title string, req protocol.Request) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	ep, err := findPot(cmd.Context())
	if err != nil {
		if outputJSON {
			return err
		}
		printer.PrintError(title, err, ui.NotConnectedTips...)
		return errReported
	}

	resp := newClient(discovery.NewStatic(ep.IP, ep.Port)).Do(req)
	snap := poller.SnapshotFromResponse(req, resp, time.Now())

	if outputJSON {
		if err := printJSON(cmd, bridge.NewSnapshotMessage(snap)); err != nil {
			return err
		}
	} else {
		name := registry.DisplayName(ep.Instance)
		if name != ep.IP {
			name += " (" + ep.Address() + ")"
		} else {
			name = ep.Address()
		}
		printer.PrintSnapshot(title, snap, name)
	}

	if !snap.Connected() {
		return errReported
	}
	return nil
}

// watchCmd opens the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch and control the pot in a live dashboard",
	Long: `Open a full-screen dashboard that follows the pot as it is polled.

Keys: b brew, t stop, d delay, w warm, c schedule, r refresh, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, source, stopMonitor, err := startMonitor(ctx)
		if err != nil {
			return err
		}
		defer stopMonitor()

		snaps, unsubscribe := p.Subscribe()
		defer unsubscribe()

		return dashboard.Run(ctx, dashboard.New(p, snaps, endpointName(source)))
	},
}

// serveCmd runs the WebSocket bridge
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bridge the pot to browsers over a WebSocket",
	Long: `Poll the pot and serve its state on a WebSocket at /ws.

Each client receives every snapshot as JSON and may send commands such as
{"command": "delay", "seconds1": 900}. GET /healthz reports the current
endpoint and the last snapshot.`,
	Example: `  # Serve on the default address from the config file
  freshpots serve

  # Serve on all interfaces
  freshpots serve --listen :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := listenAddr
		if addr == "" {
			addr = registry.Preferences.Listen
		}

		p, source, stopMonitor, err := startMonitor(ctx)
		if err != nil {
			return err
		}
		defer stopMonitor()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving pot on ws://%s/ws (Ctrl+C to stop)\n", addr)
		return bridge.New(p, source).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to serve on (default from config, 127.0.0.1:8080)")
}

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the freshpots config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(forceConfig)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON {
			return printJSON(cmd, registry)
		}
		data, err := yaml.Marshal(registry)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <instance> <name>",
	Short: "Give a discovered pot a friendlier name",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry.SetPotNickname(args[0], strings.Join(args[1:], " "))
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q\n", args[0], registry.DisplayName(args[0]))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configNicknameCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
