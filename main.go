// nmpanel is a terminal network panel for NetworkManager. It mirrors
// devices and stored connections over D-Bus and lets the user connect,
// disconnect and forget networks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"

	"nmpanel/config"
	nmdbus "nmpanel/dbus"
	"nmpanel/models"
	"nmpanel/network"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	logLevel    string
	list        bool
	scan        bool
	writeConfig bool
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("nmpanel", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "path to the YAML config file")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flagSet.BoolVarP(&opts.list, "list", "l", false, "print devices and stored connections and exit")
	flagSet.BoolVar(&opts.scan, "scan", false, "with --list, scan and print nearby networks")
	flagSet.BoolVar(&opts.writeConfig, "write-config", false, "write the effective config to --config and exit")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.scan && !opts.list {
		opts.list = true
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Println("nmpanel", version)
		return nil
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if opts.writeConfig {
		if err := config.Save(opts.configPath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Println("wrote", opts.configPath)
		return nil
	}

	var logOut io.Writer = os.Stderr
	if !opts.list {
		logOut = io.Discard
		if cfg.Log.File != "" {
			f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
	}
	logger := newLogger(cfg.Log, logOut)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := network.Dial()
	if err != nil {
		if opts.list {
			return err
		}
		_, runErr := tea.NewProgram(models.ModelError(err), tea.WithAltScreen()).Run()
		return runErr
	}

	client := nmdbus.New(transport, nmdbus.Options{
		QueryTimeout:    cfg.Bus.QueryTimeout(),
		ActivateTimeout: cfg.Bus.ActivateTimeout(),
		Logger:          logger,
	})
	defer client.Close()

	if opts.list {
		if err := client.Start(ctx); err != nil {
			return err
		}
		return list(ctx, client, opts.scan, os.Stdout)
	}

	program := tea.NewProgram(newPanel(client, cfg, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	h, err := attach(ctx, client, program)
	if err != nil {
		return err
	}
	defer client.Unobserve(h)

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// list prints the cached state as plain tables.
func list(ctx context.Context, client *nmdbus.Client, scan bool, w io.Writer) error {
	g := client.GlobalState()
	wifi := "off"
	if g.WirelessEnabled {
		wifi = "on"
	}
	fmt.Fprintf(w, "NetworkManager: %s, Wi-Fi %s\n\n", g.State, wifi)

	devices := table.New().Headers("DEVICE", "TYPE", "STATE", "STATUS")
	for _, d := range client.ListDevices() {
		devices.Row(d.Interface, d.Kind.String(), d.State.String(), models.DeviceStatus(d))
	}
	fmt.Fprintln(w, devices.Render())

	active, err := client.ActiveConnections(ctx)
	if err != nil {
		slog.Warn("could not read active connections", "error", err)
	}
	conns := table.New().Headers("NAME", "TYPE", "UUID", "ACTIVE")
	for _, c := range client.ListConnections() {
		kind := c.Type
		if c.IsVPN() {
			kind = c.VPNService
		}
		_, on := active[c.Path]
		conns.Row(c.ID, kind, c.UUID, yesNo(on))
	}
	fmt.Fprintln(w, conns.Render())

	if !scan {
		return nil
	}
	d, ok := client.FirstDevice(network.KindWiFi)
	if !ok {
		return errors.New("no Wi-Fi device found")
	}
	if err := client.RequestScan(ctx, d.Path); err != nil {
		// A scan already in progress is rejected; its results are still useful.
		slog.Warn("scan request failed", "error", err)
	} else {
		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	aps := table.New().Headers("SSID", "SECURITY", "SIGNAL", "BSSID")
	for _, ap := range network.StrongestBySSID(client.ListAccessPoints(ctx, d.Path)) {
		aps.Row(ap.SSID, string(ap.Security), fmt.Sprintf("%s %3d%%", models.SignalBars(ap.Strength), ap.Strength), strings.ToUpper(ap.BSSID))
	}
	fmt.Fprintln(w, aps.Render())
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
