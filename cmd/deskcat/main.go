// Package main provides the CLI entrypoint for deskcat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskcat/internal/config"
	"deskcat/internal/device"
	"deskcat/internal/host"
	"deskcat/internal/keysource"
	"deskcat/internal/link"
	"deskcat/internal/model"
	"deskcat/internal/protocol"
	"deskcat/internal/render"
	"deskcat/internal/store"
	"deskcat/internal/telemetry"
	"deskcat/internal/transport"
)

// autoPort asks for USB-serial discovery instead of a fixed endpoint.
const autoPort = "AUTO"

var (
	rootPort      string
	rootBaud      int
	rootReconnect bool
	rootNoHistory bool
	rootDebug     bool

	devicePort     string
	deviceStdio    bool
	deviceSettings string

	sendPort string
	sendBaud int

	historyLast int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "deskcat",
		Short:         "Desk companion: typing cadence drives an animated cat",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runHostCmd,
	}

	rootCmd.Flags().StringVar(&rootPort, "port", autoPort, "serial port, or AUTO to discover")
	rootCmd.Flags().IntVar(&rootBaud, "baud", transport.DefaultBaudRate, "serial line rate")
	rootCmd.Flags().BoolVar(&rootReconnect, "reconnect", true, "reconnect automatically after link loss")
	rootCmd.Flags().BoolVar(&rootNoHistory, "no-history", false, "skip the session history database")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "verbose logging")

	rootCmd.AddCommand(newDeviceCmd())
	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func runHostCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "port", &rootPort, fileCfg.Connection.Port)
	applyIntConfig(cmd, "baud", &rootBaud, fileCfg.Connection.BaudRate)
	applyBoolConfig(cmd, "reconnect", &rootReconnect, fileCfg.Connection.AutoReconnect)

	logger, err := newLogger(rootDebug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() {
		// Best-effort flush.
		_ = logger.Sync()
	}()

	endpoint := rootPort
	if endpoint == autoPort {
		endpoint, err = transport.DiscoverPort()
		if err != nil {
			return fmt.Errorf("failed to discover device port: %w", err)
		}
		logger.Info("discovered device", zap.String("port", endpoint))
	}

	maxReconnects := 0 // supervisor default
	if !rootReconnect {
		maxReconnects = -1
	}
	sup := link.NewSupervisor(link.Config{
		Endpoint:      endpoint,
		Dialer:        transport.SerialDialer{BaudRate: rootBaud},
		MaxReconnects: maxReconnects,
	}, logger)
	defer func() {
		_ = sup.Close()
	}()

	var sessions host.SessionStore
	if !rootNoHistory {
		db, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()
		sessions = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := keysource.New(logger)
	monitor := host.NewMonitor(src.Keys(), sup, telemetry.SystemSampler{}, sessions, logger)
	if v := fileCfg.Behavior.IdleTimeoutMs; v != nil {
		monitor.SetIdleTimeout(time.Duration(*v) * time.Millisecond)
	}

	if !src.CanCapture() {
		go forwardEventsToLog(ctx, sup, fileCfg, logger)
		go func() {
			if err := sup.Connect(ctx); err != nil {
				logger.Warn("initial connect failed", zap.Error(err))
			}
		}()
		go func() {
			if err := src.RunFallback(); err != nil {
				logger.Error("fallback input failed", zap.Error(err))
			}
			stop()
		}()
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	program := src.NewProgram()
	monitor.Observer = func(sample model.CadenceSample) {
		program.Send(keysource.WPMMsg{WPM: sample.WPM})
	}
	go forwardEventsToUI(ctx, sup, fileCfg, program, logger)
	go func() {
		if err := sup.Connect(ctx); err != nil {
			logger.Warn("initial connect failed", zap.Error(err))
		}
	}()
	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("monitor stopped", zap.Error(err))
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run UI: %w", err)
	}
	return nil
}

// forwardEventsToUI relays supervisor events to the capture UI and
// pushes the configured display preferences after each connect.
func forwardEventsToUI(ctx context.Context, sup *link.Supervisor, cfg config.FileConfig, program *tea.Program, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sup.Events():
			switch ev.Kind {
			case link.EventConnected:
				pushPreferences(sup, cfg, logger)
			case link.EventDisconnected:
				logger.Warn("link lost", zap.Error(ev.Err))
			case link.EventGaveUp:
				logger.Warn("reconnect attempts exhausted")
			}
			program.Send(keysource.LinkStateMsg{State: sup.State()})
		}
	}
}

// forwardEventsToLog is the headless variant for fallback input mode.
func forwardEventsToLog(ctx context.Context, sup *link.Supervisor, cfg config.FileConfig, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sup.Events():
			switch ev.Kind {
			case link.EventConnected:
				pushPreferences(sup, cfg, logger)
			case link.EventDisconnected:
				logger.Warn("link lost", zap.Error(ev.Err))
			case link.EventGaveUp:
				logger.Warn("reconnect attempts exhausted")
			case link.EventLine:
				logger.Debug("device", zap.String("line", ev.Line))
			}
		}
	}
}

// pushPreferences sends the TOML display and behavior settings to the
// freshly connected device.
func pushPreferences(sup *link.Supervisor, cfg config.FileConfig, logger *zap.Logger) {
	var cmds []protocol.Command
	d := cfg.Display
	if d.ShowCPU != nil {
		cmds = append(cmds, protocol.Display{Field: protocol.FieldCPU, On: *d.ShowCPU})
	}
	if d.ShowRAM != nil {
		cmds = append(cmds, protocol.Display{Field: protocol.FieldRAM, On: *d.ShowRAM})
	}
	if d.ShowWPM != nil {
		cmds = append(cmds, protocol.Display{Field: protocol.FieldWPM, On: *d.ShowWPM})
	}
	if d.ShowTime != nil {
		cmds = append(cmds, protocol.Display{Field: protocol.FieldTime, On: *d.ShowTime})
	}
	if d.TimeFormat24h != nil {
		cmds = append(cmds, protocol.TimeFormat{TwentyFour: *d.TimeFormat24h})
	}
	if m := cfg.Behavior.SleepTimeoutMinutes; m != nil {
		cmds = append(cmds, protocol.SleepTimeout{Minutes: *m})
	}
	if s := cfg.Behavior.Sensitivity; s != nil {
		cmds = append(cmds, protocol.Sensitivity{Factor: *s})
	}
	if len(cmds) == 0 {
		return
	}
	cmds = append(cmds, protocol.SaveSettings{})
	for _, c := range cmds {
		if err := sup.Send(c).Wait(); err != nil {
			logger.Warn("failed to push preference", zap.String("cmd", c.Encode()), zap.Error(err))
			return
		}
	}
	logger.Info("pushed display preferences", zap.Int("commands", len(cmds)))
}

func newDeviceCmd() *cobra.Command {
	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Run the display side against a serial port or stdio",
		RunE:  runDeviceCmd,
	}
	deviceCmd.Flags().StringVar(&devicePort, "port", "", "serial port to listen on")
	deviceCmd.Flags().BoolVar(&deviceStdio, "stdio", false, "use stdin/stdout as the transport")
	deviceCmd.Flags().StringVar(&deviceSettings, "settings", config.DefaultSettingsPath(), "settings blob path")
	return deviceCmd
}

func runDeviceCmd(_ *cobra.Command, _ []string) error {
	logger, err := newLogger(rootDebug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var tr transport.Transport
	switch {
	case deviceStdio:
		tr = transport.Stdio()
	case devicePort != "":
		tr, err = transport.SerialDialer{}.Dial(devicePort)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --port or --stdio is required")
	}
	defer func() {
		_ = tr.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	director := device.NewDirector(device.NewSettingsStore(deviceSettings, logger), logger, time.Now())
	loop := device.NewLoop(tr, director, render.NewCompositor(os.Stdout), logger)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("device loop failed: %w", err)
	}
	return nil
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports, flagging likely devices",
		RunE: func(_ *cobra.Command, _ []string) error {
			ports, err := transport.ListPorts()
			if err != nil {
				return fmt.Errorf("failed to list ports: %w", err)
			}
			if len(ports) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, p := range ports {
				marker := " "
				if p.Likely {
					marker = "*"
				}
				fmt.Printf("%s %-20s %s\n", marker, p.Name, p.Product)
			}
			return nil
		},
	}
}

func newSendCmd() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send <command>...",
		Short: "Send one or more protocol lines to the device",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSendCmd,
	}
	sendCmd.Flags().StringVar(&sendPort, "port", autoPort, "serial port, or AUTO to discover")
	sendCmd.Flags().IntVar(&sendBaud, "baud", transport.DefaultBaudRate, "serial line rate")
	return sendCmd
}

func runSendCmd(_ *cobra.Command, args []string) error {
	// Validate first so a typo never reaches the device.
	cmds := make([]protocol.Command, 0, len(args))
	for _, arg := range args {
		c, err := protocol.ParseLine(arg)
		if err != nil {
			return fmt.Errorf("invalid command %q: %w", arg, err)
		}
		cmds = append(cmds, c)
	}

	endpoint := sendPort
	if endpoint == autoPort {
		var err error
		endpoint, err = transport.DiscoverPort()
		if err != nil {
			return fmt.Errorf("failed to discover device port: %w", err)
		}
	}
	tr, err := transport.SerialDialer{BaudRate: sendBaud}.Dial(endpoint)
	if err != nil {
		return err
	}
	defer func() {
		_ = tr.Close()
	}()

	q := link.NewQueue(tr)
	defer q.Close()
	for _, c := range cmds {
		if err := q.Enqueue(c).Wait(); err != nil {
			return fmt.Errorf("failed to send %q: %w", c.Encode(), err)
		}
		fmt.Println(c.Encode())
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent typing sessions",
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := store.Open(config.DefaultDBPath())
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()

			recs, err := db.ListSessions(context.Background(), historyLast)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("no sessions recorded")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("%s  %4dkeys  peak %5.1f  avg %5.1f  (%s)\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					r.Keystrokes, r.PeakWPM, r.AvgWPM,
					r.EndedAt.Sub(r.StartedAt).Round(time.Second))
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&historyLast, "last", 20, "number of sessions to show")
	return historyCmd
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
