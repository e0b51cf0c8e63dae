package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/tinytelemetry/hostdeck/internal/duckdb"
	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/render"
	"github.com/tinytelemetry/hostdeck/internal/sampler"
	"github.com/tinytelemetry/hostdeck/internal/socketrpc"
	"github.com/tinytelemetry/hostdeck/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath, socketPath, skin string
	var showVersion, local bool

	flags := pflag.NewFlagSet("hostdeck-tui", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/hostdeck/config.yml)")
	flags.StringVar(&socketPath, "socket", "", "override socket path to connect to the hostdeck daemon")
	flags.StringVar(&skin, "skin", "", "color skin: default, light, mono or a file under <config>/skins")
	flags.BoolVar(&local, "local", false, "run the probes in-process instead of connecting to the daemon")
	flags.BoolVar(&showVersion, "version", false, "print version information")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if showVersion {
		fmt.Printf("hostdeck-tui - Dashboard Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if skin != "" {
		cfg.Skin = skin
	}

	if err := runTUI(cfg, local); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig, local bool) error {
	if err := tui.InitializeSkin(cfg.Skin, cfg.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load skin '%s': %v (using default)\n", cfg.Skin, err)
	}

	var api model.ReadAPI
	source := "Socket"
	if local {
		localAPI, stop, err := startLocal(cfg)
		if err != nil {
			return err
		}
		defer stop()
		api, source = localAPI, "Local"
	} else {
		client, err := socketrpc.Dial(cfg.SocketPath)
		if err != nil {
			return fmt.Errorf("cannot connect to hostdeck at %s: %w\nIs the daemon running? Start it with: hostdeck, or use --local", cfg.SocketPath, err)
		}
		defer client.Close()
		api = client
	}

	dashboard := tui.NewDashboardModel(api, cfg.CycleDelay, cfg.HistoryLimit, source)
	app := tui.NewApp(tui.NewDashboardPage(dashboard))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// startLocal runs a render loop in this process with an in-memory history.
func startLocal(cfg cliConfig) (model.ReadAPI, func(), error) {
	closeLog := redirectLog()

	store, err := duckdb.NewStore("")
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("failed to initialize in-memory history: %w", err)
	}

	probes := sampler.DefaultProbes(sampler.Config{
		SysfsRoot:      cfg.SysfsRoot,
		BrowserHome:    cfg.BrowserHome,
		RefreshHint:    cfg.RefreshHint,
		RefreshSamples: cfg.RefreshSamples,
		FrameInterval:  cfg.FrameInterval,
	})
	loop := render.Start(context.Background(), render.Config{
		Collector: sampler.New(probes),
		Delay:     cfg.CycleDelay,
		Sinks:     []render.Sink{render.HistorySink(store)},
	})

	api := struct {
		model.BoardReader
		model.HistoryQuerier
	}{loop, store}

	stop := func() {
		loop.Stop()
		_ = store.Close()
		closeLog()
	}
	return api, stop, nil
}

// redirectLog keeps render loop logging off the alternate screen.
func redirectLog() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	logDir := filepath.Join(home, ".local", "state", "hostdeck")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := os.OpenFile(filepath.Join(logDir, "hostdeck-tui.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	log.SetOutput(f)
	return func() { _ = f.Close() }
}
