package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/hostdeck/internal/backup"
	"github.com/tinytelemetry/hostdeck/internal/duckdb"
	"github.com/tinytelemetry/hostdeck/internal/httpserver"
	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/otlpexport"
	"github.com/tinytelemetry/hostdeck/internal/render"
	"github.com/tinytelemetry/hostdeck/internal/sampler"
	"github.com/tinytelemetry/hostdeck/internal/socketrpc"
)

// runServer runs the render loop and serves boards until interrupted.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	var sinks []render.Sink
	var history model.HistoryQuerier

	if cfg.HistoryEnabled {
		store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer store.Close()
		history = store
		sinks = append(sinks, render.HistorySink(store))

		if rc := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{Retention: cfg.retention()}); rc != nil {
			defer rc.Stop()
		}

		backupManager, err := backup.NewManager(store, backup.Config{
			Enabled:  cfg.BackupEnabled,
			Interval: cfg.BackupInterval,
			LocalDir: cfg.BackupDir,
			KeepLast: cfg.BackupKeep,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		if backupManager != nil {
			defer backupManager.Stop()
		}
	}

	var exporter *otlpexport.Exporter
	if cfg.OTLPEndpoint != "" {
		var err error
		exporter, err = otlpexport.New(otlpexport.Config{Endpoint: cfg.OTLPEndpoint, Interval: cfg.OTLPInterval})
		if err != nil {
			return fmt.Errorf("failed to initialize OTLP exporter: %w", err)
		}
		defer func() {
			if err := exporter.Shutdown(); err != nil {
				log.Printf("otlp: shutdown: %v", err)
			}
		}()
		sinks = append(sinks, exporter)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	loop := render.Start(ctx, render.Config{
		Collector: sampler.New(sampler.DefaultProbes(probeConfig(cfg))),
		Delay:     cfg.CycleDelay,
		Sinks:     sinks,
	})
	defer loop.Stop()

	if exporter != nil {
		exporter.Start(ctx)
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, loop, history, cfg.CycleDelay)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	sockServer := socketrpc.NewServer(cfg.SocketPath, loop, history)
	sockOK := true
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
		sockOK = false
	} else {
		defer sockServer.Stop()
	}

	printStartupBanner(cfg, sockOK)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-loop.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	cancel()
	signal.Stop(sigCh)
	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "hostdeck")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "hostdeck.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, socketUp bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	on := green.Render("●")
	off := dim.Render("●")
	row := func(enabled bool, label, value string) string {
		mark, style := off, dim
		if enabled {
			mark, style = on, cyan
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, label, style.Render(value))
	}

	logo := cyan.Bold(true).Render(`
    ╦ ╦╔═╗╔═╗╔╦╗╔╦╗╔═╗╔═╗╦╔═
    ╠═╣║ ║╚═╗ ║  ║║║╣ ║  ╠╩╗
    ╩ ╩╚═╝╚═╝ ╩ ═╩╝╚═╝╚═╝╩ ╩`)
	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Surfaces"), "")
	apiValue := "disabled"
	if cfg.APIEnabled {
		apiValue = "http://" + cfg.APIAddr
	}
	lines = append(lines,
		row(cfg.APIEnabled, "HTTP", apiValue),
		row(socketUp, "Unix Socket", shortenPath(cfg.SocketPath)),
		"")

	lines = append(lines, bold.Render("    Storage"), "")
	historyValue, backupValue, otlpValue := "disabled", "disabled", "disabled"
	if cfg.HistoryEnabled {
		historyValue = shortenPath(cfg.DBPath)
	}
	if cfg.HistoryEnabled && cfg.BackupEnabled {
		backupValue = shortenPath(cfg.BackupDir)
	}
	if cfg.OTLPEndpoint != "" {
		otlpValue = cfg.OTLPEndpoint
	}
	lines = append(lines,
		row(cfg.HistoryEnabled, "History", historyValue),
		row(cfg.HistoryEnabled && cfg.BackupEnabled, "Snapshots", backupValue),
		row(cfg.OTLPEndpoint != "", "OTLP Export", otlpValue),
		"")

	lines = append(lines, bold.Render("    Runtime"), "")
	lines = append(lines, row(true, "Cycle Delay", cfg.CycleDelay.String()))
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", shortenPath(cfg.ConfigPath)))
	} else {
		lines = append(lines, row(false, "Config File", "default (no file)"))
	}

	lines = append(lines, "", separator, "",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
