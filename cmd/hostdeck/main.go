package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath, format string
	var showVersion, once bool

	flags := pflag.NewFlagSet("hostdeck", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/hostdeck/config.yml)")
	flags.BoolVar(&showVersion, "version", false, "print version information")
	flags.BoolVar(&once, "once", false, "collect one board, print it and exit")
	flags.StringVar(&format, "format", "text", "output format for --once: text, json or yaml")
	addConfigFlags(flags)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("hostdeck - host signal dashboard\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return nil
	}

	cfg, err := loadConfig(configPath, flags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if once {
		return runOnce(cfg, format, os.Stdout)
	}
	return runServer(cfg)
}
