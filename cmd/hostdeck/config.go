package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/socketrpc"
)

const (
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 3300
	defaultQueryTimeout     = 10 * time.Second
	defaultHistoryRetention = 24 // hours, 0 = keep forever
	defaultBackupInterval   = 6 * time.Hour
	defaultBackupKeep       = 8
	defaultOTLPInterval     = 15 * time.Second
)

// appConfig is the daemon's runtime configuration.
type appConfig struct {
	CycleDelay       time.Duration `mapstructure:"cycle-delay"`
	RefreshSamples   int           `mapstructure:"refresh-samples"`
	RefreshHint      int           `mapstructure:"refresh-hint"`
	FrameInterval    time.Duration `mapstructure:"frame-interval"`
	SysfsRoot        string        `mapstructure:"sysfs-root"`
	BrowserHome      string        `mapstructure:"browser-home"`
	APIEnabled       bool          `mapstructure:"api-enabled"`
	APIPort          int           `mapstructure:"api-port"`
	APIAddr          string        `mapstructure:"api-addr"`
	SocketPath       string        `mapstructure:"socket-path"`
	HistoryEnabled   bool          `mapstructure:"history-enabled"`
	DBPath           string        `mapstructure:"db-path"`
	HistoryRetention int           `mapstructure:"history-retention"`
	QueryTimeout     time.Duration `mapstructure:"query-timeout"`
	BackupEnabled    bool          `mapstructure:"backup-enabled"`
	BackupInterval   time.Duration `mapstructure:"backup-interval"`
	BackupDir        string        `mapstructure:"backup-dir"`
	BackupKeep       int           `mapstructure:"backup-keep"`
	OTLPEndpoint     string        `mapstructure:"otlp-endpoint"`
	OTLPInterval     time.Duration `mapstructure:"otlp-interval"`
	ConfigPath       string        `mapstructure:"-"`
}

// addConfigFlags registers the flags that override config keys. Flag names
// match the keys so they bind directly.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.Duration("cycle-delay", model.DefaultCycleDelay, "pause between the end of one cycle and the next")
	fs.Int("refresh-hint", 0, "known display refresh rate in Hz (0 = measure)")
	fs.String("sysfs-root", "/sys", "root of the sysfs tree the probes read")
	fs.Bool("api-enabled", true, "serve the HTTP page and JSON API")
	fs.Int("api-port", defaultAPIPort, "HTTP API port")
	fs.String("socket-path", socketrpc.DefaultSocketPath(), "unix socket for TUI clients")
	fs.Bool("history-enabled", true, "store numeric results in DuckDB")
	fs.String("db-path", "", "DuckDB file for history")
	fs.String("otlp-endpoint", "", "OTLP/gRPC collector address (empty = disabled)")
}

func loadConfig(configPath string, flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HOSTDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("cycle-delay", model.DefaultCycleDelay)
	v.SetDefault("refresh-samples", model.DefaultRefreshSamples)
	v.SetDefault("refresh-hint", 0)
	v.SetDefault("frame-interval", model.DefaultFrameInterval)
	v.SetDefault("sysfs-root", "/sys")
	v.SetDefault("browser-home", home)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("history-enabled", true)
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "hostdeck", "hostdeck.duckdb"))
	v.SetDefault("history-retention", defaultHistoryRetention)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", filepath.Join(home, ".local", "share", "hostdeck", "backups"))
	v.SetDefault("backup-keep", defaultBackupKeep)
	v.SetDefault("otlp-endpoint", "")
	v.SetDefault("otlp-interval", defaultOTLPInterval)

	if flags != nil {
		// Only flags set on the command line override; unset flags must
		// not shadow config or env values.
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return cfg, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "hostdeck", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.CycleDelay <= 0 {
		return cfg, fmt.Errorf("invalid cycle-delay: %s", cfg.CycleDelay)
	}
	if cfg.RefreshHint < 0 {
		return cfg, fmt.Errorf("invalid refresh-hint: %d", cfg.RefreshHint)
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.BackupDir = expandHome(cfg.BackupDir, home)
	cfg.BrowserHome = expandHome(cfg.BrowserHome, home)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

// retention converts the configured hours to the cleaner's window. Zero or
// less keeps history forever.
func (c appConfig) retention() time.Duration {
	if c.HistoryRetention <= 0 {
		return -1
	}
	return time.Duration(c.HistoryRetention) * time.Hour
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
