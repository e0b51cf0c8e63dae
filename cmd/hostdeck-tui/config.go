package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/socketrpc"
)

// cliConfig holds only TUI-relevant configuration. It reads the same file
// and environment as the daemon.
type cliConfig struct {
	CycleDelay     time.Duration `mapstructure:"cycle-delay"`
	HistoryLimit   int           `mapstructure:"history-limit"`
	Skin           string        `mapstructure:"skin"`
	SocketPath     string        `mapstructure:"socket-path"`
	RefreshSamples int           `mapstructure:"refresh-samples"`
	RefreshHint    int           `mapstructure:"refresh-hint"`
	FrameInterval  time.Duration `mapstructure:"frame-interval"`
	SysfsRoot      string        `mapstructure:"sysfs-root"`
	BrowserHome    string        `mapstructure:"browser-home"`
	ConfigDir      string        `mapstructure:"-"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HOSTDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("cycle-delay", model.DefaultCycleDelay)
	v.SetDefault("history-limit", model.DefaultHistoryLimit)
	v.SetDefault("skin", model.DefaultSkin)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("refresh-samples", model.DefaultRefreshSamples)
	v.SetDefault("refresh-hint", 0)
	v.SetDefault("frame-interval", model.DefaultFrameInterval)
	v.SetDefault("sysfs-root", "/sys")
	v.SetDefault("browser-home", home)

	configDir := filepath.Join(home, ".config", "hostdeck")
	if configPath != "" {
		v.SetConfigFile(configPath)
		configDir = filepath.Dir(configPath)
	} else {
		v.SetConfigFile(filepath.Join(configDir, "config.yml"))
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
	cfg.ConfigDir = configDir

	return cfg, nil
}
