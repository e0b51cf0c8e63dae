package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/hostdeck/internal/model"
	"github.com/tinytelemetry/hostdeck/internal/render"
	"github.com/tinytelemetry/hostdeck/internal/sampler"
)

// runOnce collects a single board and writes it to w.
func runOnce(cfg appConfig, format string, w io.Writer) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	h := render.New(render.Config{Collector: sampler.New(sampler.DefaultProbes(probeConfig(cfg)))})
	board, err := h.RunOnce(context.Background())
	if err != nil {
		return err
	}
	return writeBoard(w, board, format)
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml", "yml", "text", "":
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func writeBoard(w io.Writer, board model.Board, format string) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(board, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding board: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(board); err != nil {
			return fmt.Errorf("encoding board: %w", err)
		}
		return enc.Close()
	case "text", "":
		var b strings.Builder
		for _, c := range board.Cards {
			fmt.Fprintf(&b, "%s %s: %s\n", c.Emoji, c.Title, c.Value)
			for _, d := range c.Details {
				fmt.Fprintf(&b, "    %s\n", d)
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	default:
		return checkFormat(format)
	}
}

func probeConfig(cfg appConfig) sampler.Config {
	return sampler.Config{
		SysfsRoot:      cfg.SysfsRoot,
		BrowserHome:    cfg.BrowserHome,
		RefreshHint:    cfg.RefreshHint,
		RefreshSamples: cfg.RefreshSamples,
		FrameInterval:  cfg.FrameInterval,
	}
}
