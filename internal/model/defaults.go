package model

import "time"

// Shared defaults used by both the daemon and the TUI binaries.
const (
	DefaultCycleDelay     = 2 * time.Second
	DefaultRefreshSamples = 20
	DefaultFrameInterval  = 16667 * time.Microsecond
	DefaultHistoryLimit   = 60
	MaxHistoryLimit       = 10000
	DefaultSkin           = "default"
)
