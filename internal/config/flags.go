package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagBackend    = flag.String("backend", "", "Device backend (gl or soft)")
	flagPatch      = flag.String("patch", "", "Grass patch file")
	flagNoise      = flag.String("noise", "", "Wind noise image")
	flagCount      = flag.Int("count", 0, "Scattered blade count when no patch is given")
	flagBounds     = flag.Bool("bounds", false, "Draw grass culling bounds")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Graphics.ShowBounds = true
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagBackend != "" {
		cfg.Graphics.Backend = *flagBackend
	}
	if *flagPatch != "" {
		cfg.Data.Patch = *flagPatch
	}
	if *flagNoise != "" {
		cfg.Grass.Wind.NoisePath = *flagNoise
	}
	if *flagCount > 0 {
		cfg.Data.Scatter.Count = *flagCount
	}
	if *flagBounds {
		cfg.Graphics.ShowBounds = true
	}
}
