// Package config handles viewer and tool configuration loading and management.
package config

import (
	"github.com/Faultbox/midgard-grass/internal/engine/lighting"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
)

// Backend names accepted in GraphicsConfig.Backend.
const (
	BackendGL   = "gl"
	BackendSoft = "soft"
)

// Config holds all settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Grass    grass.Settings `yaml:"grass"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig holds input file paths and the scatter used when no patch file
// is given.
type DataConfig struct {
	Patch     string        `yaml:"patch"`      // Patch file; empty scatters over Terrain
	AssetDirs []string      `yaml:"asset_dirs"` // Resolve grass.wind.noise_path, searched last to first
	Scatter   ScatterConfig `yaml:"scatter"`
	Terrain   TerrainConfig `yaml:"terrain"`
}

// ScatterConfig controls procedural source vertex placement.
type ScatterConfig struct {
	Count  int     `yaml:"count"`
	Extent float32 `yaml:"extent"` // Side of the square scattered over
	Seed   uint32  `yaml:"seed"`
}

// TerrainConfig controls the procedural ground.
type TerrainConfig struct {
	Tiles     int     `yaml:"tiles"`
	TileZoom  float32 `yaml:"tile_zoom"`
	Amplitude float32 `yaml:"amplitude"`
	Frequency float32 `yaml:"frequency"`
	Seed      uint32  `yaml:"seed"`
}

// Params converts to terrain generation parameters.
func (t TerrainConfig) Params() terrain.Params {
	return terrain.Params{
		Tiles:     t.Tiles,
		TileZoom:  t.TileZoom,
		Amplitude: t.Amplitude,
		Frequency: t.Frequency,
		Seed:      t.Seed,
	}
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
	Backend    string `yaml:"backend"` // gl or soft
	ShowBounds bool   `yaml:"show_bounds"`

	Sun lighting.Sun `yaml:"sun"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	tp := terrain.DefaultParams()
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
			Backend:    BackendGL,
			ShowBounds: false,
			Sun:        lighting.DefaultSun(),
		},
		Grass: grass.DefaultSettings(),
		Data: DataConfig{
			Scatter: ScatterConfig{
				Count:  20000,
				Extent: 60,
				Seed:   1,
			},
			Terrain: TerrainConfig{
				Tiles:     tp.Tiles,
				TileZoom:  tp.TileZoom,
				Amplitude: tp.Amplitude,
				Frequency: tp.Frequency,
				Seed:      tp.Seed,
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
