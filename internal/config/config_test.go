package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-grass/internal/engine/lighting"
	"github.com/Faultbox/midgard-grass/internal/grass"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test graphics defaults
	if cfg.Graphics.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Graphics.Height)
	}
	if cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Graphics.Backend != BackendGL {
		t.Errorf("expected backend gl, got %s", cfg.Graphics.Backend)
	}

	if cfg.Graphics.Sun != lighting.DefaultSun() {
		t.Errorf("expected default sun, got %+v", cfg.Graphics.Sun)
	}

	// Grass defaults come straight from the grass package
	if cfg.Grass != grass.DefaultSettings() {
		t.Errorf("expected default grass settings, got %+v", cfg.Grass)
	}

	if cfg.Data.Patch != "" {
		t.Errorf("expected no patch by default, got %s", cfg.Data.Patch)
	}
	if cfg.Data.Scatter.Count <= 0 || cfg.Data.Scatter.Extent <= 0 {
		t.Errorf("expected a non-empty scatter, got %+v", cfg.Data.Scatter)
	}
	if cfg.Data.Terrain.Tiles <= 0 {
		t.Errorf("expected terrain tiles, got %d", cfg.Data.Terrain.Tiles)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
graphics:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false
  fps_limit: 144
  backend: soft

grass:
  form:
    max_segments: 4
    height: 1.2
  wind:
    noise_path: wind.png
    amplitude: 0.2
  lod:
    clip_distance: 80
    override_camera: {x: 1, y: 2, z: 3}

data:
  patch: meadow.yaml
  asset_dirs: [assets, mods]
  scatter:
    count: 500
    seed: 9

logging:
  level: "debug"
  log_file: "grass.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Graphics.Width)
	}
	if !cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Graphics.VSync {
		t.Error("expected vsync to be false")
	}
	if cfg.Graphics.FPSLimit != 144 {
		t.Errorf("expected fps limit 144, got %d", cfg.Graphics.FPSLimit)
	}
	if cfg.Graphics.Backend != BackendSoft {
		t.Errorf("expected backend soft, got %s", cfg.Graphics.Backend)
	}

	if cfg.Grass.Form.MaxSegments != 4 {
		t.Errorf("expected 4 segments, got %d", cfg.Grass.Form.MaxSegments)
	}
	if cfg.Grass.Form.Height != 1.2 {
		t.Errorf("expected height 1.2, got %f", cfg.Grass.Form.Height)
	}
	// Unset keys keep their defaults
	if cfg.Grass.Form.Width != grass.DefaultSettings().Form.Width {
		t.Errorf("expected default width, got %f", cfg.Grass.Form.Width)
	}
	if cfg.Grass.Wind.NoisePath != "wind.png" {
		t.Errorf("expected noise path wind.png, got %s", cfg.Grass.Wind.NoisePath)
	}
	if cfg.Grass.LOD.ClipDistance != 80 {
		t.Errorf("expected clip distance 80, got %f", cfg.Grass.LOD.ClipDistance)
	}
	if cam := cfg.Grass.LOD.OverrideCamera; cam == nil || cam.Z != 3 {
		t.Errorf("expected override camera z=3, got %v", cam)
	}

	if cfg.Data.Patch != "meadow.yaml" {
		t.Errorf("expected patch meadow.yaml, got %s", cfg.Data.Patch)
	}
	if len(cfg.Data.AssetDirs) != 2 || cfg.Data.AssetDirs[1] != "mods" {
		t.Errorf("expected asset dirs [assets mods], got %v", cfg.Data.AssetDirs)
	}
	if cfg.Data.Scatter.Count != 500 || cfg.Data.Scatter.Seed != 9 {
		t.Errorf("unexpected scatter %+v", cfg.Data.Scatter)
	}
	if cfg.Data.Scatter.Extent != Default().Data.Scatter.Extent {
		t.Errorf("expected default extent, got %f", cfg.Data.Scatter.Extent)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "grass.log" {
		t.Errorf("expected log file 'grass.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
graphics:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/grass.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}

	if _, err := LoadFrom("/nonexistent/path/grass.yaml"); err == nil {
		t.Error("expected LoadFrom to fail on a missing file")
	}
	if cfg, err := LoadFrom(""); err != nil || cfg.Graphics.Width != 1280 {
		t.Errorf("LoadFrom(\"\") = %v, %v; want defaults", cfg, err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find grass.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if !cfg.Graphics.ShowBounds {
					t.Error("expected bounds to be shown with debug flag")
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "windowed flag",
			setup: func() { *flagWindowed = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() { *flagWindowed = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name:  "backend flag",
			setup: func() { *flagBackend = BackendSoft },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Backend != BackendSoft {
					t.Errorf("expected backend soft, got %s", cfg.Graphics.Backend)
				}
			},
			teardown: func() { *flagBackend = "" },
		},
		{
			name: "data flags",
			setup: func() {
				*flagPatch = "field.yaml"
				*flagNoise = "gust.png"
				*flagCount = 42
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Data.Patch != "field.yaml" {
					t.Errorf("expected patch field.yaml, got %s", cfg.Data.Patch)
				}
				if cfg.Grass.Wind.NoisePath != "gust.png" {
					t.Errorf("expected noise gust.png, got %s", cfg.Grass.Wind.NoisePath)
				}
				if cfg.Data.Scatter.Count != 42 {
					t.Errorf("expected count 42, got %d", cfg.Data.Scatter.Count)
				}
			},
			teardown: func() {
				*flagPatch = ""
				*flagNoise = ""
				*flagCount = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
graphics:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Graphics.Backend = BackendSoft
	cfg.Grass.Form.MaxSegments = 3
	cfg.Data.AssetDirs = []string{"a", "b"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Graphics.Backend != BackendSoft || got.Grass.Form.MaxSegments != 3 || len(got.Data.AssetDirs) != 2 {
		t.Errorf("round trip lost values: %+v", got)
	}
}
