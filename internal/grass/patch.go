package grass

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
)

// DefaultNoiseSize is the side of the generated noise field used when a
// patch names no noise file.
const DefaultNoiseSize = 256

// Patch is the persisted form of a grass patch: its placement, settings and
// source vertices.
type Patch struct {
	Name      string         `yaml:"name"`
	Transform Transform      `yaml:"transform"`
	Settings  Settings       `yaml:"settings"`
	Vertices  []SourceVertex `yaml:"vertices"`
}

// NewPatch returns an empty patch with default settings.
func NewPatch(name string) *Patch {
	return &Patch{
		Name:      name,
		Transform: IdentityTransform(),
		Settings:  DefaultSettings(),
	}
}

// Loader returns the contents of a named asset.
type Loader func(name string) ([]byte, error)

// DirLoader loads assets from files, resolving relative names against dir.
func DirLoader(dir string) Loader {
	return func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.ReadFile(name)
	}
}

// LoadPatch reads a patch file. Fields missing from the file keep their
// defaults. The wind noise named by settings.wind.noise_path is read
// relative to the patch file.
func LoadPatch(path string) (*Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}
	p, err := DecodePatch(data, stemOf(path))
	if err != nil {
		return nil, fmt.Errorf("parse patch %s: %w", path, err)
	}
	if err := p.LoadNoise(DirLoader(filepath.Dir(path))); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodePatch parses patch YAML on top of the defaults. The noise field is
// not loaded.
func DecodePatch(data []byte, name string) (*Patch, error) {
	p := NewPatch(name)
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadNoise fills Settings.Wind.Noise from NoisePath through load. Without
// a path a default field is generated.
func (p *Patch) LoadNoise(load Loader) error {
	wind := &p.Settings.Wind
	if wind.NoisePath == "" {
		wind.Noise = DefaultNoiseField(DefaultNoiseSize, 0)
		return nil
	}

	data, err := load(wind.NoisePath)
	if err != nil {
		return fmt.Errorf("read noise field %s: %w", wind.NoisePath, err)
	}
	noise, err := DecodeNoiseField(data, wind.NoisePath)
	if err != nil {
		return err
	}
	wind.Noise = noise
	return nil
}

// Save writes the patch as YAML, creating parent directories.
func (p *Patch) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Pipeline builds an uninitialized pipeline for the patch.
func (p *Patch) Pipeline(dev gpu.Device, program gpu.Program, material gpu.Material, opts ...Option) *Pipeline {
	opts = append([]Option{WithName(p.Name), WithVertices(p.Vertices)}, opts...)
	return New(dev, program, material, p.Settings, opts...)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
