package grass

import (
	"fmt"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Settings is the full parameter set consumed by the generator.
// Any change requires re-activation; nothing is hot-reloaded.
type Settings struct {
	Form FormSettings `yaml:"form"`
	Wind WindSettings `yaml:"wind"`
	LOD  LODSettings  `yaml:"lod"`
}

// FormSettings controls blade shape.
type FormSettings struct {
	// MaxSegments is the number of rows per blade. It sizes the output
	// buffer, so it can only change through re-activation.
	MaxSegments int `yaml:"max_segments"`
	// MaxBendAngle is the largest bend as a fraction of a right angle.
	MaxBendAngle float32 `yaml:"max_bend_angle"`
	// Curvature is the exponent applied to the bend along the blade.
	Curvature float32 `yaml:"curvature"`

	Height         float32 `yaml:"height"`
	HeightVariance float32 `yaml:"height_variance"`
	Width          float32 `yaml:"width"`
	WidthVariance  float32 `yaml:"width_variance"`
}

// WindSettings controls blade sway.
type WindSettings struct {
	// Noise is the 2D wind field. Its red and green channels are read as a
	// direction. Required.
	Noise *NoiseField `yaml:"-"`
	// NoisePath is where Noise was loaded from, for persistence.
	NoisePath string `yaml:"noise_path,omitempty"`

	// PosMult scales world xz into noise texture coordinates.
	PosMult float32 `yaml:"pos_mult"`
	// TimeMult scrolls the noise over time.
	TimeMult float32 `yaml:"time_mult"`
	// Amplitude is the sway angle in radians at full wind strength.
	Amplitude float32 `yaml:"amplitude"`
}

// LODSettings controls distance clipping.
type LODSettings struct {
	// OverrideCamera, when set, replaces the camera position for clipping.
	OverrideCamera *math.Vec3 `yaml:"override_camera,omitempty"`
	ClipDistance   float32    `yaml:"clip_distance"`
	// ClipBlend is the width of the soft band beyond ClipDistance.
	ClipBlend float32 `yaml:"clip_blend"`
}

// DefaultSettings returns the stock blade parameters. The noise field is
// left unset.
func DefaultSettings() Settings {
	return Settings{
		Form: FormSettings{
			MaxSegments:    8,
			MaxBendAngle:   0.1,
			Curvature:      1,
			Height:         2,
			HeightVariance: 0.3,
			Width:          0.4,
			WidthVariance:  0.1,
		},
		Wind: WindSettings{
			PosMult:   0.01,
			TimeMult:  0.05,
			Amplitude: 0.5,
		},
		LOD: LODSettings{
			ClipDistance: 50,
			ClipBlend:    0.8,
		},
	}
}

// Validate checks the settings. The result is a *ConfigurationError.
func (s *Settings) Validate() error {
	if s.Form.MaxSegments < 1 {
		return configError(ErrInvalidSegments, fmt.Errorf("got %d", s.Form.MaxSegments))
	}
	if s.Wind.Noise == nil {
		return ErrMissingNoise
	}

	checks := []struct {
		name  string
		value float32
	}{
		{"height", s.Form.Height},
		{"height_variance", s.Form.HeightVariance},
		{"width", s.Form.Width},
		{"width_variance", s.Form.WidthVariance},
		{"max_bend_angle", s.Form.MaxBendAngle},
		{"curvature", s.Form.Curvature},
		{"clip_distance", s.LOD.ClipDistance},
		{"clip_blend", s.LOD.ClipBlend},
	}
	for _, c := range checks {
		if c.value < 0 || c.value != c.value {
			return configError(ErrInvalidSettings, fmt.Errorf("%s = %g", c.name, c.value))
		}
	}
	return nil
}

// Margin is the farthest any generated vertex can lie from its root.
func (s *Settings) Margin() float32 {
	return max(s.Form.Height+s.Form.HeightVariance, s.Form.Width+s.Form.WidthVariance)
}

// MaxTrianglesPerBlade is the per-blade triangle bound for these settings.
func (s *Settings) MaxTrianglesPerBlade() int {
	return MaxTrianglesPerBlade(s.Form.MaxSegments)
}
