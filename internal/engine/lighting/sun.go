// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Sun is a directional light placed by angles in degrees.
type Sun struct {
	Azimuth   float32 `yaml:"azimuth"`   // Rotation around Y, 0 faces +Z
	Elevation float32 `yaml:"elevation"` // Height above the horizon, 0-90
}

// DefaultSun returns a high afternoon sun.
func DefaultSun() Sun {
	return Sun{Azimuth: 53, Elevation: 63}
}

// SunDirection converts azimuth/elevation angles to a normalized vector
// pointing towards the sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := azimuth * math32.Pi / 180
	el := elevation * math32.Pi / 180

	// Spherical to Cartesian, Y up
	cosEl := math32.Cos(el)
	return math.Vec3{
		X: cosEl * math32.Sin(az),
		Y: math32.Sin(el),
		Z: cosEl * math32.Cos(az),
	}
}

// ToSun returns the unit vector pointing at the sun.
func (s Sun) ToSun() math.Vec3 {
	return SunDirection(s.Azimuth, s.Elevation)
}

// LightDir returns the direction the light travels.
func (s Sun) LightDir() math.Vec3 {
	return s.ToSun().Scale(-1)
}
