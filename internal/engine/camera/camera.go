// Package camera provides an orbit camera for inspecting grass patches.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Projection
	FovY float32 // Radians
	Near float32
	Far  float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a new orbit camera with defaults sized for a
// field of a few dozen meters.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        30.0,
		RotationX:       0.5,
		MinDistance:     1.0,
		MaxDistance:     500.0,
		MinPitch:        0.05,
		MaxPitch:        1.5,
		FovY:            math32.Pi / 3,
		Near:            0.1,
		Far:             1000.0,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cosPitch := math32.Cos(c.RotationX)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cosPitch * math32.Sin(c.RotationY),
		Y: c.Distance * math32.Sin(c.RotationX),
		Z: c.Distance * cosPitch * math32.Cos(c.RotationY),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for the aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection(aspect float32) math.Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = clamp(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the center point relative to the current yaw.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	sin, cos := math32.Sincos(c.RotationY)

	// Negate forward so W moves "into" the scene
	c.Center.X += (-sin*forward + cos*right) * speed
	c.Center.Z += (-cos*forward - sin*right) * speed
	c.Center.Y += up * speed
}

// FitToBounds centers the camera on b and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(b math.AABB) {
	if b.IsEmpty() {
		return
	}
	c.Center = b.Center()
	size := b.Size()
	c.Distance = clamp(math32.Max(size.X, size.Z)*0.8, c.MinDistance, c.MaxDistance)
	c.RotationX = clamp(0.6, c.MinPitch, c.MaxPitch) // Look down at ~35 degrees
	c.RotationY = 0
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
