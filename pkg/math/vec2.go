package math

import "github.com/chewxy/math32"

// Vec2 is a 2D vector, used for texture space coordinates.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Length returns the length of the vector.
func (v Vec2) Length() float32 {
	return math32.Hypot(v.X, v.Y)
}
