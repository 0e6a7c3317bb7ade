package math

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns an inverted box that any Encapsulate call will replace.
func EmptyAABB() AABB {
	const inf = float32(3.4028234663852886e+38)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// AABBFromCenterExtents builds a box from its center and half-size.
func AABBFromCenterExtents(center, extents Vec3) AABB {
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the box center.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extents returns the half-size of the box.
func (b AABB) Extents() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Size returns the full size of the box.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Encapsulate grows the box to contain p.
func (b AABB) Encapsulate(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Expand grows the box by amount on every side.
func (b AABB) Expand(amount float32) AABB {
	d := Vec3{amount, amount, amount}
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Contains reports whether p lies inside the box, with tolerance eps.
func (b AABB) Contains(p Vec3, eps float32) bool {
	return p.X >= b.Min.X-eps && p.X <= b.Max.X+eps &&
		p.Y >= b.Min.Y-eps && p.Y <= b.Max.Y+eps &&
		p.Z >= b.Min.Z-eps && p.Z <= b.Max.Z+eps
}

// Transform returns a box that conservatively contains b transformed by m.
// The center and each half-extent axis are transformed separately, so
// rotation and non-uniform scale widen the result instead of being dropped.
func (b AABB) Transform(m Mat4) AABB {
	center := m.TransformVec3(b.Center())
	e := b.Extents()

	axisX := m.TransformDirection(Vec3{X: e.X}).Abs()
	axisY := m.TransformDirection(Vec3{Y: e.Y}).Abs()
	axisZ := m.TransformDirection(Vec3{Z: e.Z}).Abs()

	return AABBFromCenterExtents(center, axisX.Add(axisY).Add(axisZ))
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}
