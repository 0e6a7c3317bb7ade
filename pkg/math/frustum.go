package math

// Plane is a plane in Hessian form: dot(Normal, p) + D = 0.
type Plane struct {
	Normal Vec3
	D      float32
}

// Frustum holds the six clip planes of a view-projection matrix,
// normals pointing inward.
type Frustum [6]Plane

// FrustumFromMatrix extracts clip planes from a column-major view-projection
// matrix (Gribb/Hartmann).
func FrustumFromMatrix(m Mat4) Frustum {
	row := func(r int) [4]float32 {
		return [4]float32{m[r], m[4+r], m[8+r], m[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	plane := func(a, b [4]float32, sign float32) Plane {
		return Plane{
			Normal: Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			D:      a[3] + sign*b[3],
		}
	}

	return Frustum{
		plane(r3, r0, 1),  // left
		plane(r3, r0, -1), // right
		plane(r3, r1, 1),  // bottom
		plane(r3, r1, -1), // top
		plane(r3, r2, 1),  // near
		plane(r3, r2, -1), // far
	}
}

// IntersectsAABB reports whether any part of b may be inside the frustum.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f {
		// Positive vertex: the corner furthest along the plane normal.
		v := b.Min
		if p.Normal.X >= 0 {
			v.X = b.Max.X
		}
		if p.Normal.Y >= 0 {
			v.Y = b.Max.Y
		}
		if p.Normal.Z >= 0 {
			v.Z = b.Max.Z
		}
		if p.Normal.Dot(v)+p.D < 0 {
			return false
		}
	}
	return true
}
