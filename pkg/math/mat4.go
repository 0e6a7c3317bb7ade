package math

import "github.com/chewxy/math32"

// Mat4 is a column-major 4x4 matrix, laid out the way OpenGL uniforms
// expect. Element (row, col) is stored at index col*4+row.
type Mat4 [16]float32

// Vec4 is a homogeneous vector.
type Vec4 [4]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4{0: x, 5: y, 10: z, 15: 1}
}

// RotateY returns a right-handed rotation of angle radians about +Y.
func RotateY(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// Perspective returns an OpenGL clip-space projection. fovY is the vertical
// field of view in radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	depth := near - far
	return Mat4{
		0:  f / aspect,
		5:  f,
		10: (far + near) / depth,
		11: -1,
		14: 2 * far * near / depth,
	}
}

// LookAt returns a view matrix for an eye looking at center.
func LookAt(eye, center, up Vec3) Mat4 {
	fwd := center.Sub(eye).Normalize()
	side := fwd.Cross(up).Normalize()
	camUp := side.Cross(fwd)

	m := Identity()
	for i, axis := range [3]Vec3{side, camUp, fwd.Scale(-1)} {
		m[0*4+i] = axis.X
		m[1*4+i] = axis.Y
		m[2*4+i] = axis.Z
		m[3*4+i] = -axis.Dot(eye)
	}
	return m
}

// Mul returns m * n, so n applies first.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	var out Vec4
	for row := 0; row < 4; row++ {
		out[row] = m[row]*v[0] + m[4+row]*v[1] + m[8+row]*v[2] + m[12+row]*v[3]
	}
	return out
}

// TransformVec3 transforms a point, dividing by w when the matrix is
// projective.
func (m Mat4) TransformVec3(p Vec3) Vec3 {
	h := m.MulVec4(Vec4{p.X, p.Y, p.Z, 1})
	if h[3] != 0 && h[3] != 1 {
		return Vec3{h[0] / h[3], h[1] / h[3], h[2] / h[3]}
	}
	return Vec3{h[0], h[1], h[2]}
}

// TransformDirection transforms a direction, ignoring translation.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	h := m.MulVec4(Vec4{d.X, d.Y, d.Z, 0})
	return Vec3{h[0], h[1], h[2]}
}

// Ptr returns the first element for gl.UniformMatrix4fv.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// Inverse returns the inverse of m, or the identity if m is singular.
// It expands by 2x2 minors of the upper and lower halves.
func (m Mat4) Inverse() Mat4 {
	a := func(i, j int) float32 { return m[i*4+j] }

	s0 := a(0, 0)*a(1, 1) - a(1, 0)*a(0, 1)
	s1 := a(0, 0)*a(1, 2) - a(1, 0)*a(0, 2)
	s2 := a(0, 0)*a(1, 3) - a(1, 0)*a(0, 3)
	s3 := a(0, 1)*a(1, 2) - a(1, 1)*a(0, 2)
	s4 := a(0, 1)*a(1, 3) - a(1, 1)*a(0, 3)
	s5 := a(0, 2)*a(1, 3) - a(1, 2)*a(0, 3)

	c0 := a(2, 0)*a(3, 1) - a(3, 0)*a(2, 1)
	c1 := a(2, 0)*a(3, 2) - a(3, 0)*a(2, 2)
	c2 := a(2, 0)*a(3, 3) - a(3, 0)*a(2, 3)
	c3 := a(2, 1)*a(3, 2) - a(3, 1)*a(2, 2)
	c4 := a(2, 1)*a(3, 3) - a(3, 1)*a(2, 3)
	c5 := a(2, 2)*a(3, 3) - a(3, 2)*a(2, 3)

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	return Mat4{
		(a(1, 1)*c5 - a(1, 2)*c4 + a(1, 3)*c3) * inv,
		(-a(0, 1)*c5 + a(0, 2)*c4 - a(0, 3)*c3) * inv,
		(a(3, 1)*s5 - a(3, 2)*s4 + a(3, 3)*s3) * inv,
		(-a(2, 1)*s5 + a(2, 2)*s4 - a(2, 3)*s3) * inv,

		(-a(1, 0)*c5 + a(1, 2)*c2 - a(1, 3)*c1) * inv,
		(a(0, 0)*c5 - a(0, 2)*c2 + a(0, 3)*c1) * inv,
		(-a(3, 0)*s5 + a(3, 2)*s2 - a(3, 3)*s1) * inv,
		(a(2, 0)*s5 - a(2, 2)*s2 + a(2, 3)*s1) * inv,

		(a(1, 0)*c4 - a(1, 1)*c2 + a(1, 3)*c0) * inv,
		(-a(0, 0)*c4 + a(0, 1)*c2 - a(0, 3)*c0) * inv,
		(a(3, 0)*s4 - a(3, 1)*s2 + a(3, 3)*s0) * inv,
		(-a(2, 0)*s4 + a(2, 1)*s2 - a(2, 3)*s0) * inv,

		(-a(1, 0)*c3 + a(1, 1)*c1 - a(1, 2)*c0) * inv,
		(a(0, 0)*c3 - a(0, 1)*c1 + a(0, 2)*c0) * inv,
		(-a(3, 0)*s3 + a(3, 1)*s1 - a(3, 2)*s0) * inv,
		(a(2, 0)*s3 - a(2, 1)*s1 + a(2, 2)*s0) * inv,
	}
}

// TRS composes translation, rotation and scale, applied scale first.
func TRS(position Vec3, rotation Quat, scale Vec3) Mat4 {
	return Translate(position.X, position.Y, position.Z).
		Mul(rotation.ToMat4()).
		Mul(Scale(scale.X, scale.Y, scale.Z))
}
