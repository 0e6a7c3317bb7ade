package math

import (
	"math"
	"testing"
)

func near(a, b, eps float32) bool {
	d := a - b
	return d < eps && d > -eps
}

func TestMat4Transforms(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"identity", Identity(), Vec3{X: 1, Y: 2, Z: 3}, Vec3{X: 1, Y: 2, Z: 3}},
		{"translate", Translate(10, 20, 30), Vec3{X: 1, Y: 2, Z: 3}, Vec3{X: 11, Y: 22, Z: 33}},
		{"scale", Scale(2, 3, 4), Vec3{X: 1, Y: 1, Z: 1}, Vec3{X: 2, Y: 3, Z: 4}},
		{"rotate y", RotateY(float32(math.Pi / 2)), Vec3{X: 1}, Vec3{Z: -1}},
		{"scale then translate", Translate(1, 0, 0).Mul(Scale(2, 2, 2)), Vec3{X: 1}, Vec3{X: 3}},
		{"translate then scale", Scale(2, 2, 2).Mul(Translate(1, 0, 0)), Vec3{X: 1}, Vec3{X: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformVec3(tt.in); !near3(got, tt.want) {
				t.Errorf("TransformVec3(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(5, 5, 5).Mul(Scale(2, 1, 1))
	if got := m.TransformDirection(Vec3{X: 1, Y: 1}); got != (Vec3{X: 2, Y: 1}) {
		t.Errorf("TransformDirection = %v", got)
	}
}

func TestMulIdentity(t *testing.T) {
	m := TRS(Vec3{X: 1, Y: 2, Z: 3}, QuatFromAxisAngle(Vec3{Y: 1}, 0.3), Vec3{X: 1, Y: 2, Z: 1})
	if m.Mul(Identity()) != m || Identity().Mul(m) != m {
		t.Error("multiplying by identity changed the matrix")
	}
}

func TestPerspective(t *testing.T) {
	near32, far32 := float32(0.1), float32(100)
	m := Perspective(float32(math.Pi/2), 2, near32, far32)

	if !near(m[0], 0.5, 1e-6) || !near(m[5], 1, 1e-6) {
		t.Errorf("focal terms = %v, %v", m[0], m[5])
	}
	if m[11] != -1 || m[15] != 0 {
		t.Errorf("w row = %v, %v; want -1, 0", m[11], m[15])
	}

	// The near and far planes map to the ends of clip depth.
	for _, tt := range []struct {
		z, want float32
	}{{-near32, -1}, {-far32, 1}} {
		if got := m.TransformVec3(Vec3{Z: tt.z}).Z; !near(got, tt.want, 1e-4) {
			t.Errorf("depth at z=%v = %v, want %v", tt.z, got, tt.want)
		}
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{X: 3, Y: 4, Z: 5}
	m := LookAt(eye, Vec3{}, Vec3{Y: 1})

	if got := m.TransformVec3(eye); !near3(got, Vec3{}) {
		t.Errorf("eye maps to %v, want origin", got)
	}
	// The target lies straight down -Z in view space.
	got := m.TransformVec3(Vec3{})
	if !near(got.X, 0, 1e-5) || !near(got.Y, 0, 1e-5) || !near(got.Z, -eye.Length(), 1e-4) {
		t.Errorf("center maps to %v", got)
	}
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"trs", TRS(Vec3{X: 3, Y: -1, Z: 2}, QuatFromAxisAngle(Vec3{Y: 1}, 0.7), Vec3{X: 2, Y: 0.5, Z: 1})},
		{"view projection", Perspective(1, 1.5, 0.1, 50).Mul(LookAt(Vec3{X: 2, Y: 3, Z: 9}, Vec3{}, Vec3{Y: 1}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Mul(tt.m.Inverse())
			want := Identity()
			for i := range got {
				if !near(got[i], want[i], 1e-4) {
					t.Errorf("m * m^-1 [%d] = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}

	var singular Mat4
	if singular.Inverse() != Identity() {
		t.Error("singular matrix should invert to identity")
	}
}

func TestTRS(t *testing.T) {
	m := TRS(Vec3{X: 10}, QuatFromAxisAngle(Vec3{Y: 1}, float32(math.Pi/2)), Vec3{X: 2, Y: 2, Z: 2})
	// Scale to 2, rotate onto -Z, then translate.
	if got := m.TransformVec3(Vec3{X: 1}); !near3(got, Vec3{X: 10, Z: -2}) {
		t.Errorf("TRS point = %v", got)
	}
}
