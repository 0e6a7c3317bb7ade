package math

import (
	"testing"
)

func TestVec2(t *testing.T) {
	a := Vec2{1, 2}
	if got := a.Add(Vec2{3, 4}); got != (Vec2{4, 6}) {
		t.Errorf("Vec2.Add() = %v", got)
	}
	if got := a.Scale(3); got != (Vec2{3, 6}) {
		t.Errorf("Vec2.Scale() = %v", got)
	}
	if got := (Vec2{3, 4}).Length(); got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Helpers(t *testing.T) {
	a := Vec3{1, -2, 3}
	b := Vec3{-4, 5, 0}

	tests := []struct {
		name string
		got  Vec3
		want Vec3
	}{
		{"min", a.Min(b), Vec3{-4, -2, 0}},
		{"max", a.Max(b), Vec3{1, 5, 3}},
		{"abs", a.Abs(), Vec3{1, 2, 3}},
		{"zero normalize", Vec3{}.Normalize(), Vec3{}},
		{"from array", Vec3FromArray(a.Array()), a},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if xz := a.XZ(); xz != (Vec2{1, 3}) {
		t.Errorf("XZ() = %v", xz)
	}
}
