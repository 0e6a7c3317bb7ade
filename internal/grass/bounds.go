package grass

import (
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Transform places a grass patch in the world.
type Transform struct {
	Position math.Vec3 `yaml:"position"`
	Rotation math.Quat `yaml:"rotation"`
	Scale    math.Vec3 `yaml:"scale"`
}

// IdentityTransform returns a transform that leaves local space unchanged.
func IdentityTransform() Transform {
	return Transform{
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Matrix returns translate * rotate * scale.
func (t Transform) Matrix() math.Mat4 {
	return math.TRS(t.Position, t.Rotation, t.Scale)
}

// BoundsTracker caches the local bounding box of a vertex set.
type BoundsTracker struct {
	local math.AABB
	valid bool
}

// Recompute folds every vertex position into a box and grows it by margin
// so that no blade rooted at those vertices can leave it.
func (b *BoundsTracker) Recompute(vs []SourceVertex, margin float32) math.AABB {
	if len(vs) == 0 {
		b.local, b.valid = math.AABB{}, false
		return b.local
	}
	box := math.EmptyAABB()
	for _, v := range vs {
		box = box.Encapsulate(v.Position)
	}
	b.local, b.valid = box.Expand(margin), true
	return b.local
}

// Local returns the cached local box and whether one has been computed.
func (b *BoundsTracker) Local() (math.AABB, bool) {
	return b.local, b.valid
}

// ToWorld transforms the cached local box by t.
func (b *BoundsTracker) ToWorld(t Transform) math.AABB {
	return ToWorld(b.local, t)
}

// ToWorld returns a world box containing every point of local under t.
// Each half-extent axis goes through the rotation and scale, so the result
// stays conservative for any orientation and non-uniform scale.
func ToWorld(local math.AABB, t Transform) math.AABB {
	return local.Transform(t.Matrix())
}
