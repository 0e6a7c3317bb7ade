package grass

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Surface is ground that blades can be rooted on.
type Surface interface {
	Height(x, z float32) float32
	Normal(x, z float32) math.Vec3
}

// Scatter places count source vertices over a square of side extent
// centered on the origin. Placement depends only on seed, so the same
// arguments always give the same vertices.
func Scatter(s Surface, count int, extent float32, seed uint32) []SourceVertex {
	if count <= 0 {
		return nil
	}
	out := make([]SourceVertex, 0, count)
	base := pcgHash(seed)
	for i := 0; i < count; i++ {
		h := pcgHash(base ^ uint32(i))
		x := (unitFloat(pcgHash(h)) - 0.5) * extent
		z := (unitFloat(pcgHash(h+1)) - 0.5) * extent
		out = append(out, SourceVertex{
			Position: math.Vec3{X: x, Y: s.Height(x, z), Z: z},
			Normal:   s.Normal(x, z),
		})
	}
	return out
}

// ScatterDisc places count source vertices uniformly over a disc of the
// given radius centered on (cx, cz).
func ScatterDisc(s Surface, cx, cz, radius float32, count int, seed uint32) []SourceVertex {
	if count <= 0 || radius <= 0 {
		return nil
	}
	out := make([]SourceVertex, 0, count)
	base := pcgHash(seed ^ 0x9e3779b9)
	for i := 0; i < count; i++ {
		h := pcgHash(base ^ uint32(i))
		r := radius * math32.Sqrt(unitFloat(pcgHash(h)))
		sin, cos := math32.Sincos(2 * math32.Pi * unitFloat(pcgHash(h+1)))
		x, z := cx+r*cos, cz+r*sin
		out = append(out, SourceVertex{
			Position: math.Vec3{X: x, Y: s.Height(x, z), Z: z},
			Normal:   s.Normal(x, z),
		})
	}
	return out
}
