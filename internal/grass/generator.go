package grass

import (
	stdmath "math"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// WindSampler reads the wind field with wrapping texture coordinates and
// returns normalized RGBA.
type WindSampler interface {
	Sample(u, v float32) [4]float32
}

// Generator builds blades. It is the reference form of the compute program:
// the software kernel runs it per invocation and grass.comp mirrors it.
type Generator struct {
	Segments       int
	MaxBendAngle   float32
	Curvature      float32
	Height         float32
	HeightVariance float32
	Width          float32
	WidthVariance  float32

	WindPosMult   float32
	WindTimeMult  float32
	WindAmplitude float32

	ClipDistance float32
	ClipBlend    float32

	LocalToWorld math.Mat4
	Time         float32
	Camera       math.Vec3
}

// NewGenerator copies the per-activation values out of s. Per-frame values
// start at identity transform, zero time and origin camera.
func NewGenerator(s *Settings) Generator {
	return Generator{
		Segments:       s.Form.MaxSegments,
		MaxBendAngle:   s.Form.MaxBendAngle,
		Curvature:      s.Form.Curvature,
		Height:         s.Form.Height,
		HeightVariance: s.Form.HeightVariance,
		Width:          s.Form.Width,
		WidthVariance:  s.Form.WidthVariance,
		WindPosMult:    s.Wind.PosMult,
		WindTimeMult:   s.Wind.TimeMult,
		WindAmplitude:  s.Wind.Amplitude,
		ClipDistance:   s.LOD.ClipDistance,
		ClipBlend:      s.LOD.ClipBlend,
		LocalToWorld:   math.Identity(),
	}
}

// Margin is the farthest a generated vertex lies from its root, in local
// space.
func (g *Generator) Margin() float32 {
	return max(g.Height+g.HeightVariance, g.Width+g.WidthVariance)
}

// Blade generates the blade rooted at source vertex index and passes each
// triangle to emit. It returns the number of triangles emitted, which is
// either zero (clipped) or MaxTrianglesPerBlade(g.Segments). The triangle
// passed to emit is reused between calls.
func (g *Generator) Blade(index uint32, sv SourceVertex, wind WindSampler, emit func(*DrawTriangle)) int {
	segments := g.Segments
	if segments < 1 {
		return 0
	}

	seed := bladeSeed(index, sv.Position)
	root := g.LocalToWorld.TransformVec3(sv.Position)
	if !clipKeep(root.Distance(g.Camera), g.ClipDistance, g.ClipBlend, bladeRandom(seed, 4)) {
		return 0
	}

	up := sv.Normal.Normalize()
	if up == (math.Vec3{}) {
		up = math.Vec3{Y: 1}
	}
	side := rotateAround(perpendicular(up), up, bladeRandom(seed, 0)*2*math32.Pi)
	forward := side.Cross(up)

	height := max(0, g.Height+(2*bladeRandom(seed, 1)-1)*g.HeightVariance)
	width := max(0, g.Width+(2*bladeRandom(seed, 2)-1)*g.WidthVariance)
	bend := bladeRandom(seed, 3) * g.MaxBendAngle * math32.Pi / 2

	windAxis, windAngle := g.wind(root, up, wind)
	margin := g.Margin()

	// place returns the world position of the point v along the blade,
	// offset sideways by lateral.
	place := func(v, lateral float32) math.Vec3 {
		phi := bendAngle(bend, v, g.Curvature)
		spine := up.Scale(math32.Cos(phi)).Add(forward.Scale(math32.Sin(phi))).Scale(v * height)
		off := spine.Add(side.Scale(lateral))
		if windAngle != 0 {
			off = rotateAround(off, windAxis, windAngle*v)
		}
		if l := off.Length(); l > margin {
			off = off.Scale(margin / l)
		}
		return g.LocalToWorld.TransformVec3(sv.Position.Add(off))
	}

	left := make([]DrawVertex, segments)
	right := make([]DrawVertex, segments)
	for i := 0; i < segments; i++ {
		v := float32(i) / float32(segments)
		half := width * (1 - v) / 2
		left[i] = DrawVertex{Position: place(v, -half), Height: v}
		right[i] = DrawVertex{Position: place(v, half), Height: v}
	}
	tip := DrawVertex{Position: place(1, 0), Height: 1}

	var tri DrawTriangle
	emitted := 0
	put := func(a, b, c DrawVertex) {
		tri.Vertices = [3]DrawVertex{a, b, c}
		tri.Normal = b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position)).Normalize()
		emit(&tri)
		emitted++
	}
	for i := 0; i < segments-1; i++ {
		put(left[i], right[i], left[i+1])
		put(right[i], right[i+1], left[i+1])
	}
	put(left[segments-1], right[segments-1], tip)
	return emitted
}

// wind returns the local rotation axis and angle that sway a blade rooted
// at world position root.
func (g *Generator) wind(root, up math.Vec3, field WindSampler) (math.Vec3, float32) {
	if field == nil || g.WindAmplitude == 0 {
		return math.Vec3{}, 0
	}
	scroll := g.Time * g.WindTimeMult
	uv := root.XZ().Scale(g.WindPosMult).Add(math.Vec2{X: scroll, Y: scroll})
	rg := field.Sample(uv.X, uv.Y)

	w := math.Vec2{X: rg[0]*2 - 1, Y: rg[1]*2 - 1}
	dir := math.Vec3{X: w.X, Z: w.Y}
	dir = dir.Sub(up.Scale(dir.Dot(up)))
	axis := up.Cross(dir).Normalize()
	if axis == (math.Vec3{}) {
		return math.Vec3{}, 0
	}
	return axis, w.Length() * g.WindAmplitude
}

// clipKeep decides whether a blade at distance dist survives distance
// clipping. Inside clip it always does; past clip+blend it never does; in
// the band the keep probability falls linearly, thresholded by the blade's
// own random r in [0, 1].
func clipKeep(dist, clip, blend, r float32) bool {
	if dist <= clip {
		return true
	}
	if blend <= 0 || dist >= clip+blend {
		return false
	}
	return r < 1-(dist-clip)/blend
}

// pcgHash is the PCG output permutation used as a stateless hash.
func pcgHash(x uint32) uint32 {
	state := x*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func unitFloat(h uint32) float32 {
	return float32(float64(h) / stdmath.MaxUint32)
}

// bladeSeed mixes the vertex index with the bits of its position, so a
// blade keeps its shape for a given source set.
func bladeSeed(index uint32, p math.Vec3) uint32 {
	h := pcgHash(stdmath.Float32bits(p.Z))
	h = pcgHash(stdmath.Float32bits(p.Y) ^ h)
	h = pcgHash(stdmath.Float32bits(p.X) ^ h)
	return pcgHash(index ^ h)
}

// bladeRandom returns the k-th random number in [0, 1] for a blade.
func bladeRandom(seed, k uint32) float32 {
	return unitFloat(pcgHash(seed + k))
}

func perpendicular(n math.Vec3) math.Vec3 {
	ref := math.Vec3{X: 1}
	if math32.Abs(n.X) > 0.9 {
		ref = math.Vec3{Z: 1}
	}
	return n.Cross(ref).Normalize()
}

// rotateAround rotates p around the unit axis k by angle radians.
func rotateAround(p, k math.Vec3, angle float32) math.Vec3 {
	c, s := math32.Cos(angle), math32.Sin(angle)
	return p.Scale(c).
		Add(k.Cross(p).Scale(s)).
		Add(k.Scale(k.Dot(p) * (1 - c)))
}

// bendAngle is the spine angle at v for a blade bent by bend radians at the
// tip. The root row is always upright, matching the compute shader.
func bendAngle(bend, v, curvature float32) float32 {
	if v <= 0 {
		return 0
	}
	return bend * math32.Pow(v, curvature)
}
