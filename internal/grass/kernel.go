package grass

import (
	"github.com/Faultbox/midgard-grass/internal/engine/gpu/soft"
)

// Binding names shared by the software kernel and grass.comp.
const (
	BindSourceVertices    = "sourceVertices"
	BindDrawTriangles     = "drawTriangles"
	BindIndirectArgs      = "indirectArgs"
	BindWindNoise         = "windNoise"
	UniformNumSource      = "numSourceVertices"
	UniformSegments       = "maxBladeSegments"
	UniformBendAngle      = "maxBendAngle"
	UniformCurvature      = "bladeCurvature"
	UniformHeight         = "bladeHeight"
	UniformHeightVariance = "bladeHeightVariance"
	UniformWidth          = "bladeWidth"
	UniformWidthVariance  = "bladeWidthVariance"
	UniformWindTimeMult   = "windTimeMult"
	UniformWindPosMult    = "windPosMult"
	UniformWindAmplitude  = "windAmplitude"
	UniformClipDistance   = "clipDistance"
	UniformClipBlend      = "clipBlend"
	UniformLocalToWorld   = "localToWorld"
	UniformTime           = "time"
	UniformCamera         = "cameraWorldPosition"
)

// SoftGroupWidth is the group width of the software generator.
const SoftGroupWidth = 64

// NewSoftProgram returns the generator for the software device.
func NewSoftProgram() *soft.Program {
	return soft.NewProgram("grass-generate", SoftGroupWidth, generatorKernel)
}

// NewSoftMaterial returns the draw material for the software device.
func NewSoftMaterial() *soft.Material {
	return soft.NewMaterial("grass-draw")
}

func generatorKernel(s *soft.Snapshot) func(id uint32) {
	g := Generator{
		Segments:       int(s.Int(UniformSegments)),
		MaxBendAngle:   s.Float(UniformBendAngle),
		Curvature:      s.Float(UniformCurvature),
		Height:         s.Float(UniformHeight),
		HeightVariance: s.Float(UniformHeightVariance),
		Width:          s.Float(UniformWidth),
		WidthVariance:  s.Float(UniformWidthVariance),
		WindPosMult:    s.Float(UniformWindPosMult),
		WindTimeMult:   s.Float(UniformWindTimeMult),
		WindAmplitude:  s.Float(UniformWindAmplitude),
		ClipDistance:   s.Float(UniformClipDistance),
		ClipBlend:      s.Float(UniformClipBlend),
		LocalToWorld:   s.Mat4(UniformLocalToWorld),
		Time:           s.Float(UniformTime),
		Camera:         s.Vec3(UniformCamera),
	}
	n := uint32(s.Int(UniformNumSource))
	source := s.Buffer(BindSourceVertices)
	triangles := s.Buffer(BindDrawTriangles)
	args := s.Buffer(BindIndirectArgs)
	wind := s.Texture(BindWindNoise)

	return func(id uint32) {
		if id >= n {
			return
		}
		var rec [DrawTriangleStride]byte
		sv := DecodeSourceVertex(source.Record(id))
		g.Blade(id, sv, wind, func(t *DrawTriangle) {
			t.Put(rec[:])
			triangles.Append(rec[:])
			args.AtomicAdd(0, 3)
		})
	}
}
