package viewer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/config"
	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/engine/gpu/glgpu"
	"github.com/Faultbox/midgard-grass/internal/engine/gpu/soft"
	"github.com/Faultbox/midgard-grass/internal/engine/renderer"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/internal/grass/shaders"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Blade colors at the root and the tip.
var (
	baseColor = math.Vec3{X: 0.16, Y: 0.34, Z: 0.08}
	tipColor  = math.Vec3{X: 0.62, Y: 0.78, Z: 0.32}
)

// backend owns the device the grass pipeline runs on.
type backend interface {
	Device() gpu.Device
	Program() gpu.Program
	Material() gpu.Material
	// BeginFrame runs before the pipeline submits.
	BeginFrame(viewProj math.Mat4)
	// EndFrame runs after the pipeline submits and before the frame is
	// presented.
	EndFrame(r *renderer.Renderer, viewProj math.Mat4, p *grass.Pipeline)
	Status() string
	Close()
}

func newBackend(name string, lightDir math.Vec3) (backend, error) {
	switch name {
	case config.BackendGL, "":
		return newGLBackend(lightDir)
	case config.BackendSoft:
		return newSoftBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", name, config.BackendGL, config.BackendSoft)
	}
}

// glBackend generates and draws on the GPU.
type glBackend struct {
	dev      *glgpu.Device
	program  *glgpu.Program
	material *glgpu.Material
}

func newGLBackend(lightDir math.Vec3) (*glBackend, error) {
	dev, err := glgpu.New()
	if err != nil {
		return nil, err
	}
	program, err := glgpu.NewProgram("grass-generate", shaders.GenerateComputeShader)
	if err != nil {
		dev.Close()
		return nil, err
	}
	material, err := glgpu.NewMaterial("grass-draw", shaders.GrassVertexShader, shaders.GrassFragmentShader)
	if err != nil {
		program.Delete()
		dev.Close()
		return nil, err
	}
	material.SetVec3("uBaseColor", baseColor)
	material.SetVec3("uTipColor", tipColor)
	material.SetVec3("uLightDir", lightDir)

	return &glBackend{dev: dev, program: program, material: material}, nil
}

func (b *glBackend) Device() gpu.Device     { return b.dev }
func (b *glBackend) Program() gpu.Program   { return b.program }
func (b *glBackend) Material() gpu.Material { return b.material }

func (b *glBackend) BeginFrame(viewProj math.Mat4) {
	b.dev.ResetStats()
	b.dev.SetViewProjection(viewProj)
}

func (b *glBackend) EndFrame(*renderer.Renderer, math.Mat4, *grass.Pipeline) {}

func (b *glBackend) Status() string {
	s := b.dev.Stats()
	return fmt.Sprintf("gl, %d draws, %d culled", s.Draws, s.Culled)
}

func (b *glBackend) Close() {
	b.material.Delete()
	b.program.Delete()
	b.dev.Close()
}

// softBackend generates on the CPU and streams the result to the renderer.
type softBackend struct {
	dev       *soft.Device
	program   *soft.Program
	material  *soft.Material
	vertices  []terrain.Vertex
	triangles int
	culled    bool
}

func newSoftBackend() *softBackend {
	return &softBackend{
		dev:      soft.New(soft.Options{}),
		program:  grass.NewSoftProgram(),
		material: grass.NewSoftMaterial(),
	}
}

func (b *softBackend) Device() gpu.Device     { return b.dev }
func (b *softBackend) Program() gpu.Program   { return b.program }
func (b *softBackend) Material() gpu.Material { return b.material }

func (b *softBackend) BeginFrame(math.Mat4) {
	b.dev.ClearDraws()
}

func (b *softBackend) EndFrame(r *renderer.Renderer, viewProj math.Mat4, p *grass.Pipeline) {
	b.triangles = 0
	tris, _ := p.Buffers()
	if tris == nil || p.State() != grass.Active {
		return
	}
	b.culled = !math.FrustumFromMatrix(viewProj).IntersectsAABB(p.WorldBounds())
	if b.culled {
		return
	}

	decoded, err := drawnTriangles(b.dev, tris)
	if err != nil {
		logger.Warn("read frame triangles", zap.Error(err))
		return
	}

	b.vertices = appendBladeVertices(b.vertices[:0], decoded)
	b.triangles = len(decoded)
	r.DrawVertices(viewProj, b.vertices)
}

func (b *softBackend) Status() string {
	if b.culled {
		return "soft, culled"
	}
	return fmt.Sprintf("soft, %d triangles", b.triangles)
}

func (b *softBackend) Close() {
	b.dev.Close()
}

// drawnTriangles returns the triangles covered by the device's last
// indirect draw. The count comes from the resolved draw arguments, as it
// would on the GPU, not from the append counter.
func drawnTriangles(dev *soft.Device, tris gpu.Buffer) ([]grass.DrawTriangle, error) {
	// The read fences the queue, so the frame's draw has been recorded.
	raw, err := dev.ReadBuffer(tris)
	if err != nil {
		return nil, err
	}
	draw, ok := dev.LastDraw()
	if !ok || draw.InstanceCount == 0 {
		return nil, nil
	}
	return grass.DecodeDrawTriangles(raw, int(draw.VertexCount/3))
}

// appendBladeVertices flattens generated triangles into lit vertices, shaded
// root to tip like the GPU material.
func appendBladeVertices(dst []terrain.Vertex, tris []grass.DrawTriangle) []terrain.Vertex {
	for _, t := range tris {
		n := t.Normal.Array()
		for _, v := range t.Vertices {
			c := baseColor.Scale(1 - v.Height).Add(tipColor.Scale(v.Height))
			dst = append(dst, terrain.Vertex{
				Position: v.Position.Array(),
				Normal:   n,
				Color:    [4]float32{c.X, c.Y, c.Z, 1},
			})
		}
	}
	return dst
}
