// Package grass generates and draws blades of grass on the GPU.
//
// A Pipeline owns the device buffers for one grass patch. Every frame it
// clears the output buffer, runs the generator over the source vertices and
// issues one indirect draw whose vertex count the generator filled in, all
// without reading anything back to the host.
package grass

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// State is the lifecycle state of a Pipeline.
type State int

const (
	// Uninitialized holds no device resources.
	Uninitialized State = iota
	// Active holds device resources and draws every frame.
	Active
	// Invalid is entered when activation hits a configuration problem.
	// Nothing is drawn until a later activation succeeds.
	Invalid
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithName names the pipeline in log output.
func WithName(name string) Option {
	return func(p *Pipeline) { p.name = name }
}

// WithVertices seeds the source vertex list.
func WithVertices(vs []SourceVertex) Option {
	return func(p *Pipeline) { p.store.Add(vs) }
}

// Pipeline is the per-patch orchestrator. It is not safe for concurrent
// use; one goroutine submits every frame.
type Pipeline struct {
	name     string
	dev      gpu.Device
	program  gpu.Program
	material gpu.Material
	settings Settings

	store  SourceVertexStore
	bounds BoundsTracker

	state State
	err   error

	// version counts configuration changes; applied is the version the
	// last activation saw.
	version uint64
	applied uint64

	res         resources
	capacity    int
	groups      int
	worldBounds math.AABB
}

// resources are the device objects owned by one activation.
type resources struct {
	source    gpu.Buffer
	triangles gpu.Buffer
	args      gpu.Buffer
	noise     gpu.Texture
	compute   gpu.ComputeBinding
	draw      gpu.MaterialBinding
}

// New creates an uninitialized pipeline. program and material are shared
// and never modified; the pipeline binds its own resources to them.
func New(dev gpu.Device, program gpu.Program, material gpu.Material, settings Settings, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:     "grass",
		dev:      dev,
		program:  program,
		material: material,
		settings: settings,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the lifecycle state.
func (p *Pipeline) State() State { return p.state }

// Err returns the problem that made the last activation fail, if any.
func (p *Pipeline) Err() error { return p.err }

// Settings returns a copy of the current settings.
func (p *Pipeline) Settings() Settings { return p.settings }

// Capacity returns the output buffer size in triangles, or 0 when inactive.
func (p *Pipeline) Capacity() int { return p.capacity }

// DispatchGroups returns the group count used for every dispatch, or 0 when
// inactive.
func (p *Pipeline) DispatchGroups() int { return p.groups }

// LocalBounds returns the local box of the last activation.
func (p *Pipeline) LocalBounds() (math.AABB, bool) { return p.bounds.Local() }

// WorldBounds returns the culling box of the most recent frame.
func (p *Pipeline) WorldBounds() math.AABB { return p.worldBounds }

// Vertices returns a copy of the source vertices.
func (p *Pipeline) Vertices() []SourceVertex { return p.store.Vertices() }

// HasIssues reports whether a required binding is missing or the settings
// are unusable.
func (p *Pipeline) HasIssues() bool {
	return p.checkBindings() != nil || p.settings.Validate() != nil
}

// AddVertices appends source vertices. They take effect on the next frame.
func (p *Pipeline) AddVertices(vs []SourceVertex) {
	p.store.Add(vs)
	p.version++
}

// RemoveVertices removes source vertices by value.
func (p *Pipeline) RemoveVertices(vs []SourceVertex) {
	p.store.Remove(vs)
	p.version++
}

// ResetVertices removes every source vertex.
func (p *Pipeline) ResetVertices() {
	p.store.Reset()
	p.version++
}

// SetSettings replaces the settings.
func (p *Pipeline) SetSettings(s Settings) {
	p.settings = s
	p.version++
}

// SetProgram replaces the generator program.
func (p *Pipeline) SetProgram(prog gpu.Program) {
	p.program = prog
	p.version++
}

// SetMaterial replaces the draw material.
func (p *Pipeline) SetMaterial(m gpu.Material) {
	p.material = m
	p.version++
}

func (p *Pipeline) checkBindings() error {
	switch {
	case p.program == nil:
		return ErrMissingProgram
	case p.material == nil:
		return ErrMissingMaterial
	case p.settings.Wind.Noise == nil:
		return ErrMissingNoise
	}
	return nil
}

// Activate allocates device resources for the current configuration. An
// active pipeline is torn down first. Configuration problems put the
// pipeline in Invalid and are reported through Err; nothing is returned.
func (p *Pipeline) Activate() {
	p.Deactivate()
	p.applied = p.version

	if err := p.activate(); err != nil {
		p.releaseResources()
		p.state = Invalid
		p.err = err
		logger.Warn("grass pipeline invalid",
			zap.String("patch", p.name),
			zap.Error(err),
		)
		return
	}

	p.state = Active
	p.err = nil
	logger.Debug("grass pipeline active",
		zap.String("patch", p.name),
		zap.Int("vertices", p.store.Len()),
		zap.Int("capacity", p.capacity),
		zap.Int("groups", p.groups),
	)
}

func (p *Pipeline) activate() error {
	if err := p.checkBindings(); err != nil {
		return err
	}
	if err := p.settings.Validate(); err != nil {
		return err
	}
	if p.store.Len() == 0 {
		return ErrNoVertices
	}

	source, err := p.store.Upload(p.dev)
	if err != nil {
		return err
	}
	p.res.source = source

	n := p.store.Len()
	capacity := Capacity(n, p.settings.Form.MaxSegments)
	p.res.triangles, err = p.dev.NewBuffer(gpu.BufferAppend, capacity, DrawTriangleStride)
	if err != nil {
		return fmt.Errorf("allocate draw triangles: %w", err)
	}
	p.res.args, err = p.dev.NewBuffer(gpu.BufferIndirectArgs, 1, IndirectArgsStride)
	if err != nil {
		return fmt.Errorf("allocate indirect args: %w", err)
	}
	p.res.noise, err = p.dev.NewTexture(p.settings.Wind.Noise.Image)
	if err != nil {
		return fmt.Errorf("upload wind noise %s: %w", p.settings.Wind.Noise.Name, err)
	}

	p.res.compute, err = p.dev.BindProgram(p.program)
	if err != nil {
		return fmt.Errorf("bind generator: %w", err)
	}
	p.res.draw, err = p.dev.BindMaterial(p.material)
	if err != nil {
		return fmt.Errorf("bind material: %w", err)
	}

	cb := p.res.compute
	cb.SetBuffer(BindSourceVertices, p.res.source)
	cb.SetBuffer(BindDrawTriangles, p.res.triangles)
	cb.SetBuffer(BindIndirectArgs, p.res.args)
	cb.SetTexture(BindWindNoise, p.res.noise)
	cb.SetInt(UniformNumSource, int32(n))

	form, wind, lod := &p.settings.Form, &p.settings.Wind, &p.settings.LOD
	cb.SetInt(UniformSegments, int32(form.MaxSegments))
	cb.SetFloat(UniformBendAngle, form.MaxBendAngle)
	cb.SetFloat(UniformCurvature, form.Curvature)
	cb.SetFloat(UniformHeight, form.Height)
	cb.SetFloat(UniformHeightVariance, form.HeightVariance)
	cb.SetFloat(UniformWidth, form.Width)
	cb.SetFloat(UniformWidthVariance, form.WidthVariance)
	cb.SetFloat(UniformWindTimeMult, wind.TimeMult)
	cb.SetFloat(UniformWindPosMult, wind.PosMult)
	cb.SetFloat(UniformWindAmplitude, wind.Amplitude)
	cb.SetFloat(UniformClipDistance, lod.ClipDistance)
	cb.SetFloat(UniformClipBlend, lod.ClipBlend)

	p.res.draw.SetBuffer(BindDrawTriangles, p.res.triangles)

	p.capacity = capacity
	p.groups = gpu.DispatchGroups(n, p.program.GroupWidth())
	p.bounds.Recompute(p.store.vertices, p.settings.Margin())
	return nil
}

// Deactivate releases every device resource. It is safe in any state and
// any number of times.
func (p *Pipeline) Deactivate() {
	if p.state == Uninitialized {
		return
	}
	p.releaseResources()
	p.state = Uninitialized
	p.err = nil
	logger.Debug("grass pipeline released", zap.String("patch", p.name))
}

func (p *Pipeline) releaseResources() {
	r := &p.res
	if r.compute != nil {
		r.compute.Release()
	}
	if r.draw != nil {
		r.draw.Release()
	}
	if r.noise != nil {
		r.noise.Release()
	}
	for _, b := range []gpu.Buffer{r.source, r.triangles, r.args} {
		if b != nil {
			b.Release()
		}
	}
	p.res = resources{}
	p.capacity = 0
	p.groups = 0
	p.bounds = BoundsTracker{}
}

// FrameStep submits one frame: reset, generate, draw. If the configuration
// changed since the last activation, the pipeline is re-activated first.
// It does nothing unless the pipeline is active.
func (p *Pipeline) FrameStep(camera math.Vec3, time float32, t Transform) {
	if p.state != Uninitialized && p.version != p.applied {
		p.Activate()
	}
	if p.state != Active || p.store.Len() == 0 {
		return
	}

	// 1. Clear the append cursor and the draw arguments.
	p.dev.SetCounterValue(p.res.triangles, 0)
	p.dev.WriteBuffer(p.res.args, ResetArgs.Marshal())

	// 2. Culling volume.
	p.worldBounds = p.bounds.ToWorld(t)

	// 3. Per-frame inputs.
	if cam := p.settings.LOD.OverrideCamera; cam != nil {
		camera = *cam
	}
	cb := p.res.compute
	cb.SetVec3(UniformCamera, camera)
	cb.SetFloat(UniformTime, time)
	cb.SetMat4(UniformLocalToWorld, t.Matrix())

	// 4. Generate.
	p.dev.Dispatch(cb, p.groups)

	// 5. Draw whatever was generated.
	p.dev.DrawProceduralIndirect(p.res.draw, p.res.args, gpu.DrawParams{
		Bounds:      p.worldBounds,
		CastShadows: false,
	})
}

// Buffers exposes the output and argument buffers of the active pipeline,
// for tools that read them back. Both are nil when inactive.
func (p *Pipeline) Buffers() (triangles, args gpu.Buffer) {
	return p.res.triangles, p.res.args
}
