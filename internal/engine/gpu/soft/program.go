package soft

import (
	"fmt"
	"maps"
	"sync"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Kernel prepares one dispatch from the values bound at submission and
// returns the function run for every invocation id. Ids run from 0 to
// groups*GroupWidth-1; kernels bound-check them the way device code does.
type Kernel func(s *Snapshot) func(id uint32)

// Program is a software compute program.
type Program struct {
	name       string
	groupWidth int
	kernel     Kernel
}

var _ gpu.Program = (*Program)(nil)

// NewProgram wraps a kernel. A groupWidth of zero selects DefaultGroupWidth.
func NewProgram(name string, groupWidth int, kernel Kernel) *Program {
	if groupWidth <= 0 {
		groupWidth = DefaultGroupWidth
	}
	return &Program{name: name, groupWidth: groupWidth, kernel: kernel}
}

// Name implements gpu.Program.
func (p *Program) Name() string { return p.name }

// GroupWidth implements gpu.Program.
func (p *Program) GroupWidth() int { return p.groupWidth }

// Material is a software shading program. It only names the draw.
type Material struct {
	name string
}

var _ gpu.Material = (*Material)(nil)

// NewMaterial creates a software material.
func NewMaterial(name string) *Material {
	return &Material{name: name}
}

// Name implements gpu.Material.
func (m *Material) Name() string { return m.name }

// Snapshot is the set of resources and values a dispatch was submitted with.
type Snapshot struct {
	buffers  map[string]*Buffer
	textures map[string]*Texture
	ints     map[string]int32
	floats   map[string]float32
	vec3s    map[string]math.Vec3
	mat4s    map[string]math.Mat4
}

// Buffer returns the buffer bound under name. Missing bindings panic, as a
// device would fault on an unbound resource.
func (s *Snapshot) Buffer(name string) *Buffer {
	b, ok := s.buffers[name]
	if !ok {
		panic(fmt.Sprintf("soft: no buffer bound to %q", name))
	}
	return b
}

// Texture returns the texture bound under name.
func (s *Snapshot) Texture(name string) *Texture {
	t, ok := s.textures[name]
	if !ok {
		panic(fmt.Sprintf("soft: no texture bound to %q", name))
	}
	return t
}

// Int returns an int uniform; unset uniforms read as zero.
func (s *Snapshot) Int(name string) int32 { return s.ints[name] }

// Float returns a float uniform.
func (s *Snapshot) Float(name string) float32 { return s.floats[name] }

// Vec3 returns a vec3 uniform.
func (s *Snapshot) Vec3(name string) math.Vec3 { return s.vec3s[name] }

// Mat4 returns a mat4 uniform. Unset matrices read as identity.
func (s *Snapshot) Mat4(name string) math.Mat4 {
	if m, ok := s.mat4s[name]; ok {
		return m
	}
	return math.Identity()
}

// ComputeBinding is a software gpu.ComputeBinding.
type ComputeBinding struct {
	dev     *Device
	program *Program

	mu       sync.Mutex
	state    Snapshot
	released bool
}

var _ gpu.ComputeBinding = (*ComputeBinding)(nil)

func newComputeBinding(d *Device, p *Program) *ComputeBinding {
	return &ComputeBinding{
		dev:     d,
		program: p,
		state: Snapshot{
			buffers:  make(map[string]*Buffer),
			textures: make(map[string]*Texture),
			ints:     make(map[string]int32),
			floats:   make(map[string]float32),
			vec3s:    make(map[string]math.Vec3),
			mat4s:    make(map[string]math.Mat4),
		},
	}
}

// SetBuffer implements gpu.ComputeBinding.
func (c *ComputeBinding) SetBuffer(name string, b gpu.Buffer) {
	buf := c.dev.buffer(b)
	c.mu.Lock()
	c.state.buffers[name] = buf
	c.mu.Unlock()
}

// SetTexture implements gpu.ComputeBinding.
func (c *ComputeBinding) SetTexture(name string, t gpu.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex.dev != c.dev {
		panic("soft: texture belongs to another device")
	}
	c.mu.Lock()
	c.state.textures[name] = tex
	c.mu.Unlock()
}

// SetInt implements gpu.ComputeBinding.
func (c *ComputeBinding) SetInt(name string, v int32) {
	c.mu.Lock()
	c.state.ints[name] = v
	c.mu.Unlock()
}

// SetFloat implements gpu.ComputeBinding.
func (c *ComputeBinding) SetFloat(name string, v float32) {
	c.mu.Lock()
	c.state.floats[name] = v
	c.mu.Unlock()
}

// SetVec3 implements gpu.ComputeBinding.
func (c *ComputeBinding) SetVec3(name string, v math.Vec3) {
	c.mu.Lock()
	c.state.vec3s[name] = v
	c.mu.Unlock()
}

// SetMat4 implements gpu.ComputeBinding.
func (c *ComputeBinding) SetMat4(name string, m math.Mat4) {
	c.mu.Lock()
	c.state.mat4s[name] = m
	c.mu.Unlock()
}

// Release implements gpu.ComputeBinding. Only the binding set is dropped;
// the shared program is untouched.
func (c *ComputeBinding) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	clear(c.state.buffers)
	clear(c.state.textures)
}

func (c *ComputeBinding) snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		panic("soft: dispatch with released binding")
	}
	return &Snapshot{
		buffers:  maps.Clone(c.state.buffers),
		textures: maps.Clone(c.state.textures),
		ints:     maps.Clone(c.state.ints),
		floats:   maps.Clone(c.state.floats),
		vec3s:    maps.Clone(c.state.vec3s),
		mat4s:    maps.Clone(c.state.mat4s),
	}
}

// MaterialBinding is a software gpu.MaterialBinding.
type MaterialBinding struct {
	dev      *Device
	material *Material

	mu       sync.Mutex
	buffers  map[string]*Buffer
	released bool
}

var _ gpu.MaterialBinding = (*MaterialBinding)(nil)

func newMaterialBinding(d *Device, m *Material) *MaterialBinding {
	return &MaterialBinding{dev: d, material: m, buffers: make(map[string]*Buffer)}
}

// SetBuffer implements gpu.MaterialBinding.
func (m *MaterialBinding) SetBuffer(name string, b gpu.Buffer) {
	buf := m.dev.buffer(b)
	m.mu.Lock()
	m.buffers[name] = buf
	m.mu.Unlock()
}

// Release implements gpu.MaterialBinding.
func (m *MaterialBinding) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	clear(m.buffers)
}

func (m *MaterialBinding) bufferIDs() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]uint64, len(m.buffers))
	for name, b := range m.buffers {
		ids[name] = b.id
	}
	return ids
}
