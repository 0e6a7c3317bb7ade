package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/engine/shader"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// CounterSuffix names the storage block that holds an append buffer's
// cursor: a buffer bound as "tris" exposes its cursor as "trisCounter".
const CounterSuffix = "Counter"

// Program is a linked compute program.
type Program struct {
	name       string
	id         uint32
	groupWidth int
	locations  *locationCache
}

var _ gpu.Program = (*Program)(nil)

// NewProgram compiles a compute shader. The group width is the declared
// local_size_x.
func NewProgram(name, src string) (*Program, error) {
	id, err := shader.CompileCompute(src)
	if err != nil {
		return nil, fmt.Errorf("glgpu: program %q: %w", name, err)
	}
	size := shader.WorkGroupSize(id)
	logger.Debug("compute program linked", zap.String("program", name), zap.Int32("group_width", size[0]))
	return &Program{name: name, id: id, groupWidth: int(size[0]), locations: newLocationCache(id)}, nil
}

// Name implements gpu.Program.
func (p *Program) Name() string { return p.name }

// GroupWidth implements gpu.Program.
func (p *Program) GroupWidth() int { return p.groupWidth }

// Delete frees the program. Bindings must not be dispatched afterwards.
func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
}

// Material is a linked vertex and fragment program drawing from storage
// buffers. Its uniforms are shared by every binding.
type Material struct {
	name      string
	id        uint32
	locations *locationCache
	uniforms  uniforms
}

var _ gpu.Material = (*Material)(nil)

// NewMaterial compiles a material.
func NewMaterial(name, vertexSrc, fragmentSrc string) (*Material, error) {
	id, err := shader.CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("glgpu: material %q: %w", name, err)
	}
	return &Material{name: name, id: id, locations: newLocationCache(id), uniforms: newUniforms()}, nil
}

// Name implements gpu.Material.
func (m *Material) Name() string { return m.name }

// SetVec3 sets a vec3 uniform used by every draw of the material.
func (m *Material) SetVec3(name string, v math.Vec3) {
	m.uniforms.vec3s[name] = v
}

// SetFloat sets a float uniform used by every draw of the material.
func (m *Material) SetFloat(name string, v float32) {
	m.uniforms.floats[name] = v
}

// Delete frees the program.
func (m *Material) Delete() {
	gl.DeleteProgram(m.id)
}

// locationCache resolves names once per program.
type locationCache struct {
	program  uint32
	uniforms map[string]int32
	blocks   map[string]int32
}

func newLocationCache(program uint32) *locationCache {
	return &locationCache{
		program:  program,
		uniforms: make(map[string]int32),
		blocks:   make(map[string]int32),
	}
}

func (c *locationCache) uniform(name string) int32 {
	loc, ok := c.uniforms[name]
	if !ok {
		loc = shader.GetUniform(c.program, name)
		c.uniforms[name] = loc
	}
	return loc
}

func (c *locationCache) block(name string) int32 {
	b, ok := c.blocks[name]
	if !ok {
		b = shader.StorageBlockBinding(c.program, name)
		if b < 0 {
			logger.Warn("storage block not found", zap.String("block", name))
		}
		c.blocks[name] = b
	}
	return b
}

type uniforms struct {
	ints   map[string]int32
	floats map[string]float32
	vec3s  map[string]math.Vec3
	mat4s  map[string]math.Mat4
}

func newUniforms() uniforms {
	return uniforms{
		ints:   make(map[string]int32),
		floats: make(map[string]float32),
		vec3s:  make(map[string]math.Vec3),
		mat4s:  make(map[string]math.Mat4),
	}
}

// apply uploads every value to the program in use. Inactive uniforms
// resolve to -1, which GL ignores.
func (u *uniforms) apply(c *locationCache) {
	for name, v := range u.ints {
		gl.Uniform1i(c.uniform(name), v)
	}
	for name, v := range u.floats {
		gl.Uniform1f(c.uniform(name), v)
	}
	for name, v := range u.vec3s {
		gl.Uniform3f(c.uniform(name), v.X, v.Y, v.Z)
	}
	for name, m := range u.mat4s {
		gl.UniformMatrix4fv(c.uniform(name), 1, false, m.Ptr())
	}
}

func bindStorage(c *locationCache, buffers map[string]*Buffer) {
	for name, b := range buffers {
		if slot := c.block(name); slot >= 0 {
			gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(slot), b.id)
		}
		if b.typ == gpu.BufferAppend {
			if slot := c.block(name + CounterSuffix); slot >= 0 {
				gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(slot), b.counter)
			}
		}
	}
}

// ComputeBinding is a GL gpu.ComputeBinding. Values are uploaded right
// before each dispatch, so a dispatch always runs with what was set at
// submission.
type ComputeBinding struct {
	dev      *Device
	program  *Program
	buffers  map[string]*Buffer
	textures map[string]*Texture
	values   uniforms
	released bool
}

var _ gpu.ComputeBinding = (*ComputeBinding)(nil)

func newComputeBinding(d *Device, p *Program) *ComputeBinding {
	return &ComputeBinding{
		dev:      d,
		program:  p,
		buffers:  make(map[string]*Buffer),
		textures: make(map[string]*Texture),
		values:   newUniforms(),
	}
}

// SetBuffer implements gpu.ComputeBinding.
func (c *ComputeBinding) SetBuffer(name string, b gpu.Buffer) {
	c.buffers[name] = c.dev.buffer(b)
}

// SetTexture implements gpu.ComputeBinding.
func (c *ComputeBinding) SetTexture(name string, t gpu.Texture) {
	tex, ok := t.(*Texture)
	if !ok {
		panic("glgpu: texture belongs to another device")
	}
	c.textures[name] = tex
}

// SetInt implements gpu.ComputeBinding.
func (c *ComputeBinding) SetInt(name string, v int32) { c.values.ints[name] = v }

// SetFloat implements gpu.ComputeBinding.
func (c *ComputeBinding) SetFloat(name string, v float32) { c.values.floats[name] = v }

// SetVec3 implements gpu.ComputeBinding.
func (c *ComputeBinding) SetVec3(name string, v math.Vec3) { c.values.vec3s[name] = v }

// SetMat4 implements gpu.ComputeBinding.
func (c *ComputeBinding) SetMat4(name string, m math.Mat4) { c.values.mat4s[name] = m }

// Release implements gpu.ComputeBinding. The shared program is untouched.
func (c *ComputeBinding) Release() {
	if c.released {
		return
	}
	c.released = true
	clear(c.buffers)
	clear(c.textures)
}

func (c *ComputeBinding) apply() {
	if c.released {
		panic("glgpu: dispatch with released binding")
	}
	loc := c.program.locations
	gl.UseProgram(c.program.id)
	bindStorage(loc, c.buffers)

	unit := int32(0)
	for name, t := range c.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, t.id)
		gl.Uniform1i(loc.uniform(name), unit)
		unit++
	}
	c.values.apply(loc)
}

// MaterialBinding is a GL gpu.MaterialBinding.
type MaterialBinding struct {
	dev      *Device
	material *Material
	buffers  map[string]*Buffer
	released bool
}

var _ gpu.MaterialBinding = (*MaterialBinding)(nil)

func newMaterialBinding(d *Device, m *Material) *MaterialBinding {
	return &MaterialBinding{dev: d, material: m, buffers: make(map[string]*Buffer)}
}

// SetBuffer implements gpu.MaterialBinding.
func (m *MaterialBinding) SetBuffer(name string, b gpu.Buffer) {
	m.buffers[name] = m.dev.buffer(b)
}

// Release implements gpu.MaterialBinding.
func (m *MaterialBinding) Release() {
	if m.released {
		return
	}
	m.released = true
	clear(m.buffers)
}

func (m *MaterialBinding) apply(viewProj math.Mat4) {
	if m.released {
		panic("glgpu: draw with released binding")
	}
	loc := m.material.locations
	gl.UseProgram(m.material.id)
	bindStorage(loc, m.buffers)
	m.material.uniforms.apply(loc)
	gl.UniformMatrix4fv(loc.uniform(ViewProjUniform), 1, false, &viewProj[0])
}
