// Package glgpu implements gpu.Device on OpenGL 4.3 core.
//
// Every method must be called on the goroutine that owns the GL context.
// GL already queues commands in submission order; the device inserts the
// memory barriers that make compute writes visible to later dispatches and
// indirect draws.
package glgpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// ViewProjUniform is set on every material before it draws.
const ViewProjUniform = "uViewProj"

// Stats counts the work submitted since the last ResetStats.
type Stats struct {
	Dispatches int
	Draws      int
	Culled     int
}

// Device is an OpenGL gpu.Device.
type Device struct {
	vao      uint32
	viewProj math.Mat4
	frustum  math.Frustum
	cull     bool
	stats    Stats
}

var _ gpu.Device = (*Device)(nil)
var _ gpu.Reader = (*Device)(nil)

// New creates a device on the current context. gl.Init must have run.
func New() (*Device, error) {
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		return nil, fmt.Errorf("glgpu: OpenGL 4.3 required, context is %d.%d", major, minor)
	}

	d := &Device{viewProj: math.Identity()}
	// Procedural draws pull vertices from storage buffers, but core
	// profile still requires a bound vertex array.
	gl.GenVertexArrays(1, &d.vao)

	var flags int32
	gl.GetIntegerv(gl.CONTEXT_FLAGS, &flags)
	if flags&gl.CONTEXT_FLAG_DEBUG_BIT != 0 {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
		gl.DebugMessageCallback(debugMessage, nil)
	}

	logger.Debug("gl device created", zap.Int32("major", major), zap.Int32("minor", minor))
	return d, nil
}

// debugMessage forwards driver messages to the log at a level matching
// their severity.
func debugMessage(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
	fields := []zap.Field{
		zap.Uint32("source", source),
		zap.Uint32("type", gltype),
		zap.Uint32("id", id),
	}
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		logger.Error("gl: "+message, fields...)
	case gl.DEBUG_SEVERITY_MEDIUM:
		logger.Warn("gl: "+message, fields...)
	default:
		logger.Debug("gl: "+message, fields...)
	}
}

// Name implements gpu.Device.
func (d *Device) Name() string {
	return "gl"
}

// Close releases device-owned objects.
func (d *Device) Close() {
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}

// SetViewProjection sets the matrix materials draw with and enables frustum
// culling of draw bounds against it.
func (d *Device) SetViewProjection(m math.Mat4) {
	d.viewProj = m
	d.frustum = math.FrustumFromMatrix(m)
	d.cull = true
}

// Stats returns the counters since the last ResetStats.
func (d *Device) Stats() Stats {
	return d.stats
}

// ResetStats zeroes the counters.
func (d *Device) ResetStats() {
	d.stats = Stats{}
}

// NewBuffer implements gpu.Device.
func (d *Device) NewBuffer(typ gpu.BufferType, count, stride int) (gpu.Buffer, error) {
	if count <= 0 || stride <= 0 {
		return nil, fmt.Errorf("%w: count=%d stride=%d", gpu.ErrInvalidBuffer, count, stride)
	}
	if typ == gpu.BufferIndirectArgs && stride%4 != 0 {
		return nil, fmt.Errorf("%w: indirect args stride %d is not a multiple of 4", gpu.ErrInvalidBuffer, stride)
	}
	return newBuffer(d, typ, count, stride), nil
}

// NewTexture implements gpu.Device.
func (d *Device) NewTexture(img *image.RGBA) (gpu.Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("glgpu: empty texture image")
	}
	return newTexture(d, img), nil
}

// BindProgram implements gpu.Device.
func (d *Device) BindProgram(p gpu.Program) (gpu.ComputeBinding, error) {
	prog, ok := p.(*Program)
	if !ok {
		return nil, fmt.Errorf("glgpu: program %q was not created for the GL device", p.Name())
	}
	return newComputeBinding(d, prog), nil
}

// BindMaterial implements gpu.Device.
func (d *Device) BindMaterial(m gpu.Material) (gpu.MaterialBinding, error) {
	mat, ok := m.(*Material)
	if !ok {
		return nil, fmt.Errorf("glgpu: material %q was not created for the GL device", m.Name())
	}
	return newMaterialBinding(d, mat), nil
}

// WriteBuffer implements gpu.Device.
func (d *Device) WriteBuffer(b gpu.Buffer, data []byte) {
	buf := d.buffer(b)
	if len(data) == 0 {
		return
	}
	if len(data) > buf.size() {
		panic(fmt.Sprintf("glgpu: write of %d bytes to %d-byte buffer", len(data), buf.size()))
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.id)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
}

// SetCounterValue implements gpu.Device.
func (d *Device) SetCounterValue(b gpu.Buffer, v uint32) {
	buf := d.buffer(b)
	if buf.typ != gpu.BufferAppend {
		panic(fmt.Sprintf("glgpu: SetCounterValue on %s buffer", buf.typ))
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.counter)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, 4, unsafe.Pointer(&v))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
}

// Dispatch implements gpu.Device.
func (d *Device) Dispatch(cb gpu.ComputeBinding, groups int) {
	binding := d.computeBinding(cb)
	if groups <= 0 {
		return
	}
	binding.apply()
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.COMMAND_BARRIER_BIT)
	gl.UseProgram(0)
	d.stats.Dispatches++
}

// DrawProceduralIndirect implements gpu.Device. Draws whose bounds fall
// outside the current view are skipped. There is no shadow pass, so
// params.CastShadows has no effect.
func (d *Device) DrawProceduralIndirect(mb gpu.MaterialBinding, args gpu.Buffer, params gpu.DrawParams) {
	binding := d.materialBinding(mb)
	argBuf := d.buffer(args)
	if argBuf.typ != gpu.BufferIndirectArgs {
		panic(fmt.Sprintf("glgpu: indirect draw with %s buffer", argBuf.typ))
	}
	if d.cull && !params.Bounds.IsEmpty() && !d.frustum.IntersectsAABB(params.Bounds) {
		d.stats.Culled++
		return
	}

	binding.apply(d.viewProj)
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, argBuf.id)
	gl.DrawArraysIndirect(gl.TRIANGLES, nil)
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, 0)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	d.stats.Draws++
}

// ReadBuffer implements gpu.Reader.
func (d *Device) ReadBuffer(b gpu.Buffer) ([]byte, error) {
	buf := d.buffer(b)
	if buf.released {
		return nil, fmt.Errorf("glgpu: read of released buffer %d", buf.id)
	}
	out := make([]byte, buf.size())
	gl.MemoryBarrier(gl.BUFFER_UPDATE_BARRIER_BIT)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.id)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(out), gl.Ptr(out))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return out, nil
}

// ReadCounter implements gpu.Reader.
func (d *Device) ReadCounter(b gpu.Buffer) (uint32, error) {
	buf := d.buffer(b)
	if buf.typ != gpu.BufferAppend {
		return 0, fmt.Errorf("glgpu: %s buffer has no counter", buf.typ)
	}
	var v uint32
	gl.MemoryBarrier(gl.BUFFER_UPDATE_BARRIER_BIT)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.counter)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, 4, unsafe.Pointer(&v))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return v, nil
}

func (d *Device) buffer(b gpu.Buffer) *Buffer {
	buf, ok := b.(*Buffer)
	if !ok || buf.dev != d {
		panic("glgpu: buffer belongs to another device")
	}
	return buf
}

func (d *Device) computeBinding(cb gpu.ComputeBinding) *ComputeBinding {
	b, ok := cb.(*ComputeBinding)
	if !ok || b.dev != d {
		panic("glgpu: compute binding belongs to another device")
	}
	return b
}

func (d *Device) materialBinding(mb gpu.MaterialBinding) *MaterialBinding {
	b, ok := mb.(*MaterialBinding)
	if !ok || b.dev != d {
		panic("glgpu: material binding belongs to another device")
	}
	return b
}
