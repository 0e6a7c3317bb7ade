// Package gpu defines the device abstraction that GPU-driven renderers submit
// commands to. Backends live in subpackages: soft (parallel CPU execution,
// used headless and in tests) and glgpu (OpenGL 4.3 core).
//
// Commands are submitted from one goroutine and execute in submission order.
// A command that writes a resource is complete, from the point of view of any
// later command, before that later command reads it. None of the submission
// methods wait for the device.
package gpu

import (
	"errors"
	"image"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// BufferType selects how a device buffer is used.
type BufferType int

const (
	// BufferStructured is a read-only array of fixed-stride records.
	BufferStructured BufferType = iota
	// BufferAppend is a record array with an atomic write cursor.
	BufferAppend
	// BufferIndirectArgs holds draw arguments read by an indirect draw.
	BufferIndirectArgs
)

func (t BufferType) String() string {
	switch t {
	case BufferStructured:
		return "structured"
	case BufferAppend:
		return "append"
	case BufferIndirectArgs:
		return "indirect-args"
	default:
		return "unknown"
	}
}

// ErrInvalidBuffer is returned when a buffer is requested with a
// non-positive count or stride.
var ErrInvalidBuffer = errors.New("gpu: buffer count and stride must be positive")

// Buffer is a device allocation of Count records of Stride bytes.
// Release is idempotent.
type Buffer interface {
	Type() BufferType
	Count() int
	Stride() int
	Release()
}

// Texture is a 2D RGBA8 device texture. Release is idempotent.
type Texture interface {
	Width() int
	Height() int
	Release()
}

// Program is a compute program shared between any number of bindings.
// It is immutable once created.
type Program interface {
	Name() string
	// GroupWidth is the number of invocations per dispatched group.
	GroupWidth() int
}

// Material is a shading program that draws procedural geometry.
// Like Program, it is shared and immutable.
type Material interface {
	Name() string
}

// ComputeBinding is one owner's set of resources and uniform values bound
// to a shared Program. Values are captured when a dispatch is submitted, so
// changing them afterwards never affects work already in flight.
type ComputeBinding interface {
	SetBuffer(name string, b Buffer)
	SetTexture(name string, t Texture)
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetVec3(name string, v math.Vec3)
	SetMat4(name string, m math.Mat4)
	Release()
}

// MaterialBinding is one owner's set of buffers bound to a shared Material.
type MaterialBinding interface {
	SetBuffer(name string, b Buffer)
	Release()
}

// DrawParams describes a procedural indirect draw.
type DrawParams struct {
	// Bounds is the world-space culling volume of everything the draw emits.
	Bounds math.AABB
	// CastShadows enables the shadow pass for this draw.
	CastShadows bool
}

// Device creates resources and records commands.
type Device interface {
	Name() string

	NewBuffer(typ BufferType, count, stride int) (Buffer, error)
	NewTexture(img *image.RGBA) (Texture, error)
	BindProgram(p Program) (ComputeBinding, error)
	BindMaterial(m Material) (MaterialBinding, error)

	// WriteBuffer replaces the buffer contents starting at record 0.
	WriteBuffer(b Buffer, data []byte)
	// SetCounterValue sets the write cursor of an append buffer.
	SetCounterValue(b Buffer, v uint32)
	// Dispatch runs groups*GroupWidth invocations of the bound program.
	Dispatch(cb ComputeBinding, groups int)
	// DrawProceduralIndirect draws a non-indexed triangle list whose counts
	// come from args (see IndirectArgs layout in the caller's package).
	DrawProceduralIndirect(mb MaterialBinding, args Buffer, params DrawParams)
}

// Reader is implemented by devices that can copy data back to the host.
// Reading synchronizes with the device and is meant for tools and tests,
// never for per-frame work.
type Reader interface {
	ReadBuffer(b Buffer) ([]byte, error)
	ReadCounter(b Buffer) (uint32, error)
}

// DispatchGroups returns ceil(items / groupWidth).
func DispatchGroups(items, groupWidth int) int {
	if items <= 0 || groupWidth <= 0 {
		return 0
	}
	return (items + groupWidth - 1) / groupWidth
}
