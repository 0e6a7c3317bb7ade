package soft

import (
	"fmt"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// OpKind identifies a device command.
type OpKind int

const (
	OpFence OpKind = iota
	OpWriteBuffer
	OpSetCounter
	OpDispatch
	OpDraw
	OpRelease
)

func (k OpKind) String() string {
	switch k {
	case OpFence:
		return "fence"
	case OpWriteBuffer:
		return "write"
	case OpSetCounter:
		return "set-counter"
	case OpDispatch:
		return "dispatch"
	case OpDraw:
		return "draw"
	case OpRelease:
		return "release"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op describes a command as seen by a hook.
type Op struct {
	Kind       OpKind
	Buffer     uint64
	BufferType gpu.BufferType
	Groups     int
	Program    string
}

// DrawRecord is what the software device keeps of an executed draw.
type DrawRecord struct {
	Material string
	// Buffers are the ids of the buffers bound to the material, by name.
	Buffers     map[string]uint64
	Bounds      math.AABB
	CastShadows bool

	VertexCount   uint32
	InstanceCount uint32
	StartVertex   uint32
	StartInstance uint32
}

// CapacityViolation is raised when a kernel appends past the end of an
// append buffer. It signals a sizing bug in the caller, not a runtime
// condition to recover from.
type CapacityViolation struct {
	Buffer   uint64
	Capacity int
	Index    uint32
}

func (v CapacityViolation) Error() string {
	return fmt.Sprintf("soft: append %d past capacity %d of buffer %d", v.Index, v.Capacity, v.Buffer)
}
