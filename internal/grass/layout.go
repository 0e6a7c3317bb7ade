package grass

import (
	"encoding/binary"
	"fmt"
	"math"

	gmath "github.com/Faultbox/midgard-grass/pkg/math"
)

// Byte strides shared by host code and device programs. Device structs are
// declared with scalar floats so std430 packing matches these exactly.
const (
	SourceVertexStride = 4 * (3 + 3)              // position, normal
	DrawVertexStride   = 4 * (3 + 1)              // position, height
	DrawTriangleStride = 4*3 + 3*DrawVertexStride // normal, 3 vertices
	IndirectArgsStride = 4 * 4
)

// SourceVertex is an anchor point that seeds one blade.
// Layout: 24 bytes, position.xyz then normal.xyz as little-endian float32.
type SourceVertex struct {
	Position gmath.Vec3 `yaml:"position"`
	Normal   gmath.Vec3 `yaml:"normal"`
}

// Put writes v into dst, which must hold SourceVertexStride bytes.
func (v SourceVertex) Put(dst []byte) {
	putVec3(dst[0:], v.Position)
	putVec3(dst[12:], v.Normal)
}

// DecodeSourceVertex reads a SourceVertex from src.
func DecodeSourceVertex(src []byte) SourceVertex {
	return SourceVertex{Position: vec3At(src[0:]), Normal: vec3At(src[12:])}
}

// MarshalSourceVertices packs vertices contiguously in index order.
func MarshalSourceVertices(vs []SourceVertex) []byte {
	buf := make([]byte, len(vs)*SourceVertexStride)
	for i, v := range vs {
		v.Put(buf[i*SourceVertexStride:])
	}
	return buf
}

// DrawVertex is one corner of a generated triangle. Height runs from 0 at
// the blade root to 1 at the tip and stands in for a texture v coordinate.
type DrawVertex struct {
	Position gmath.Vec3
	Height   float32
}

// DrawTriangle is one generated triangle.
// Layout: 60 bytes, normal.xyz then three {position.xyz, height}.
type DrawTriangle struct {
	Normal   gmath.Vec3
	Vertices [3]DrawVertex
}

// Put writes t into dst, which must hold DrawTriangleStride bytes.
func (t *DrawTriangle) Put(dst []byte) {
	_ = dst[DrawTriangleStride-1]
	putVec3(dst[0:], t.Normal)
	for i, v := range t.Vertices {
		off := 12 + i*DrawVertexStride
		putVec3(dst[off:], v.Position)
		putFloat(dst[off+12:], v.Height)
	}
}

// DecodeDrawTriangle reads a DrawTriangle from src.
func DecodeDrawTriangle(src []byte) DrawTriangle {
	var t DrawTriangle
	t.Normal = vec3At(src[0:])
	for i := range t.Vertices {
		off := 12 + i*DrawVertexStride
		t.Vertices[i] = DrawVertex{Position: vec3At(src[off:]), Height: floatAt(src[off+12:])}
	}
	return t
}

// DecodeDrawTriangles unpacks the first count triangles of a buffer.
func DecodeDrawTriangles(src []byte, count int) ([]DrawTriangle, error) {
	if count*DrawTriangleStride > len(src) {
		return nil, fmt.Errorf("grass: %d triangles need %d bytes, have %d",
			count, count*DrawTriangleStride, len(src))
	}
	out := make([]DrawTriangle, count)
	for i := range out {
		out[i] = DecodeDrawTriangle(src[i*DrawTriangleStride:])
	}
	return out, nil
}

// IndirectArgs is the argument block of a non-indexed indirect draw, laid
// out as four uint32 (the GL DrawArraysIndirectCommand layout).
type IndirectArgs struct {
	VertexCountPerInstance uint32
	InstanceCount          uint32
	StartVertex            uint32
	StartInstance          uint32
}

// ResetArgs is written before every generation pass. The generator fills
// in VertexCountPerInstance.
var ResetArgs = IndirectArgs{VertexCountPerInstance: 0, InstanceCount: 1}

// Marshal returns the 16-byte encoding of a.
func (a IndirectArgs) Marshal() []byte {
	buf := make([]byte, IndirectArgsStride)
	binary.LittleEndian.PutUint32(buf[0:], a.VertexCountPerInstance)
	binary.LittleEndian.PutUint32(buf[4:], a.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:], a.StartVertex)
	binary.LittleEndian.PutUint32(buf[12:], a.StartInstance)
	return buf
}

// DecodeIndirectArgs reads an IndirectArgs block.
func DecodeIndirectArgs(src []byte) IndirectArgs {
	return IndirectArgs{
		VertexCountPerInstance: binary.LittleEndian.Uint32(src[0:]),
		InstanceCount:          binary.LittleEndian.Uint32(src[4:]),
		StartVertex:            binary.LittleEndian.Uint32(src[8:]),
		StartInstance:          binary.LittleEndian.Uint32(src[12:]),
	}
}

// MaxTrianglesPerBlade is the triangle count of a blade with the given
// number of segments: two per segment below the tip, one for the tip.
func MaxTrianglesPerBlade(segments int) int {
	if segments < 1 {
		return 0
	}
	return 2*(segments-1) + 1
}

// Capacity is the number of DrawTriangle records the output buffer needs
// so that no frame can write past its end.
func Capacity(numSourceVertices, segments int) int {
	return numSourceVertices * MaxTrianglesPerBlade(segments)
}

func putFloat(dst []byte, f float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
}

func putVec3(dst []byte, v gmath.Vec3) {
	putFloat(dst[0:], v.X)
	putFloat(dst[4:], v.Y)
	putFloat(dst[8:], v.Z)
}

func floatAt(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}

func vec3At(src []byte) gmath.Vec3 {
	return gmath.Vec3{X: floatAt(src[0:]), Y: floatAt(src[4:]), Z: floatAt(src[8:])}
}
