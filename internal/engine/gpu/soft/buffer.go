package soft

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
)

// Buffer is a software device buffer.
type Buffer struct {
	dev    *Device
	id     uint64
	typ    gpu.BufferType
	count  int
	stride int

	// data backs structured and append buffers; words back indirect args so
	// kernels can update them atomically.
	data  []byte
	words []uint32

	counter  atomic.Uint32
	released atomic.Bool
	freed    atomic.Bool
}

var _ gpu.Buffer = (*Buffer)(nil)

func newBuffer(d *Device, typ gpu.BufferType, count, stride int) *Buffer {
	b := &Buffer{
		dev:    d,
		id:     d.nextID.Add(1),
		typ:    typ,
		count:  count,
		stride: stride,
	}
	if typ == gpu.BufferIndirectArgs {
		b.words = make([]uint32, count*stride/4)
	} else {
		b.data = make([]byte, count*stride)
	}
	return b
}

// ID returns the device-unique buffer id.
func (b *Buffer) ID() uint64 { return b.id }

// Type implements gpu.Buffer.
func (b *Buffer) Type() gpu.BufferType { return b.typ }

// Count implements gpu.Buffer.
func (b *Buffer) Count() int { return b.count }

// Stride implements gpu.Buffer.
func (b *Buffer) Stride() int { return b.stride }

// Release implements gpu.Buffer. The memory is dropped once every command
// submitted before the release has retired.
func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.dev.submit(Op{Kind: OpRelease, Buffer: b.id, BufferType: b.typ}, func() {
		b.freed.Store(true)
		b.data = nil
		b.words = nil
	})
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b.released.Load()
}

// Record returns record i. Kernels use it to read structured buffers.
func (b *Buffer) Record(i uint32) []byte {
	off := int(i) * b.stride
	return b.data[off : off+b.stride]
}

// Append reserves the next record through the atomic cursor and copies rec
// into it. Appending past Count panics with CapacityViolation.
func (b *Buffer) Append(rec []byte) uint32 {
	idx := b.counter.Add(1) - 1
	if int(idx) >= b.count {
		panic(CapacityViolation{Buffer: b.id, Capacity: b.count, Index: idx})
	}
	off := int(idx) * b.stride
	copy(b.data[off:off+b.stride], rec)
	return idx
}

// AtomicAdd adds delta to 32-bit word i of an indirect args buffer.
func (b *Buffer) AtomicAdd(i int, delta uint32) uint32 {
	return atomic.AddUint32(&b.words[i], delta)
}

// Word returns 32-bit word i of an indirect args buffer.
func (b *Buffer) Word(i int) uint32 {
	return atomic.LoadUint32(&b.words[i])
}

// Counter returns the current append cursor.
func (b *Buffer) Counter() uint32 {
	return b.counter.Load()
}

func (b *Buffer) write(p []byte) {
	if b.freed.Load() {
		return
	}
	if b.typ == gpu.BufferIndirectArgs {
		if len(p)%4 != 0 || len(p)/4 > len(b.words) {
			panic(fmt.Sprintf("soft: write of %d bytes to %d-word args buffer", len(p), len(b.words)))
		}
		for i := 0; i < len(p)/4; i++ {
			atomic.StoreUint32(&b.words[i], binary.LittleEndian.Uint32(p[i*4:]))
		}
		return
	}
	if len(p) > len(b.data) {
		panic(fmt.Sprintf("soft: write of %d bytes to %d-byte buffer", len(p), len(b.data)))
	}
	copy(b.data, p)
}

func (b *Buffer) loadWords() [4]uint32 {
	var w [4]uint32
	for i := 0; i < len(w) && i < len(b.words); i++ {
		w[i] = atomic.LoadUint32(&b.words[i])
	}
	return w
}

func (b *Buffer) snapshotBytes() []byte {
	if b.typ == gpu.BufferIndirectArgs {
		out := make([]byte, len(b.words)*4)
		for i := range b.words {
			binary.LittleEndian.PutUint32(out[i*4:], atomic.LoadUint32(&b.words[i]))
		}
		return out
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
