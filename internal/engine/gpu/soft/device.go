// Package soft implements gpu.Device on the CPU.
//
// Commands go onto a FIFO queue drained by a single device goroutine, so
// submission never waits for work and commands retire in order. A dispatch
// fans its groups out over a bounded worker pool; kernels append to buffers
// through atomic cursors exactly as device code would.
package soft

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/logger"
)

// DefaultGroupWidth is the preferred group width reported to programs that
// do not set their own.
const DefaultGroupWidth = 64

// Options configures a software device.
type Options struct {
	// Workers bounds how many groups run concurrently. Zero means NumCPU.
	Workers int
	// QueueDepth is the number of commands that can be pending before
	// submission blocks. Zero means 256.
	QueueDepth int
}

// Device is a software gpu.Device.
type Device struct {
	opts  Options
	queue chan command
	done  chan struct{}

	mu    sync.Mutex
	hook  func(Op)
	draws []DrawRecord
	fault any

	submitted atomic.Int64
	nextID    atomic.Uint64
}

type command struct {
	op  Op
	run func()
}

var _ gpu.Device = (*Device)(nil)
var _ gpu.Reader = (*Device)(nil)

// New starts a software device.
func New(opts Options) *Device {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}

	d := &Device{
		opts:  opts,
		queue: make(chan command, opts.QueueDepth),
		done:  make(chan struct{}),
	}
	go d.loop()

	logger.Debug("software device started",
		zap.Int("workers", opts.Workers),
		zap.Int("queue_depth", opts.QueueDepth),
	)
	return d
}

// Name implements gpu.Device.
func (d *Device) Name() string {
	return "soft"
}

// Close drains pending commands and stops the device goroutine.
func (d *Device) Close() {
	d.drain()
	close(d.queue)
	<-d.done
}

// SetHook installs a callback run on the device goroutine before each
// command executes. Pass nil to remove it.
func (d *Device) SetHook(fn func(Op)) {
	d.mu.Lock()
	d.hook = fn
	d.mu.Unlock()
}

// Submitted returns the number of commands submitted since creation.
func (d *Device) Submitted() int64 {
	return d.submitted.Load()
}

// Draws returns the draws executed so far.
func (d *Device) Draws() []DrawRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DrawRecord, len(d.draws))
	copy(out, d.draws)
	return out
}

// ClearDraws drops the recorded draws.
func (d *Device) ClearDraws() {
	d.mu.Lock()
	d.draws = d.draws[:0]
	d.mu.Unlock()
}

// LastDraw returns the most recent draw, if any.
func (d *Device) LastDraw() (DrawRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.draws) == 0 {
		return DrawRecord{}, false
	}
	return d.draws[len(d.draws)-1], true
}

// Wait blocks until every submitted command has retired. If a kernel
// violated a buffer invariant, Wait re-panics with that violation on the
// caller's goroutine.
func (d *Device) Wait() {
	d.drain()

	d.mu.Lock()
	fault := d.fault
	d.mu.Unlock()
	if fault != nil {
		panic(fault)
	}
}

func (d *Device) drain() {
	fence := make(chan struct{})
	d.submit(Op{Kind: OpFence}, func() { close(fence) })
	<-fence
}

func (d *Device) loop() {
	defer close(d.done)
	for cmd := range d.queue {
		d.mu.Lock()
		hook, faulted := d.hook, d.fault != nil
		d.mu.Unlock()

		if faulted && cmd.op.Kind != OpFence {
			continue
		}
		if hook != nil && cmd.op.Kind != OpFence {
			hook(cmd.op)
		}
		cmd.run()
	}
}

func (d *Device) submit(op Op, run func()) {
	if op.Kind != OpFence {
		d.submitted.Add(1)
	}
	d.queue <- command{op: op, run: run}
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
		return nil, fmt.Errorf("soft: empty texture image")
	}
	return newTexture(d, img), nil
}

// BindProgram implements gpu.Device.
func (d *Device) BindProgram(p gpu.Program) (gpu.ComputeBinding, error) {
	prog, ok := p.(*Program)
	if !ok {
		return nil, fmt.Errorf("soft: program %q was not created for the software device", p.Name())
	}
	return newComputeBinding(d, prog), nil
}

// BindMaterial implements gpu.Device.
func (d *Device) BindMaterial(m gpu.Material) (gpu.MaterialBinding, error) {
	mat, ok := m.(*Material)
	if !ok {
		return nil, fmt.Errorf("soft: material %q was not created for the software device", m.Name())
	}
	return newMaterialBinding(d, mat), nil
}

// WriteBuffer implements gpu.Device.
func (d *Device) WriteBuffer(b gpu.Buffer, data []byte) {
	buf := d.buffer(b)
	owned := make([]byte, len(data))
	copy(owned, data)
	d.submit(Op{Kind: OpWriteBuffer, Buffer: buf.id, BufferType: buf.typ}, func() {
		buf.write(owned)
	})
}

// SetCounterValue implements gpu.Device.
func (d *Device) SetCounterValue(b gpu.Buffer, v uint32) {
	buf := d.buffer(b)
	if buf.typ != gpu.BufferAppend {
		panic(fmt.Sprintf("soft: SetCounterValue on %s buffer", buf.typ))
	}
	d.submit(Op{Kind: OpSetCounter, Buffer: buf.id, BufferType: buf.typ}, func() {
		buf.counter.Store(v)
	})
}

// Dispatch implements gpu.Device.
func (d *Device) Dispatch(cb gpu.ComputeBinding, groups int) {
	binding := d.computeBinding(cb)
	snap := binding.snapshot()
	d.submit(Op{Kind: OpDispatch, Groups: groups, Program: binding.program.name}, func() {
		d.runDispatch(binding.program, snap, groups)
	})
}

// DrawProceduralIndirect implements gpu.Device. The software device does not
// rasterize; it resolves the indirect arguments and records the draw.
func (d *Device) DrawProceduralIndirect(mb gpu.MaterialBinding, args gpu.Buffer, params gpu.DrawParams) {
	binding := d.materialBinding(mb)
	argBuf := d.buffer(args)
	if argBuf.typ != gpu.BufferIndirectArgs {
		panic(fmt.Sprintf("soft: indirect draw with %s buffer", argBuf.typ))
	}
	buffers := binding.bufferIDs()
	d.submit(Op{Kind: OpDraw, Buffer: argBuf.id, BufferType: argBuf.typ}, func() {
		w := argBuf.loadWords()
		rec := DrawRecord{
			Material:      binding.material.name,
			Buffers:       buffers,
			Bounds:        params.Bounds,
			CastShadows:   params.CastShadows,
			VertexCount:   w[0],
			InstanceCount: w[1],
			StartVertex:   w[2],
			StartInstance: w[3],
		}
		d.mu.Lock()
		d.draws = append(d.draws, rec)
		d.mu.Unlock()
	})
}

// ReadBuffer implements gpu.Reader.
func (d *Device) ReadBuffer(b gpu.Buffer) ([]byte, error) {
	buf := d.buffer(b)
	var out []byte
	var err error
	done := make(chan struct{})
	d.submit(Op{Kind: OpFence}, func() {
		defer close(done)
		if buf.released.Load() {
			err = fmt.Errorf("soft: read of released buffer %d", buf.id)
			return
		}
		out = buf.snapshotBytes()
	})
	<-done
	return out, err
}

// ReadCounter implements gpu.Reader.
func (d *Device) ReadCounter(b gpu.Buffer) (uint32, error) {
	buf := d.buffer(b)
	if buf.typ != gpu.BufferAppend {
		return 0, fmt.Errorf("soft: %s buffer has no counter", buf.typ)
	}
	var v uint32
	done := make(chan struct{})
	d.submit(Op{Kind: OpFence}, func() {
		v = buf.counter.Load()
		close(done)
	})
	<-done
	return v, nil
}

func (d *Device) runDispatch(p *Program, snap *Snapshot, groups int) {
	if groups <= 0 {
		return
	}
	invoke := p.kernel(snap)
	width := p.groupWidth

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(d.opts.Workers)
	for group := 0; group < groups; group++ {
		base := uint32(group * width)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if v, ok := r.(CapacityViolation); ok {
						err = v
						return
					}
					panic(r)
				}
			}()
			for i := 0; i < width; i++ {
				invoke(base + uint32(i))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("dispatch faulted", zap.String("program", p.name), zap.Error(err))
		d.mu.Lock()
		d.fault = err
		d.mu.Unlock()
	}
}

func (d *Device) buffer(b gpu.Buffer) *Buffer {
	buf, ok := b.(*Buffer)
	if !ok || buf.dev != d {
		panic("soft: buffer belongs to another device")
	}
	return buf
}

func (d *Device) computeBinding(cb gpu.ComputeBinding) *ComputeBinding {
	b, ok := cb.(*ComputeBinding)
	if !ok || b.dev != d {
		panic("soft: compute binding belongs to another device")
	}
	return b
}

func (d *Device) materialBinding(mb gpu.MaterialBinding) *MaterialBinding {
	b, ok := mb.(*MaterialBinding)
	if !ok || b.dev != d {
		panic("soft: material binding belongs to another device")
	}
	return b
}
