package grass

import (
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
	"github.com/Faultbox/midgard-grass/internal/engine/gpu/soft"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

var testNoise = DefaultNoiseField(32, 1)

func testSettings() Settings {
	s := DefaultSettings()
	s.Wind.Noise = testNoise
	return s
}

// gridVertices lays n upright anchors on a unit grid around the origin.
func gridVertices(n int) []SourceVertex {
	side := 1
	for side*side < n {
		side++
	}
	vs := make([]SourceVertex, n)
	for i := range vs {
		x, z := i%side, i/side
		vs[i] = SourceVertex{
			Position: math.Vec3{X: float32(x - side/2), Z: float32(z - side/2)},
			Normal:   math.Vec3{Y: 1},
		}
	}
	return vs
}

func newTestDevice(t *testing.T) *soft.Device {
	t.Helper()
	dev := soft.New(soft.Options{Workers: 4})
	t.Cleanup(dev.Close)
	return dev
}

func newTestPipeline(t *testing.T, dev *soft.Device, s Settings, vs []SourceVertex) *Pipeline {
	t.Helper()
	return New(dev, NewSoftProgram(), NewSoftMaterial(), s, WithName(t.Name()), WithVertices(vs))
}

// readFrame waits for the device and returns the indirect args and the
// triangles generated by the last frame.
func readFrame(t *testing.T, dev *soft.Device, p *Pipeline) (IndirectArgs, []DrawTriangle) {
	t.Helper()
	triangles, args := p.Buffers()
	require.NotNil(t, triangles)

	raw, err := dev.ReadBuffer(args)
	require.NoError(t, err)
	count, err := dev.ReadCounter(triangles)
	require.NoError(t, err)
	data, err := dev.ReadBuffer(triangles)
	require.NoError(t, err)
	tris, err := DecodeDrawTriangles(data, int(count))
	require.NoError(t, err)
	return DecodeIndirectArgs(raw), tris
}

func TestPipelineCapacity(t *testing.T) {
	tests := []struct {
		vertices int
		segments int
		want     int
	}{
		{1, 1, 1},
		{1, 8, 15},
		{10, 3, 50},
		{100, 8, 1500},
		{65, 2, 195},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capacity(tt.vertices, tt.segments))

		dev := newTestDevice(t)
		s := testSettings()
		s.Form.MaxSegments = tt.segments
		p := newTestPipeline(t, dev, s, gridVertices(tt.vertices))
		p.Activate()
		require.Equal(t, Active, p.State(), "err: %v", p.Err())

		assert.Equal(t, tt.want, p.Capacity())
		assert.Equal(t, tt.vertices*(2*(tt.segments-1)+1), p.Capacity())
		triangles, _ := p.Buffers()
		assert.Equal(t, tt.want, triangles.Count())
		assert.Equal(t, DrawTriangleStride, triangles.Stride())
		assert.Equal(t, gpu.DispatchGroups(tt.vertices, SoftGroupWidth), p.DispatchGroups())
	}
}

func TestInvalidSegmentsDoesNothing(t *testing.T) {
	for _, segments := range []int{0, -1, -8} {
		dev := newTestDevice(t)
		s := testSettings()
		s.Form.MaxSegments = segments
		p := newTestPipeline(t, dev, s, gridVertices(4))

		assert.True(t, p.HasIssues())
		p.Activate()
		assert.Equal(t, Invalid, p.State())
		assert.ErrorIs(t, p.Err(), ErrInvalidSegments)
		assert.True(t, IsConfigurationError(p.Err()))

		before := dev.Submitted()
		for i := 0; i < 3; i++ {
			p.FrameStep(math.Vec3{}, float32(i), IdentityTransform())
		}
		dev.Wait()
		assert.Equal(t, before, dev.Submitted(), "segments=%d", segments)
		assert.Empty(t, dev.Draws())
	}
}

func TestMissingInputsInvalidate(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(p *Pipeline)
		want      error
		hasIssues bool
	}{
		{"program", func(p *Pipeline) { p.SetProgram(nil) }, ErrMissingProgram, true},
		{"material", func(p *Pipeline) { p.SetMaterial(nil) }, ErrMissingMaterial, true},
		{"noise", func(p *Pipeline) {
			s := p.Settings()
			s.Wind.Noise = nil
			p.SetSettings(s)
		}, ErrMissingNoise, true},
		{"negative height", func(p *Pipeline) {
			s := p.Settings()
			s.Form.Height = -1
			p.SetSettings(s)
		}, ErrInvalidSettings, true},
		{"no vertices", func(p *Pipeline) { p.ResetVertices() }, ErrNoVertices, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newTestDevice(t)
			p := newTestPipeline(t, dev, testSettings(), gridVertices(4))
			assert.False(t, p.HasIssues())

			tt.setup(p)
			assert.Equal(t, tt.hasIssues, p.HasIssues())

			p.Activate()
			assert.Equal(t, Invalid, p.State())
			assert.ErrorIs(t, p.Err(), tt.want)

			before := dev.Submitted()
			p.FrameStep(math.Vec3{}, 0, IdentityTransform())
			assert.Equal(t, before, dev.Submitted())
		})
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	dev := newTestDevice(t)
	p := newTestPipeline(t, dev, testSettings(), gridVertices(8))

	// Never activated.
	p.Deactivate()
	assert.Equal(t, Uninitialized, p.State())

	p.Activate()
	require.Equal(t, Active, p.State())
	triangles, args := p.Buffers()

	p.Deactivate()
	dev.Wait()
	afterFirst := dev.Submitted()

	p.Deactivate()
	dev.Wait()
	assert.Equal(t, afterFirst, dev.Submitted())
	assert.Equal(t, Uninitialized, p.State())
	assert.NoError(t, p.Err())
	assert.Zero(t, p.Capacity())

	assert.True(t, triangles.(*soft.Buffer).Released())
	assert.True(t, args.(*soft.Buffer).Released())

	// Inactive frames submit nothing.
	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	assert.Equal(t, afterFirst, dev.Submitted())
}

func TestActivateTwiceMatchesOnce(t *testing.T) {
	vs := gridVertices(37)

	once := newTestPipeline(t, newTestDevice(t), testSettings(), vs)
	once.Activate()

	dev := newTestDevice(t)
	twice := newTestPipeline(t, dev, testSettings(), vs)
	twice.Activate()
	firstTriangles, firstArgs := twice.Buffers()
	twice.Activate()

	assert.Equal(t, once.State(), twice.State())
	assert.Equal(t, once.Capacity(), twice.Capacity())
	assert.Equal(t, once.DispatchGroups(), twice.DispatchGroups())
	lo, _ := once.LocalBounds()
	lt, ok := twice.LocalBounds()
	assert.True(t, ok)
	assert.Equal(t, lo, lt)

	// The first allocation was released, not leaked.
	assert.True(t, firstTriangles.(*soft.Buffer).Released())
	assert.True(t, firstArgs.(*soft.Buffer).Released())
	triangles, _ := twice.Buffers()
	assert.False(t, triangles.(*soft.Buffer).Released())

	twice.FrameStep(math.Vec3{}, 0, IdentityTransform())
	args, tris := readFrame(t, dev, twice)
	assert.Len(t, tris, twice.Capacity())
	assert.Equal(t, uint32(3*len(tris)), args.VertexCountPerInstance)
}

func TestIndirectArgsResetLaw(t *testing.T) {
	dev := newTestDevice(t)
	s := testSettings()
	s.LOD.ClipDistance = 20
	s.LOD.ClipBlend = 0
	p := newTestPipeline(t, dev, s, gridVertices(50))
	p.Activate()
	require.Equal(t, Active, p.State())
	dev.Wait()

	triangles, args := p.Buffers()
	tb, ab := triangles.(*soft.Buffer), args.(*soft.Buffer)

	var mu sync.Mutex
	var kinds []hookRecord
	dev.SetHook(func(op soft.Op) {
		mu.Lock()
		defer mu.Unlock()
		at := hookRecord{Kind: op.Kind}
		if op.Kind == soft.OpDispatch {
			at.Args = [4]uint32{ab.Word(0), ab.Word(1), ab.Word(2), ab.Word(3)}
			at.Counter = tb.Counter()
		}
		kinds = append(kinds, at)
	})

	cameras := []math.Vec3{
		{},              // everything within reach
		{X: 1000},       // everything clipped
		{X: 21},         // part of the grid
		{Y: 5, Z: -3.5}, // everything again
	}
	for i, cam := range cameras {
		mu.Lock()
		kinds = kinds[:0]
		mu.Unlock()

		p.FrameStep(cam, float32(i), IdentityTransform())
		got, tris := readFrame(t, dev, p)

		mu.Lock()
		require.Len(t, kinds, 4, "frame %d", i)
		assert.Equal(t, soft.OpSetCounter, kinds[0].Kind)
		assert.Equal(t, soft.OpWriteBuffer, kinds[1].Kind)
		assert.Equal(t, soft.OpDispatch, kinds[2].Kind)
		assert.Equal(t, soft.OpDraw, kinds[3].Kind)
		assert.Equal(t, [4]uint32{0, 1, 0, 0}, kinds[2].Args, "frame %d args before generation", i)
		assert.Zero(t, kinds[2].Counter)
		mu.Unlock()

		assert.Equal(t, uint32(3*len(tris)), got.VertexCountPerInstance, "frame %d", i)
		assert.Equal(t, uint32(1), got.InstanceCount)
		assert.Zero(t, got.StartVertex)
		assert.Zero(t, got.StartInstance)
		assert.Zero(t, len(tris)%s.MaxTrianglesPerBlade())

		draw, ok := dev.LastDraw()
		require.True(t, ok)
		assert.Equal(t, got.VertexCountPerInstance, draw.VertexCount)
		assert.False(t, draw.CastShadows)
		assert.Equal(t, p.WorldBounds(), draw.Bounds)
		assert.Equal(t, tb.ID(), draw.Buffers[BindDrawTriangles])

		switch i {
		case 0, 3:
			assert.Len(t, tris, p.Capacity())
		case 1:
			assert.Empty(t, tris)
		case 2:
			assert.NotEmpty(t, tris)
			assert.Less(t, len(tris), p.Capacity())
		}
	}
}

// hookRecord is what the reset-law hook saw when a command started.
type hookRecord struct {
	Kind    soft.OpKind
	Args    [4]uint32
	Counter uint32
}

func TestRemovalLaw(t *testing.T) {
	base := gridVertices(20)
	extra := []SourceVertex{
		{Position: math.Vec3{X: 100}, Normal: math.Vec3{Y: 1}},
		{Position: math.Vec3{X: 101}, Normal: math.Vec3{Y: 1}},
		{Position: math.Vec3{X: 100}, Normal: math.Vec3{Y: 1}},
	}

	dev := newTestDevice(t)
	p := newTestPipeline(t, dev, testSettings(), base)
	p.AddVertices(extra)
	assert.Len(t, p.Vertices(), len(base)+len(extra))
	p.RemoveVertices(extra)
	assert.ElementsMatch(t, base, p.Vertices())

	// Duplicates collapse on removal.
	p.AddVertices(base[:3])
	p.RemoveVertices(extra)
	assert.ElementsMatch(t, base, p.Vertices())
}

// Inside the blend band a fraction of blades survives. Each blade draws
// its own keep threshold from its seed, so the fraction is taken across the
// ring of blades; a single blade is either kept or dropped in every frame.
func TestClipBlendThinsBladesAcrossBand(t *testing.T) {
	const clip, blend = 10, 4
	ring := func(radius float32, n int) []SourceVertex {
		vs := make([]SourceVertex, n)
		for i := range vs {
			a := float32(i) / float32(n) * 2 * math32.Pi
			vs[i] = SourceVertex{
				Position: math.Vec3{X: radius * math32.Cos(a), Z: radius * math32.Sin(a)},
				Normal:   math.Vec3{Y: 1},
			}
		}
		return vs
	}

	tests := []struct {
		name   string
		radius float32
		check  func(t *testing.T, emitted, total int)
	}{
		{"at camera", 0, func(t *testing.T, emitted, total int) {
			assert.Equal(t, total, emitted)
		}},
		{"mid blend", clip + blend/2, func(t *testing.T, emitted, total int) {
			assert.Greater(t, emitted, 0)
			assert.Less(t, emitted, total)
		}},
		{"beyond blend", clip + blend*2, func(t *testing.T, emitted, total int) {
			assert.Zero(t, emitted)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 400
			s := testSettings()
			s.LOD.ClipDistance = clip
			s.LOD.ClipBlend = blend
			s.Form.MaxSegments = 1

			dev := newTestDevice(t)
			p := newTestPipeline(t, dev, s, ring(tt.radius, n))
			p.Activate()
			require.Equal(t, Active, p.State())

			var perFrame []int
			for frame := 0; frame < 5; frame++ {
				p.FrameStep(math.Vec3{}, float32(frame)*0.37, IdentityTransform())
				_, tris := readFrame(t, dev, p)
				perFrame = append(perFrame, len(tris))
			}
			for _, c := range perFrame[1:] {
				assert.Equal(t, perFrame[0], c, "kept blades must not change with time")
			}
			tt.check(t, perFrame[0], n)
		})
	}
}

func TestWorldBoundsContainGeometry(t *testing.T) {
	transforms := []Transform{
		IdentityTransform(),
		{
			Position: math.Vec3{X: 5, Y: -2, Z: 9},
			Rotation: math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.7),
			Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
		},
		{
			Position: math.Vec3{X: -40, Y: 3},
			Rotation: math.QuatFromAxisAngle(math.Vec3{X: 1, Y: 1, Z: 0}.Normalize(), 1.1),
			Scale:    math.Vec3{X: 3, Y: 0.5, Z: -2},
		},
	}

	vs := gridVertices(64)
	for i := range vs {
		// Tilted normals so blades lean in every direction.
		vs[i].Position.Y = float32(i%7) * 0.3
		vs[i].Normal = math.Vec3{X: float32(i%3) - 1, Y: 1, Z: float32(i%5)*0.5 - 1}
	}

	for i, tr := range transforms {
		dev := newTestDevice(t)
		s := testSettings()
		s.Form.MaxBendAngle = 1
		s.Wind.Amplitude = 2
		s.LOD.ClipDistance = 1e6
		p := newTestPipeline(t, dev, s, vs)
		p.Activate()
		require.Equal(t, Active, p.State())

		p.FrameStep(tr.Position, 3, tr)
		world := p.WorldBounds()
		m := tr.Matrix()
		for _, v := range vs {
			assert.True(t, world.Contains(m.TransformVec3(v.Position), 1e-4),
				"transform %d: source %v outside %v", i, v.Position, world)
		}

		_, tris := readFrame(t, dev, p)
		require.Len(t, tris, p.Capacity())
		for _, tri := range tris {
			for _, dv := range tri.Vertices {
				assert.True(t, world.Contains(dv.Position, 1e-3),
					"transform %d: vertex %v outside %v", i, dv.Position, world)
			}
		}
	}
}

func TestConfigurationChangeReactivates(t *testing.T) {
	dev := newTestDevice(t)
	p := newTestPipeline(t, dev, testSettings(), gridVertices(10))

	// Mutations before the first activation do not activate.
	p.AddVertices(gridVertices(1))
	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	assert.Equal(t, Uninitialized, p.State())

	p.Activate()
	require.Equal(t, Active, p.State())
	assert.Equal(t, Capacity(11, 8), p.Capacity())

	p.AddVertices([]SourceVertex{{Position: math.Vec3{X: 30}, Normal: math.Vec3{Y: 1}}})
	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	assert.Equal(t, Active, p.State())
	assert.Equal(t, Capacity(12, 8), p.Capacity())
	local, _ := p.LocalBounds()
	assert.GreaterOrEqual(t, local.Max.X, float32(30))

	// Break it, then fix it; each FrameStep picks up the change.
	s := p.Settings()
	s.Form.MaxSegments = 0
	p.SetSettings(s)
	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	assert.Equal(t, Invalid, p.State())

	s.Form.MaxSegments = 3
	p.SetSettings(s)
	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	assert.Equal(t, Active, p.State())
	assert.Equal(t, Capacity(12, 3), p.Capacity())

	// No change, no reactivation.
	triangles, _ := p.Buffers()
	p.FrameStep(math.Vec3{}, 1, IdentityTransform())
	again, _ := p.Buffers()
	assert.Same(t, triangles, again)
}

func TestOverrideCameraWins(t *testing.T) {
	dev := newTestDevice(t)
	s := testSettings()
	far := math.Vec3{X: 500}
	s.LOD.OverrideCamera = &far
	p := newTestPipeline(t, dev, s, gridVertices(16))
	p.Activate()

	p.FrameStep(math.Vec3{}, 0, IdentityTransform())
	_, tris := readFrame(t, dev, p)
	assert.Empty(t, tris)
}

func TestPipelinesShareProgram(t *testing.T) {
	dev := newTestDevice(t)
	prog, mat := NewSoftProgram(), NewSoftMaterial()

	a := New(dev, prog, mat, testSettings(), WithVertices(gridVertices(5)))
	b := New(dev, prog, mat, testSettings(), WithVertices(gridVertices(9)))
	a.Activate()
	b.Activate()
	a.FrameStep(math.Vec3{}, 0, IdentityTransform())
	b.FrameStep(math.Vec3{}, 0, IdentityTransform())

	_, ta := readFrame(t, dev, a)
	_, tb := readFrame(t, dev, b)
	assert.Len(t, ta, a.Capacity())
	assert.Len(t, tb, b.Capacity())

	a.Deactivate()
	b.FrameStep(math.Vec3{}, 1, IdentityTransform())
	_, tb = readFrame(t, dev, b)
	assert.Len(t, tb, b.Capacity())
}

func TestActivationIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer logger.Set(zap.New(core))()

	dev := newTestDevice(t)
	s := testSettings()
	s.Form.MaxSegments = 0
	p := New(dev, NewSoftProgram(), NewSoftMaterial(), s, WithName("meadow"), WithVertices(gridVertices(4)))
	p.Activate()

	warned := logs.FilterMessage("grass pipeline invalid").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zap.WarnLevel, warned[0].Level)
	assert.Equal(t, "meadow", warned[0].ContextMap()["patch"])

	s.Form.MaxSegments = 3
	p.SetSettings(s)
	p.Activate()
	active := logs.FilterMessage("grass pipeline active").All()
	require.Len(t, active, 1)
	assert.EqualValues(t, Capacity(4, 3), active[0].ContextMap()["capacity"])
}
