package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-grass/internal/config"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

func savePatch(t *testing.T, blades int) string {
	t.Helper()
	p := grass.NewPatch("test")
	p.Vertices = grass.Scatter(terrain.Flat(10, 1), blades, 8, 1)
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, p.Save(path))
	return path
}

func TestParseVec3(t *testing.T) {
	v, err := parseVec3("1, -2.5,3")
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{X: 1, Y: -2.5, Z: 3}, v)

	_, err = parseVec3("1,2")
	assert.Error(t, err)
	_, err = parseVec3("1,x,3")
	assert.Error(t, err)
}

func TestWriteOBJ(t *testing.T) {
	tris := []grass.DrawTriangle{
		{Normal: math.Vec3{Z: 1}, Vertices: [3]grass.DrawVertex{
			{Position: math.Vec3{}}, {Position: math.Vec3{X: 1}}, {Position: math.Vec3{Y: 1}, Height: 1},
		}},
		{Normal: math.Vec3{X: 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeOBJ(&buf, "blade", tris))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	count := map[string]int{}
	for _, l := range lines {
		count[strings.Fields(l)[0]]++
	}
	assert.Equal(t, 6, count["v"])
	assert.Equal(t, 2, count["vn"])
	assert.Equal(t, 2, count["f"])
	assert.Contains(t, buf.String(), "o blade\n")
	assert.Contains(t, buf.String(), "f 4//2 5//2 6//2\n")
}

func TestBakerFrame(t *testing.T) {
	p, err := grass.LoadPatch(savePatch(t, 30))
	require.NoError(t, err)

	b := newBaker(p)
	defer b.Close()
	require.Equal(t, grass.Active, b.pipeline.State(), "err: %v", b.pipeline.Err())

	res, err := b.Frame(math.Vec3{}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Triangles)
	assert.LessOrEqual(t, len(res.Triangles), b.pipeline.Capacity())
	assert.Equal(t, uint32(3*len(res.Triangles)), res.Args.VertexCountPerInstance)
	assert.Equal(t, uint32(1), res.Args.InstanceCount)

	// Same inputs, same triangle count.
	again, err := b.Frame(math.Vec3{}, 0)
	require.NoError(t, err)
	assert.Len(t, again.Triangles, len(res.Triangles))
}

func TestCmdInfo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cmdInfo([]string{savePatch(t, 12)}, &out))

	s := out.String()
	assert.Contains(t, s, "Blades:    12")
	assert.Contains(t, s, "State:     active")
	assert.Contains(t, s, "Capacity:")
	assert.Contains(t, s, "World:")

	assert.Error(t, cmdInfo(nil, &out))
}

func TestCmdBakeWritesOBJ(t *testing.T) {
	obj := filepath.Join(t.TempDir(), "out.obj")
	var out bytes.Buffer
	require.NoError(t, cmdBake([]string{"-frames", "2", "-obj", obj, savePatch(t, 8)}, &out))
	assert.Contains(t, out.String(), "frame 1:")
	assert.FileExists(t, obj)
}

func TestCmdConfig(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cmdConfig(nil, &out))
	assert.Contains(t, out.String(), "backend: gl")

	path := filepath.Join(t.TempDir(), "grass.yaml")
	out.Reset()
	require.NoError(t, cmdConfig([]string{path}, &out))
	assert.Contains(t, out.String(), "Wrote "+path)

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Grass, cfg.Grass)
}
