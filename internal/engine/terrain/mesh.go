package terrain

import (
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// groundColor tints the ground under the grass.
var groundColor = [4]float32{0.32, 0.26, 0.18, 1}

// BuildMesh creates a ground mesh with one vertex per heightmap corner.
func BuildMesh(h *Heightmap) *Mesh {
	stride := h.TilesZ + 1
	mesh := &Mesh{
		Vertices: make([]Vertex, 0, (h.TilesX+1)*stride),
		Indices:  make([]uint32, 0, h.TilesX*h.TilesZ*6),
		Bounds:   math.EmptyAABB(),
	}

	for x := range h.TilesX + 1 {
		for z := range h.TilesZ + 1 {
			wx, wz := h.cornerWorld(x, z)
			pos := math.Vec3{X: wx, Y: h.Altitudes[x][z], Z: wz}
			mesh.Bounds = mesh.Bounds.Encapsulate(pos)
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: pos.Array(),
				Normal:   h.Normal(wx, wz).Array(),
				Color:    groundColor,
			})
		}
	}

	// Two triangles per tile, counter-clockwise seen from above.
	for x := range h.TilesX {
		for z := range h.TilesZ {
			i0 := uint32(x*stride + z)
			i1 := uint32((x+1)*stride + z)
			i2 := uint32(x*stride + z + 1)
			i3 := uint32((x+1)*stride + z + 1)
			mesh.Indices = append(mesh.Indices,
				i0, i2, i1,
				i1, i2, i3,
			)
		}
	}
	return mesh
}
