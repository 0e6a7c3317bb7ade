// Package debug provides debug visualization utilities.
package debug

import "github.com/Faultbox/midgard-grass/pkg/math"

// BBoxWireframeVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxWireframeVertexCount = 24

// boxEdges lists corner index pairs in math.AABB.Corners order.
var boxEdges = [12][2]int{
	// Bottom face
	{0, 1}, {1, 5}, {5, 4}, {4, 0},
	// Top face
	{2, 3}, {3, 7}, {7, 6}, {6, 2},
	// Vertical edges
	{0, 2}, {1, 3}, {5, 7}, {4, 6},
}

// AppendBBoxWireframe appends line vertices for the edges of b to dst,
// format [x, y, z] per vertex. Empty boxes append nothing.
func AppendBBoxWireframe(dst []float32, b math.AABB) []float32 {
	if b.IsEmpty() {
		return dst
	}
	c := b.Corners()
	for _, e := range boxEdges {
		p, q := c[e[0]], c[e[1]]
		dst = append(dst, p.X, p.Y, p.Z, q.X, q.Y, q.Z)
	}
	return dst
}

// BBoxWireframe returns line vertices for the edges of b.
func BBoxWireframe(b math.AABB) []float32 {
	return AppendBBoxWireframe(make([]float32, 0, BBoxWireframeVertexCount*3), b)
}
