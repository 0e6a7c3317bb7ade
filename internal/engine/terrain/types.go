// Package terrain provides procedural heightmaps and their ground meshes.
package terrain

import "github.com/Faultbox/midgard-grass/pkg/math"

// Vertex represents a ground mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// Mesh holds the ground mesh data ready for GPU upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   math.AABB
}

// Heightmap is a regular grid of corner heights centered on the origin.
type Heightmap struct {
	Altitudes [][]float32 // [x][z] corner heights, (TilesX+1) x (TilesZ+1)
	TilesX    int         // Number of tiles in X direction
	TilesZ    int         // Number of tiles in Z direction
	TileZoom  float32     // Size of each tile in world units
}

// Params controls procedural heightmap generation.
type Params struct {
	Tiles     int     // Tiles per side
	TileZoom  float32 // Tile size in world units
	Amplitude float32 // Peak hill height
	Frequency float32 // Hills per world unit
	Seed      uint32
}

// DefaultParams returns a gently rolling 100x100 unit field.
func DefaultParams() Params {
	return Params{
		Tiles:     50,
		TileZoom:  2,
		Amplitude: 3,
		Frequency: 0.04,
	}
}
