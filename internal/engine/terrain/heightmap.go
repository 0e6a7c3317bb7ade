package terrain

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Generate builds a procedural heightmap from layered sine hills.
func Generate(p Params) *Heightmap {
	if p.Tiles <= 0 {
		p.Tiles = 1
	}
	if p.TileZoom <= 0 {
		p.TileZoom = 1
	}

	// Per-seed phase offsets so different seeds give different fields.
	phase := func(k uint32) float32 {
		h := (p.Seed+k)*747796405 + 2891336453
		return float32(h>>8) / float32(1<<24) * 2 * math32.Pi
	}
	px, pz, pd := phase(0), phase(1), phase(2)

	h := &Heightmap{
		TilesX:   p.Tiles,
		TilesZ:   p.Tiles,
		TileZoom: p.TileZoom,
	}
	h.Altitudes = make([][]float32, p.Tiles+1)
	for x := range p.Tiles + 1 {
		h.Altitudes[x] = make([]float32, p.Tiles+1)
		for z := range p.Tiles + 1 {
			wx, wz := h.cornerWorld(x, z)
			f := p.Frequency * 2 * math32.Pi
			alt := math32.Sin(wx*f+px)*math32.Cos(wz*f+pz) +
				0.5*math32.Sin((wx+wz)*f*1.7+pd)
			h.Altitudes[x][z] = alt * p.Amplitude / 1.5
		}
	}
	return h
}

// Flat returns a heightmap of constant height zero.
func Flat(tiles int, tileZoom float32) *Heightmap {
	return Generate(Params{Tiles: tiles, TileZoom: tileZoom})
}

// Extent returns the world size of the heightmap along X and Z.
func (h *Heightmap) Extent() (float32, float32) {
	return float32(h.TilesX) * h.TileZoom, float32(h.TilesZ) * h.TileZoom
}

func (h *Heightmap) cornerWorld(x, z int) (float32, float32) {
	ex, ez := h.Extent()
	return float32(x)*h.TileZoom - ex/2, float32(z)*h.TileZoom - ez/2
}

// Height returns the bilinearly interpolated height at a world position.
// Positions outside the map are clamped to its edge.
func (h *Heightmap) Height(worldX, worldZ float32) float32 {
	ex, ez := h.Extent()
	cellFX := (worldX + ex/2) / h.TileZoom
	cellFZ := (worldZ + ez/2) / h.TileZoom

	cellX := clampi(int(math32.Floor(cellFX)), 0, h.TilesX-1)
	cellZ := clampi(int(math32.Floor(cellFZ)), 0, h.TilesZ-1)

	// Fractional position within the cell (0-1)
	fracX := clampf(cellFX-float32(cellX), 0, 1)
	fracZ := clampf(cellFZ-float32(cellZ), 0, 1)

	// Lower Z edge, then upper Z edge, then between them.
	south := h.Altitudes[cellX][cellZ]*(1-fracX) + h.Altitudes[cellX+1][cellZ]*fracX
	north := h.Altitudes[cellX][cellZ+1]*(1-fracX) + h.Altitudes[cellX+1][cellZ+1]*fracX
	return south*(1-fracZ) + north*fracZ
}

// Normal returns the surface normal at a world position from central
// differences of Height.
func (h *Heightmap) Normal(worldX, worldZ float32) math.Vec3 {
	d := h.TileZoom * 0.5
	dx := h.Height(worldX+d, worldZ) - h.Height(worldX-d, worldZ)
	dz := h.Height(worldX, worldZ+d) - h.Height(worldX, worldZ-d)
	return math.Vec3{X: -dx, Y: 2 * d, Z: -dz}.Normalize()
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
