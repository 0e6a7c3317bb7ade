// Package scene assembles the ground and grass patch described by a config.
package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/assets"
	"github.com/Faultbox/midgard-grass/internal/config"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/internal/logger"
)

// Scene is a ground heightmap and the grass patch growing on it.
type Scene struct {
	Ground *terrain.Heightmap
	Patch  *grass.Patch
	Assets *assets.Manager
}

// Build loads the configured patch, or scatters a new one over the
// generated ground when no patch file is set.
func Build(cfg *config.Config) (*Scene, error) {
	mgr := assets.NewManager()
	dirs := cfg.Data.AssetDirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		if err := mgr.AddDir(dir); err != nil {
			return nil, err
		}
	}

	s := &Scene{
		Ground: terrain.Generate(cfg.Data.Terrain.Params()),
		Assets: mgr,
	}

	if cfg.Data.Patch != "" {
		p, err := grass.LoadPatch(cfg.Data.Patch)
		if err != nil {
			return nil, err
		}
		s.Patch = p
	} else {
		sc := cfg.Data.Scatter
		p := grass.NewPatch("scatter")
		p.Settings = cfg.Grass
		p.Vertices = grass.Scatter(s.Ground, sc.Count, sc.Extent, sc.Seed)
		if err := p.LoadNoise(mgr.Load); err != nil {
			return nil, fmt.Errorf("wind noise: %w", err)
		}
		s.Patch = p
	}

	logger.Info("scene built",
		zap.String("patch", s.Patch.Name),
		zap.Int("vertices", len(s.Patch.Vertices)),
		zap.Int("ground_tiles", s.Ground.TilesX),
	)
	return s, nil
}

// Close releases cached assets.
func (s *Scene) Close() {
	s.Assets.Close()
}
